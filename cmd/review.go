package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vectis-research/sinotrace/internal/model"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Record analyst review decisions",
}

var reviewSetCmd = &cobra.Command{
	Use:   "set <record-id> <status>",
	Short: "Set the review status of one record",
	Long:  "Status is one of CONFIRMED, REJECTED, UNCERTAIN, or UNREVIEWED.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		status := model.ReviewStatus(strings.ToUpper(args[1]))
		if !model.ValidReviewStatus(status) {
			return eris.Errorf("invalid review status: %s", args[1])
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		return st.UpdateReviewStatus(ctx, args[0], status)
	},
}

var reviewImportCmd = &cobra.Command{
	Use:   "import <reviewed.csv>",
	Short: "Apply review decisions from a filled-in review CSV",
	Long:  "Reads a review CSV exported by this tool and applies the review_status (or true_positive yes/no) column back to the store.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrapf(err, "open %s", args[0])
		}
		defer f.Close() //nolint:errcheck

		decisions, err := parseReviewCSV(f)
		if err != nil {
			return err
		}
		if len(decisions) == 0 {
			fmt.Fprintln(os.Stderr, "No review decisions found.")
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		var applied int
		for _, d := range decisions {
			if err := st.UpdateReviewStatus(ctx, d.RecordID, d.Status); err != nil {
				zap.L().Warn("review update failed",
					zap.String("record_id", d.RecordID),
					zap.Error(err),
				)
				continue
			}
			applied++
		}

		fmt.Fprintf(os.Stderr, "Applied %d of %d review decisions.\n", applied, len(decisions))
		return nil
	},
}

func init() {
	reviewCmd.AddCommand(reviewSetCmd)
	reviewCmd.AddCommand(reviewImportCmd)
	rootCmd.AddCommand(reviewCmd)
}

// reviewDecision is one row of a filled-in review CSV.
type reviewDecision struct {
	RecordID string
	Status   model.ReviewStatus
}

// parseReviewCSV extracts review decisions from a review CSV. Rows with
// neither review_status nor true_positive filled in are skipped. An
// explicit review_status wins over the true_positive shorthand.
func parseReviewCSV(r io.Reader) ([]reviewDecision, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "review: read header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	idCol, ok := cols["id"]
	if !ok {
		return nil, eris.New("review: csv has no id column")
	}
	statusCol, hasStatus := cols["review_status"]
	tpCol, hasTP := cols["true_positive"]
	if !hasStatus && !hasTP {
		return nil, eris.New("review: csv has neither review_status nor true_positive column")
	}

	cell := func(row []string, i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var decisions []reviewDecision
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "review: line %d", line)
		}

		id := cell(row, idCol)
		if id == "" {
			continue
		}

		var status model.ReviewStatus
		if hasStatus {
			if s := strings.ToUpper(cell(row, statusCol)); s != "" {
				status = model.ReviewStatus(s)
			}
		}
		if status == "" && hasTP {
			switch strings.ToLower(cell(row, tpCol)) {
			case "yes", "y", "true", "1":
				status = model.StatusConfirmed
			case "no", "n", "false", "0":
				status = model.StatusRejected
			}
		}
		if status == "" {
			continue
		}
		if !model.ValidReviewStatus(status) {
			return nil, eris.Errorf("review: line %d: invalid status %q", line, status)
		}
		decisions = append(decisions, reviewDecision{RecordID: id, Status: status})
	}
	return decisions, nil
}
