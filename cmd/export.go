package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/vectis-research/sinotrace/internal/export"
	"github.com/vectis-research/sinotrace/internal/model"
	"github.com/vectis-research/sinotrace/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored records for analyst review",
	Long:  "Pulls classified records from the store, filtered by tier, confidence, review status, or dataset, and writes them as JSON, review CSV, or XLSX.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")
		tier, _ := cmd.Flags().GetString("tier")
		confidence, _ := cmd.Flags().GetString("confidence")
		reviewStatus, _ := cmd.Flags().GetString("review-status")
		dataset, _ := cmd.Flags().GetString("dataset")
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		records, err := st.ListClassified(ctx, store.ListFilter{
			Tier:         model.Tier(tier),
			Confidence:   model.Confidence(confidence),
			ReviewStatus: model.ReviewStatus(reviewStatus),
			Dataset:      dataset,
			Limit:        limit,
		})
		if err != nil {
			return err
		}

		switch format {
		case "json":
			return withOutput(outPath, func(w io.Writer) error {
				return export.WriteJSON(w, records)
			})
		case "csv":
			return withOutput(outPath, func(w io.Writer) error {
				return export.WriteCSV(w, records)
			})
		case "xlsx":
			if outPath == "" || outPath == "-" {
				return eris.New("xlsx export requires --out")
			}
			return export.WriteXLSX(outPath, records)
		default:
			return eris.Errorf("unsupported format: %s", format)
		}
	},
}

func init() {
	exportCmd.Flags().String("format", "csv", "output format: json, csv, or xlsx")
	exportCmd.Flags().String("out", "-", "output path (- for stdout)")
	exportCmd.Flags().String("tier", "", "filter by tier (TIER_1, TIER_2, TIER_3)")
	exportCmd.Flags().String("confidence", "", "filter by confidence (HIGH, MEDIUM, LOW)")
	exportCmd.Flags().String("review-status", "", "filter by review status")
	exportCmd.Flags().String("dataset", "", "filter by dataset label")
	exportCmd.Flags().Int("limit", 0, "max records to export (0 = store default)")
	rootCmd.AddCommand(exportCmd)
}

// withOutput opens path for writing, or uses stdout for "-".
func withOutput(path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close() //nolint:errcheck
	return fn(f)
}
