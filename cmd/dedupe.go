package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/vectis-research/sinotrace/internal/dedupe"
	"github.com/vectis-research/sinotrace/internal/model"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe <classified.json>",
	Short: "Group likely-duplicate records in a classified output file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		outPath, _ := cmd.Flags().GetString("out")

		compiled, err := loadRules()
		if err != nil {
			return err
		}

		records, err := readClassified(args[0])
		if err != nil {
			return err
		}

		dcfg := dedupe.Config{
			Threshold: compiled.Rules.Dedupe.Threshold,
			Weights:   compiled.Rules.Dedupe.Weights,
		}
		if threshold > 0 {
			dcfg.Threshold = threshold
		} else if cfg.Dedupe.Threshold > 0 {
			dcfg.Threshold = cfg.Dedupe.Threshold
		}

		groups := dedupe.Group(records, dcfg)
		return writeIndentedJSON(outPath, groups)
	},
}

func init() {
	dedupeCmd.Flags().Float64("threshold", 0, "similarity threshold override (0 = from rules)")
	dedupeCmd.Flags().String("out", "-", "output JSON path (- for stdout)")
	rootCmd.AddCommand(dedupeCmd)
}

// readClassified loads a JSON array of classified records.
func readClassified(path string) ([]*model.ClassifiedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var records []*model.ClassifiedRecord
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		return nil, eris.Wrapf(err, "decode %s", path)
	}
	return records, nil
}

// writeIndentedJSON writes v as indented JSON to path, or stdout for "-".
func writeIndentedJSON(path string, v any) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create %s", path)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
