package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/vectis-research/sinotrace/internal/correlate"
	"github.com/vectis-research/sinotrace/internal/model"
)

var correlateCmd = &cobra.Command{
	Use:   "correlate <dataset>=<classified.json> [<dataset>=<file>...]",
	Short: "Cluster the same entity across classified datasets",
	Long:  "Joins classified outputs from multiple datasets on normalized entity identity and reports the entities that recur across sources.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		crossOnly, _ := cmd.Flags().GetBool("cross-source")
		outPath, _ := cmd.Flags().GetString("out")

		datasets := make(map[string][]*model.ClassifiedRecord, len(args))
		for _, arg := range args {
			name, path, ok := strings.Cut(arg, "=")
			if !ok || name == "" || path == "" {
				return eris.Errorf("expected <dataset>=<file>, got %q", arg)
			}
			records, err := readClassified(path)
			if err != nil {
				return err
			}
			// Records carry their dataset label so cluster members
			// report provenance even when the file predates labeling.
			for _, rec := range records {
				if rec.Dataset == "" {
					rec.Dataset = name
				}
			}
			datasets[name] = records
		}

		clusters := correlate.Correlate(datasets)
		if crossOnly {
			clusters = correlate.CrossSource(clusters)
		}
		return writeIndentedJSON(outPath, clusters)
	},
}

func init() {
	correlateCmd.Flags().Bool("cross-source", false, "only report entities appearing in two or more datasets")
	correlateCmd.Flags().String("out", "-", "output JSON path (- for stdout)")
	rootCmd.AddCommand(correlateCmd)
}
