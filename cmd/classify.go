package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vectis-research/sinotrace/internal/dedupe"
	"github.com/vectis-research/sinotrace/internal/engine"
	"github.com/vectis-research/sinotrace/internal/export"
	"github.com/vectis-research/sinotrace/internal/ingest"
	"github.com/vectis-research/sinotrace/internal/model"
	"github.com/vectis-research/sinotrace/internal/store"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file> [file...]",
	Short: "Scan input files for China-linked entities",
	Long:  "Reads CSV, TSV, JSONL, or XLSX files, extracts detection signals, scores and tiers each record, and writes the classified output.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dataset, _ := cmd.Flags().GetString("dataset")
		outPath, _ := cmd.Flags().GetString("out")
		csvPath, _ := cmd.Flags().GetString("csv")
		xlsxPath, _ := cmd.Flags().GetString("xlsx")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		checkpointPath, _ := cmd.Flags().GetString("checkpoint")
		noResume, _ := cmd.Flags().GetBool("no-resume")
		includeNoMatch, _ := cmd.Flags().GetBool("include-no-match")
		group, _ := cmd.Flags().GetBool("group")
		save, _ := cmd.Flags().GetBool("save")

		compiled, err := loadRules()
		if err != nil {
			return err
		}

		sources := make([]ingest.Source, 0, len(args))
		for _, path := range args {
			src, err := ingest.Open(path)
			if err != nil {
				return err
			}
			sources = append(sources, src)
		}

		if concurrency == 0 {
			concurrency = cfg.Engine.Concurrency
		}
		if checkpointPath == "" {
			checkpointPath = cfg.Engine.CheckpointPath
		}

		runner := engine.Runner{
			Engine: engine.New(compiled, engine.Options{
				IncludeNoMatch: includeNoMatch || cfg.Engine.IncludeNoMatch,
				Dataset:        dataset,
			}),
			Concurrency: concurrency,
		}
		if !noResume && checkpointPath != "" {
			ckpt, err := engine.NewCheckpointManager(checkpointPath)
			if err != nil {
				return err
			}
			runner.Checkpoint = ckpt
		}

		var st store.Store
		if save {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return err
			}
		}

		res, runErr := runner.Run(ctx, sources)
		if res == nil {
			return runErr
		}

		var groups []model.DeduplicationGroup
		if group {
			dcfg := dedupe.Config{
				Threshold: compiled.Rules.Dedupe.Threshold,
				Weights:   compiled.Rules.Dedupe.Weights,
			}
			if cfg.Dedupe.Threshold > 0 {
				dcfg.Threshold = cfg.Dedupe.Threshold
			}
			groups = dedupe.Group(res.Records, dcfg)
		}

		if st != nil {
			if err := persistRun(ctx, st, res, runErr); err != nil {
				return err
			}
			if len(groups) > 0 {
				if err := st.SaveGroups(ctx, res.RunID, groups); err != nil {
					return err
				}
			}
		}

		if err := writeClassifiedJSON(outPath, res); err != nil {
			return err
		}
		if csvPath != "" {
			f, err := os.Create(csvPath)
			if err != nil {
				return eris.Wrapf(err, "create %s", csvPath)
			}
			defer f.Close() //nolint:errcheck
			if err := export.WriteCSV(f, res.Records); err != nil {
				return err
			}
		}
		if xlsxPath != "" {
			if err := export.WriteXLSX(xlsxPath, res.Records); err != nil {
				return err
			}
		}

		fmt.Fprintf(os.Stderr, "run %s: %d processed, %d detected, %d skipped (%s)\n",
			res.RunID, res.Processed, res.Detected, res.Skipped, res.Duration.Round(1e6))
		return runErr
	},
}

// persistRun records the batch in the run ledger and saves its records.
func persistRun(ctx context.Context, st store.Store, res *engine.BatchResult, runErr error) error {
	run := &store.RunRecord{
		ID:        res.RunID,
		RulesHash: res.RulesHash,
		StartedAt: res.StartedAt,
	}
	if err := st.StartRun(ctx, run); err != nil {
		return err
	}
	if err := st.SaveClassified(ctx, res.RunID, res.Records); err != nil {
		ferr := st.FailRun(ctx, res.RunID, err.Error())
		if ferr != nil {
			zap.L().Warn("fail run", zap.Error(ferr))
		}
		return err
	}
	if runErr != nil {
		return st.FailRun(ctx, res.RunID, runErr.Error())
	}
	return st.CompleteRun(ctx, res.RunID, res.Processed, res.Detected, res.Skipped)
}

func init() {
	classifyCmd.Flags().String("dataset", "", "dataset label for cross-source correlation")
	classifyCmd.Flags().String("out", "-", "output JSON path (- for stdout)")
	classifyCmd.Flags().String("csv", "", "also write a review CSV to this path")
	classifyCmd.Flags().String("xlsx", "", "also write a review XLSX workbook to this path")
	classifyCmd.Flags().Int("concurrency", 0, "source-level worker count (default from config)")
	classifyCmd.Flags().String("checkpoint", "", "checkpoint file path (default from config)")
	classifyCmd.Flags().Bool("no-resume", false, "ignore and do not write the checkpoint file")
	classifyCmd.Flags().Bool("include-no-match", false, "keep records with no detection signals")
	classifyCmd.Flags().Bool("group", false, "run deduplication grouping over the output")
	classifyCmd.Flags().Bool("save", false, "persist records and run ledger to the store")
	rootCmd.AddCommand(classifyCmd)
}

// writeClassifiedJSON writes the batch output as indented JSON.
func writeClassifiedJSON(path string, res *engine.BatchResult) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create %s", path)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	return export.WriteJSON(w, res.Records)
}
