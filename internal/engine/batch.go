package engine

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vectis-research/sinotrace/internal/ingest"
	"github.com/vectis-research/sinotrace/internal/model"
)

// BatchResult summarizes one batch run.
type BatchResult struct {
	RunID      string
	RulesHash  string
	Records    []*model.ClassifiedRecord
	Processed  int64 // records classified (incl. dropped no-matches)
	Detected   int64 // records kept in output
	Skipped    int64 // malformed rows skipped by adapters
	SourcesRun int
	SourcesCut int // skipped via checkpoint
	StartedAt  time.Time
	Duration   time.Duration
}

// Runner executes the engine over many source files, sharding across
// workers. Each record completes atomically; cancellation stops
// submitting new records and flushes the checkpoint, leaving completed
// work valid.
type Runner struct {
	Engine      *Engine
	Checkpoint  *CheckpointManager
	Concurrency int
}

// Run processes every source not already checkpointed. Output order is
// canonicalized (source file, then line) so fixed inputs yield
// byte-identical output regardless of worker interleaving.
func (r *Runner) Run(ctx context.Context, sources []ingest.Source) (*BatchResult, error) {
	start := time.Now()
	res := &BatchResult{
		RunID:     uuid.New().String(),
		RulesHash: r.Engine.RulesHash(),
		StartedAt: start.UTC(),
	}
	log := zap.L().With(zap.String("run_id", res.RunID))

	var todo []ingest.Source
	for _, src := range sources {
		if r.Checkpoint != nil && r.Checkpoint.Completed(src.ID()) {
			res.SourcesCut++
			log.Info("skipping checkpointed source", zap.String("source", src.ID()))
			continue
		}
		todo = append(todo, src)
	}
	res.SourcesRun = len(todo)

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	log.Info("starting batch",
		zap.Int("sources", len(todo)),
		zap.Int("checkpointed", res.SourcesCut),
		zap.Int("concurrency", concurrency),
		zap.String("rules_hash", res.RulesHash),
	)

	var (
		mu                           sync.Mutex
		processed, detected, skipped atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, src := range todo {
		g.Go(func() error {
			slog := log.With(zap.String("source", src.ID()))

			var local []*model.ClassifiedRecord
			nSkipped, err := src.Each(gctx, func(rec model.RawRecord) error {
				processed.Add(1)
				out, ok := r.Engine.Process(rec)
				if ok {
					detected.Add(1)
					local = append(local, out)
				}
				if r.Checkpoint != nil {
					if err := r.Checkpoint.MaybeFlush(gctx); err != nil && gctx.Err() == nil {
						slog.Warn("checkpoint flush failed", zap.Error(err))
					}
				}
				return nil
			})
			skipped.Add(int64(nSkipped))
			if err != nil {
				if gctx.Err() != nil {
					// Cancelled mid-file: keep completed records, do not
					// checkpoint the source.
					mu.Lock()
					res.Records = append(res.Records, local...)
					mu.Unlock()
					return err
				}
				// A failed source does not abort the batch.
				slog.Error("source failed", zap.Error(err))
				return nil
			}

			mu.Lock()
			res.Records = append(res.Records, local...)
			mu.Unlock()

			if r.Checkpoint != nil {
				if err := r.Checkpoint.MarkCompleted(src.ID()); err != nil {
					return eris.Wrapf(err, "engine: checkpoint %s", src.ID())
				}
			}
			slog.Info("source complete", zap.Int("detected", len(local)), zap.Int("skipped", nSkipped))
			return nil
		})
	}

	runErr := g.Wait()

	// Final flush covers the cancellation path.
	if r.Checkpoint != nil {
		if err := r.Checkpoint.Flush(); err != nil {
			log.Warn("final checkpoint flush failed", zap.Error(err))
		}
	}

	sortRecords(res.Records)
	res.Processed = processed.Load()
	res.Detected = detected.Load()
	res.Skipped = skipped.Load()
	res.Duration = time.Since(start)

	log.Info("batch complete",
		zap.Int64("processed", res.Processed),
		zap.Int64("detected", res.Detected),
		zap.Int64("skipped", res.Skipped),
		zap.Duration("duration", res.Duration),
	)

	if runErr != nil && !eris.Is(runErr, context.Canceled) {
		return res, runErr
	}
	return res, nil
}

// sortRecords canonicalizes output order by source position.
func sortRecords(records []*model.ClassifiedRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Raw.SourceFile != records[j].Raw.SourceFile {
			return records[i].Raw.SourceFile < records[j].Raw.SourceFile
		}
		return records[i].Raw.SourceLine < records[j].Raw.SourceLine
	})
}
