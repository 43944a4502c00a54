// Package engine wires the extractors, scorer and tier classifier into
// the per-record pipeline and runs it over batches of source files with
// checkpointed resume.
package engine

import (
	"time"

	"github.com/vectis-research/sinotrace/internal/classify"
	"github.com/vectis-research/sinotrace/internal/detect"
	"github.com/vectis-research/sinotrace/internal/model"
	"github.com/vectis-research/sinotrace/internal/provenance"
	"github.com/vectis-research/sinotrace/internal/rules"
)

// Options tune per-record behavior.
type Options struct {
	// IncludeNoMatch keeps records below the LOW confidence floor in the
	// output instead of dropping them.
	IncludeNoMatch bool
	// Dataset labels every produced record with its dataset name for
	// cross-source correlation.
	Dataset string
}

// Engine classifies one record at a time. It is a pure function of the
// record and the immutable rule tables: no shared mutable state, safe to
// call from any number of workers.
type Engine struct {
	rules    *rules.Compiled
	detector *detect.Detector
	opts     Options

	// now is injectable for deterministic tests.
	now func() time.Time
}

// New builds an Engine over compiled rules.
func New(c *rules.Compiled, opts Options) *Engine {
	return &Engine{
		rules:    c,
		detector: detect.New(c),
		opts:     opts,
		now:      time.Now,
	}
}

// Process classifies a single raw record. The boolean is false when the
// record scored below the LOW floor and was dropped (unless
// IncludeNoMatch). Classification is deterministic; only the provenance
// timestamp varies between runs.
func (e *Engine) Process(rec model.RawRecord) (*model.ClassifiedRecord, bool) {
	signals := e.detector.Extract(&rec)
	scored := classify.ScoreRecord(rec, signals, e.rules.Rules.Confidence)

	if scored.Confidence == model.ConfidenceNone && !e.opts.IncludeNoMatch {
		return nil, false
	}

	tier, category := classify.TierFor(&rec, e.rules)

	out := &model.ClassifiedRecord{
		ID:           provenance.RecordID(rec.SourceFile, rec.SourceLine, rec.CanonicalBytes()),
		ScoredRecord: scored,
		Tier:         tier,
		Category:     category,
		ReviewStatus: model.StatusUnreviewed,
		Provenance:   provenance.NewEntry(&rec, e.rules.Rules.Hash(), e.now()),
		Dataset:      e.opts.Dataset,
	}
	return out, true
}

// RulesHash exposes the hash of the loaded rule tables for run ledgers.
func (e *Engine) RulesHash() string {
	return e.rules.Rules.Hash()
}
