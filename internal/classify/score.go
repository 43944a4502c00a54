// Package classify turns a post-veto signal list into a total score,
// confidence bucket, risk tier and category label. Everything here is a
// pure function of the record, its signals and the rule tables: same
// inputs, same classification, regardless of row order or batch size.
package classify

import (
	"github.com/vectis-research/sinotrace/internal/model"
	"github.com/vectis-research/sinotrace/internal/rules"
)

// Score sums the weights of the post-veto signal list. No diminishing
// returns, no caps, no hidden adjustments.
func Score(signals []model.DetectionSignal) int {
	total := 0
	for _, s := range signals {
		total += s.Weight
	}
	return total
}

// ConfidenceFor maps a total score to its confidence bucket by threshold
// lookup. Scores below the LOW boundary are no detection.
func ConfidenceFor(score int, t rules.ConfidenceThresholds) model.Confidence {
	switch {
	case score >= t.High:
		return model.ConfidenceHigh
	case score >= t.Medium:
		return model.ConfidenceMedium
	case score >= t.Low:
		return model.ConfidenceLow
	default:
		return model.ConfidenceNone
	}
}

// ScoreRecord builds a ScoredRecord from a raw record and its final
// signal list.
func ScoreRecord(rec model.RawRecord, signals []model.DetectionSignal, t rules.ConfidenceThresholds) model.ScoredRecord {
	total := Score(signals)
	return model.ScoredRecord{
		Raw:        rec,
		Signals:    signals,
		TotalScore: total,
		Confidence: ConfidenceFor(total, t),
	}
}
