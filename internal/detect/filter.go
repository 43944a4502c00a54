package detect

import (
	"go.uber.org/zap"

	"github.com/vectis-research/sinotrace/internal/model"
)

// applyVeto removes EntityName signals whose originating field text is on
// the exact deny list or matches a deny pattern. The signal is removed
// outright, not down-weighted. Only EntityName is ever vetoed: country,
// Hong Kong and sourcing signals are considered more reliable evidence.
func (d *Detector) applyVeto(rec *model.RawRecord, signals []model.DetectionSignal) []model.DetectionSignal {
	if len(signals) == 0 {
		return signals
	}

	kept := signals[:0]
	for _, s := range signals {
		if s.Kind != model.SignalEntityName {
			kept = append(kept, s)
			continue
		}
		text, ok := fieldValue(rec, s.Field)
		if !ok {
			kept = append(kept, s)
			continue
		}
		if rule, denied := d.denied(text); denied {
			zap.L().Debug("detect: entity name vetoed",
				zap.String("field", s.Field),
				zap.String("matched", s.MatchedText),
				zap.String("deny_rule", rule),
			)
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// denied reports whether a name field's full text hits a deny rule, and
// which one.
func (d *Detector) denied(text string) (string, bool) {
	if d.rules.DeniedExact(text) {
		return "exact", true
	}
	for _, p := range d.rules.DenyPatterns {
		if p.Re.MatchString(text) {
			return p.Name, true
		}
	}
	return "", false
}

func fieldValue(rec *model.RawRecord, name string) (string, bool) {
	switch name {
	case model.FieldRecipientName:
		return rec.RecipientName.Get()
	case model.FieldVendorName:
		return rec.VendorName.Get()
	default:
		return "", false
	}
}
