package model

// SignalKind identifies which extractor produced a DetectionSignal.
type SignalKind string

const (
	SignalCountryCode     SignalKind = "COUNTRY_CODE"
	SignalHongKong        SignalKind = "HONG_KONG"
	SignalEntityName      SignalKind = "ENTITY_NAME"
	SignalGeographicToken SignalKind = "GEOGRAPHIC_TOKEN"
	SignalProductSourcing SignalKind = "PRODUCT_SOURCING"
)

// DetectionSignal is one piece of evidence extracted from one field of a
// record. Immutable once produced.
type DetectionSignal struct {
	Kind        SignalKind `json:"kind"`
	Field       string     `json:"field"`
	MatchedText string     `json:"matched_text"`
	Rule        string     `json:"rule,omitempty"`
	Weight      int        `json:"weight"`
}

// Confidence is the discrete confidence bucket derived from a total score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
	// ConfidenceNone marks a record below the LOW floor. Such records are
	// dropped from the detected set unless explicitly requested.
	ConfidenceNone Confidence = "NO_MATCH"
)

// Rank orders confidence buckets for comparison; higher is stronger.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// ScoredRecord is a RawRecord plus its post-veto signal list and the score
// derived from it. TotalScore is always the exact sum of Signals weights.
type ScoredRecord struct {
	Raw        RawRecord         `json:"raw"`
	Signals    []DetectionSignal `json:"signals"`
	TotalScore int               `json:"total_score"`
	Confidence Confidence        `json:"confidence"`
}
