package model

// Tier is the strategic-importance bucket assigned to a classified record.
type Tier string

const (
	Tier1 Tier = "TIER_1" // strategic entity or strategic technology
	Tier2 Tier = "TIER_2" // general China-linked match
	Tier3 Tier = "TIER_3" // commodity noise
)

// ReviewStatus is the human-review state of a classified record. The
// engine always emits StatusUnreviewed; only downstream review changes it.
type ReviewStatus string

const (
	StatusUnreviewed ReviewStatus = "UNREVIEWED"
	StatusConfirmed  ReviewStatus = "CONFIRMED"
	StatusRejected   ReviewStatus = "REJECTED"
	StatusUncertain  ReviewStatus = "UNCERTAIN"
)

// ValidReviewStatus reports whether s is a recognized review status.
func ValidReviewStatus(s ReviewStatus) bool {
	switch s {
	case StatusUnreviewed, StatusConfirmed, StatusRejected, StatusUncertain:
		return true
	}
	return false
}

// ClassifiedRecord is the engine's unit of output: a scored record with
// tier, category, review state and provenance. ID is deterministic for a
// fixed (source, content) pair so re-runs reproduce identical records.
type ClassifiedRecord struct {
	ID string `json:"id"`
	ScoredRecord
	Tier         Tier            `json:"tier"`
	Category     string          `json:"category"`
	ReviewStatus ReviewStatus    `json:"review_status"`
	Provenance   ProvenanceEntry `json:"provenance"`

	// GroupID is set by the Deduplicator when the record joins a
	// DeduplicationGroup. Grouping never discards the record.
	GroupID string `json:"group_id,omitempty"`

	// Dataset labels the independently-collected source set, used by the
	// cross-source correlator. Optional.
	Dataset string `json:"dataset,omitempty"`
}

// DeduplicationGroup is a set of classified records believed to denote the
// same real-world entity.
type DeduplicationGroup struct {
	ID         string            `json:"id"`
	RecordIDs  []string          `json:"record_ids"`
	Similarity float64           `json:"similarity"`
	Weights    SimilarityWeights `json:"weights"`
}

// SimilarityWeights is the field-weight configuration a dedupe run used.
// Stored alongside each group so the grouping is reproducible.
type SimilarityWeights struct {
	Name    float64 `json:"name" yaml:"name" mapstructure:"name"`
	Country float64 `json:"country" yaml:"country" mapstructure:"country"`
	Date    float64 `json:"date" yaml:"date" mapstructure:"date"`
	Type    float64 `json:"type" yaml:"type" mapstructure:"type"`
}

// ClusterMember is one record's membership in a correlation cluster.
type ClusterMember struct {
	Dataset    string     `json:"dataset"`
	RecordID   string     `json:"record_id"`
	Confidence Confidence `json:"confidence"`
}

// CorrelationCluster groups records from independent datasets that refer
// to the same entity, keyed by normalized name + country. Confidence is
// the maximum of the member confidences, never a sum.
type CorrelationCluster struct {
	Key        string          `json:"key"`
	Country    string          `json:"country,omitempty"`
	Members    []ClusterMember `json:"members"`
	Confidence Confidence      `json:"confidence"`
}
