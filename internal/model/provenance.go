package model

import "time"

// ProvenanceEntry points back to the exact source bytes that produced a
// classification. Entries are append-only: re-processing a record creates
// a new entry, old entries are retained for the audit trail. Every field
// is either a direct pointer into the source or a hash of it, never
// derived or interpreted text.
type ProvenanceEntry struct {
	SourceFile  string    `json:"source_file"`
	SourceLine  int       `json:"source_line"`
	RecordHash  string    `json:"record_hash"`
	RulesHash   string    `json:"rules_hash,omitempty"`
	ExtractedAt time.Time `json:"extraction_timestamp"`
}
