// Package provenance stamps classified records with a pointer back to
// their exact source bytes. Nothing here is derived or interpreted text:
// every field is a direct source pointer or a hash of source content, so
// an auditor can recompute a classification from the source alone.
package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/vectis-research/sinotrace/internal/model"
)

// hashLen is the truncation length for hex-encoded SHA-256 digests.
const hashLen = 16

// Hash returns the truncated SHA-256 of the given bytes.
func Hash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:hashLen]
}

// RecordID derives the deterministic identifier for a classified record
// from its source position and canonical content. Re-running the engine
// over the same input reproduces the same ID.
func RecordID(sourceFile string, sourceLine int, canonical []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x1f%d\x1f", sourceFile, sourceLine)
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))[:hashLen]
}

// NewEntry builds the provenance entry for a raw record. now is injected
// so batch runs can share a single extraction timestamp.
func NewEntry(rec *model.RawRecord, rulesHash string, now time.Time) model.ProvenanceEntry {
	return model.ProvenanceEntry{
		SourceFile:  rec.SourceFile,
		SourceLine:  rec.SourceLine,
		RecordHash:  Hash(rec.CanonicalBytes()),
		RulesHash:   rulesHash,
		ExtractedAt: now.UTC(),
	}
}
