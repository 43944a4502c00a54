package provenance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vectis-research/sinotrace/internal/model"
)

func TestHash(t *testing.T) {
	assert.Equal(t, Hash([]byte("abc")), Hash([]byte("abc")))
	assert.NotEqual(t, Hash([]byte("abc")), Hash([]byte("abd")))
	assert.Len(t, Hash(nil), 16)
}

func TestRecordIDDeterministic(t *testing.T) {
	id1 := RecordID("contracts.csv", 42, []byte("content"))
	id2 := RecordID("contracts.csv", 42, []byte("content"))
	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 16)

	// Any input component changes the ID.
	assert.NotEqual(t, id1, RecordID("grants.csv", 42, []byte("content")))
	assert.NotEqual(t, id1, RecordID("contracts.csv", 43, []byte("content")))
	assert.NotEqual(t, id1, RecordID("contracts.csv", 42, []byte("other")))
}

func TestRecordIDFieldSeparation(t *testing.T) {
	// The separator prevents (file, line) ambiguity.
	assert.NotEqual(t,
		RecordID("a1", 2, []byte("x")),
		RecordID("a", 12, []byte("x")),
	)
}

func TestNewEntry(t *testing.T) {
	rec := model.RawRecord{
		SourceFile:    "contracts.csv",
		SourceLine:    7,
		RecipientName: model.String("Huawei Technologies"),
	}
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.FixedZone("EST", -5*3600))

	entry := NewEntry(&rec, "deadbeefcafe0123", now)
	assert.Equal(t, "contracts.csv", entry.SourceFile)
	assert.Equal(t, 7, entry.SourceLine)
	assert.Equal(t, Hash(rec.CanonicalBytes()), entry.RecordHash)
	assert.Equal(t, "deadbeefcafe0123", entry.RulesHash)
	assert.Equal(t, time.UTC, entry.ExtractedAt.Location())
}
