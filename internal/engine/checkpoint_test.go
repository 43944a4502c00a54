package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")

	m, err := NewCheckpointManager(path)
	require.NoError(t, err)
	assert.False(t, m.Completed("a.csv"))

	require.NoError(t, m.MarkCompleted("a.csv"))
	require.NoError(t, m.MarkCompleted("b.csv"))
	assert.True(t, m.Completed("a.csv"))

	// A fresh manager reloads the persisted state.
	m2, err := NewCheckpointManager(path)
	require.NoError(t, err)
	assert.True(t, m2.Completed("a.csv"))
	assert.True(t, m2.Completed("b.csv"))
	assert.False(t, m2.Completed("c.csv"))
}

func TestCheckpointFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")

	m, err := NewCheckpointManager(path)
	require.NoError(t, err)
	require.NoError(t, m.MarkCompleted("z.csv"))
	require.NoError(t, m.MarkCompleted("a.csv"))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var cp Checkpoint
	require.NoError(t, json.Unmarshal(b, &cp))
	// Sources are sorted for stable diffs.
	assert.Equal(t, []string{"a.csv", "z.csv"}, cp.CompletedSources)
	assert.False(t, cp.LastUpdated.IsZero())
}

func TestCheckpointMissingFileOK(t *testing.T) {
	m, err := NewCheckpointManager(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.False(t, m.Completed("anything"))
}

func TestCheckpointCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewCheckpointManager(path)
	assert.Error(t, err)
}

func TestCheckpointNoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")

	m, err := NewCheckpointManager(path)
	require.NoError(t, err)
	require.NoError(t, m.MarkCompleted("a.csv"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "checkpoint.json", entries[0].Name())
}

func TestMaybeFlushThrottled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")

	m, err := NewCheckpointManager(path)
	require.NoError(t, err)

	ctx := context.Background()
	// First flush passes the limiter; immediate repeats are throttled
	// and must not error.
	require.NoError(t, m.MaybeFlush(ctx))
	require.NoError(t, m.MaybeFlush(ctx))
	require.NoError(t, m.MaybeFlush(ctx))
}

func TestMaybeFlushCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")

	m, err := NewCheckpointManager(path)
	require.NoError(t, err)

	// Drain the limiter token, then cancel: a throttled call still
	// returns nil, an allowed call surfaces the context error.
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.MaybeFlush(ctx))
	cancel()
	assert.NoError(t, m.MaybeFlush(ctx))
}
