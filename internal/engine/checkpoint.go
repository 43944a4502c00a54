package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Checkpoint is the on-disk resume state: the set of fully processed
// source identifiers. A restarted run skips completed sources
// deterministically; since classification is pure, the combined output is
// identical to an uninterrupted run.
type Checkpoint struct {
	CompletedSources []string  `json:"completed_sources"`
	LastUpdated      time.Time `json:"last_updated"`
}

// CheckpointManager persists the checkpoint atomically (write to a temp
// file, then rename) so a crash never leaves a truncated checkpoint.
// Mid-run flushes are throttled; completion flushes are not.
type CheckpointManager struct {
	path string

	mu        sync.Mutex
	completed map[string]struct{}
	limiter   *rate.Limiter
}

// NewCheckpointManager loads existing state from path, if any.
func NewCheckpointManager(path string) (*CheckpointManager, error) {
	m := &CheckpointManager{
		path:      path,
		completed: make(map[string]struct{}),
		// At most one throttled flush per second keeps checkpoint I/O
		// negligible on record-count-interval flushes.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, eris.Wrapf(err, "checkpoint: read %s", path)
	}
	var cp Checkpoint
	if err := json.Unmarshal(b, &cp); err != nil {
		return nil, eris.Wrapf(err, "checkpoint: parse %s", path)
	}
	for _, s := range cp.CompletedSources {
		m.completed[s] = struct{}{}
	}
	return m, nil
}

// Completed reports whether a source was already fully processed.
func (m *CheckpointManager) Completed(sourceID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.completed[sourceID]
	return ok
}

// MarkCompleted records a source as done and flushes immediately.
func (m *CheckpointManager) MarkCompleted(sourceID string) error {
	m.mu.Lock()
	m.completed[sourceID] = struct{}{}
	m.mu.Unlock()
	return m.Flush()
}

// MaybeFlush flushes if the throttle allows; used on record-count
// intervals inside large files.
func (m *CheckpointManager) MaybeFlush(ctx context.Context) error {
	if !m.limiter.Allow() {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return m.Flush()
}

// Flush writes the checkpoint via temp file + rename.
func (m *CheckpointManager) Flush() error {
	m.mu.Lock()
	cp := Checkpoint{
		CompletedSources: make([]string, 0, len(m.completed)),
		LastUpdated:      time.Now().UTC(),
	}
	for s := range m.completed {
		cp.CompletedSources = append(cp.CompletedSources, s)
	}
	m.mu.Unlock()
	sort.Strings(cp.CompletedSources)

	b, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return eris.Wrap(err, "checkpoint: marshal")
	}

	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return eris.Wrap(err, "checkpoint: create temp")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()          //nolint:errcheck
		os.Remove(tmpName)   //nolint:errcheck
		return eris.Wrap(err, "checkpoint: write temp")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()          //nolint:errcheck
		os.Remove(tmpName)   //nolint:errcheck
		return eris.Wrap(err, "checkpoint: sync temp")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "checkpoint: close temp")
	}
	if err := os.Rename(tmpName, m.path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "checkpoint: rename")
	}
	return nil
}
