// Package store is the shared research warehouse sink. The engine only
// appends: classified records, provenance entries, dedupe groups and
// correlation clusters are never deleted, and downstream review touches
// only review_status.
package store

import (
	"context"
	"time"

	"github.com/vectis-research/sinotrace/internal/model"
)

// RunRecord is the ledger entry for one batch run, tying output to the
// exact rule-table version that produced it.
type RunRecord struct {
	ID          string     `json:"id"`
	RulesHash   string     `json:"rules_hash"`
	Status      string     `json:"status"`
	Processed   int64      `json:"processed"`
	Detected    int64      `json:"detected"`
	Skipped     int64      `json:"skipped"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Run statuses.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

// ListFilter narrows ListClassified results.
type ListFilter struct {
	Tier         model.Tier
	Confidence   model.Confidence
	ReviewStatus model.ReviewStatus
	Dataset      string
	Limit        int
}

// Store is the warehouse interface. SQLite is the default backend;
// Postgres is available for shared deployments.
type Store interface {
	Migrate(ctx context.Context) error

	StartRun(ctx context.Context, run *RunRecord) error
	CompleteRun(ctx context.Context, runID string, processed, detected, skipped int64) error
	FailRun(ctx context.Context, runID string, errMsg string) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// SaveClassified upserts records and appends one provenance entry per
	// record. Re-saving an existing record updates its classification but
	// preserves any non-default review_status; old provenance entries are
	// retained.
	SaveClassified(ctx context.Context, runID string, records []*model.ClassifiedRecord) error
	GetClassified(ctx context.Context, id string) (*model.ClassifiedRecord, error)
	ListClassified(ctx context.Context, filter ListFilter) ([]*model.ClassifiedRecord, error)
	UpdateReviewStatus(ctx context.Context, recordID string, status model.ReviewStatus) error

	SaveGroups(ctx context.Context, runID string, groups []model.DeduplicationGroup) error
	SaveClusters(ctx context.Context, runID string, clusters []model.CorrelationCluster) error

	Close() error
}
