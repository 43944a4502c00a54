package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/vectis-research/sinotrace/internal/db"
	"github.com/vectis-research/sinotrace/internal/model"
)

// PostgresStore implements Store over a pgx pool, for shared warehouse
// deployments.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	rules_hash   TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	processed    BIGINT NOT NULL DEFAULT 0,
	detected     BIGINT NOT NULL DEFAULT 0,
	skipped      BIGINT NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS classified_records (
	id            TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL REFERENCES runs(id),
	dataset       TEXT NOT NULL DEFAULT '',
	tier          TEXT NOT NULL,
	confidence    TEXT NOT NULL,
	category      TEXT NOT NULL,
	total_score   INTEGER NOT NULL,
	review_status TEXT NOT NULL DEFAULT 'UNREVIEWED',
	group_id      TEXT NOT NULL DEFAULT '',
	data          JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS provenance_entries (
	id          BIGSERIAL PRIMARY KEY,
	record_id   TEXT NOT NULL,
	run_id      TEXT NOT NULL,
	source_file TEXT NOT NULL,
	source_line INTEGER NOT NULL,
	record_hash TEXT NOT NULL,
	rules_hash  TEXT NOT NULL,
	extracted_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS dedupe_groups (
	id         TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	similarity DOUBLE PRECISION NOT NULL,
	record_ids JSONB NOT NULL,
	weights    JSONB NOT NULL,
	PRIMARY KEY (id, run_id)
);

CREATE TABLE IF NOT EXISTS correlation_clusters (
	key        TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	country    TEXT NOT NULL DEFAULT '',
	confidence TEXT NOT NULL,
	members    JSONB NOT NULL,
	PRIMARY KEY (key, run_id)
);

CREATE INDEX IF NOT EXISTS idx_classified_tier ON classified_records(tier);
CREATE INDEX IF NOT EXISTS idx_classified_review ON classified_records(review_status);
CREATE INDEX IF NOT EXISTS idx_provenance_record ON provenance_entries(record_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) StartRun(ctx context.Context, run *RunRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, rules_hash, status, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.RulesHash, RunStatusRunning, run.StartedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: start run %s", run.ID)
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, processed, detected, skipped int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, processed = $2, detected = $3, skipped = $4, completed_at = now() WHERE id = $5`,
		RunStatusComplete, processed, detected, skipped, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, completed_at = now() WHERE id = $3`,
		RunStatusFailed, errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, rules_hash, status, processed, detected, skipped, started_at, completed_at
		 FROM runs ORDER BY started_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.RulesHash, &r.Status, &r.Processed, &r.Detected, &r.Skipped, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) SaveClassified(ctx context.Context, runID string, records []*model.ClassifiedRecord) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now().UTC()
	provRows := make([][]any, 0, len(records))

	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal record %s", rec.ID)
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO classified_records
				(id, run_id, dataset, tier, confidence, category, total_score, review_status, group_id, data, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO UPDATE SET
				run_id = EXCLUDED.run_id,
				dataset = EXCLUDED.dataset,
				tier = EXCLUDED.tier,
				confidence = EXCLUDED.confidence,
				category = EXCLUDED.category,
				total_score = EXCLUDED.total_score,
				group_id = EXCLUDED.group_id,
				data = EXCLUDED.data,
				updated_at = EXCLUDED.updated_at`,
			rec.ID, runID, rec.Dataset, string(rec.Tier), string(rec.Confidence),
			rec.Category, rec.TotalScore, string(rec.ReviewStatus), rec.GroupID,
			data, now, now,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert record %s", rec.ID)
		}

		provRows = append(provRows, []any{
			rec.ID, runID, rec.Provenance.SourceFile, rec.Provenance.SourceLine,
			rec.Provenance.RecordHash, rec.Provenance.RulesHash, rec.Provenance.ExtractedAt,
		})
	}

	_, err := db.CopyFrom(ctx, s.pool, "provenance_entries",
		[]string{"record_id", "run_id", "source_file", "source_line", "record_hash", "rules_hash", "extracted_at"},
		provRows,
	)
	return eris.Wrap(err, "postgres: copy provenance")
}

func (s *PostgresStore) GetClassified(ctx context.Context, id string) (*model.ClassifiedRecord, error) {
	var data []byte
	var review string
	err := s.pool.QueryRow(ctx,
		`SELECT data, review_status FROM classified_records WHERE id = $1`, id,
	).Scan(&data, &review)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get record %s", id)
	}
	return decodeRecord(string(data), review)
}

func (s *PostgresStore) ListClassified(ctx context.Context, filter ListFilter) ([]*model.ClassifiedRecord, error) {
	query := `SELECT data, review_status FROM classified_records WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.Tier != "" {
		query += ` AND tier = ` + arg(string(filter.Tier))
	}
	if filter.Confidence != "" {
		query += ` AND confidence = ` + arg(string(filter.Confidence))
	}
	if filter.ReviewStatus != "" {
		query += ` AND review_status = ` + arg(string(filter.ReviewStatus))
	}
	if filter.Dataset != "" {
		query += ` AND dataset = ` + arg(filter.Dataset)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` ORDER BY id LIMIT ` + arg(limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var out []*model.ClassifiedRecord
	for rows.Next() {
		var data []byte
		var review string
		if err := rows.Scan(&data, &review); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		rec, err := decodeRecord(string(data), review)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate records")
}

func (s *PostgresStore) UpdateReviewStatus(ctx context.Context, recordID string, status model.ReviewStatus) error {
	if !model.ValidReviewStatus(status) {
		return eris.Errorf("postgres: invalid review status %q", status)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE classified_records SET review_status = $1, updated_at = now() WHERE id = $2`,
		string(status), recordID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update review status %s", recordID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: record %s not found", recordID)
	}
	return nil
}

func (s *PostgresStore) SaveGroups(ctx context.Context, runID string, groups []model.DeduplicationGroup) error {
	for _, g := range groups {
		ids, err := json.Marshal(g.RecordIDs)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal group %s", g.ID)
		}
		weights, err := json.Marshal(g.Weights)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal group weights %s", g.ID)
		}
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO dedupe_groups (id, run_id, similarity, record_ids, weights)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id, run_id) DO UPDATE SET
				similarity = EXCLUDED.similarity,
				record_ids = EXCLUDED.record_ids,
				weights = EXCLUDED.weights`,
			g.ID, runID, g.Similarity, ids, weights,
		); err != nil {
			return eris.Wrapf(err, "postgres: upsert group %s", g.ID)
		}
	}
	return nil
}

func (s *PostgresStore) SaveClusters(ctx context.Context, runID string, clusters []model.CorrelationCluster) error {
	for _, c := range clusters {
		members, err := json.Marshal(c.Members)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal cluster %s", c.Key)
		}
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO correlation_clusters (key, run_id, country, confidence, members)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (key, run_id) DO UPDATE SET
				country = EXCLUDED.country,
				confidence = EXCLUDED.confidence,
				members = EXCLUDED.members`,
			c.Key, runID, c.Country, string(c.Confidence), members,
		); err != nil {
			return eris.Wrapf(err, "postgres: upsert cluster %s", c.Key)
		}
	}
	return nil
}

// placeholder renders the n-th positional parameter.
func placeholder(n int) string {
	const digits = "0123456789"
	if n < 10 {
		return "$" + digits[n:n+1]
	}
	return "$" + digits[n/10:n/10+1] + digits[n%10:n%10+1]
}

var _ Store = (*PostgresStore)(nil)
