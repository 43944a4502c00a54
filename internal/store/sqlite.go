package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/vectis-research/sinotrace/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	rules_hash   TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	processed    INTEGER NOT NULL DEFAULT 0,
	detected     INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   DATETIME NOT NULL,
	completed_at DATETIME
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
	data          TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS provenance_entries (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	record_id   TEXT NOT NULL,
	run_id      TEXT NOT NULL,
	source_file TEXT NOT NULL,
	source_line INTEGER NOT NULL,
	record_hash TEXT NOT NULL,
	rules_hash  TEXT NOT NULL,
	extracted_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS dedupe_groups (
	id         TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	similarity REAL NOT NULL,
	record_ids TEXT NOT NULL,
	weights    TEXT NOT NULL,
	PRIMARY KEY (id, run_id)
);

CREATE TABLE IF NOT EXISTS correlation_clusters (
	key        TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	country    TEXT NOT NULL DEFAULT '',
	confidence TEXT NOT NULL,
	members    TEXT NOT NULL,
	PRIMARY KEY (key, run_id)
);

CREATE INDEX IF NOT EXISTS idx_classified_tier ON classified_records(tier);
CREATE INDEX IF NOT EXISTS idx_classified_confidence ON classified_records(confidence);
CREATE INDEX IF NOT EXISTS idx_classified_review ON classified_records(review_status);
CREATE INDEX IF NOT EXISTS idx_classified_dataset ON classified_records(dataset);
CREATE INDEX IF NOT EXISTS idx_provenance_record ON provenance_entries(record_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) StartRun(ctx context.Context, run *RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, rules_hash, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.RulesHash, RunStatusRunning, run.StartedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: start run %s", run.ID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, processed, detected, skipped int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, processed = ?, detected = ?, skipped = ?, completed_at = ? WHERE id = ?`,
		RunStatusComplete, processed, detected, skipped, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		RunStatusFailed, errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rules_hash, status, processed, detected, skipped, started_at, completed_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var completed sql.NullTime
		if err := rows.Scan(&r.ID, &r.RulesHash, &r.Status, &r.Processed, &r.Detected, &r.Skipped, &r.StartedAt, &completed); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if completed.Valid {
			t := completed.Time
			r.CompletedAt = &t
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) SaveClassified(ctx context.Context, runID string, records []*model.ClassifiedRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal record %s", rec.ID)
		}
		// Upsert the classification but keep an existing review verdict:
		// the engine never overwrites a reviewer's work.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO classified_records
				(id, run_id, dataset, tier, confidence, category, total_score, review_status, group_id, data, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				run_id = excluded.run_id,
				dataset = excluded.dataset,
				tier = excluded.tier,
				confidence = excluded.confidence,
				category = excluded.category,
				total_score = excluded.total_score,
				group_id = excluded.group_id,
				data = excluded.data,
				updated_at = excluded.updated_at`,
			rec.ID, runID, rec.Dataset, string(rec.Tier), string(rec.Confidence),
			rec.Category, rec.TotalScore, string(rec.ReviewStatus), rec.GroupID,
			string(data), now, now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert record %s", rec.ID)
		}

		// Provenance is append-only: every run adds a fresh entry.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO provenance_entries
				(record_id, run_id, source_file, source_line, record_hash, rules_hash, extracted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, runID, rec.Provenance.SourceFile, rec.Provenance.SourceLine,
			rec.Provenance.RecordHash, rec.Provenance.RulesHash, rec.Provenance.ExtractedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert provenance %s", rec.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save")
}

func (s *SQLiteStore) GetClassified(ctx context.Context, id string) (*model.ClassifiedRecord, error) {
	var data string
	var review string
	err := s.db.QueryRowContext(ctx,
		`SELECT data, review_status FROM classified_records WHERE id = ?`, id,
	).Scan(&data, &review)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get record %s", id)
	}
	return decodeRecord(data, review)
}

func (s *SQLiteStore) ListClassified(ctx context.Context, filter ListFilter) ([]*model.ClassifiedRecord, error) {
	query := `SELECT data, review_status FROM classified_records WHERE 1=1`
	var args []any

	if filter.Tier != "" {
		query += ` AND tier = ?`
		args = append(args, string(filter.Tier))
	}
	if filter.Confidence != "" {
		query += ` AND confidence = ?`
		args = append(args, string(filter.Confidence))
	}
	if filter.ReviewStatus != "" {
		query += ` AND review_status = ?`
		args = append(args, string(filter.ReviewStatus))
	}
	if filter.Dataset != "" {
		query += ` AND dataset = ?`
		args = append(args, filter.Dataset)
	}
	query += ` ORDER BY id LIMIT ?`
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close() //nolint:errcheck

	var out []*model.ClassifiedRecord
	for rows.Next() {
		var data, review string
		if err := rows.Scan(&data, &review); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		rec, err := decodeRecord(data, review)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate records")
}

func (s *SQLiteStore) UpdateReviewStatus(ctx context.Context, recordID string, status model.ReviewStatus) error {
	if !model.ValidReviewStatus(status) {
		return eris.Errorf("sqlite: invalid review status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE classified_records SET review_status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), recordID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update review status %s", recordID)
	}
	return checkRowsAffected(res, "record", recordID)
}

func (s *SQLiteStore) SaveGroups(ctx context.Context, runID string, groups []model.DeduplicationGroup) error {
	if len(groups) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save groups")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, g := range groups {
		ids, err := json.Marshal(g.RecordIDs)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal group %s", g.ID)
		}
		weights, err := json.Marshal(g.Weights)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal group weights %s", g.ID)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dedupe_groups (id, run_id, similarity, record_ids, weights)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id, run_id) DO UPDATE SET
				similarity = excluded.similarity,
				record_ids = excluded.record_ids,
				weights = excluded.weights`,
			g.ID, runID, g.Similarity, string(ids), string(weights),
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert group %s", g.ID)
		}
		// Mark members with their group id.
		for _, recID := range g.RecordIDs {
			if _, err := tx.ExecContext(ctx,
				`UPDATE classified_records SET group_id = ? WHERE id = ?`,
				g.ID, recID,
			); err != nil {
				return eris.Wrapf(err, "sqlite: mark group member %s", recID)
			}
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit groups")
}

func (s *SQLiteStore) SaveClusters(ctx context.Context, runID string, clusters []model.CorrelationCluster) error {
	if len(clusters) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save clusters")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, c := range clusters {
		members, err := json.Marshal(c.Members)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal cluster %s", c.Key)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO correlation_clusters (key, run_id, country, confidence, members)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(key, run_id) DO UPDATE SET
				country = excluded.country,
				confidence = excluded.confidence,
				members = excluded.members`,
			c.Key, runID, c.Country, string(c.Confidence), string(members),
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert cluster %s", c.Key)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit clusters")
}

// decodeRecord unmarshals a stored record, overlaying the authoritative
// review_status column.
func decodeRecord(data, review string) (*model.ClassifiedRecord, error) {
	var rec model.ClassifiedRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal record")
	}
	rec.ReviewStatus = model.ReviewStatus(review)
	return &rec, nil
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Errorf("sqlite: %s %s not found", kind, id)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
