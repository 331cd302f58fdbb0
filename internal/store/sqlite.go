package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS published_tables (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT UNIQUE NOT NULL,
    reference TEXT NOT NULL,
    payload TEXT NOT NULL,
    row_count INTEGER NOT NULL,
    run_id TEXT NOT NULL DEFAULT '',
    published_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS publish_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    run_id TEXT NOT NULL DEFAULT '',
    outcome TEXT NOT NULL,
    candidate_rows INTEGER NOT NULL DEFAULT 0,
    incumbent_rows INTEGER NOT NULL DEFAULT 0,
    reference TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_publish_log_title ON publish_log(title);
CREATE INDEX IF NOT EXISTS idx_publish_log_run ON publish_log(run_id);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SavePublished inserts the table or replaces the copy stored under the
// same title.
func (s *SQLiteStore) SavePublished(ctx context.Context, t *PublishedTable) error {
	if t.PublishedAt.IsZero() {
		t.PublishedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO published_tables (title, reference, payload, row_count, run_id, published_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(title) DO UPDATE SET
		     reference = excluded.reference,
		     payload = excluded.payload,
		     row_count = excluded.row_count,
		     run_id = excluded.run_id,
		     published_at = excluded.published_at`,
		t.Title, t.Reference, string(t.Payload), t.RowCount, t.RunID, t.PublishedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save published table: %w", err)
	}

	// Read back the id, which is stable across replacements
	err = s.db.QueryRowContext(ctx, `SELECT id FROM published_tables WHERE title = ?`, t.Title).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to get published table id: %w", err)
	}

	return nil
}

const publishedColumns = `id, title, reference, payload, row_count, run_id, published_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPublished(row scanner) (*PublishedTable, error) {
	var t PublishedTable
	var payload string
	var publishedAt int64

	if err := row.Scan(&t.ID, &t.Title, &t.Reference, &payload, &t.RowCount, &t.RunID, &publishedAt); err != nil {
		return nil, err
	}

	t.Payload = []byte(payload)
	t.PublishedAt = time.Unix(publishedAt, 0)
	return &t, nil
}

func (s *SQLiteStore) GetPublished(ctx context.Context, title string) (*PublishedTable, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+publishedColumns+` FROM published_tables WHERE title = ?`, title,
	)

	t, err := scanPublished(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get published table: %w", err)
	}

	return t, nil
}

func (s *SQLiteStore) ListPublished(ctx context.Context) ([]*PublishedTable, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+publishedColumns+` FROM published_tables ORDER BY published_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list published tables: %w", err)
	}
	defer rows.Close()

	var tables []*PublishedTable
	for rows.Next() {
		t, err := scanPublished(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan published table: %w", err)
		}
		tables = append(tables, t)
	}

	return tables, rows.Err()
}

func (s *SQLiteStore) DeletePublished(ctx context.Context, title string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM published_tables WHERE title = ?`, title)
	if err != nil {
		return fmt.Errorf("failed to delete published table: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLiteStore) RecordOutcome(ctx context.Context, r *PublishRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO publish_log (title, run_id, outcome, candidate_rows, incumbent_rows, reference, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Title, r.RunID, r.Outcome, r.CandidateRows, r.IncumbentRows, r.Reference, r.Message, r.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record publish outcome: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	r.ID = id

	return nil
}

// ListOutcomes returns the newest publish attempts first. An empty title
// lists every table; limit <= 0 means no limit.
func (s *SQLiteStore) ListOutcomes(ctx context.Context, title string, limit int) ([]*PublishRecord, error) {
	query := `SELECT id, title, run_id, outcome, candidate_rows, incumbent_rows, reference, message, created_at
		 FROM publish_log`
	var args []any
	if title != "" {
		query += ` WHERE title = ?`
		args = append(args, title)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list publish outcomes: %w", err)
	}
	defer rows.Close()

	var records []*PublishRecord
	for rows.Next() {
		var r PublishRecord
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.Title, &r.RunID, &r.Outcome, &r.CandidateRows, &r.IncumbentRows, &r.Reference, &r.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan publish outcome: %w", err)
		}
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, &r)
	}

	return records, rows.Err()
}

// DB returns the underlying database connection for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}
