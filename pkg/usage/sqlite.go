package usage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS usage_records (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    recorded_at       TEXT    NOT NULL,
    request_id        TEXT    NOT NULL,
    dialect           TEXT    NOT NULL,
    model             TEXT    NOT NULL,
    backend_model     TEXT    NOT NULL,
    provider          TEXT    NOT NULL,
    streamed          INTEGER NOT NULL,
    prompt_tokens     INTEGER NOT NULL,
    completion_tokens INTEGER NOT NULL,
    total_tokens      INTEGER NOT NULL,
    duration_ms       INTEGER NOT NULL,
    status            TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_recorded_at ON usage_records(recorded_at);
CREATE INDEX IF NOT EXISTS idx_usage_provider ON usage_records(provider);
`

const insertRecord = `
INSERT INTO usage_records (
    recorded_at, request_id, dialect, model, backend_model, provider,
    streamed, prompt_tokens, completion_tokens, total_tokens, duration_ms, status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectRecent = `
SELECT recorded_at, request_id, dialect, model, backend_model, provider,
       streamed, prompt_tokens, completion_tokens, total_tokens, duration_ms, status
FROM usage_records ORDER BY id DESC LIMIT ?`

// SQLiteRecorder persists usage records in a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteRecorder opens (or creates) the database at path and ensures
// the schema exists. WAL mode is enabled for concurrent writers.
func NewSQLiteRecorder(path string, logger *slog.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database %q: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create usage schema: %w", err)
	}

	logger.Info("usage database opened", "path", path)

	return &SQLiteRecorder{
		db:     db,
		logger: logger.With("component", "usage.sqlite"),
	}, nil
}

// Record inserts one entry.
func (s *SQLiteRecorder) Record(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, insertRecord,
		rec.Time.UTC().Format(time.RFC3339Nano),
		rec.RequestID,
		rec.Dialect,
		rec.Model,
		rec.BackendModel,
		rec.Provider,
		boolToInt(rec.Streamed),
		rec.PromptTokens,
		rec.CompletionTokens,
		rec.TotalTokens,
		rec.Duration.Milliseconds(),
		rec.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

// Recent returns up to n records, newest first.
func (s *SQLiteRecorder) Recent(ctx context.Context, n int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRecent, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var recordedAt string
		var streamed int
		var durationMS int64
		if err := rows.Scan(&recordedAt, &rec.RequestID, &rec.Dialect,
			&rec.Model, &rec.BackendModel, &rec.Provider, &streamed,
			&rec.PromptTokens, &rec.CompletionTokens, &rec.TotalTokens,
			&durationMS, &rec.Status); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		rec.Time, _ = time.Parse(time.RFC3339Nano, recordedAt)
		rec.Streamed = streamed != 0
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteRecorder) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
