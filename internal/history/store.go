// Package history persists one record per orchestrator run in a SQLite
// database under the build tree. Recording is best-effort observability:
// callers log store errors and move on.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Record describes one completed (or canceled) build attempt.
type Record struct {
	ID        int64
	BuildID   string
	StartedAt time.Time
	Duration  time.Duration
	Target    string
	Mode      string
	Success   bool
	Canceled  bool
	Stage     string
	Error     string
}

// Store implements the build-history log using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates a SQLite-backed store. Use ":memory:" for an in-memory
// database, or a file path for persistent storage.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		target TEXT NOT NULL,
		mode TEXT NOT NULL,
		success INTEGER NOT NULL,
		canceled INTEGER NOT NULL,
		stage TEXT NOT NULL,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a build record to the store.
func (s *Store) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (build_id, started_at, duration_ms, target, mode, success, canceled, stage, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BuildID, rec.StartedAt.Unix(), rec.Duration.Milliseconds(),
		rec.Target, rec.Mode, boolInt(rec.Success), boolInt(rec.Canceled),
		rec.Stage, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert build record: %w", err)
	}
	return nil
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, build_id, started_at, duration_ms, target, mode, success, canceled, stage, error
		 FROM builds ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query build records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var startedUnix, durationMS int64
		var success, canceled int
		var errText sql.NullString
		if err := rows.Scan(&rec.ID, &rec.BuildID, &startedUnix, &durationMS,
			&rec.Target, &rec.Mode, &success, &canceled, &rec.Stage, &errText); err != nil {
			return nil, fmt.Errorf("scan build record: %w", err)
		}
		rec.StartedAt = time.Unix(startedUnix, 0)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.Success = success != 0
		rec.Canceled = canceled != 0
		rec.Error = errText.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
