package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one generation task as journaled.
type Record struct {
	ID        string
	Status    string
	Phase     string
	Error     string
	VideoPath string
	AudioPath string
	Duration  float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store manages task persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the task journal database.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal dir: %w", err)
	}

	dbPath := filepath.Join(dir, "tasks.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the on-disk database location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	phase TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	video_path TEXT NOT NULL DEFAULT '',
	audio_path TEXT NOT NULL DEFAULT '',
	duration REAL NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, schema)
		if err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
		return nil
	})
}

// Upsert writes the record, creating it on first sight.
func (s *Store) Upsert(ctx context.Context, record Record) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	const query = `
INSERT INTO tasks (id, status, phase, error, video_path, audio_path, duration, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	status = excluded.status,
	phase = excluded.phase,
	error = excluded.error,
	video_path = excluded.video_path,
	audio_path = excluded.audio_path,
	duration = excluded.duration,
	updated_at = excluded.updated_at
`
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query,
			record.ID, record.Status, record.Phase, record.Error,
			record.VideoPath, record.AudioPath, record.Duration, now, now)
		if err != nil {
			return fmt.Errorf("upsert task %s: %w", record.ID, err)
		}
		return nil
	})
}

// ErrNotFound reports a missing task.
var ErrNotFound = errors.New("task not found")

// Get returns one task by ID.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	const query = `
SELECT id, status, phase, error, video_path, audio_path, duration, created_at, updated_at
FROM tasks WHERE id = ?`
	var record Record
	var created, updated string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID, &record.Status, &record.Phase, &record.Error,
		&record.VideoPath, &record.AudioPath, &record.Duration, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get task %s: %w", id, err)
	}
	record.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	record.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return record, nil
}

// List returns tasks in reverse chronological order, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
SELECT id, status, phase, error, video_path, audio_path, duration, created_at, updated_at
FROM tasks ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var record Record
		var created, updated string
		if err := rows.Scan(
			&record.ID, &record.Status, &record.Phase, &record.Error,
			&record.VideoPath, &record.AudioPath, &record.Duration, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		record.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		record.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		records = append(records, record)
	}
	return records, rows.Err()
}
