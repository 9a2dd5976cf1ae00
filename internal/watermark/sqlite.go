package watermark

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps the watermark in a one-table key/value database.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create watermark dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open watermark db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create watermark table: %w", err)
	}

	return &SQLiteStore{db: db, log: slog.Default().With("component", "watermark")}, nil
}

// Read returns the stored watermark, Absent, or ReadFailed.
func (s *SQLiteStore) Read(ctx context.Context) int64 {
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Absent
	case err != nil:
		s.log.Error("watermark read failed", "error", err)
		return ReadFailed
	case !valid(v):
		return Absent
	}
	return v
}

// Write stores ms. Invalid values and storage errors are logged and dropped.
func (s *SQLiteStore) Write(ctx context.Context, ms int64) {
	if !valid(ms) {
		s.log.Warn("ignoring invalid watermark", "value", ms)
		return
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, ms)
	if err != nil {
		s.log.Error("watermark write failed", "error", err)
	}
}

// Clear removes the watermark so the next Read returns Absent.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("clear watermark: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
