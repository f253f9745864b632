// Package store persists the ledger of files written by tools.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"elevenlabs-mcp/internal/model"
)

type SQLiteStore struct {
	path string

	mu sync.Mutex
	db *sql.DB

	newID func() string
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path, newID: uuid.NewString}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}
	if strings.TrimSpace(s.path) == "" {
		return errors.New("ledger path is empty")
	}
	if s.path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	// one connection keeps :memory: databases and WAL writers consistent
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return err
	}

	schema := `
CREATE TABLE IF NOT EXISTS generated_files (
  id TEXT PRIMARY KEY,
  tool TEXT NOT NULL,
  path TEXT NOT NULL,
  size_bytes INTEGER NOT NULL DEFAULT 0,
  created_unix_nano INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_generated_files_created ON generated_files(created_unix_nano);
CREATE INDEX IF NOT EXISTS idx_generated_files_tool_created ON generated_files(tool, created_unix_nano);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// Record appends a row. An empty ID is replaced with a random UUID and a
// zero CreatedAt with the current time.
func (s *SQLiteStore) Record(ctx context.Context, f model.GeneratedFile) error {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(f.Tool) == "" || strings.TrimSpace(f.Path) == "" {
		return errors.New("tool and path are required")
	}
	if f.ID == "" {
		f.ID = s.newID()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}

	_, err = db.ExecContext(
		ctx,
		`INSERT INTO generated_files(id, tool, path, size_bytes, created_unix_nano) VALUES(?, ?, ?, ?, ?)`,
		f.ID,
		f.Tool,
		f.Path,
		f.SizeBytes,
		f.CreatedAt.UnixNano(),
	)
	return err
}

// Recent returns at most limit rows, newest first. An empty tool matches
// every tool.
func (s *SQLiteStore) Recent(ctx context.Context, tool string, limit int) ([]model.GeneratedFile, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	query := `SELECT id, tool, path, size_bytes, created_unix_nano FROM generated_files`
	args := []interface{}{}
	if tool = strings.TrimSpace(tool); tool != "" {
		query += ` WHERE tool = ?`
		args = append(args, tool)
	}
	query += ` ORDER BY created_unix_nano DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.GeneratedFile, 0, limit)
	for rows.Next() {
		var (
			f       model.GeneratedFile
			created int64
		)
		if err := rows.Scan(&f.ID, &f.Tool, &f.Path, &f.SizeBytes, &created); err != nil {
			return nil, err
		}
		f.CreatedAt = time.Unix(0, created)
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes rows created before cutoff and reports how many
// were removed. The files themselves are left alone.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM generated_files WHERE created_unix_nano < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) ensureDB(ctx context.Context) (*sql.DB, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errors.New("sqlite db not initialized")
	}
	return s.db, nil
}
