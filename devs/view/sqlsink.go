package view

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dshills/pdevs/devs"
	_ "modernc.org/sqlite"
)

// SQLiteSink persists observation samples to a single-file SQLite database,
// grounded on the teacher's SQLiteStore (graph/store/sqlite.go): WAL mode,
// a busy timeout, one row per sample.
type SQLiteSink struct {
	mu     sync.Mutex
	db     *sql.DB
	view   string
	path   string
	closed bool
}

// NewSQLiteSink returns a sink that will open path on Open. view names this
// sink's rows in the shared view_samples table.
func NewSQLiteSink(view, path string) *SQLiteSink {
	return &SQLiteSink{view: view, path: path}
}

func (s *SQLiteSink) Open(map[string]any) error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("devs/view: open sqlite %q: %w", s.path, err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return fmt.Errorf("devs/view: %s: %w", pragma, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS view_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			view_name TEXT NOT NULL,
			t REAL NOT NULL,
			source TEXT NOT NULL,
			port TEXT NOT NULL,
			tag TEXT NOT NULL,
			data TEXT NOT NULL
		)
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return fmt.Errorf("devs/view: create view_samples: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_view_samples_view ON view_samples(view_name, t)"); err != nil {
		_ = db.Close()
		return fmt.Errorf("devs/view: create index: %w", err)
	}

	s.db = db
	return nil
}

func (s *SQLiteSink) WriteRow(t devs.Time, source, port string, value devs.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("devs/view: sink %q is closed", s.view)
	}
	data, err := json.Marshal(value.Data)
	if err != nil {
		return fmt.Errorf("devs/view: marshal value: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO view_samples (view_name, t, source, port, tag, data) VALUES (?, ?, ?, ?, ?, ?)`,
		s.view, float64(t), source, port, value.Tag, string(data),
	)
	return err
}

func (s *SQLiteSink) Flush() error { return nil }

func (s *SQLiteSink) Close() (devs.FinalArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.path, s.db.Close()
}
