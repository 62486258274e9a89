package view

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/pdevs/devs"
	_ "github.com/go-sql-driver/mysql"
)

// MySQLSink persists observation samples to a MySQL table, grounded on the
// teacher's MySQLStore (graph/store/mysql.go) connection-pool settings.
type MySQLSink struct {
	mu     sync.Mutex
	db     *sql.DB
	dsn    string
	view   string
	closed bool
}

// NewMySQLSink returns a sink that will dial dsn on Open. view names this
// sink's rows in the shared view_samples table.
func NewMySQLSink(view, dsn string) *MySQLSink {
	return &MySQLSink{view: view, dsn: dsn}
}

func (s *MySQLSink) Open(map[string]any) error {
	db, err := sql.Open("mysql", s.dsn)
	if err != nil {
		return fmt.Errorf("devs/view: open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	schema := `
		CREATE TABLE IF NOT EXISTS view_samples (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			view_name VARCHAR(255) NOT NULL,
			t DOUBLE NOT NULL,
			source VARCHAR(255) NOT NULL,
			port VARCHAR(255) NOT NULL,
			tag VARCHAR(255) NOT NULL,
			data JSON NOT NULL,
			INDEX idx_view_samples_view (view_name, t)
		)
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return fmt.Errorf("devs/view: create view_samples: %w", err)
	}

	s.db = db
	return nil
}

func (s *MySQLSink) WriteRow(t devs.Time, source, port string, value devs.Value) error {
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

func (s *MySQLSink) Flush() error { return nil }

func (s *MySQLSink) Close() (devs.FinalArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.view, s.db.Close()
}
