// Package view provides concrete devs.Sink implementations: an in-memory
// sink for tests, a structured-log sink, SQLite/MySQL sinks, an OpenTelemetry
// tracing sink, and a WebSocket broadcast sink. Adapted from the teacher's
// graph/store (persistence) and graph/emit (OTel/log emitters), repurposed
// from workflow-step persistence to observation-sample delivery.
package view

import (
	"sync"

	"github.com/dshills/pdevs/devs"
)

// Row is one observation sample, as written to a MemSink.
type Row struct {
	Time   devs.Time
	Source string
	Port   string
	Value  devs.Value
}

// MemSink accumulates rows in memory, grounded on the teacher's MemStore
// (graph/store/memory.go): thread-safe, no persistence, for tests and
// interactive inspection.
type MemSink struct {
	mu   sync.Mutex
	rows []Row
}

// NewMemSink returns an empty MemSink.
func NewMemSink() *MemSink {
	return &MemSink{}
}

func (m *MemSink) Open(map[string]any) error { return nil }

func (m *MemSink) WriteRow(t devs.Time, source, port string, value devs.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, Row{Time: t, Source: source, Port: port, Value: value})
	return nil
}

func (m *MemSink) Flush() error { return nil }

// Close returns a copy of every row accumulated, as the FinalArtifact.
func (m *MemSink) Close() (devs.FinalArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

// Rows returns a snapshot of the rows written so far, without closing.
func (m *MemSink) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out
}
