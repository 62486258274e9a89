package view

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dshills/pdevs/devs"
)

// LogSink writes one line per observation sample to an io.Writer, grounded
// on the teacher's LogEmitter (graph/emit/log.go).
type LogSink struct {
	mu     sync.Mutex
	w      io.Writer
	name   string
	closed bool
}

// NewLogSink returns a LogSink labelled name, writing to w. A nil w writes
// to os.Stdout.
func NewLogSink(name string, w io.Writer) *LogSink {
	if w == nil {
		w = os.Stdout
	}
	return &LogSink{w: w, name: name}
}

func (l *LogSink) Open(map[string]any) error { return nil }

func (l *LogSink) WriteRow(t devs.Time, source, port string, value devs.Value) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("devs/view: sink %q is closed", l.name)
	}
	_, err := fmt.Fprintf(l.w, "[%s] t=%v source=%s port=%s value=%s\n", l.name, t, source, port, value)
	return err
}

func (l *LogSink) Flush() error {
	if f, ok := l.w.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}

func (l *LogSink) Close() (devs.FinalArtifact, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return l.name, nil
}
