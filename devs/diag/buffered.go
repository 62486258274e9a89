package diag

import (
	"context"
	"sync"
)

// BufferedEmitter stores events in memory, keyed by RunID, for tests and
// interactive inspection.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// HistoryFilter narrows GetHistoryWithFilter. Zero-value fields are
// unfiltered; all set fields combine with AND.
type HistoryFilter struct {
	Msg     string
	MinTime *float64
	MaxTime *float64
}

// NewBufferedEmitter returns an empty, concurrency-safe BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.RunID] = append(b.events[event.RunID], event)
}

func (b *BufferedEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		b.Emit(e)
	}
	return nil
}

func (b *BufferedEmitter) Flush(context.Context) error { return nil }

// GetHistory returns a copy of every event recorded for runID.
func (b *BufferedEmitter) GetHistory(runID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := b.events[runID]
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// GetHistoryWithFilter returns a copy of the events for runID matching
// filter.
func (b *BufferedEmitter) GetHistoryWithFilter(runID string, filter HistoryFilter) []Event {
	var result []Event
	for _, event := range b.GetHistory(runID) {
		if filter.Msg != "" && event.Msg != filter.Msg {
			continue
		}
		if filter.MinTime != nil && event.Time < *filter.MinTime {
			continue
		}
		if filter.MaxTime != nil && event.Time > *filter.MaxTime {
			continue
		}
		result = append(result, event)
	}
	return result
}

// Clear drops events for runID, or every run if runID is empty.
func (b *BufferedEmitter) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if runID == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, runID)
}
