package diag

import (
	"context"
	"testing"
)

func TestBufferedEmitter_StoresEvents(t *testing.T) {
	t.Run("stores single event", func(t *testing.T) {
		emitter := NewBufferedEmitter()
		emitter.Emit(Event{RunID: "run-1", Time: 1.0, Msg: "bag complete"})

		history := emitter.GetHistory("run-1")
		if len(history) != 1 {
			t.Fatalf("expected 1 event, got %d", len(history))
		}
		if history[0].Msg != "bag complete" {
			t.Errorf("Msg = %q, want %q", history[0].Msg, "bag complete")
		}
	})

	t.Run("isolates events by runID", func(t *testing.T) {
		emitter := NewBufferedEmitter()
		emitter.Emit(Event{RunID: "run-1", Msg: "a"})
		emitter.Emit(Event{RunID: "run-2", Msg: "b"})
		emitter.Emit(Event{RunID: "run-1", Msg: "c"})

		if got := len(emitter.GetHistory("run-1")); got != 2 {
			t.Errorf("run-1 has %d events, want 2", got)
		}
		if got := len(emitter.GetHistory("run-2")); got != 1 {
			t.Errorf("run-2 has %d events, want 1", got)
		}
	})

	t.Run("returns empty slice for unknown runID", func(t *testing.T) {
		emitter := NewBufferedEmitter()
		history := emitter.GetHistory("unknown")
		if len(history) != 0 {
			t.Errorf("expected 0 events, got %d", len(history))
		}
	})
}

func TestBufferedEmitter_EmitBatch(t *testing.T) {
	emitter := NewBufferedEmitter()
	events := []Event{
		{RunID: "run-1", Time: 0, Msg: "start"},
		{RunID: "run-1", Time: 1, Msg: "tick"},
	}
	if err := emitter.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if got := len(emitter.GetHistory("run-1")); got != 2 {
		t.Fatalf("got %d events after EmitBatch, want 2", got)
	}
}

func TestBufferedEmitter_GetHistoryWithFilter(t *testing.T) {
	t.Run("filters by message", func(t *testing.T) {
		emitter := NewBufferedEmitter()
		emitter.Emit(Event{RunID: "run-1", Msg: "sink write failed"})
		emitter.Emit(Event{RunID: "run-1", Msg: "observation unavailable"})
		emitter.Emit(Event{RunID: "run-1", Msg: "sink write failed"})

		history := emitter.GetHistoryWithFilter("run-1", HistoryFilter{Msg: "sink write failed"})
		if len(history) != 2 {
			t.Fatalf("got %d events, want 2", len(history))
		}
	})

	t.Run("filters by time range", func(t *testing.T) {
		emitter := NewBufferedEmitter()
		for _, tm := range []float64{0, 1, 2, 3} {
			emitter.Emit(Event{RunID: "run-1", Time: tm, Msg: "tick"})
		}
		minT, maxT := 1.0, 2.0
		history := emitter.GetHistoryWithFilter("run-1", HistoryFilter{MinTime: &minT, MaxTime: &maxT})
		if len(history) != 2 {
			t.Fatalf("got %d events, want 2", len(history))
		}
		for _, e := range history {
			if e.Time < minT || e.Time > maxT {
				t.Errorf("event at t=%v outside [%v,%v]", e.Time, minT, maxT)
			}
		}
	})

	t.Run("empty filter returns all events", func(t *testing.T) {
		emitter := NewBufferedEmitter()
		emitter.Emit(Event{RunID: "run-1", Msg: "a"})
		emitter.Emit(Event{RunID: "run-1", Msg: "b"})

		history := emitter.GetHistoryWithFilter("run-1", HistoryFilter{})
		if len(history) != 2 {
			t.Fatalf("got %d events, want 2", len(history))
		}
	})
}

func TestBufferedEmitter_Clear(t *testing.T) {
	t.Run("clears a single run", func(t *testing.T) {
		emitter := NewBufferedEmitter()
		emitter.Emit(Event{RunID: "run-1", Msg: "a"})
		emitter.Emit(Event{RunID: "run-2", Msg: "b"})

		emitter.Clear("run-1")
		if got := len(emitter.GetHistory("run-1")); got != 0 {
			t.Errorf("run-1 has %d events after Clear, want 0", got)
		}
		if got := len(emitter.GetHistory("run-2")); got != 1 {
			t.Errorf("run-2 has %d events, want 1 (untouched)", got)
		}
	})

	t.Run("clears everything when runID is empty", func(t *testing.T) {
		emitter := NewBufferedEmitter()
		emitter.Emit(Event{RunID: "run-1", Msg: "a"})
		emitter.Emit(Event{RunID: "run-2", Msg: "b"})

		emitter.Clear("")
		if len(emitter.GetHistory("run-1")) != 0 || len(emitter.GetHistory("run-2")) != 0 {
			t.Error("expected all events cleared")
		}
	})
}

func TestBufferedEmitter_InterfaceContract(_ *testing.T) {
	var _ Emitter = NewBufferedEmitter()
}
