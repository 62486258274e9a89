package diag

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogEmitter_TextModeFormatsOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{RunID: "run-1", Time: 3.0, Msg: "bag complete", Meta: map[string]any{"kind": "internal"}})

	out := buf.String()
	for _, want := range []string{"[bag complete]", "runID=run-1", "t=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q does not contain %q", out, want)
		}
	}
	if !strings.Contains(out, `"kind":"internal"`) {
		t.Errorf("log line %q missing meta JSON", out)
	}
}

func TestLogEmitter_JSONModeEmitsOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(Event{RunID: "run-1", Time: 1.0, Msg: "tick"})
	emitter.Emit(Event{RunID: "run-1", Time: 2.0, Msg: "tick"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var decoded Event
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("line is not valid JSON: %v", err)
	}
	if decoded.Msg != "tick" || decoded.RunID != "run-1" {
		t.Errorf("decoded = %+v, want Msg=tick RunID=run-1", decoded)
	}
}

func TestLogEmitter_NilWriterDefaultsToStdout(t *testing.T) {
	emitter := NewLogEmitter(nil, false)
	if emitter.writer == nil {
		t.Fatal("expected a non-nil default writer")
	}
}

func TestLogEmitter_InterfaceContract(_ *testing.T) {
	var _ Emitter = NewLogEmitter(nil, false)
}
