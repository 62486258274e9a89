package diag

import (
	"context"
	"testing"
)

func TestNullEmitter_DiscardsEverything(t *testing.T) {
	var e NullEmitter
	e.Emit(Event{RunID: "run-1", Msg: "anything"})
	if err := e.EmitBatch(context.Background(), []Event{{Msg: "a"}, {Msg: "b"}}); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if err := e.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestNullEmitter_InterfaceContract(_ *testing.T) {
	var _ Emitter = NullEmitter{}
}
