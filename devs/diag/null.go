package diag

import "context"

// NullEmitter discards every event. Useful as the default when diagnostics
// are not wired up.
type NullEmitter struct{}

func (NullEmitter) Emit(Event) {}

func (NullEmitter) EmitBatch(context.Context, []Event) error { return nil }

func (NullEmitter) Flush(context.Context) error { return nil }
