package diag

import "context"

// Emitter receives kernel diagnostics events. Implementations must not
// block the driver thread for long; EmitBatch/Flush exist for backends
// that benefit from batching.
type Emitter interface {
	Emit(event Event)
	EmitBatch(ctx context.Context, events []Event) error
	Flush(ctx context.Context) error
}
