// Package diag carries kernel-internal diagnostics: failed executive
// mutations, sink write failures, detached view attachments, aborted runs.
// These are distinct from simulation
// View samples (devs/view), which are the modeler-facing output.
package diag

// Event is a single diagnostics record.
type Event struct {
	RunID string
	Time  float64
	Msg   string
	Meta  map[string]any
}
