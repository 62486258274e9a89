package devs

import (
	"context"

	"github.com/dshills/pdevs/devs/diag"
)

// Root is the top-level simulation driver: Load, Init, repeated Run until
// no work remains or a bound is hit, then Finish. Grounded on the teacher's
// Engine.Run wall-clock-budget pattern (graph/engine.go), replacing
// MaxSteps/RunWallClockBudget with TerminalTime/MaxWallClock.
type Root struct {
	coord *Coordinator
	cfg   *rootConfig
}

// NewRoot builds a Root driver from options. metrics/diagnostics set via
// WithMetrics/WithDiagnostics are wired straight into the Coordinator.
func NewRoot(opts ...Option) (*Root, error) {
	cfg := defaultRootConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	pool := NewWorkerPool(cfg.workers, cfg.blockSize)
	coord := NewCoordinator(pool, cfg.metrics, cfg.diagnostics)
	return &Root{coord: coord, cfg: cfg}, nil
}

// Load flattens root's model hierarchy and resolves its view attachments.
func (r *Root) Load(root ModelNode, views []ViewSpec) error {
	return r.coord.Load(root, views)
}

// Init initialises every simulator at t0.
func (r *Root) Init(t0 Time) error {
	return r.coord.Init(t0)
}

// Run drives bag cycles until the coordinator reports no further work, the
// configured terminal time is reached, or MaxWallClock elapses, whichever
// comes first. It always calls Finish before returning, once, even on
// error or early bound.
func (r *Root) Run(ctx context.Context) (map[string]FinalArtifact, error) {
	if r.cfg.wallClock > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.wallClock)
		defer cancel()
	}

	runErr := r.runLoop(ctx)
	artifacts, finishErr := r.coord.Finish()
	if runErr != nil {
		return artifacts, runErr
	}
	return artifacts, finishErr
}

func (r *Root) runLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if r.coord.PeekNextTime() > r.cfg.terminalTime {
			if r.cfg.terminalTime.IsFinite() {
				r.coord.AdvanceClockTo(r.cfg.terminalTime)
			}
			return nil
		}

		more, err := r.coord.Run(ctx)
		if err != nil {
			r.cfg.diagnostics.Emit(diag.Event{
				Msg:  "run aborted",
				Meta: map[string]any{"error": err.Error()},
			})
			return err
		}
		if !more {
			return nil
		}
	}
}

// Coordinator exposes the underlying Coordinator for callers that need
// direct access (e.g. inspecting Simulators() between test steps).
func (r *Root) Coordinator() *Coordinator { return r.coord }
