package devs

import (
	"time"

	"github.com/dshills/pdevs/devs/diag"
)

// Option configures a Root driver. Adapted from the teacher's functional
// Option pattern (graph/options.go); the replay/retry/cost options are
// dropped along with their owning modules (see DESIGN.md), leaving the
// subset that configures run parameters rather than excluded behavior.
type Option func(*rootConfig) error

type rootConfig struct {
	workers       int
	blockSize     int
	terminalTime  Time
	wallClock     time.Duration
	metrics       *KernelMetrics
	diagnostics   diag.Emitter
}

func defaultRootConfig() *rootConfig {
	return &rootConfig{
		workers:      0,
		blockSize:    DefaultBlockSize,
		terminalTime: PosInf,
		diagnostics:  diag.NullEmitter{},
	}
}

// WithWorkerPool sets the worker count and block size for the worker pool
// that evaluates output and ordinary-transition phases. workers = 0 runs
// serially (the default).
func WithWorkerPool(workers, blockSize int) Option {
	return func(c *rootConfig) error {
		c.workers = workers
		c.blockSize = blockSize
		return nil
	}
}

// WithTerminalTime bounds the simulation: Root.Run stops once the
// scheduler's next time would exceed t, even if work remains.
func WithTerminalTime(t Time) Option {
	return func(c *rootConfig) error {
		c.terminalTime = t
		return nil
	}
}

// WithMaxWallClock bounds total wall-clock time spent in Root.Run,
// independent of simulated time. Zero disables the bound.
func WithMaxWallClock(d time.Duration) Option {
	return func(c *rootConfig) error {
		c.wallClock = d
		return nil
	}
}

// WithMetrics attaches a KernelMetrics collector.
func WithMetrics(m *KernelMetrics) Option {
	return func(c *rootConfig) error {
		c.metrics = m
		return nil
	}
}

// WithDiagnostics attaches a diagnostics emitter. Defaults to
// diag.NullEmitter.
func WithDiagnostics(e diag.Emitter) Option {
	return func(c *rootConfig) error {
		if e == nil {
			return &GraphError{Message: "WithDiagnostics: emitter must not be nil"}
		}
		c.diagnostics = e
		return nil
	}
}
