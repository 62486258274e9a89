package devs

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultBlockSize is the default block partition size (spec §4.9).
const DefaultBlockSize = 8

// WorkerPool partitions a simulator vector into fixed-size blocks and
// evaluates independent operations (output, ordinary transitions) over
// them, optionally in parallel. Grounded on the teacher's runConcurrent
// worker-pool dispatch in graph/engine.go, replaced with
// golang.org/x/sync/errgroup's bounded goroutine limit instead of a
// hand-rolled goroutine-and-channel pool: SetLimit(W) is exactly the
// "W workers cooperatively claim blocks" contract from spec §4.9, and
// g.Wait() is the completion barrier.
type WorkerPool struct {
	Workers   int // 0 = serial fallback, no goroutines spawned
	BlockSize int
}

// NewWorkerPool returns a pool with the given worker count and block
// size. A non-positive blockSize is replaced with DefaultBlockSize.
func NewWorkerPool(workers, blockSize int) *WorkerPool {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &WorkerPool{Workers: workers, BlockSize: blockSize}
}

// ForEach evaluates fn over every simulator in sims, honoring the
// independence contract: fn must not mutate state shared across
// simulators (routing table and scheduler mutation happen on the driver
// thread, never inside fn). With Workers == 0, fn runs in the calling
// goroutine in sims order, identically to the parallel path's per-element
// semantics. The first error from any block is returned after all blocks
// that were started have completed.
func (wp *WorkerPool) ForEach(ctx context.Context, sims []*Simulator, fn func(*Simulator) error) error {
	if wp.Workers <= 0 || len(sims) <= wp.BlockSize {
		for _, sim := range sims {
			if err := fn(sim); err != nil {
				return err
			}
		}
		return nil
	}

	blocks := partition(sims, wp.BlockSize)
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(wp.Workers)
	for _, block := range blocks {
		block := block
		g.Go(func() error {
			for _, sim := range block {
				if err := fn(sim); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func partition(sims []*Simulator, size int) [][]*Simulator {
	var blocks [][]*Simulator
	for i := 0; i < len(sims); i += size {
		end := i + size
		if end > len(sims) {
			end = len(sims)
		}
		blocks = append(blocks, sims[i:end])
	}
	return blocks
}
