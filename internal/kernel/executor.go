package kernel

import (
	"context"
	"runtime"

	"github.com/23skdu/qsim/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Executor applies gates serially or, above a size threshold, split across
// workers by disjoint base-index ranges. Both paths produce identical results.
type Executor struct {
	workers           int
	minParallelQubits int
}

// NewExecutor returns an executor using up to workers goroutines for vectors of
// at least 2^minParallelQubits amplitudes. workers <= 0 means GOMAXPROCS.
func NewExecutor(workers, minParallelQubits int) *Executor {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if minParallelQubits < 0 {
		minParallelQubits = 0
	}
	return &Executor{workers: workers, minParallelQubits: minParallelQubits}
}

// Workers returns the configured worker count.
func (e *Executor) Workers() int { return e.workers }

// Apply validates the gate and applies it. The context is only consulted
// before any amplitude is written; a gate is never left half applied.
func (e *Executor) Apply(ctx context.Context, amps []complex128, m Matrix, positions []int, mask int) error {
	if err := validate(amps, m, positions, mask); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	n := len(amps)
	if e == nil || e.workers <= 1 || n < 1<<e.minParallelQubits || n < 2*e.workers {
		applyRange(amps, m, positions, mask, 0, n)
		return nil
	}

	metrics.GateApplicationsTotal.WithLabelValues("parallel").Inc()
	chunk := (n + e.workers - 1) / e.workers
	var g errgroup.Group
	g.SetLimit(e.workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			applyRange(amps, m, positions, mask, lo, hi)
			return nil
		})
	}
	return g.Wait()
}
