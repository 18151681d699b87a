package simulator

import (
	"context"
	"slices"

	"github.com/23skdu/qsim/internal/kernel"
	"github.com/23skdu/qsim/internal/metrics"
	"github.com/23skdu/qsim/internal/ops"
	"github.com/23skdu/qsim/internal/state"
)

type pendingGate struct {
	m        kernel.Matrix
	targets  []int
	controls []int
}

// fuser queues unitaries until the next flush. A gate on the same targets and
// controls as the previous one is folded into it by matrix product.
type fuser struct {
	gates  []pendingGate
	queued int
}

// queue validates op against the current register and appends it.
func (f *fuser) queue(st *state.Store, op ops.Op) error {
	positions, err := st.Positions(op.Targets())
	if err != nil {
		return err
	}
	mask, err := st.ControlMask(op.Controls)
	if err != nil {
		return err
	}
	if err := kernel.Validate(st.Amplitudes(), op.Matrix, positions, mask); err != nil {
		return err
	}

	f.queued++
	if n := len(f.gates); n > 0 {
		last := &f.gates[n-1]
		if slices.Equal(last.targets, op.Targets()) && slices.Equal(last.controls, op.Controls) {
			// op runs after last, so it multiplies from the left.
			fused, err := kernel.Mul(op.Matrix, last.m)
			if err != nil {
				return err
			}
			last.m = fused
			return nil
		}
	}
	f.gates = append(f.gates, pendingGate{
		m:        op.Matrix,
		targets:  slices.Clone(op.Targets()),
		controls: slices.Clone(op.Controls),
	})
	return nil
}

func (f *fuser) reset() {
	f.gates = f.gates[:0]
	f.queued = 0
}

// flush applies every pending gate. Cancellation is only honoured before the
// first gate so a batch is applied completely or not at all.
func (s *Simulator) flush(ctx context.Context) error {
	if s.fusion == nil || len(s.fusion.gates) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	applyCtx := context.WithoutCancel(ctx)
	gates, queued := s.fusion.gates, s.fusion.queued
	for _, g := range gates {
		if err := s.applyUnitary(applyCtx, g.m, g.targets, g.controls); err != nil {
			s.fusion.reset()
			return err
		}
	}
	metrics.FusedBatchSize.Observe(float64(queued))
	s.logger.Debug().Int("queued", queued).Int("applied", len(gates)).Msg("flushed fused gates")
	s.fusion.reset()
	return nil
}
