// Package simulator is the entry point of the state-vector backend. It consumes
// the operation stream, answers state queries and reports measurements.
package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/23skdu/qsim/internal/config"
	"github.com/23skdu/qsim/internal/emulate"
	qerrors "github.com/23skdu/qsim/internal/errors"
	"github.com/23skdu/qsim/internal/kernel"
	"github.com/23skdu/qsim/internal/logging"
	"github.com/23skdu/qsim/internal/measure"
	"github.com/23skdu/qsim/internal/metrics"
	"github.com/23skdu/qsim/internal/operator"
	"github.com/23skdu/qsim/internal/ops"
	"github.com/23skdu/qsim/internal/pool"
	"github.com/23skdu/qsim/internal/state"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const bytesPerAmplitude = 16

var _ ops.Backend = (*Simulator)(nil)

// Simulator holds one register and processes operations against it.
// It is not safe for concurrent use.
type Simulator struct {
	id      uuid.UUID
	cfg     config.Config
	store   *state.Store
	exec    *kernel.Executor
	sampler *measure.Sampler
	mapper  ops.Mapper
	sink    ops.ResultSink
	logger  zerolog.Logger
	fusion  *fuser

	// last values published to the shared gauges
	reportedQubits int
	reportedBytes  int
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithMapper translates query ids from logical to mapped space.
func WithMapper(m ops.Mapper) Option {
	return func(s *Simulator) { s.mapper = m }
}

// WithResultSink receives measurement outcomes.
func WithResultSink(r ops.ResultSink) Option {
	return func(s *Simulator) { s.sink = r }
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// WithPool sets the amplitude buffer pool.
func WithPool(p *pool.AmplitudePool) Option {
	return func(s *Simulator) { s.store = state.New(state.WithPool(p), state.WithMaxQubits(s.cfg.MaxQubits)) }
}

// New validates cfg and returns an empty simulator.
func New(cfg config.Config, opts ...Option) (*Simulator, error) {
	if err := config.Validate(&cfg); err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeConfiguration, "new_simulator", "invalid configuration")
	}
	logger, err := logging.NewLogger(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel})
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeConfiguration, "new_simulator", "invalid logger configuration")
	}

	seed := cfg.ResolveSeed()
	s := &Simulator{
		id:      uuid.New(),
		cfg:     cfg,
		store:   state.New(state.WithMaxQubits(cfg.MaxQubits)),
		exec:    kernel.NewExecutor(cfg.Workers, cfg.ParallelMinQubits),
		sampler: measure.NewSampler(seed),
		sink:    ops.NewRegistry(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.GateFusion {
		s.fusion = &fuser{}
	}
	s.logger = s.logger.With().Str("simulator", s.id.String()).Logger()
	s.logger.Debug().
		Uint64("seed", seed).
		Bool("fusion", cfg.GateFusion).
		Int("workers", s.exec.Workers()).
		Msg("simulator created")
	s.publish()
	return s, nil
}

// ID returns the instance id used in log entries.
func (s *Simulator) ID() uuid.UUID { return s.id }

// ResultSink returns the sink measurements are reported to.
func (s *Simulator) ResultSink() ops.ResultSink { return s.sink }

// NumQubits returns the number of allocated qubits.
func (s *Simulator) NumQubits() int { return s.store.NumQubits() }

// IsAvailable reports whether op can be simulated. Unitaries are limited to
// kernel.MaxTargets targets; everything else in the stream is supported.
func (s *Simulator) IsAvailable(op ops.Op) bool {
	switch op.Kind {
	case ops.KindUnitary:
		return checkGateSize(op) == nil
	case ops.KindAllocate, ops.KindDeallocate, ops.KindMeasure,
		ops.KindFunction, ops.KindTimeEvolution, ops.KindFlush:
		return true
	default:
		return false
	}
}

// Receive processes batch in order and stops at the first failure. The failed
// op leaves the register unchanged; earlier ops stay applied.
func (s *Simulator) Receive(ctx context.Context, batch []ops.Op) error {
	for _, op := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.track(op.Kind.String(), func() error { return s.handle(ctx, op) }); err != nil {
			s.logger.Debug().Err(err).Stringer("op", op).Msg("operation failed")
			return err
		}
	}
	return nil
}

func (s *Simulator) handle(ctx context.Context, op ops.Op) error {
	switch op.Kind {
	case ops.KindAllocate:
		id, ok := op.Qubit()
		if !ok {
			return qerrors.NewInvalidArgumentError("allocate", "expected exactly one qubit")
		}
		if err := s.flush(ctx); err != nil {
			return err
		}
		if err := s.store.Allocate(id); err != nil {
			return err
		}
		s.logger.Debug().Int("qubit", id).Int("qubits", s.store.NumQubits()).Msg("allocated")
		return nil

	case ops.KindDeallocate:
		id, ok := op.Qubit()
		if !ok {
			return qerrors.NewInvalidArgumentError("deallocate", "expected exactly one qubit")
		}
		if err := s.flush(ctx); err != nil {
			return err
		}
		if err := s.store.Deallocate(id, s.cfg.ClassicalTolerance); err != nil {
			return err
		}
		s.logger.Debug().Int("qubit", id).Int("qubits", s.store.NumQubits()).Msg("deallocated")
		return nil

	case ops.KindUnitary:
		if err := checkGateSize(op); err != nil {
			return err
		}
		if s.fusion != nil {
			return s.fusion.queue(s.store, op)
		}
		return s.applyUnitary(ctx, op.Matrix, op.Targets(), op.Controls)

	case ops.KindMeasure:
		return s.measure(ctx, op)

	case ops.KindFunction:
		if err := s.flush(ctx); err != nil {
			return err
		}
		return emulate.Apply(s.store, op.Func, op.Qubits, op.Controls)

	case ops.KindTimeEvolution:
		if err := s.flush(ctx); err != nil {
			return err
		}
		return operator.TimeEvolution(s.store, op.Operator, op.Time, op.Targets(), op.Controls)

	case ops.KindFlush:
		return s.flush(ctx)

	default:
		return qerrors.NewInvalidArgumentError("receive", fmt.Sprintf("unsupported operation %s", op.Kind))
	}
}

func (s *Simulator) applyUnitary(ctx context.Context, m kernel.Matrix, targets, controls []int) error {
	positions, err := s.store.Positions(targets)
	if err != nil {
		return err
	}
	mask, err := s.store.ControlMask(controls)
	if err != nil {
		return err
	}
	return s.exec.Apply(ctx, s.store.Amplitudes(), m, positions, mask)
}

func (s *Simulator) measure(ctx context.Context, op ops.Op) error {
	ids := op.Targets()
	if len(op.LogicalIDs) != 0 && len(op.LogicalIDs) != len(ids) {
		return qerrors.NewInvalidArgumentError("measure",
			fmt.Sprintf("%d logical ids for %d qubits", len(op.LogicalIDs), len(ids)))
	}
	if err := s.flush(ctx); err != nil {
		return err
	}
	bits, err := s.sampler.Measure(s.store, ids)
	if err != nil {
		return err
	}
	for i, bit := range bits {
		report := op.ReportID(i)
		if s.sink != nil {
			s.sink.SetMeasurementResult(report, bit)
		}
		metrics.MeasurementOutcomesTotal.WithLabelValues(outcomeLabel(bit)).Inc()
		s.logger.Debug().Int("qubit", ids[i]).Int("reported_as", report).Bool("value", bit).Msg("measured")
	}
	return nil
}

func checkGateSize(op ops.Op) error {
	k := len(op.Targets())
	if k == 0 || k > kernel.MaxTargets || op.Matrix.Dim() != 1<<k {
		return qerrors.NewGateSizeError("unitary", op.Matrix.Dim(), k)
	}
	return nil
}

// track times fn and records its outcome under kind.
func (s *Simulator) track(kind string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.OperationDurationSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.OperationsTotal.WithLabelValues(kind, status).Inc()
	s.publish()
	return err
}

// publish moves the shared gauges by this instance's change since the last call.
func (s *Simulator) publish() {
	qubits, bytes := s.store.NumQubits(), s.store.Len()*bytesPerAmplitude
	metrics.LiveQubits.Add(float64(qubits - s.reportedQubits))
	metrics.StateVectorBytes.Add(float64(bytes - s.reportedBytes))
	s.reportedQubits, s.reportedBytes = qubits, bytes
}

// Close drops the register and withdraws this instance from the gauges.
// Pending fused gates are discarded.
func (s *Simulator) Close() {
	if s.fusion != nil {
		s.fusion.reset()
	}
	s.store.Reset()
	metrics.LiveQubits.Sub(float64(s.reportedQubits))
	metrics.StateVectorBytes.Sub(float64(s.reportedBytes))
	s.reportedQubits, s.reportedBytes = 0, 0
	s.logger.Debug().Msg("simulator closed")
}

func outcomeLabel(bit bool) string {
	if bit {
		return "1"
	}
	return "0"
}
