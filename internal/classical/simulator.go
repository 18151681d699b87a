// Package classical is a backend that only permits classical operations:
// allocation, deallocation, controlled NOTs, reversible functions and
// measurement, which simply reads a bit. Bits and registers can be read and
// written directly.
package classical

import (
	"context"
	"fmt"
	"time"

	qerrors "github.com/23skdu/qsim/internal/errors"
	"github.com/23skdu/qsim/internal/kernel"
	"github.com/23skdu/qsim/internal/logging"
	"github.com/23skdu/qsim/internal/metrics"
	"github.com/23skdu/qsim/internal/ops"
	"github.com/23skdu/qsim/internal/pool"
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/rs/zerolog"
)

// MaxRegisterWidth is the widest register ReadRegister can return.
const MaxRegisterWidth = 64

var _ ops.Backend = (*Simulator)(nil)

// Simulator stores one bit per allocated id in a roaring bitmap of set
// positions. Positions stay contiguous as in the state-vector backend.
// It is not safe for concurrent use.
type Simulator struct {
	bits   *roaring.Bitmap
	pos    map[int]int
	mapper ops.Mapper
	sink   ops.ResultSink
	logger zerolog.Logger
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithMapper translates ids of the read/write helpers from logical space.
func WithMapper(m ops.Mapper) Option {
	return func(s *Simulator) { s.mapper = m }
}

// WithResultSink receives measurement outcomes.
func WithResultSink(r ops.ResultSink) Option {
	return func(s *Simulator) { s.sink = r }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// New returns a simulator with no bits.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		bits:   pool.GetBitmap(),
		pos:    make(map[int]int),
		sink:   ops.NewRegistry(),
		logger: logging.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NumBits returns the number of allocated bits.
func (s *Simulator) NumBits() int { return len(s.pos) }

// IsAvailable reports whether op is classical: allocate, deallocate, flush,
// measure, reversible functions and (controlled) single-target X.
func (s *Simulator) IsAvailable(op ops.Op) bool {
	switch op.Kind {
	case ops.KindAllocate, ops.KindDeallocate, ops.KindFlush, ops.KindMeasure, ops.KindFunction:
		return true
	case ops.KindUnitary:
		return isNot(op)
	default:
		return false
	}
}

func isNot(op ops.Op) bool {
	return len(op.Targets()) == 1 && op.Matrix.ApproxEqual(kernel.X(), 0)
}

// Receive processes batch in order and stops at the first failure.
func (s *Simulator) Receive(ctx context.Context, batch []ops.Op) error {
	for _, op := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		err := s.handle(op)
		kind := op.Kind.String()
		metrics.OperationDurationSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.OperationsTotal.WithLabelValues(kind, "error").Inc()
			s.logger.Debug().Err(err).Stringer("op", op).Msg("classical operation failed")
			return err
		}
		metrics.OperationsTotal.WithLabelValues(kind, "ok").Inc()
	}
	return nil
}

func (s *Simulator) handle(op ops.Op) error {
	switch op.Kind {
	case ops.KindFlush:
		return nil

	case ops.KindAllocate:
		id, ok := op.Qubit()
		if !ok {
			return qerrors.NewInvalidArgumentError("allocate", "expected exactly one bit")
		}
		if _, dup := s.pos[id]; dup {
			return qerrors.NewDuplicateQubitError("allocate", id)
		}
		s.pos[id] = len(s.pos)
		metrics.ClassicalBits.Inc()
		return nil

	case ops.KindDeallocate:
		id, ok := op.Qubit()
		if !ok {
			return qerrors.NewInvalidArgumentError("deallocate", "expected exactly one bit")
		}
		return s.deallocate(id)

	case ops.KindMeasure:
		ids := op.Targets()
		if len(op.LogicalIDs) != 0 && len(op.LogicalIDs) != len(ids) {
			return qerrors.NewInvalidArgumentError("measure",
				fmt.Sprintf("%d logical ids for %d bits", len(op.LogicalIDs), len(ids)))
		}
		values := make([]bool, len(ids))
		for i, id := range ids {
			v, err := s.readMappedBit(id)
			if err != nil {
				return err
			}
			values[i] = v
		}
		for i, v := range values {
			if s.sink != nil {
				s.sink.SetMeasurementResult(op.ReportID(i), v)
			}
		}
		return nil

	case ops.KindUnitary:
		if !isNot(op) {
			return qerrors.NewInvalidArgumentError("classical", "only allocate, deallocate, measure, not and function ops are supported")
		}
		met, err := s.meetsControls(op.Controls)
		if err != nil || !met {
			return err
		}
		target := op.Targets()[0]
		v, err := s.readMappedBit(target)
		if err != nil {
			return err
		}
		return s.writeMappedBit(target, !v)

	case ops.KindFunction:
		return s.function(op)

	default:
		return qerrors.NewInvalidArgumentError("classical",
			fmt.Sprintf("%s is not supported; only allocate, deallocate, measure, not and function ops are", op.Kind))
	}
}

// deallocate drops the bit of id; higher positions shift down by one.
func (s *Simulator) deallocate(id int) error {
	p, ok := s.pos[id]
	if !ok {
		return qerrors.NewUnknownQubitError("deallocate", id)
	}

	next := pool.GetBitmap()
	it := s.bits.Iterator()
	for it.HasNext() {
		b := it.Next()
		switch {
		case int(b) < p:
			next.Add(b)
		case int(b) > p:
			next.Add(b - 1)
		}
	}
	pool.PutBitmap(s.bits)
	s.bits = next

	delete(s.pos, id)
	for other, q := range s.pos {
		if q > p {
			s.pos[other] = q - 1
		}
	}
	metrics.ClassicalBits.Dec()
	return nil
}

func (s *Simulator) function(op ops.Op) error {
	if op.Func == nil {
		return qerrors.NewInvalidArgumentError("function", "nil function")
	}
	met, err := s.meetsControls(op.Controls)
	if err != nil || !met {
		return err
	}
	args := make([]uint64, len(op.Qubits))
	for r, reg := range op.Qubits {
		if args[r], err = s.readMappedRegister(reg); err != nil {
			return err
		}
	}
	res := op.Func(args)
	if len(res) != len(op.Qubits) {
		return qerrors.NewInvalidArgumentError("function",
			fmt.Sprintf("function returned %d values for %d registers", len(res), len(op.Qubits)))
	}
	for r, reg := range op.Qubits {
		if err := s.writeMappedRegister(reg, res[r]&widthMask(len(reg))); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) meetsControls(controls []int) (bool, error) {
	for _, id := range controls {
		v, err := s.readMappedBit(id)
		if err != nil {
			return false, err
		}
		if !v {
			return false, nil
		}
	}
	return true, nil
}

// ReadBit returns the value of a bit, translating id through the mapper.
func (s *Simulator) ReadBit(id int) (bool, error) {
	mapped, err := ops.Translate(s.mapper, "read_bit", []int{id})
	if err != nil {
		return false, err
	}
	return s.readMappedBit(mapped[0])
}

// WriteBit sets a bit, translating id through the mapper.
func (s *Simulator) WriteBit(id int, value bool) error {
	mapped, err := ops.Translate(s.mapper, "write_bit", []int{id})
	if err != nil {
		return err
	}
	return s.writeMappedBit(mapped[0], value)
}

// ReadRegister reads ids as a little-endian integer.
func (s *Simulator) ReadRegister(ids []int) (uint64, error) {
	mapped, err := ops.Translate(s.mapper, "read_register", ids)
	if err != nil {
		return 0, err
	}
	return s.readMappedRegister(mapped)
}

// WriteRegister stores value little-endian into ids. value must fit.
func (s *Simulator) WriteRegister(ids []int, value uint64) error {
	mapped, err := ops.Translate(s.mapper, "write_register", ids)
	if err != nil {
		return err
	}
	return s.writeMappedRegister(mapped, value)
}

func (s *Simulator) readMappedBit(id int) (bool, error) {
	p, ok := s.pos[id]
	if !ok {
		return false, qerrors.NewUnknownQubitError("read_bit", id)
	}
	return s.bits.Contains(uint32(p)), nil
}

func (s *Simulator) writeMappedBit(id int, value bool) error {
	p, ok := s.pos[id]
	if !ok {
		return qerrors.NewUnknownQubitError("write_bit", id)
	}
	if value {
		s.bits.Add(uint32(p))
	} else {
		s.bits.Remove(uint32(p))
	}
	return nil
}

func (s *Simulator) readMappedRegister(ids []int) (uint64, error) {
	if len(ids) > MaxRegisterWidth {
		return 0, qerrors.NewInvalidArgumentError("read_register",
			fmt.Sprintf("register of %d bits exceeds %d", len(ids), MaxRegisterWidth))
	}
	var v uint64
	for i, id := range ids {
		bit, err := s.readMappedBit(id)
		if err != nil {
			return 0, err
		}
		if bit {
			v |= 1 << i
		}
	}
	return v, nil
}

func (s *Simulator) writeMappedRegister(ids []int, value uint64) error {
	if len(ids) > MaxRegisterWidth {
		return qerrors.NewInvalidArgumentError("write_register",
			fmt.Sprintf("register of %d bits exceeds %d", len(ids), MaxRegisterWidth))
	}
	if value&^widthMask(len(ids)) != 0 {
		return qerrors.NewInvalidArgumentError("write_register", "value won't fit in register").
			WithContext("value", value).
			WithContext("width", len(ids))
	}
	for _, id := range ids {
		if _, ok := s.pos[id]; !ok {
			return qerrors.NewUnknownQubitError("write_register", id)
		}
	}
	for i, id := range ids {
		if err := s.writeMappedBit(id, value>>i&1 == 1); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the bitmap and withdraws the bits from the gauge.
func (s *Simulator) Close() {
	metrics.ClassicalBits.Sub(float64(len(s.pos)))
	s.pos = make(map[int]int)
	pool.PutBitmap(s.bits)
	s.bits = pool.GetBitmap()
}

func widthMask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<width - 1
}
