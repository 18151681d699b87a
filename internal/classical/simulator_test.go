package classical

import (
	"context"
	"testing"

	"github.com/23skdu/qsim/internal/emulate"
	qerrors "github.com/23skdu/qsim/internal/errors"
	"github.com/23skdu/qsim/internal/kernel"
	"github.com/23skdu/qsim/internal/operator"
	"github.com/23skdu/qsim/internal/ops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSim(t *testing.T, opts ...Option) *Simulator {
	t.Helper()
	s := New(opts...)
	t.Cleanup(s.Close)
	return s
}

func run(t *testing.T, s *Simulator, batch ...ops.Op) {
	t.Helper()
	require.NoError(t, s.Receive(context.Background(), batch))
}

func TestReadWriteBits(t *testing.T) {
	s := newSim(t)
	run(t, s, ops.Allocate(0), ops.Allocate(1))

	v, err := s.ReadBit(1)
	require.NoError(t, err)
	assert.False(t, v)

	require.NoError(t, s.WriteBit(1, true))
	v, err = s.ReadBit(1)
	require.NoError(t, err)
	assert.True(t, v)

	require.NoError(t, s.WriteBit(1, false))
	v, err = s.ReadBit(1)
	require.NoError(t, err)
	assert.False(t, v)

	_, err = s.ReadBit(9)
	assert.ErrorIs(t, err, qerrors.ErrUnknownQubit)
}

func TestRegisters(t *testing.T) {
	s := newSim(t)
	reg := []int{0, 1, 2, 3}
	for _, id := range reg {
		run(t, s, ops.Allocate(id))
	}

	require.NoError(t, s.WriteRegister(reg, 11))
	v, err := s.ReadRegister(reg)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), v)

	bit, err := s.ReadBit(2)
	require.NoError(t, err)
	assert.False(t, bit)

	err = s.WriteRegister(reg, 16)
	assert.ErrorIs(t, err, qerrors.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "won't fit")

	v, err = s.ReadRegister(reg)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), v, "failed write leaves the register unchanged")
}

func TestControlledNot(t *testing.T) {
	s := newSim(t)
	run(t, s, ops.Allocate(0), ops.Allocate(1), ops.Allocate(2))

	run(t, s, ops.Unitary(kernel.X(), []int{2}, 0, 1))
	v, err := s.ReadBit(2)
	require.NoError(t, err)
	assert.False(t, v, "controls off")

	require.NoError(t, s.WriteRegister([]int{0, 1}, 3))
	run(t, s, ops.Unitary(kernel.X(), []int{2}, 0, 1))
	v, err = s.ReadBit(2)
	require.NoError(t, err)
	assert.True(t, v, "controls on")
}

func TestFunction(t *testing.T) {
	s := newSim(t)
	reg := []int{0, 1, 2, 3}
	for _, id := range reg {
		run(t, s, ops.Allocate(id))
	}
	require.NoError(t, s.WriteRegister(reg, 4))

	run(t, s, ops.Function(emulate.AddConstant(3, len(reg)), [][]int{reg}))
	v, err := s.ReadRegister(reg)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)

	// Results wider than the register are truncated.
	run(t, s, ops.Function(func(args []uint64) []uint64 { return []uint64{args[0] + 16} }, [][]int{reg}))
	v, err = s.ReadRegister(reg)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)
}

func TestDeallocateShiftsHigherBits(t *testing.T) {
	s := newSim(t)
	run(t, s, ops.Allocate(10), ops.Allocate(11), ops.Allocate(12))
	require.NoError(t, s.WriteBit(10, true))
	require.NoError(t, s.WriteBit(12, true))

	run(t, s, ops.Deallocate(11))
	assert.Equal(t, 2, s.NumBits())

	v, err := s.ReadBit(10)
	require.NoError(t, err)
	assert.True(t, v)
	v, err = s.ReadBit(12)
	require.NoError(t, err)
	assert.True(t, v)

	run(t, s, ops.Allocate(13))
	v, err = s.ReadBit(13)
	require.NoError(t, err)
	assert.False(t, v, "new bits start at 0")

	assert.ErrorIs(t, s.Receive(context.Background(), []ops.Op{ops.Deallocate(11)}), qerrors.ErrUnknownQubit)
	assert.ErrorIs(t, s.Receive(context.Background(), []ops.Op{ops.Allocate(10)}), qerrors.ErrDuplicateQubit)
}

func TestMeasureReportsToSink(t *testing.T) {
	registry := ops.NewRegistry()
	s := newSim(t, WithResultSink(registry))
	run(t, s, ops.Allocate(5), ops.Allocate(6))
	require.NoError(t, s.WriteBit(6, true))

	run(t, s, ops.Measure(5, 6), ops.MeasureAs([]int{6}, []int{60}))

	v, ok := registry.Result(5)
	require.True(t, ok)
	assert.False(t, v)
	v, ok = registry.Result(6)
	require.True(t, ok)
	assert.True(t, v)
	v, ok = registry.Result(60)
	require.True(t, ok)
	assert.True(t, v)
}

func TestMapper(t *testing.T) {
	s := newSim(t, WithMapper(ops.StaticMapper{0: 20, 1: 21}))
	run(t, s, ops.Allocate(20), ops.Allocate(21))

	require.NoError(t, s.WriteRegister([]int{0, 1}, 2))
	v, err := s.ReadBit(1)
	require.NoError(t, err)
	assert.True(t, v)

	_, err = s.ReadBit(20)
	assert.ErrorIs(t, err, qerrors.ErrUnknownQubit)
}

func TestRejectsQuantumOps(t *testing.T) {
	s := newSim(t)
	run(t, s, ops.Allocate(0))

	h := ops.Unitary(kernel.H(), []int{0})
	assert.False(t, s.IsAvailable(h))
	assert.ErrorIs(t, s.Receive(context.Background(), []ops.Op{h}), qerrors.ErrInvalidArgument)

	evo := ops.TimeEvolution(operator.Operator{operator.MustTerm(1, "Z0")}, 1, []int{0})
	assert.False(t, s.IsAvailable(evo))
	assert.ErrorIs(t, s.Receive(context.Background(), []ops.Op{evo}), qerrors.ErrInvalidArgument)

	assert.True(t, s.IsAvailable(ops.Unitary(kernel.X(), []int{0})))
	assert.True(t, s.IsAvailable(ops.Flush()))
	run(t, s, ops.Flush())
}
