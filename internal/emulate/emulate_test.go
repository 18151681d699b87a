package emulate

import (
	"math"
	"testing"

	qerrors "github.com/23skdu/qsim/internal/errors"
	"github.com/23skdu/qsim/internal/kernel"
	"github.com/23skdu/qsim/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// register allocates ids and sets them to value, least significant id first.
func register(t *testing.T, st *state.Store, value int, ids ...int) {
	t.Helper()
	for i, id := range ids {
		require.NoError(t, st.Allocate(id))
		if value>>i&1 == 1 {
			p, err := st.Position(id)
			require.NoError(t, err)
			require.NoError(t, kernel.Apply(st.Amplitudes(), kernel.X(), []int{p}, 0))
		}
	}
}

func readValue(t *testing.T, st *state.Store, ids []int) int {
	t.Helper()
	v := 0
	for i, id := range ids {
		bit, err := st.ClassicalValue(id, 1e-10)
		require.NoError(t, err)
		if bit {
			v |= 1 << i
		}
	}
	return v
}

func TestAddConstant(t *testing.T) {
	tests := []struct {
		start, add, want int
	}{
		{4, 3, 7},
		{2, 15, 1},
		{15, 1, 0},
		{0, 0, 0},
	}
	for _, tt := range tests {
		st := state.New()
		ids := []int{0, 1, 2, 3}
		register(t, st, tt.start, ids...)

		require.NoError(t, Apply(st, AddConstant(uint64(tt.add), len(ids)), [][]int{ids}, nil))
		assert.Equal(t, tt.want, readValue(t, st, ids), "(%d + %d) mod 16", tt.start, tt.add)
	}
}

func TestApplyPermutesSuperposition(t *testing.T) {
	st := state.New()
	ids := []int{5, 6}
	register(t, st, 0, ids...)
	require.NoError(t, kernel.Apply(st.Amplitudes(), kernel.H(), []int{0}, 0))

	require.NoError(t, Apply(st, AddConstant(1, 2), [][]int{ids}, nil))

	half := 1 / math.Sqrt2
	for value, want := range []float64{0, half, half, 0} {
		p, err := st.Probability([]bool{value&1 == 1, value&2 == 2}, ids)
		require.NoError(t, err)
		assert.InDelta(t, want*want, p, 1e-12, "value %d", value)
	}
	assert.InDelta(t, 1.0, st.Norm(), 1e-12)
}

func TestApplyRespectsControls(t *testing.T) {
	st := state.New()
	ids := []int{0, 1, 2}
	register(t, st, 3, ids...)
	require.NoError(t, st.Allocate(9))

	require.NoError(t, Apply(st, AddConstant(2, 3), [][]int{ids}, []int{9}))
	assert.Equal(t, 3, readValue(t, st, ids), "control off")

	require.NoError(t, kernel.Apply(st.Amplitudes(), kernel.X(), []int{3}, 0))
	require.NoError(t, Apply(st, AddConstant(2, 3), [][]int{ids}, []int{9}))
	assert.Equal(t, 5, readValue(t, st, ids), "control on")
}

func TestApplyTwoRegisters(t *testing.T) {
	st := state.New()
	a, b := []int{0, 1}, []int{2, 3}
	register(t, st, 0b0110, append(append([]int(nil), a...), b...)...)

	swap := func(args []uint64) []uint64 { return []uint64{args[1], args[0]} }
	require.NoError(t, Apply(st, swap, [][]int{a, b}, nil))
	assert.Equal(t, 1, readValue(t, st, a))
	assert.Equal(t, 2, readValue(t, st, b))
}

func TestApplyWrongResultCountLeavesState(t *testing.T) {
	st := state.New()
	ids := []int{0, 1}
	register(t, st, 2, ids...)
	require.NoError(t, kernel.Apply(st.Amplitudes(), kernel.H(), []int{0}, 0))
	before := st.Snapshot()

	bad := func(args []uint64) []uint64 { return nil }
	err := Apply(st, bad, [][]int{ids}, nil)
	assert.ErrorIs(t, err, qerrors.ErrInvalidArgument)
	assert.Equal(t, before, st.Snapshot())

	assert.ErrorIs(t, Apply(st, nil, [][]int{ids}, nil), qerrors.ErrInvalidArgument)
	assert.ErrorIs(t, Apply(st, AddConstant(1, 2), [][]int{{0, 7}}, nil), qerrors.ErrUnknownQubit)
	assert.ErrorIs(t, Apply(st, AddConstant(1, 2), [][]int{ids}, []int{7}), qerrors.ErrUnknownQubit)
}

func TestApplyRejectsOverlappingQubits(t *testing.T) {
	st := state.New()
	ids := []int{0, 1}
	register(t, st, 0, ids...)
	require.NoError(t, st.Allocate(2))
	require.NoError(t, kernel.Apply(st.Amplitudes(), kernel.H(), []int{0}, 0))
	before := st.Snapshot()

	// A control inside the register would overwrite moved amplitudes.
	err := Apply(st, AddConstant(1, 2), [][]int{ids}, []int{0})
	assert.ErrorIs(t, err, qerrors.ErrInvalidArgument)
	assert.Equal(t, before, st.Snapshot())

	swap := func(args []uint64) []uint64 { return []uint64{args[1], args[0]} }
	err = Apply(st, swap, [][]int{{0, 1}, {1, 2}}, nil)
	assert.ErrorIs(t, err, qerrors.ErrInvalidArgument)
	assert.Equal(t, before, st.Snapshot())

	err = Apply(st, AddConstant(1, 2), [][]int{{1, 1}}, nil)
	assert.ErrorIs(t, err, qerrors.ErrInvalidArgument)
	assert.InDelta(t, 1.0, st.Norm(), 1e-12)
}

func TestModularHelpers(t *testing.T) {
	add := AddConstantModN(4, 5)
	assert.Equal(t, []uint64{1, 9}, add([]uint64{2, 9}))
	assert.Equal(t, []uint64{6}, add([]uint64{6}), "values >= n pass through")

	mul := MultiplyByConstantModN(7, 15)
	assert.Equal(t, []uint64{14}, mul([]uint64{2}))
	assert.Equal(t, []uint64{15}, mul([]uint64{15}))

	// A bijection on [0, n) when gcd(a, n) == 1.
	seen := map[uint64]bool{}
	for x := uint64(0); x < 15; x++ {
		seen[mul([]uint64{x})[0]] = true
	}
	assert.Len(t, seen, 15)

	big := MultiplyByConstantModN(math.MaxUint64-1, math.MaxUint64)
	assert.Equal(t, []uint64{1}, big([]uint64{math.MaxUint64 - 1}))

	assert.Equal(t, []uint64{0}, AddConstant(1, 64)([]uint64{math.MaxUint64}))
}
