package main

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/23skdu/qsim/internal/classical"
	"github.com/23skdu/qsim/internal/config"
	"github.com/23skdu/qsim/internal/logging"
	"github.com/23skdu/qsim/internal/ops"
	"github.com/23skdu/qsim/internal/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBenchSim(t *testing.T, fusion bool) *simulator.Simulator {
	t.Helper()
	cfg := config.Default()
	cfg.Seed = 7
	cfg.GateFusion = fusion
	sim, err := simulator.New(cfg, simulator.WithLogger(logging.DiscardLogger()))
	require.NoError(t, err)
	t.Cleanup(sim.Close)
	return sim
}

func TestGHZCircuit(t *testing.T) {
	const n = 6
	sim := newBenchSim(t, false)
	require.NoError(t, sim.Receive(context.Background(), ghzCircuit(n)))

	zeros := make([]bool, n)
	ones := make([]bool, n)
	for i := range ones {
		ones[i] = true
	}
	p0, err := sim.Probability(zeros, ids(n))
	require.NoError(t, err)
	p1, err := sim.Probability(ones, ids(n))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p0, 1e-12)
	assert.InDelta(t, 0.5, p1, 1e-12)

	registry := sim.ResultSink().(*ops.Registry)
	require.NoError(t, sim.Receive(context.Background(), measureAndRelease(n)))
	assert.Equal(t, 0, sim.NumQubits())
	first, ok := registry.Result(0)
	require.True(t, ok)
	for id := 1; id < n; id++ {
		v, ok := registry.Result(id)
		require.True(t, ok)
		assert.Equal(t, first, v, "qubit %d", id)
	}
}

func TestLayeredCircuitStaysNormalized(t *testing.T) {
	for _, fusion := range []bool{false, true} {
		sim := newBenchSim(t, fusion)
		r := rand.New(rand.NewPCG(1, 2))
		require.NoError(t, sim.Receive(context.Background(), layeredCircuit(r, 5, 8)))

		snap, err := sim.DebugSnapshot()
		require.NoError(t, err)
		var norm float64
		for _, a := range snap.Amplitudes {
			norm += real(a)*real(a) + imag(a)*imag(a)
		}
		assert.InDelta(t, 1, norm, 1e-9, "fusion=%t", fusion)
		require.NoError(t, sim.Receive(context.Background(), measureAndRelease(5)))
	}
}

func TestIsingChain(t *testing.T) {
	op := isingChain(3)
	require.Len(t, op, 5)
	require.NoError(t, op.Validate(3))
	assert.Equal(t, "(1+0i) [Z0 Z1]", op[0].String())
	assert.Equal(t, complex128(0.5), op[4].Coeff)
}

func TestClassicalAdder(t *testing.T) {
	registry := ops.NewRegistry()
	sim := classical.New(classical.WithResultSink(registry))
	defer sim.Close()

	require.NoError(t, sim.Receive(context.Background(), adderCircuit(8, 200, 77)))
	sum, err := sim.ReadRegister(ids(8))
	require.NoError(t, err)
	assert.Equal(t, uint64((200+77)%256), sum)

	for i := 0; i < 8; i++ {
		v, ok := registry.Result(i)
		require.True(t, ok)
		assert.Equal(t, sum>>i&1 == 1, v, "bit %d", i)
	}
}

func TestLatency(t *testing.T) {
	var l latency
	assert.Zero(t, l.Avg())
	l.Record(time.Millisecond)
	l.Record(3 * time.Millisecond)
	assert.Equal(t, 2*time.Millisecond, l.Avg())
	assert.Equal(t, 3*time.Millisecond, l.max)
}
