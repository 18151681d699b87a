package main

import (
	"math"
	"math/rand/v2"

	"github.com/23skdu/qsim/internal/emulate"
	"github.com/23skdu/qsim/internal/kernel"
	"github.com/23skdu/qsim/internal/operator"
	"github.com/23skdu/qsim/internal/ops"
)

// allocate returns allocate ops for ids 0..n-1.
func allocate(n int) []ops.Op {
	batch := make([]ops.Op, n)
	for id := range batch {
		batch[id] = ops.Allocate(id)
	}
	return batch
}

// ghzCircuit prepares (|0...0> + |1...1>)/sqrt(2) on ids 0..n-1.
func ghzCircuit(n int) []ops.Op {
	batch := allocate(n)
	batch = append(batch, ops.Unitary(kernel.H(), []int{0}))
	for id := 1; id < n; id++ {
		batch = append(batch, ops.Unitary(kernel.X(), []int{id}, id-1))
	}
	return append(batch, ops.Flush())
}

// layeredCircuit builds depth layers of random single-qubit rotations followed
// by a brick of CNOTs, with a short Ising evolution every fourth layer.
func layeredCircuit(r *rand.Rand, n, depth int) []ops.Op {
	batch := allocate(n)
	rotations := []func(float64) kernel.Matrix{kernel.Rx, kernel.Ry, kernel.Rz}
	for layer := 0; layer < depth; layer++ {
		for id := 0; id < n; id++ {
			rot := rotations[r.IntN(len(rotations))]
			batch = append(batch, ops.Unitary(rot(r.Float64()*2*math.Pi), []int{id}))
		}
		for id := layer % 2; id+1 < n; id += 2 {
			batch = append(batch, ops.Unitary(kernel.X(), []int{id + 1}, id))
		}
		if layer%4 == 3 && n > 1 {
			batch = append(batch, ops.TimeEvolution(isingChain(n), 0.1, ids(n)))
		}
	}
	return append(batch, ops.Flush())
}

// isingChain is sum_i Z_i Z_{i+1} + 0.5 sum_i X_i.
func isingChain(n int) operator.Operator {
	var op operator.Operator
	for i := 0; i+1 < n; i++ {
		op = append(op, operator.Term{
			Factors: []operator.Factor{{Index: i, Axis: kernel.PauliZ}, {Index: i + 1, Axis: kernel.PauliZ}},
			Coeff:   1,
		})
	}
	for i := 0; i < n; i++ {
		op = append(op, operator.Term{Factors: []operator.Factor{{Index: i, Axis: kernel.PauliX}}, Coeff: 0.5})
	}
	return op
}

// measureAndRelease measures every qubit and then deallocates it.
func measureAndRelease(n int) []ops.Op {
	batch := []ops.Op{ops.Measure(ids(n)...)}
	for id := 0; id < n; id++ {
		batch = append(batch, ops.Deallocate(id))
	}
	return batch
}

// adderCircuit loads a into a width-bit register, adds b and measures.
func adderCircuit(width int, a, b uint64) []ops.Op {
	batch := allocate(width)
	for i := 0; i < width; i++ {
		if a>>i&1 == 1 {
			batch = append(batch, ops.Unitary(kernel.X(), []int{i}))
		}
	}
	batch = append(batch, ops.Function(emulate.AddConstant(b, width), [][]int{ids(width)}))
	return append(batch, ops.Measure(ids(width)...))
}

func ids(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
