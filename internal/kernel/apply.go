package kernel

import (
	"fmt"

	qerrors "github.com/23skdu/qsim/internal/errors"
	"github.com/23skdu/qsim/internal/metrics"
)

// Apply applies m to the qubits at positions on the subspace where every bit of
// mask is set. Bit j of a matrix row/column index corresponds to positions[j].
// Indices outside the control subspace are left unchanged.
func Apply(amps []complex128, m Matrix, positions []int, mask int) error {
	if err := validate(amps, m, positions, mask); err != nil {
		return err
	}
	applyRange(amps, m, positions, mask, 0, len(amps))
	return nil
}

// Validate reports whether Apply would accept the arguments, without touching
// amps.
func Validate(amps []complex128, m Matrix, positions []int, mask int) error {
	return validate(amps, m, positions, mask)
}

func validate(amps []complex128, m Matrix, positions []int, mask int) error {
	k := len(positions)
	if k == 0 || k > MaxTargets || m.dim != 1<<k {
		return qerrors.NewGateSizeError("apply_unitary", m.dim, k)
	}
	n := len(amps)
	if n == 0 || n&(n-1) != 0 {
		return qerrors.NewInvalidArgumentError("apply_unitary", fmt.Sprintf("amplitude vector length %d is not a power of two", n))
	}
	if mask < 0 || mask >= n {
		return qerrors.NewInvalidArgumentError("apply_unitary", "control mask exceeds register")
	}
	targets := 0
	for _, p := range positions {
		if p < 0 || 1<<p >= n {
			return qerrors.NewInvalidArgumentError("apply_unitary", fmt.Sprintf("target position %d exceeds register", p))
		}
		bit := 1 << p
		if targets&bit != 0 {
			return qerrors.NewInvalidArgumentError("apply_unitary", fmt.Sprintf("target position %d repeated", p))
		}
		if mask&bit != 0 {
			return qerrors.NewInvalidArgumentError("apply_unitary", fmt.Sprintf("position %d is both control and target", p))
		}
		targets |= bit
	}
	return nil
}

// applyRange processes the base indices in [lo, hi). A base index has every
// target bit clear and owns the 2^k amplitudes of its group, so disjoint
// ranges never touch the same amplitude.
func applyRange(amps []complex128, m Matrix, positions []int, mask, lo, hi int) {
	if len(positions) == 1 {
		metrics.GateApplicationsTotal.WithLabelValues("single").Inc()
		applySingle(amps, m, positions[0], mask, lo, hi)
		return
	}
	metrics.GateApplicationsTotal.WithLabelValues("multi").Inc()
	applyMulti(amps, m, positions, mask, lo, hi)
}

func applySingle(amps []complex128, m Matrix, pos, mask, lo, hi int) {
	bit := 1 << pos
	m00, m01, m10, m11 := m.data[0], m.data[1], m.data[2], m.data[3]
	for i := lo; i < hi; i++ {
		if i&bit != 0 || i&mask != mask {
			continue
		}
		j := i | bit
		u, d := amps[i], amps[j]
		amps[i] = m00*u + m01*d
		amps[j] = m10*u + m11*d
	}
}

func applyMulti(amps []complex128, m Matrix, positions []int, mask, lo, hi int) {
	dim := m.dim
	offsets := make([]int, dim)
	targets := 0
	for _, p := range positions {
		targets |= 1 << p
	}
	for x := 0; x < dim; x++ {
		off := 0
		for j, p := range positions {
			off |= ((x >> j) & 1) << p
		}
		offsets[x] = off
	}

	in := make([]complex128, dim)
	for i := lo; i < hi; i++ {
		if i&targets != 0 || i&mask != mask {
			continue
		}
		for x, off := range offsets {
			in[x] = amps[i|off]
		}
		for r, off := range offsets {
			row := m.data[r*dim : (r+1)*dim]
			var acc complex128
			for c, v := range in {
				acc += row[c] * v
			}
			amps[i|off] = acc
		}
	}
}
