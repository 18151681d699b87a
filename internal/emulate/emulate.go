// Package emulate applies classical reversible functions to a state vector
// as permutations of basis indices.
package emulate

import (
	"fmt"
	"math/bits"

	qerrors "github.com/23skdu/qsim/internal/errors"
	"github.com/23skdu/qsim/internal/state"
)

// Func maps one decoded value per register to one result per register.
// It must be a bijection on the register values it is applied to.
type Func func(args []uint64) []uint64

// MaxRegisterWidth is the widest register that decodes into a uint64.
const MaxRegisterWidth = 64

// Apply runs f on every basis index inside the control subspace. Each
// register's ids are least significant first; the low len(register) bits of
// each result are written back to the same positions. Indices outside the
// subspace are copied unchanged. The state is untouched on error.
func Apply(st *state.Store, f Func, registers [][]int, controls []int) error {
	if f == nil {
		return qerrors.NewInvalidArgumentError("emulate", "nil function")
	}
	mask, err := st.ControlMask(controls)
	if err != nil {
		return err
	}
	// Registers and controls must not share a position, or two indices
	// could land on the same slot of the permuted vector.
	used := mask
	locs := make([][]int, len(registers))
	for r, reg := range registers {
		if len(reg) > MaxRegisterWidth {
			return qerrors.NewInvalidArgumentError("emulate",
				fmt.Sprintf("register %d has %d qubits, max %d", r, len(reg), MaxRegisterWidth))
		}
		if locs[r], err = st.Positions(reg); err != nil {
			return err
		}
		for q, p := range locs[r] {
			if used&(1<<p) != 0 {
				return qerrors.NewInvalidArgumentError("emulate",
					fmt.Sprintf("qubit %d appears in more than one register or control", reg[q]))
			}
			used |= 1 << p
		}
	}

	amps := st.Amplitudes()
	next := st.Pool().Get(len(amps))
	args := make([]uint64, len(locs))
	for i, a := range amps {
		if i&mask != mask {
			next[i] = a
			continue
		}
		for r, reg := range locs {
			var v uint64
			for q, p := range reg {
				v |= uint64((i>>p)&1) << q
			}
			args[r] = v
		}

		res := f(args)
		if len(res) != len(locs) {
			st.Pool().Put(next)
			return qerrors.NewInvalidArgumentError("emulate",
				fmt.Sprintf("function returned %d values for %d registers", len(res), len(locs)))
		}

		j := i
		for r, reg := range locs {
			for q, p := range reg {
				bit := 1 << p
				if (res[r]>>q)&1 == 1 {
					j |= bit
				} else {
					j &^= bit
				}
			}
		}
		next[j] = a
	}
	return st.Replace(next)
}

// AddConstant returns a function adding c to the first register modulo
// 2^width, where width is the register's length.
func AddConstant(c uint64, width int) Func {
	m := widthMask(width)
	return func(args []uint64) []uint64 {
		out := append([]uint64(nil), args...)
		if len(out) > 0 {
			out[0] = (out[0] + c) & m
		}
		return out
	}
}

// AddConstantModN returns a function adding c modulo n to the first register.
// Values >= n are left unchanged so the map stays a bijection.
func AddConstantModN(c, n uint64) Func {
	return func(args []uint64) []uint64 {
		out := append([]uint64(nil), args...)
		if n > 0 && len(out) > 0 && out[0] < n {
			out[0] = addMod(out[0], c%n, n)
		}
		return out
	}
}

// MultiplyByConstantModN returns a function multiplying the first register by
// a modulo n. It is a bijection on [0, n) when gcd(a, n) == 1; values >= n
// pass through.
func MultiplyByConstantModN(a, n uint64) Func {
	return func(args []uint64) []uint64 {
		out := append([]uint64(nil), args...)
		if n > 0 && len(out) > 0 && out[0] < n {
			hi, lo := bits.Mul64(out[0], a%n)
			out[0] = bits.Rem64(hi, lo, n)
		}
		return out
	}
}

func widthMask(width int) uint64 {
	switch {
	case width <= 0:
		return 0
	case width >= 64:
		return ^uint64(0)
	}
	return 1<<width - 1
}

// addMod computes (x + y) mod n for x, y < n without overflow.
func addMod(x, y, n uint64) uint64 {
	if x >= n-y {
		return x - (n - y)
	}
	return x + y
}
