package kernel

import (
	"fmt"

	qerrors "github.com/23skdu/qsim/internal/errors"
)

// Pauli names a single-qubit Pauli operator.
type Pauli byte

const (
	PauliX Pauli = 'X'
	PauliY Pauli = 'Y'
	PauliZ Pauli = 'Z'
)

// Valid reports whether p is X, Y or Z.
func (p Pauli) Valid() bool {
	return p == PauliX || p == PauliY || p == PauliZ
}

func (p Pauli) String() string { return string(p) }

// Matrix returns the 2x2 matrix of p.
func (p Pauli) Matrix() Matrix {
	switch p {
	case PauliX:
		return X()
	case PauliY:
		return Y()
	default:
		return Z()
	}
}

// ApplyPauli applies p to the qubit at pos without controls. It is the
// permutation/phase form of Apply(amps, p.Matrix(), []int{pos}, 0).
func ApplyPauli(amps []complex128, p Pauli, pos int) error {
	if !p.Valid() {
		return qerrors.NewInvalidArgumentError("apply_pauli", fmt.Sprintf("unknown axis %q", byte(p)))
	}
	bit := 1 << pos
	if pos < 0 || bit >= len(amps) {
		return qerrors.NewInvalidArgumentError("apply_pauli", fmt.Sprintf("position %d exceeds register", pos))
	}

	switch p {
	case PauliX:
		for i := range amps {
			if i&bit == 0 {
				amps[i], amps[i|bit] = amps[i|bit], amps[i]
			}
		}
	case PauliY:
		for i := range amps {
			if i&bit == 0 {
				u, d := amps[i], amps[i|bit]
				amps[i] = -1i * d
				amps[i|bit] = 1i * u
			}
		}
	case PauliZ:
		for i := range amps {
			if i&bit != 0 {
				amps[i] = -amps[i]
			}
		}
	}
	return nil
}
