// Package operator evaluates weighted sums of Pauli strings against a state:
// expectation values, non-unitary application and time evolution.
package operator

import (
	"fmt"
	"strconv"
	"strings"

	qerrors "github.com/23skdu/qsim/internal/errors"
	"github.com/23skdu/qsim/internal/kernel"
)

// Factor is one Pauli acting on ids[Index] of the id list supplied with the
// operator.
type Factor struct {
	Index int
	Axis  kernel.Pauli
}

func (f Factor) String() string { return fmt.Sprintf("%s%d", f.Axis, f.Index) }

// Term is a coefficient times a product of Pauli factors. A term without
// factors is the identity.
type Term struct {
	Factors []Factor
	Coeff   complex128
}

// IsIdentity reports whether t has no factors.
func (t Term) IsIdentity() bool { return len(t.Factors) == 0 }

func (t Term) String() string {
	parts := make([]string, len(t.Factors))
	for i, f := range t.Factors {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%v [%s]", t.Coeff, strings.Join(parts, " "))
}

// Operator is a sum of terms.
type Operator []Term

// Parse reads the conventional string form of a Pauli string, e.g. "X0 Y1 Z3".
// The empty string is the identity.
func Parse(s string) ([]Factor, error) {
	fields := strings.Fields(s)
	factors := make([]Factor, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			return nil, qerrors.NewInvalidArgumentError("parse_pauli", fmt.Sprintf("malformed factor %q", f))
		}
		axis := kernel.Pauli(strings.ToUpper(f[:1])[0])
		if !axis.Valid() {
			return nil, qerrors.NewInvalidArgumentError("parse_pauli", fmt.Sprintf("unknown axis in %q", f))
		}
		index, err := strconv.Atoi(f[1:])
		if err != nil || index < 0 {
			return nil, qerrors.NewInvalidArgumentError("parse_pauli", fmt.Sprintf("bad index in %q", f))
		}
		factors = append(factors, Factor{Index: index, Axis: axis})
	}
	return factors, nil
}

// NewTerm parses s and attaches coeff.
func NewTerm(coeff complex128, s string) (Term, error) {
	factors, err := Parse(s)
	if err != nil {
		return Term{}, err
	}
	return Term{Factors: factors, Coeff: coeff}, nil
}

// MustTerm is NewTerm that panics on error, for literals.
func MustTerm(coeff complex128, s string) Term {
	t, err := NewTerm(coeff, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Validate checks that every factor index falls inside a register of size
// entries and names a known axis.
func (op Operator) Validate(size int) error {
	for _, t := range op {
		for _, f := range t.Factors {
			if f.Index < 0 || f.Index >= size {
				return qerrors.NewOperatorRangeError("validate_operator", f.Index, size)
			}
			if !f.Axis.Valid() {
				return qerrors.NewInvalidArgumentError("validate_operator", fmt.Sprintf("unknown axis %q", byte(f.Axis)))
			}
		}
	}
	return nil
}
