package simulator

import (
	"context"
	"fmt"
	"math"

	qerrors "github.com/23skdu/qsim/internal/errors"
	"github.com/23skdu/qsim/internal/measure"
	"github.com/23skdu/qsim/internal/operator"
	"github.com/23skdu/qsim/internal/ops"
	"github.com/23skdu/qsim/internal/state"
)

// Queries run pending fused gates first and translate ids through the mapper.

// Amplitude returns the amplitude of the basis state bits[i] on ids[i]. ids
// must name every allocated qubit exactly once.
func (s *Simulator) Amplitude(bits []bool, ids []int) (complex128, error) {
	var amp complex128
	err := s.query("amplitude", ids, func(mapped []int) error {
		var err error
		amp, err = s.store.Amplitude(bits, mapped)
		return err
	})
	return amp, err
}

// Probability returns the probability of observing bits[i] on ids[i].
func (s *Simulator) Probability(bits []bool, ids []int) (float64, error) {
	var p float64
	err := s.query("probability", ids, func(mapped []int) error {
		var err error
		p, err = s.store.Probability(bits, mapped)
		return err
	})
	return p, err
}

// SetState replaces the register with amps. ids must be a permutation of the
// allocated qubits; ids[i] becomes bit i of the amplitude index.
func (s *Simulator) SetState(amps []complex128, ids []int) error {
	return s.query("set_state", ids, func(mapped []int) error {
		return s.store.SetState(amps, mapped)
	})
}

// Collapse forces ids onto values and renormalizes.
func (s *Simulator) Collapse(ids []int, values []bool) error {
	return s.query("collapse", ids, func(mapped []int) error {
		return measure.Collapse(s.store, mapped, values, s.cfg.CollapseTolerance)
	})
}

// ExpectationValue returns the real part of <psi|op|psi> for op acting on ids.
// An imaginary residue above the configured tolerance is logged.
func (s *Simulator) ExpectationValue(op operator.Operator, ids []int) (float64, error) {
	var v complex128
	err := s.query("expectation", ids, func(mapped []int) error {
		var err error
		v, err = operator.ExpectationValue(s.store, op, mapped)
		return err
	})
	if err != nil {
		return 0, err
	}
	if math.Abs(imag(v)) > s.cfg.ImaginaryTolerance {
		s.logger.Warn().
			Float64("real", real(v)).
			Float64("imag", imag(v)).
			Msg("expectation value has an imaginary part; operator is probably not hermitian")
	}
	return real(v), nil
}

// ApplyOperator applies op to ids without renormalizing.
func (s *Simulator) ApplyOperator(op operator.Operator, ids []int) error {
	return s.query("apply_operator", ids, func(mapped []int) error {
		return operator.Apply(s.store, op, mapped)
	})
}

// ClassicalValue returns the value of a qubit that is in a basis state.
func (s *Simulator) ClassicalValue(id int) (bool, error) {
	var v bool
	err := s.query("classical_value", []int{id}, func(mapped []int) error {
		var err error
		v, err = s.store.ClassicalValue(mapped[0], s.cfg.ClassicalTolerance)
		return err
	})
	return v, err
}

// DebugSnapshot returns a deep copy of the id map and the amplitude vector.
// Ids are the mapped ones; no translation is applied.
func (s *Simulator) DebugSnapshot() (state.Snapshot, error) {
	if err := s.flush(context.Background()); err != nil {
		return state.Snapshot{}, err
	}
	return s.store.Snapshot(), nil
}

func (s *Simulator) query(kind string, ids []int, fn func(mapped []int) error) error {
	err := s.track(kind, func() error {
		if err := s.flush(context.Background()); err != nil {
			return err
		}
		mapped, err := ops.Translate(s.mapper, kind, ids)
		if err != nil {
			return err
		}
		return fn(mapped)
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("query", kind).Ints("ids", ids).Msg("query failed")
	}
	return err
}

// ParseBits converts a string of '0' and '1' into a bit slice, index i of the
// string becoming element i.
func ParseBits(s string) ([]bool, error) {
	bits := make([]bool, len(s))
	for i, c := range s {
		switch c {
		case '0':
		case '1':
			bits[i] = true
		default:
			return nil, qerrors.NewInvalidArgumentError("parse_bits", fmt.Sprintf("invalid character %q at %d", c, i))
		}
	}
	return bits, nil
}
