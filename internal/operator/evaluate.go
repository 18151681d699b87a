package operator

import (
	"math"
	"math/cmplx"

	"github.com/23skdu/qsim/internal/kernel"
	"github.com/23skdu/qsim/internal/pool"
	"github.com/23skdu/qsim/internal/state"
)

// taylorCutoff stops a Taylor step once the norm of the last update falls
// below it.
const taylorCutoff = 1e-12

// ExpectationValue returns sum_t c_t <psi|P_t|psi> for the operator acting on
// ids. The state is not modified.
func ExpectationValue(st *state.Store, op Operator, ids []int) (complex128, error) {
	positions, err := resolve(st, op, ids)
	if err != nil {
		return 0, err
	}

	orig := st.Amplitudes()
	bufs := st.Pool()
	var total complex128
	for _, t := range op {
		tmp := bufs.Clone(orig)
		if err := applyTerm(tmp, t, positions); err != nil {
			bufs.Put(tmp)
			return 0, err
		}
		total += t.Coeff * dot(orig, tmp)
		bufs.Put(tmp)
	}
	return total, nil
}

// Apply replaces the state with sum_t c_t P_t|psi>. The result is not
// renormalized.
func Apply(st *state.Store, op Operator, ids []int) error {
	positions, err := resolve(st, op, ids)
	if err != nil {
		return err
	}

	orig := st.Amplitudes()
	bufs := st.Pool()
	next := bufs.Get(len(orig))
	for _, t := range op {
		tmp := bufs.Clone(orig)
		if err := applyTerm(tmp, t, positions); err != nil {
			bufs.Put(tmp)
			bufs.Put(next)
			return err
		}
		for i, a := range tmp {
			next[i] += t.Coeff * a
		}
		bufs.Put(tmp)
	}
	return st.Replace(next)
}

// TimeEvolution applies exp(-i t H) on the subspace where every control is 1.
// The terms need not commute: the evolution is split into
// s = floor(|t| * sum|c| + 1) steps, each a Taylor series truncated once the
// update norm drops below 1e-12. Identity terms contribute the global phase
// exp(-i t tr / s) per step.
func TimeEvolution(st *state.Store, op Operator, t float64, ids, controls []int) error {
	positions, err := resolve(st, op, ids)
	if err != nil {
		return err
	}
	mask, err := st.ControlMask(controls)
	if err != nil {
		return err
	}

	var trace complex128
	var weight float64
	terms := make(Operator, 0, len(op))
	for _, term := range op {
		if term.IsIdentity() {
			trace += term.Coeff
			continue
		}
		terms = append(terms, term)
		weight += cmplx.Abs(term.Coeff)
	}

	steps := int(math.Floor(math.Abs(t)*weight + 1))
	correction := cmplx.Exp(complex(0, -t) * trace / complex(float64(steps), 0))

	bufs := st.Pool()
	out := bufs.Clone(st.Amplitudes())
	cur := bufs.Clone(out)
	defer func() { bufs.Put(cur) }()

	for range steps {
		for j := 0; ; j++ {
			coeff := complex(0, -t) / complex(float64(steps*(j+1)), 0)
			update, err := hamiltonian(bufs, terms, cur, positions)
			if err != nil {
				bufs.Put(out)
				return err
			}
			var nrm float64
			for m := range update {
				update[m] *= coeff
				nrm += state.Abs2(update[m])
				if m&mask == mask {
					out[m] += update[m]
				}
			}
			bufs.Put(cur)
			cur = update
			if math.Sqrt(nrm) <= taylorCutoff {
				break
			}
		}
		for k := range out {
			if k&mask == mask {
				out[k] *= correction
			}
		}
		copy(cur, out)
	}
	return st.Replace(out)
}

// hamiltonian returns a pooled buffer holding sum_t c_t P_t v.
func hamiltonian(bufs *pool.AmplitudePool, terms Operator, v []complex128, positions []int) ([]complex128, error) {
	acc := bufs.Get(len(v))
	for _, t := range terms {
		tmp := bufs.Clone(v)
		if err := applyTerm(tmp, t, positions); err != nil {
			bufs.Put(tmp)
			bufs.Put(acc)
			return nil, err
		}
		for i, a := range tmp {
			acc[i] += t.Coeff * a
		}
		bufs.Put(tmp)
	}
	return acc, nil
}

func resolve(st *state.Store, op Operator, ids []int) ([]int, error) {
	if err := op.Validate(len(ids)); err != nil {
		return nil, err
	}
	return st.Positions(ids)
}

func applyTerm(amps []complex128, t Term, positions []int) error {
	for _, f := range t.Factors {
		if err := kernel.ApplyPauli(amps, f.Axis, positions[f.Index]); err != nil {
			return err
		}
	}
	return nil
}

// dot returns <a|b>, conjugating a.
func dot(a, b []complex128) complex128 {
	var sum complex128
	for i := range a {
		sum += cmplx.Conj(a[i]) * b[i]
	}
	return sum
}
