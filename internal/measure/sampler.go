package measure

import (
	"fmt"
	"math"
	"math/rand/v2"

	qerrors "github.com/23skdu/qsim/internal/errors"
	"github.com/23skdu/qsim/internal/state"
)

// DefaultCollapseTolerance is the retained probability below which a forced
// collapse is rejected.
const DefaultCollapseTolerance = 1e-12

// Sampler draws measurement outcomes from a seeded PCG source.
// A Sampler is not safe for concurrent use.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a sampler whose sequence of draws is fixed by seed.
func NewSampler(seed uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Measure samples a basis index from the full distribution, returns the bits
// of ids in that index and collapses the state onto them.
func (s *Sampler) Measure(st *state.Store, ids []int) ([]bool, error) {
	positions, err := st.Positions(ids)
	if err != nil {
		return nil, err
	}

	amps := st.Amplitudes()
	picked := pick(amps, s.rng.Float64())

	bits := make([]bool, len(ids))
	mask, value := 0, 0
	for i, p := range positions {
		bit := 1 << p
		mask |= bit
		if picked&bit != 0 {
			bits[i] = true
			value |= bit
		}
	}

	kept := retained(amps, mask, value)
	if kept == 0 {
		// Only reachable when a non-unitary operator zeroed the state.
		return nil, qerrors.NewImpossibleCollapseError("measure", kept)
	}
	renormalize(amps, mask, value, kept)
	return bits, nil
}

// pick returns the first index whose running probability exceeds p. When
// rounding exhausts the walk it returns the last index with nonzero weight.
func pick(amps []complex128, p float64) int {
	var acc float64
	last := 0
	for i, a := range amps {
		w := state.Abs2(a)
		if w == 0 {
			continue
		}
		last = i
		acc += w
		if acc > p {
			return i
		}
	}
	return last
}

// Collapse forces ids onto values. The retained probability is checked before
// anything is written, so an impossible outcome leaves the state untouched.
func Collapse(st *state.Store, ids []int, values []bool, tolerance float64) error {
	if len(ids) != len(values) {
		return qerrors.NewInvalidArgumentError("collapse",
			fmt.Sprintf("%d ids but %d values", len(ids), len(values)))
	}
	positions, err := st.DistinctPositions("collapse", ids)
	if err != nil {
		return err
	}
	if tolerance <= 0 {
		tolerance = DefaultCollapseTolerance
	}

	mask, value := 0, 0
	for i, p := range positions {
		mask |= 1 << p
		if values[i] {
			value |= 1 << p
		}
	}

	amps := st.Amplitudes()
	kept := retained(amps, mask, value)
	if kept < tolerance {
		return qerrors.NewImpossibleCollapseError("collapse", kept)
	}
	renormalize(amps, mask, value, kept)
	return nil
}

func retained(amps []complex128, mask, value int) float64 {
	var sum float64
	for i, a := range amps {
		if i&mask == value {
			sum += state.Abs2(a)
		}
	}
	return sum
}

func renormalize(amps []complex128, mask, value int, kept float64) {
	scale := complex(1/math.Sqrt(kept), 0)
	for i := range amps {
		if i&mask == value {
			amps[i] *= scale
		} else {
			amps[i] = 0
		}
	}
}
