package state

import (
	"fmt"
	"math"
	"slices"

	qerrors "github.com/23skdu/qsim/internal/errors"
	"github.com/23skdu/qsim/internal/pool"
)

// DefaultMaxQubits is used when a Store is built without an explicit limit.
const DefaultMaxQubits = 30

// Store owns the amplitude vector and the external id -> bit position map.
// Positions always form the contiguous range 0..n-1 and len(amps) == 1<<n.
//
// A Store is not safe for concurrent use.
type Store struct {
	amps      []complex128
	pos       map[int]int
	pool      *pool.AmplitudePool
	maxQubits int
}

// Option configures a Store.
type Option func(*Store)

// WithPool sets the buffer pool used when the vector is resized.
func WithPool(p *pool.AmplitudePool) Option {
	return func(s *Store) {
		if p != nil {
			s.pool = p
		}
	}
}

// WithMaxQubits bounds the number of simultaneously allocated qubits.
func WithMaxQubits(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxQubits = n
		}
	}
}

// New returns an empty store: no qubits, vector [1].
func New(opts ...Option) *Store {
	s := &Store{
		pool:      pool.Default(),
		maxQubits: DefaultMaxQubits,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

// NumQubits returns the number of allocated qubits.
func (s *Store) NumQubits() int { return len(s.pos) }

// Len returns the amplitude vector length, 1 << NumQubits().
func (s *Store) Len() int { return len(s.amps) }

// Pool returns the buffer pool backing this store.
func (s *Store) Pool() *pool.AmplitudePool { return s.pool }

// Amplitudes returns the live vector. Callers may mutate it in place for the
// duration of one operation and must not retain it.
func (s *Store) Amplitudes() []complex128 { return s.amps }

// Replace installs next as the live vector and recycles the previous one.
// next must have the current length; ownership moves to the store.
func (s *Store) Replace(next []complex128) error {
	if len(next) != len(s.amps) {
		return qerrors.NewInvalidArgumentError("replace", "vector length does not match the register")
	}
	old := s.amps
	s.amps = next
	s.pool.Put(old)
	return nil
}

// Contains reports whether id is allocated.
func (s *Store) Contains(id int) bool {
	_, ok := s.pos[id]
	return ok
}

// Position returns the bit position of id.
func (s *Store) Position(id int) (int, error) {
	p, ok := s.pos[id]
	if !ok {
		return 0, qerrors.NewUnknownQubitError("position", id)
	}
	return p, nil
}

// Positions resolves ids to bit positions, preserving order.
func (s *Store) Positions(ids []int) ([]int, error) {
	out := make([]int, len(ids))
	for i, id := range ids {
		p, ok := s.pos[id]
		if !ok {
			return nil, qerrors.NewUnknownQubitError("position", id)
		}
		out[i] = p
	}
	return out, nil
}

// DistinctPositions is Positions for callers that need each id at most once.
func (s *Store) DistinctPositions(op string, ids []int) ([]int, error) {
	out, err := s.Positions(ids)
	if err != nil {
		return nil, err
	}
	seen := 0
	for i, p := range out {
		if seen&(1<<p) != 0 {
			return nil, qerrors.NewInvalidArgumentError(op, fmt.Sprintf("qubit %d listed twice", ids[i]))
		}
		seen |= 1 << p
	}
	return out, nil
}

// ControlMask returns a mask with the bit of every control id set.
func (s *Store) ControlMask(ids []int) (int, error) {
	mask := 0
	for _, id := range ids {
		p, ok := s.pos[id]
		if !ok {
			return 0, qerrors.NewUnknownQubitError("control_mask", id)
		}
		mask |= 1 << p
	}
	return mask, nil
}

// IDs returns the allocated ids in ascending order.
func (s *Store) IDs() []int {
	ids := make([]int, 0, len(s.pos))
	for id := range s.pos {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Norm returns the sum of squared amplitude magnitudes.
func (s *Store) Norm() float64 {
	var n float64
	for _, a := range s.amps {
		n += Abs2(a)
	}
	return n
}

// Allocate maps id to the next bit position and tensors the state with |0>.
func (s *Store) Allocate(id int) error {
	if _, ok := s.pos[id]; ok {
		return qerrors.NewDuplicateQubitError("allocate", id)
	}
	if len(s.pos) >= s.maxQubits {
		return qerrors.NewQubitLimitError("allocate", s.maxQubits)
	}

	n := len(s.amps)
	next := s.pool.Get(2 * n)
	copy(next[:n], s.amps)

	s.pool.Put(s.amps)
	s.amps = next
	s.pos[id] = len(s.pos)
	return nil
}

// ClassicalValue returns the value of a qubit that is in a computational basis
// state. It fails with a superposition error when both halves of the vector
// for that qubit hold an amplitude with magnitude above tolerance.
func (s *Store) ClassicalValue(id int, tolerance float64) (bool, error) {
	p, ok := s.pos[id]
	if !ok {
		return false, qerrors.NewUnknownQubitError("classical_value", id)
	}

	half := 1 << p
	up, down := false, false
	for i := 0; i < len(s.amps); i += 2 * half {
		for j := 0; j < half; j++ {
			if cmplxAbs(s.amps[i+j]) > tolerance {
				up = true
			}
			if cmplxAbs(s.amps[i+j+half]) > tolerance {
				down = true
			}
			if up && down {
				return false, qerrors.NewSuperpositionError("classical_value", id)
			}
		}
	}
	return down, nil
}

// Deallocate removes a qubit that is in a classical state. Positions above the
// removed one shift down by one. Nothing changes on failure.
func (s *Store) Deallocate(id int, tolerance float64) error {
	p, ok := s.pos[id]
	if !ok {
		return qerrors.NewUnknownQubitError("deallocate", id)
	}
	value, err := s.ClassicalValue(id, tolerance)
	if err != nil {
		return err
	}

	half := 1 << p
	start := 0
	if value {
		start = half
	}
	next := s.pool.Get(len(s.amps) / 2)
	k := 0
	for i := start; i < len(s.amps); i += 2 * half {
		copy(next[k:k+half], s.amps[i:i+half])
		k += half
	}

	delete(s.pos, id)
	for other, q := range s.pos {
		if q > p {
			s.pos[other] = q - 1
		}
	}
	s.pool.Put(s.amps)
	s.amps = next
	return nil
}

// Reset drops every qubit and returns to the vector [1].
func (s *Store) Reset() {
	if s.amps != nil {
		s.pool.Put(s.amps)
	}
	s.amps = s.pool.Get(1)
	s.amps[0] = 1
	s.pos = make(map[int]int)
}

// Snapshot is a deep copy of the id map and amplitude vector.
type Snapshot struct {
	Positions  map[int]int
	Amplitudes []complex128
}

// NumQubits returns the number of qubits captured in the snapshot.
func (s Snapshot) NumQubits() int { return len(s.Positions) }

// Snapshot copies the current map and vector.
func (s *Store) Snapshot() Snapshot {
	positions := make(map[int]int, len(s.pos))
	for id, p := range s.pos {
		positions[id] = p
	}
	return Snapshot{
		Positions:  positions,
		Amplitudes: slices.Clone(s.amps),
	}
}

// SetState replaces the vector. ordering must be a permutation of the live ids;
// ordering[i] becomes bit position i.
func (s *Store) SetState(amps []complex128, ordering []int) error {
	if err := s.checkPermutation("set_state", ordering); err != nil {
		return err
	}
	if len(amps) != 1<<len(ordering) {
		return qerrors.NewIncompleteRegisterError("set_state", len(amps), 1<<len(ordering)).
			WithContext("reason", "amplitude count must be 2^len(ordering)")
	}

	next := s.pool.Get(len(amps))
	copy(next, amps)
	for i, id := range ordering {
		s.pos[id] = i
	}
	s.pool.Put(s.amps)
	s.amps = next
	return nil
}

// Amplitude returns the amplitude of the basis state bits[i] on ordering[i].
// ordering must contain exactly the allocated ids.
func (s *Store) Amplitude(bits []bool, ordering []int) (complex128, error) {
	if len(bits) != len(ordering) {
		return 0, qerrors.NewInvalidArgumentError("amplitude", "bit string and ordering lengths differ")
	}
	if err := s.checkPermutation("amplitude", ordering); err != nil {
		return 0, err
	}
	index := 0
	for i, id := range ordering {
		if bits[i] {
			index |= 1 << s.pos[id]
		}
	}
	return s.amps[index], nil
}

// Probability sums |amplitude|^2 over the basis states consistent with the
// partial assignment bits[i] on ids[i].
func (s *Store) Probability(bits []bool, ids []int) (float64, error) {
	if len(bits) != len(ids) {
		return 0, qerrors.NewInvalidArgumentError("probability", "bit string and id list lengths differ")
	}
	positions, err := s.DistinctPositions("probability", ids)
	if err != nil {
		return 0, err
	}
	mask, value := 0, 0
	for i, p := range positions {
		mask |= 1 << p
		if bits[i] {
			value |= 1 << p
		}
	}

	var prob float64
	for i, a := range s.amps {
		if i&mask == value {
			prob += Abs2(a)
		}
	}
	return prob, nil
}

func (s *Store) checkPermutation(op string, ordering []int) error {
	if len(ordering) != len(s.pos) {
		return qerrors.NewIncompleteRegisterError(op, len(ordering), len(s.pos))
	}
	seen := make(map[int]struct{}, len(ordering))
	for _, id := range ordering {
		if _, ok := s.pos[id]; !ok {
			return qerrors.NewIncompleteRegisterError(op, len(ordering), len(s.pos)).WithContext("qubit", id)
		}
		if _, dup := seen[id]; dup {
			return qerrors.NewIncompleteRegisterError(op, len(ordering), len(s.pos)).WithContext("duplicate", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Abs2 returns |a|^2.
func Abs2(a complex128) float64 {
	return real(a)*real(a) + imag(a)*imag(a)
}

func cmplxAbs(a complex128) float64 {
	return math.Hypot(real(a), imag(a))
}
