package ops

import (
	"context"
	"sync"

	qerrors "github.com/23skdu/qsim/internal/errors"
)

// Mapper translates logical qubit ids into the ids the backend stores.
type Mapper interface {
	CurrentMapping() map[int]int
}

// ResultSink receives measurement outcomes keyed by qubit id.
type ResultSink interface {
	SetMeasurementResult(id int, value bool)
}

// Backend consumes the operation stream.
type Backend interface {
	Receive(ctx context.Context, batch []Op) error
	IsAvailable(op Op) bool
}

// StaticMapper is a fixed logical -> mapped table.
type StaticMapper map[int]int

// CurrentMapping implements Mapper.
func (m StaticMapper) CurrentMapping() map[int]int { return m }

// Translate maps every id through m. A nil mapper is the identity.
func Translate(m Mapper, operation string, ids []int) ([]int, error) {
	if m == nil {
		return ids, nil
	}
	table := m.CurrentMapping()
	out := make([]int, len(ids))
	for i, id := range ids {
		mapped, ok := table[id]
		if !ok {
			return nil, qerrors.NewUnknownQubitError(operation, id).WithContext("mapping", "logical")
		}
		out[i] = mapped
	}
	return out, nil
}

// Registry is a ResultSink that keeps the latest outcome per id.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	results map[int]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{results: make(map[int]bool)}
}

// SetMeasurementResult implements ResultSink.
func (r *Registry) SetMeasurementResult(id int, value bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[id] = value
}

// Result returns the last outcome recorded for id.
func (r *Registry) Result(id int) (bool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.results[id]
	return v, ok
}

// Len returns the number of ids with a recorded outcome.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.results)
}
