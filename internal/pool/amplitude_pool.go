package pool

import (
	"math/bits"
	"sync"

	"github.com/23skdu/qsim/internal/metrics"
)

// maxClass is the largest pooled size class (2^maxClass amplitudes).
const maxClass = 40

// AmplitudePool recycles power-of-two []complex128 buffers by size class so that
// repeated allocate/deallocate cycles do not churn the allocator.
type AmplitudePool struct {
	classes [maxClass + 1]sync.Pool
}

var globalAmplitudePool = NewAmplitudePool()

// NewAmplitudePool creates an empty pool.
func NewAmplitudePool() *AmplitudePool {
	return &AmplitudePool{}
}

// Default returns the process-wide amplitude pool.
func Default() *AmplitudePool {
	return globalAmplitudePool
}

// Get returns a zeroed buffer of exactly n amplitudes.
// Lengths that are not a power of two bypass the pool.
func (p *AmplitudePool) Get(n int) []complex128 {
	class, ok := sizeClass(n)
	if !ok {
		metrics.AmplitudePoolOperations.WithLabelValues("miss").Inc()
		return make([]complex128, n)
	}
	if v := p.classes[class].Get(); v != nil {
		metrics.AmplitudePoolOperations.WithLabelValues("hit").Inc()
		buf := *(v.(*[]complex128))
		buf = buf[:n]
		clear(buf)
		return buf
	}
	metrics.AmplitudePoolOperations.WithLabelValues("miss").Inc()
	return make([]complex128, n)
}

// Put hands buf back to the pool. The caller must not use buf afterwards.
func (p *AmplitudePool) Put(buf []complex128) {
	class, ok := sizeClass(cap(buf))
	if !ok {
		return
	}
	metrics.AmplitudePoolOperations.WithLabelValues("put").Inc()
	buf = buf[:cap(buf)]
	p.classes[class].Put(&buf)
}

// Clone returns a pooled copy of src.
func (p *AmplitudePool) Clone(src []complex128) []complex128 {
	dst := p.Get(len(src))
	copy(dst, src)
	return dst
}

func sizeClass(n int) (int, bool) {
	if n <= 0 || n&(n-1) != 0 {
		return 0, false
	}
	class := bits.TrailingZeros(uint(n))
	if class > maxClass {
		return 0, false
	}
	return class, true
}
