package pool

import (
	"sync"

	"github.com/23skdu/qsim/internal/metrics"
	"github.com/RoaringBitmap/roaring/v2"
)

// BitmapPool recycles the roaring bitmaps that hold classical register bits.
type BitmapPool struct {
	pool sync.Pool
}

var globalBitmapPool = NewBitmapPool()

// NewBitmapPool creates an empty pool.
func NewBitmapPool() *BitmapPool {
	return &BitmapPool{}
}

// GetBitmap takes an empty bitmap from the process-wide pool.
func GetBitmap() *roaring.Bitmap {
	return globalBitmapPool.Get()
}

// PutBitmap returns bm to the process-wide pool.
func PutBitmap(bm *roaring.Bitmap) {
	globalBitmapPool.Put(bm)
}

// CloneBitmap returns a pooled copy of src.
func CloneBitmap(src *roaring.Bitmap) *roaring.Bitmap {
	dst := GetBitmap()
	dst.Or(src)
	return dst
}

// Get returns an empty bitmap.
func (p *BitmapPool) Get() *roaring.Bitmap {
	if v := p.pool.Get(); v != nil {
		metrics.BitmapPoolOperations.WithLabelValues("hit").Inc()
		return v.(*roaring.Bitmap)
	}
	metrics.BitmapPoolOperations.WithLabelValues("miss").Inc()
	return roaring.New()
}

// Put clears bm and keeps it for reuse. nil is ignored.
func (p *BitmapPool) Put(bm *roaring.Bitmap) {
	if bm == nil {
		return
	}
	metrics.BitmapPoolOperations.WithLabelValues("put").Inc()
	bm.Clear()
	p.pool.Put(bm)
}
