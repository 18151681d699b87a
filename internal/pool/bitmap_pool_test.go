package pool

import (
	"testing"

	"github.com/23skdu/qsim/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmapPoolReturnsEmptyBitmaps(t *testing.T) {
	p := NewBitmapPool()

	bm := p.Get()
	require.NotNil(t, bm)
	assert.True(t, bm.IsEmpty())

	bm.Add(3)
	bm.Add(40)
	p.Put(bm)

	again := p.Get()
	assert.True(t, again.IsEmpty(), "recycled bitmap must be cleared")

	p.Put(nil)
}

func TestCloneBitmapIsIndependent(t *testing.T) {
	src := GetBitmap()
	src.AddMany([]uint32{0, 2, 5})

	dst := CloneBitmap(src)
	assert.True(t, dst.Equals(src))

	dst.Remove(2)
	assert.True(t, src.Contains(2))
	assert.False(t, dst.Contains(2))

	PutBitmap(src)
	PutBitmap(dst)
}

func TestBitmapPoolCountsPuts(t *testing.T) {
	before := testutil.ToFloat64(metrics.BitmapPoolOperations.WithLabelValues("put"))
	p := NewBitmapPool()
	p.Put(p.Get())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.BitmapPoolOperations.WithLabelValues("put")))
}
