package cache

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type raster struct{ name string }

func TestCache_InvalidateReleases(t *testing.T) {
	var released []string
	c, err := New[*raster](4, func(r *raster) { released = append(released, r.name) })
	require.NoError(t, err)

	c.Put(1, &raster{"one"})
	c.Put(2, &raster{"two"})
	assert.True(t, c.IsCached(1))

	c.Invalidate(1)
	assert.False(t, c.IsCached(1))
	assert.True(t, c.IsCached(2))
	assert.Equal(t, []string{"one"}, released)

	// invalidating a missing entry is a no-op
	c.Invalidate(9)
	assert.Equal(t, []string{"one"}, released)
}

func TestCache_PutReplacesAndEvicts(t *testing.T) {
	var released []string
	c, err := New[*raster](2, func(r *raster) { released = append(released, r.name) })
	require.NoError(t, err)

	c.Put(1, &raster{"a"})
	c.Put(1, &raster{"b"})
	assert.Equal(t, []string{"a"}, released)

	var got string
	require.True(t, c.With(1, func(r *raster) { got = r.name }))
	assert.Equal(t, "b", got)
	assert.False(t, c.With(9, func(*raster) { t.Fatal("called for a missing id") }))

	c.Put(2, &raster{"c"})
	c.Put(3, &raster{"d"})
	assert.Equal(t, 2, c.Len())
	assert.False(t, c.IsCached(1))
	assert.Equal(t, []string{"a", "b"}, released)

	c.Purge()
	assert.Equal(t, 0, c.Len())
	assert.Len(t, released, 4)
}

func TestNew_RejectsBadSize(t *testing.T) {
	_, err := New[int](0, nil)
	assert.Error(t, err)
}

type tracked struct{ released atomic.Bool }

func TestCache_WithNeverSeesReleasedValue(t *testing.T) {
	var releases atomic.Int64
	c, err := New[*tracked](2, func(v *tracked) {
		v.released.Store(true)
		releases.Add(1)
	})
	require.NoError(t, err)
	c.Put(1, &tracked{})

	const puts = 500
	var stale atomic.Int64
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < puts; i++ {
			c.Put(1, &tracked{})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < puts; i++ {
			if i%10 == 0 {
				c.Invalidate(1)
			}
			c.Put(int64(2+i%3), &tracked{})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 2*puts; i++ {
			c.With(1, func(v *tracked) {
				if v.released.Load() {
					stale.Add(1)
				}
			})
		}
	}()
	wg.Wait()

	assert.Zero(t, stale.Load())
	c.Purge()
	// every stored value was released exactly once
	assert.Equal(t, int64(1+2*puts), releases.Load())
}
