// LRU raster cache keyed by image id
package cache

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache holds the derived raster of each image. Evicted, replaced and
// invalidated entries are handed to the release func, if any. A value is
// only safe to use inside With: once With returns, a concurrent Put or
// Invalidate may release it.
type Cache[V any] struct {
	mu      sync.Mutex
	entries *lru.Cache[int64, V]
	release func(V)
}

// New creates a cache bounded to size entries
func New[V any](size int, release func(V)) (*Cache[V], error) {
	c := &Cache[V]{release: release}
	// runs under c.mu: every mutation of entries holds it
	entries, err := lru.NewWithEvict[int64, V](size, func(_ int64, v V) {
		if c.release != nil {
			c.release(v)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create raster cache: %w", err)
	}
	c.entries = entries
	return c, nil
}

// With calls fn with the raster cached for id while holding the cache
// lock, so the raster cannot be released during fn. It reports whether
// id was cached.
func (c *Cache[V]) With(id int64, fn func(V)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries.Get(id)
	if ok {
		fn(v)
	}
	return ok
}

// Put stores v for id, releasing any raster it replaces
func (c *Cache[V]) Put(id int64, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries.Peek(id); ok && c.release != nil {
		c.release(old)
	}
	c.entries.Add(id, v)
}

// Invalidate drops the cached raster of id
func (c *Cache[V]) Invalidate(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(id)
}

func (c *Cache[V]) IsCached(id int64) bool {
	return c.entries.Contains(id)
}

func (c *Cache[V]) Len() int { return c.entries.Len() }

// Purge releases every entry
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}
