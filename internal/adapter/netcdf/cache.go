package netcdf

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/couchcryptid/wrf-geojson/internal/domain"
)

type gridLoader interface {
	LoadGrid(ctx context.Context, req domain.SliceRequest) (*domain.Grid, error)
}

// CachedSource wraps a grid loader with an in-memory LRU cache. Entries are
// keyed by the file's size and modification time as well as the slice, so a
// rewritten file is read again.
type CachedSource struct {
	inner gridLoader
	cache *lruCache[*domain.Grid]
}

// NewCachedSource creates a cache decorator holding at most maxEntries grids.
func NewCachedSource(inner gridLoader, maxEntries int) *CachedSource {
	return &CachedSource{
		inner: inner,
		cache: newLRUCache[*domain.Grid](maxEntries),
	}
}

// LoadGrid implements pipeline.GridSource. Grids are immutable once built,
// so cached values are shared between callers.
func (c *CachedSource) LoadGrid(ctx context.Context, req domain.SliceRequest) (*domain.Grid, error) {
	info, err := os.Stat(req.Path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", req.Path, err)
	}
	key := fmt.Sprintf("%s|%d|%d|%s|%d|%d",
		req.Path, info.Size(), info.ModTime().UnixNano(), req.Variable, req.ZLevel, req.TimeIndex)

	if g, ok := c.cache.get(key); ok {
		return g, nil
	}
	g, err := c.inner.LoadGrid(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, g)
	return g, nil
}

// Len reports the number of cached grids.
func (c *CachedSource) Len() int {
	return c.cache.size()
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	for len(c.entries) > c.maxEntries && c.tail != nil {
		delete(c.entries, c.tail.key)
		c.remove(c.tail)
	}
}

func (c *lruCache[V]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}
