package cache

import "sync"

// Config controls construction of the count-bounded cache.
type Config struct {
	// Capacity is the maximum number of resident entries. Must be positive.
	Capacity int
}

// BoundedCache is the capability shared by both eviction variants. The
// tiered coordinator and the demo driver program against it; concrete
// construction stays with the variant types.
type BoundedCache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte)
	Remove(key string) bool
	Clear()
	Len() int
	Stats() Stats
}

// Cache is a concurrency-safe in-memory key–value cache bounded by entry
// count, with LRU eviction.
//
// Locking is deliberately coarse: one mutex guards the index, the recency
// order, and the counters for the full duration of every operation. No
// observer ever sees a partially-evicted state, and Stats is never a torn
// read across counters. Get mutates recency, so there is no read-only fast
// path worth a reader/writer split.
type Cache struct {
	mu       sync.Mutex
	capacity int
	store    *recencyStore
	metrics  recorder
}

// New constructs a count-bounded cache. The capacity is fixed for the life
// of the instance. Returns ErrInvalidCapacity when cfg.Capacity <= 0.
func New(cfg Config) (*Cache, error) {
	if cfg.Capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Cache{
		capacity: cfg.Capacity,
		store:    newRecencyStore(),
	}, nil
}

// Capacity returns the fixed maximum entry count.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Get returns the value for key, if resident.
//
// A hit marks the key most recently used and returns a copy the caller
// owns; mutating it has no effect on the cached value. A miss increments
// the miss counter and nothing else — resident state and recency order are
// untouched.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store.touch(key)
	if !ok {
		c.metrics.misses++
		return nil, false
	}
	c.metrics.hits++
	return cloneBytes(e.value), true
}

// Peek returns the value for key without refreshing recency or moving any
// counter. Useful for inspection paths that must not perturb eviction.
func (c *Cache) Peek(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store.lookup(key)
	if !ok {
		return nil, false
	}
	return cloneBytes(e.value), true
}

// Put inserts or updates a key.
//
// Updating replaces the value and refreshes recency; the resident count is
// unchanged, so the update path never evicts. Inserting a new key evicts
// from the LRU end until a slot is free before the insert happens, so the
// resident count never exceeds capacity even transiently. Each eviction
// increments the eviction counter.
func (c *Cache) Put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.store.touch(key); ok {
		e.value = cloneBytes(value)
		return
	}

	for c.store.len() >= c.capacity {
		if c.store.evictOldest() == nil {
			break
		}
		c.metrics.evictions++
	}
	c.store.insert(key, cloneBytes(value))
}

// Remove deletes key if resident and reports whether it was. Removal is
// not an eviction; the eviction counter is untouched.
func (c *Cache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.store.remove(key)
	return ok
}

// Clear drops every resident entry. Counters are preserved: they describe
// the cache's request history, not its contents.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.clear()
}

// Len returns the number of resident entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.len()
}

// Keys returns resident keys in MRU -> LRU order.
//
// This is a debug/teaching helper used by the demo and the tests.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.keys()
}

// Stats returns a consistent snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics.snapshot()
}

var _ BoundedCache = (*Cache)(nil)

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
