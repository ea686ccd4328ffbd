package cache

import "sync"

// SizerFunc reports the approximate resident cost of an entry in bytes.
// Implementations should be cheap; the cache calls it on every Put and on
// every eviction of the entry.
type SizerFunc func(key string, value []byte) int64

// entryOverhead approximates per-entry bookkeeping: map bucket, list node,
// slice headers. The sizing is a heuristic, not an exact accounting.
const entryOverhead = 100

func defaultSizeOf(key string, value []byte) int64 {
	return int64(len(key)) + int64(len(value)) + entryOverhead
}

// SizedConfig controls construction of the size-bounded cache.
type SizedConfig struct {
	// MaxBytes is the byte budget across all resident entries. Must be
	// positive.
	MaxBytes int64

	// SizeOf overrides the default sizing heuristic, for callers whose
	// values carry domain-specific weight. Leave nil for the default.
	SizeOf SizerFunc
}

// SizedCache is a concurrency-safe in-memory key–value cache bounded by an
// approximate byte budget instead of an entry count. It shares the recency
// mechanics of Cache by composition and follows the same coarse locking
// discipline.
type SizedCache struct {
	mu       sync.Mutex
	maxBytes int64
	curBytes int64
	sizeOf   SizerFunc
	store    *recencyStore
	metrics  recorder
}

// NewSized constructs a size-bounded cache. The budget is fixed for the
// life of the instance. Returns ErrInvalidCapacity when cfg.MaxBytes <= 0.
func NewSized(cfg SizedConfig) (*SizedCache, error) {
	if cfg.MaxBytes <= 0 {
		return nil, ErrInvalidCapacity
	}
	sizeOf := cfg.SizeOf
	if sizeOf == nil {
		sizeOf = defaultSizeOf
	}
	return &SizedCache{
		maxBytes: cfg.MaxBytes,
		sizeOf:   sizeOf,
		store:    newRecencyStore(),
	}, nil
}

// MaxBytes returns the fixed byte budget.
func (c *SizedCache) MaxBytes() int64 {
	return c.maxBytes
}

// Get behaves exactly as (*Cache).Get: hit refreshes recency and returns a
// caller-owned copy, miss increments the miss counter only.
func (c *SizedCache) Get(key string) ([]byte, bool) {
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
// counter.
func (c *SizedCache) Peek(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store.lookup(key)
	if !ok {
		return nil, false
	}
	return cloneBytes(e.value), true
}

// Put inserts or updates a key, evicting from the LRU end as needed to stay
// within the byte budget.
//
// An item whose own size exceeds the whole budget is rejected outright: no
// insertion, no eviction, no error. It could never fit, and emptying the
// cache for it would only trade one miss for many.
func (c *SizedCache) Put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	itemSize := c.sizeOf(key, value)
	if itemSize > c.maxBytes {
		return
	}

	if e, ok := c.store.touch(key); ok {
		// Recompute the charge for the old value rather than remembering
		// it; a sizer over mutable data may disagree with what was charged
		// at insert time. The clamp below absorbs any drift.
		oldSize := c.sizeOf(e.key, e.value)
		e.value = cloneBytes(value)
		c.curBytes += itemSize - oldSize
		if c.curBytes < 0 {
			c.curBytes = 0
		}
		for c.curBytes > c.maxBytes && c.store.len() > 0 {
			c.evictOldestLocked()
		}
		return
	}

	for c.maxBytes-c.curBytes < itemSize && c.store.len() > 0 {
		c.evictOldestLocked()
	}
	c.store.insert(key, cloneBytes(value))
	c.curBytes += itemSize
}

func (c *SizedCache) evictOldestLocked() {
	e := c.store.evictOldest()
	if e == nil {
		return
	}
	c.curBytes -= c.sizeOf(e.key, e.value)
	if c.curBytes < 0 {
		// Sizer drift between insert and evict time must never push the
		// running total negative.
		c.curBytes = 0
	}
	c.metrics.evictions++
}

// Remove deletes key if resident, releases its byte charge, and reports
// whether it was resident. Not counted as an eviction.
func (c *SizedCache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store.remove(key)
	if !ok {
		return false
	}
	c.curBytes -= c.sizeOf(e.key, e.value)
	if c.curBytes < 0 {
		c.curBytes = 0
	}
	return true
}

// Clear drops every resident entry and resets the running size. Counters
// are preserved, as for (*Cache).Clear.
func (c *SizedCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.clear()
	c.curBytes = 0
}

// Len returns the number of resident entries.
func (c *SizedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.len()
}

// Keys returns resident keys in MRU -> LRU order.
func (c *SizedCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.keys()
}

// Stats returns a consistent snapshot of the base counters.
func (c *SizedCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics.snapshot()
}

// SizedStats extends Stats with the byte accounting of this variant.
func (c *SizedCache) SizedStats() SizedStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return SizedStats{
		Stats:            c.metrics.snapshot(),
		CurrentSizeBytes: c.curBytes,
		MaxSizeBytes:     c.maxBytes,
		SizeUtilization:  float64(c.curBytes) / float64(c.maxBytes),
	}
}

var _ BoundedCache = (*SizedCache)(nil)
