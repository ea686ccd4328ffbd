// Package tiered composes a fast bounded memory cache with a persistent
// disk store into one read-through, write-through hierarchy.
package tiered

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"tiercache/internal/cache"
)

// MemoryTier is the fast tier: a bounded in-memory cache. Both variants in
// package cache satisfy it.
type MemoryTier interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte)
	Remove(key string) bool
	Stats() cache.Stats
}

// DiskTier is the slow tier. Reads are expected to fail soft (absent on any
// error); Put reports failures so this coordinator can decide to swallow
// them.
type DiskTier interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Remove(key string) bool
	Clear()
	TotalSizeBytes() int64
}

// Stats aggregates both tiers.
type Stats struct {
	Memory        cache.Stats
	DiskSizeBytes int64

	// TotalRequests counts memory-tier lookups only. The disk tier is
	// consulted on every memory miss, so folding its checks in would
	// double count.
	TotalRequests uint64
}

// Cache coordinates the two tiers. Pure coordination: it holds no lock of
// its own and relies on each tier's internal consistency.
//
// The disk-read-then-promote step in Get runs under two different tiers'
// locks and is not atomic end to end; a racing Remove or eviction can
// interleave. Worst case is a redundant promotion or a momentarily stale
// negative result, never corruption.
type Cache struct {
	memory MemoryTier
	disk   DiskTier
	logger log.Logger
}

// New builds a tiered cache over the two collaborators. logger may be nil.
func New(memory MemoryTier, disk DiskTier, logger log.Logger) *Cache {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Cache{memory: memory, disk: disk, logger: logger}
}

// Get looks key up in the memory tier first, then the disk tier.
//
// A disk hit is promoted: the value is written back into the memory tier
// through its normal Put, subject to that tier's own eviction policy, so
// the next Get for the same key is a memory hit. Promotion is best effort
// and can never fail the lookup.
func (c *Cache) Get(key string) ([]byte, bool) {
	if v, ok := c.memory.Get(key); ok {
		return v, true
	}

	v, ok := c.disk.Get(key)
	if !ok {
		return nil, false
	}
	c.memory.Put(key, v)
	return v, true
}

// Put writes through both tiers.
//
// The memory write happens first and stays authoritative for the rest of
// the process lifetime even when the disk write fails; that failure is
// logged and swallowed. Consistency between tiers is deliberately weak.
func (c *Cache) Put(key string, value []byte) {
	c.memory.Put(key, value)
	if err := c.disk.Put(key, value); err != nil {
		level.Warn(c.logger).Log("msg", "disk write failed, memory entry kept", "key", key, "err", err)
	}
}

// Remove drops key from both tiers. The return value reports whether the
// disk entry existed; disk is the persistent layer a caller cares about
// after a removal.
func (c *Cache) Remove(key string) bool {
	c.memory.Remove(key)
	return c.disk.Remove(key)
}

// Clear empties the disk tier only. The memory tier keeps its residents
// and continues to evict by its own policy; callers that need both tiers
// emptied should clear the memory cache directly.
func (c *Cache) Clear() {
	c.disk.Clear()
}

// Stats returns the memory tier's counters, the disk tier's byte size, and
// the total request count.
func (c *Cache) Stats() Stats {
	m := c.memory.Stats()
	return Stats{
		Memory:        m,
		DiskSizeBytes: c.disk.TotalSizeBytes(),
		TotalRequests: m.Hits + m.Misses,
	}
}
