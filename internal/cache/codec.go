package cache

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"tiercache/internal/blob"
)

// state is the persisted form of a memory-tier cache: the capacity (entry
// count, or byte budget for the sized variant), the resident entries from
// least- to most-recently used, and the counters.
//
// The counters are int64 here, not uint64, so that a document carrying a
// negative count is caught by validation instead of failing opaquely in the
// decoder.
type state struct {
	Capacity int64        `yaml:"capacity"`
	Entries  []stateEntry `yaml:"entries,omitempty"`
	Metrics  stateMetrics `yaml:"metrics"`
}

type stateEntry struct {
	Key   string     `yaml:"key"`
	Value blob.Bytes `yaml:"value"`
}

type stateMetrics struct {
	Hits      int64 `yaml:"hits"`
	Misses    int64 `yaml:"misses"`
	Evictions int64 `yaml:"evictions"`
}

// Save writes the cache's state to path.
//
// The snapshot is taken under the cache lock; encoding and file I/O happen
// after the lock is released, so concurrent readers are not blocked on disk
// latency. The file is published atomically (unique temp file, then
// rename), so a reader of path never observes a truncated document.
func (c *Cache) Save(path string) error {
	c.mu.Lock()
	st := state{
		Capacity: int64(c.capacity),
		Metrics:  metricsState(c.metrics),
	}
	c.store.forEachLRU(func(e *entry) {
		st.Entries = append(st.Entries, stateEntry{Key: e.key, Value: cloneBytes(e.value)})
	})
	c.mu.Unlock()

	return writeState(path, &st)
}

// Save writes the sized cache's state to path. The capacity field carries
// the byte budget. Same atomicity guarantees as (*Cache).Save.
func (c *SizedCache) Save(path string) error {
	c.mu.Lock()
	st := state{
		Capacity: c.maxBytes,
		Metrics:  metricsState(c.metrics),
	}
	c.store.forEachLRU(func(e *entry) {
		st.Entries = append(st.Entries, stateEntry{Key: e.key, Value: cloneBytes(e.value)})
	})
	c.mu.Unlock()

	return writeState(path, &st)
}

// Load reconstructs a count-bounded cache from a state document written by
// (*Cache).Save.
//
// Entries default to empty and metrics to zero when absent. The declared
// capacity must be positive, the entry count must not exceed it, no key may
// appear twice, and no counter may be negative; any violation yields a
// *CorruptStateError and no cache.
func Load(path string) (*Cache, error) {
	st, err := readState(path)
	if err != nil {
		return nil, err
	}
	if int64(len(st.Entries)) > st.Capacity {
		return nil, &CorruptStateError{
			Reason: fmt.Sprintf("%d entries exceed capacity %d", len(st.Entries), st.Capacity),
		}
	}

	c, err := New(Config{Capacity: int(st.Capacity)})
	if err != nil {
		return nil, err
	}
	if err := restoreEntries(c.store, st.Entries); err != nil {
		return nil, err
	}
	c.metrics = restoredRecorder(st.Metrics)
	return c, nil
}

// LoadSized reconstructs a size-bounded cache from a state document written
// by (*SizedCache).Save.
//
// sizeOf must match the sizer the saved cache used (nil for the default);
// the running total is recomputed with it, and the summed entry sizes must
// not exceed the stored budget.
func LoadSized(path string, sizeOf SizerFunc) (*SizedCache, error) {
	st, err := readState(path)
	if err != nil {
		return nil, err
	}

	c, err := NewSized(SizedConfig{MaxBytes: st.Capacity, SizeOf: sizeOf})
	if err != nil {
		return nil, err
	}

	var total int64
	for _, e := range st.Entries {
		total += c.sizeOf(e.Key, e.Value)
	}
	if total > st.Capacity {
		return nil, &CorruptStateError{
			Reason: fmt.Sprintf("entries total %d bytes, over budget %d", total, st.Capacity),
		}
	}

	if err := restoreEntries(c.store, st.Entries); err != nil {
		return nil, err
	}
	c.curBytes = total
	c.metrics = restoredRecorder(st.Metrics)
	return c, nil
}

// restoreEntries re-inserts entries listed LRU-first. Pushing each at the
// MRU position reproduces the saved recency order exactly.
func restoreEntries(store *recencyStore, entries []stateEntry) error {
	for _, e := range entries {
		if _, ok := store.lookup(e.Key); ok {
			return &CorruptStateError{Reason: "duplicate key " + e.Key}
		}
		store.insert(e.Key, cloneBytes(e.Value))
	}
	return nil
}

func metricsState(r recorder) stateMetrics {
	return stateMetrics{
		Hits:      int64(r.hits),
		Misses:    int64(r.misses),
		Evictions: int64(r.evictions),
	}
}

func restoredRecorder(m stateMetrics) recorder {
	return recorder{
		hits:      uint64(m.Hits),
		misses:    uint64(m.Misses),
		evictions: uint64(m.Evictions),
	}
}

func writeState(path string, st *state) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode cache state: %w", err)
	}

	// Unique temp name so concurrent saves to the same path cannot step on
	// each other's half-written file.
	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write cache state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish cache state: %w", err)
	}
	return nil
}

// readState reads and validates the fields common to both variants.
func readState(path string) (*state, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cache state: %w", err)
	}

	var st state
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, &CorruptStateError{Reason: "unparseable state document", Err: err}
	}
	if st.Capacity <= 0 {
		return nil, &CorruptStateError{Reason: "missing or non-positive capacity"}
	}
	if st.Metrics.Hits < 0 || st.Metrics.Misses < 0 || st.Metrics.Evictions < 0 {
		return nil, &CorruptStateError{Reason: "negative metric counter"}
	}
	return &st, nil
}
