package tiered

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"tiercache/internal/cache"
	"tiercache/internal/disk"
)

// fakeDisk is an in-memory DiskTier that counts calls and can be made to
// fail writes, so swallow semantics are observable.
type fakeDisk struct {
	entries map[string][]byte
	gets    int
	puts    int
	failPut bool
}

func newFakeDisk() *fakeDisk {
	return &fakeDisk{entries: make(map[string][]byte)}
}

func (d *fakeDisk) Get(key string) ([]byte, bool) {
	d.gets++
	v, ok := d.entries[key]
	return v, ok
}

func (d *fakeDisk) Put(key string, value []byte) error {
	d.puts++
	if d.failPut {
		return errors.New("disk full")
	}
	d.entries[key] = value
	return nil
}

func (d *fakeDisk) Remove(key string) bool {
	_, ok := d.entries[key]
	delete(d.entries, key)
	return ok
}

func (d *fakeDisk) Clear() {
	d.entries = make(map[string][]byte)
}

func (d *fakeDisk) TotalSizeBytes() int64 {
	var total int64
	for _, v := range d.entries {
		total += int64(len(v))
	}
	return total
}

var _ DiskTier = (*fakeDisk)(nil)

func newMemory(t *testing.T, capacity int) *cache.Cache {
	t.Helper()
	c, err := cache.New(cache.Config{Capacity: capacity})
	require.NoError(t, err)
	return c
}

func TestGet_MemoryHitSkipsDisk(t *testing.T) {
	d := newFakeDisk()
	tc := New(newMemory(t, 2), d, nil)

	tc.Put("k", []byte("v"))

	v, ok := tc.Get("k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)
	require.Equal(t, 0, d.gets, "memory hit must not touch the disk tier")
}

func TestGet_DiskHitPromotes(t *testing.T) {
	d := newFakeDisk()
	d.entries["k"] = []byte("v")
	mem := newMemory(t, 2)
	tc := New(mem, d, nil)

	// Memory miss, disk hit.
	v, ok := tc.Get("k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)
	require.Equal(t, 1, d.gets)

	// Promotion landed: the next lookup is a memory hit, no disk access.
	v, ok = tc.Get("k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)
	require.Equal(t, 1, d.gets, "promoted key must be served from memory")
	require.Equal(t, 1, mem.Len())
}

func TestGet_MissInBothTiers(t *testing.T) {
	d := newFakeDisk()
	tc := New(newMemory(t, 2), d, nil)

	v, ok := tc.Get("nope")
	require.False(t, ok)
	require.Nil(t, v)
	require.Equal(t, 1, d.gets)
}

func TestPut_WritesThroughBothTiers(t *testing.T) {
	d := newFakeDisk()
	tc := New(newMemory(t, 2), d, nil)

	tc.Put("k", []byte("v"))

	require.Equal(t, []byte("v"), d.entries["k"])
	require.Equal(t, 1, d.puts)
}

func TestPut_SwallowsDiskFailure(t *testing.T) {
	d := newFakeDisk()
	d.failPut = true
	tc := New(newMemory(t, 2), d, nil)

	tc.Put("k", []byte("v"))

	// Memory entry remains valid and authoritative.
	v, ok := tc.Get("k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)
	require.Empty(t, d.entries)
}

func TestRemove_DropsBothTiersReportsDisk(t *testing.T) {
	d := newFakeDisk()
	mem := newMemory(t, 2)
	tc := New(mem, d, nil)

	tc.Put("k", []byte("v"))
	require.True(t, tc.Remove("k"))
	require.Equal(t, 0, mem.Len(), "removal must not leave a memory-only survivor")

	_, ok := tc.Get("k")
	require.False(t, ok)

	// Memory-only entry: disk had nothing, so Remove reports false even
	// though the memory entry was dropped.
	d.failPut = true
	tc.Put("m", []byte("v"))
	d.failPut = false
	require.False(t, tc.Remove("m"))
	require.Equal(t, 0, mem.Len())
}

func TestClear_DiskOnly(t *testing.T) {
	d := newFakeDisk()
	mem := newMemory(t, 2)
	tc := New(mem, d, nil)

	tc.Put("k", []byte("v"))
	tc.Clear()

	require.Empty(t, d.entries)
	require.Equal(t, 1, mem.Len(), "memory tier is left to its own eviction")

	v, ok := tc.Get("k")
	require.True(t, ok, "key still servable from memory after Clear")
	require.Equal(t, []byte("v"), v)
}

func TestStats_CountsMemoryRequestsOnly(t *testing.T) {
	d := newFakeDisk()
	d.entries["disk-only"] = []byte("v")
	tc := New(newMemory(t, 2), d, nil)

	tc.Put("k", []byte("v"))
	tc.Get("k")         // memory hit
	tc.Get("disk-only") // memory miss, disk hit, promoted
	tc.Get("absent")    // miss in both

	st := tc.Stats()
	require.Equal(t, uint64(1), st.Memory.Hits)
	require.Equal(t, uint64(2), st.Memory.Misses)
	require.Equal(t, uint64(3), st.TotalRequests, "disk checks must not double count")
	require.Equal(t, d.TotalSizeBytes(), st.DiskSizeBytes)
}

func TestTiered_OverSizedMemoryTier(t *testing.T) {
	// The memory tier's own policy governs promotion: a sized cache that
	// rejects the value still lets the tiered lookup succeed.
	mem, err := cache.NewSized(cache.SizedConfig{
		MaxBytes: 4,
		SizeOf:   func(_ string, v []byte) int64 { return int64(len(v)) },
	})
	require.NoError(t, err)

	d := newFakeDisk()
	d.entries["big"] = []byte("too large")
	tc := New(mem, d, nil)

	v, ok := tc.Get("big")
	require.True(t, ok)
	require.Equal(t, []byte("too large"), v)
	require.Equal(t, 0, mem.Len(), "oversized value is served but not promoted")

	// Without a resident copy, the next lookup goes to disk again.
	_, ok = tc.Get("big")
	require.True(t, ok)
	require.Equal(t, 2, d.gets)
}

func TestTiered_WithRealDiskStore(t *testing.T) {
	store, err := disk.New(disk.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	mem := newMemory(t, 2)
	tc := New(mem, store, nil)

	tc.Put("a", []byte("A"))
	tc.Put("b", []byte("B"))
	tc.Put("c", []byte("C")) // evicts a from memory; still on disk

	require.Equal(t, 2, mem.Len())

	v, ok := tc.Get("a")
	require.True(t, ok, "evicted key must be recovered from disk")
	require.Equal(t, []byte("A"), v)
	require.Equal(t, 2, mem.Len(), "promotion respects memory capacity")

	require.True(t, tc.Remove("b"))
	_, ok = tc.Get("b")
	require.False(t, ok)
	require.Greater(t, tc.Stats().DiskSizeBytes, int64(0))
}
