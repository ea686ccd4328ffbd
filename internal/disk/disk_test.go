package disk

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	return s
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestNew_CreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "cache")
	s, err := New(Config{Dir: dir})
	require.NoError(t, err)
	require.Equal(t, dir, s.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestPutGet_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Put("user:42", []byte("payload")))

	v, ok := s.Get("user:42")
	require.True(t, ok)
	require.Equal(t, []byte("payload"), v)
	require.True(t, s.Exists("user:42"))
}

func TestGet_AbsentKey(t *testing.T) {
	s := newTestStore(t)

	v, ok := s.Get("never-stored")
	require.False(t, ok)
	require.Nil(t, v)
	require.False(t, s.Exists("never-stored"))
}

func TestPut_Overwrites(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Put("k", []byte("old")))
	require.NoError(t, s.Put("k", []byte("new")))

	v, ok := s.Get("k")
	require.True(t, ok)
	require.Equal(t, []byte("new"), v)
}

func TestFingerprint_Deterministic(t *testing.T) {
	s := newTestStore(t)

	require.Equal(t, s.filename("k1"), s.filename("k1"))
	require.NotEqual(t, s.filename("k1"), s.filename("k2"))

	// Fixed length, filesystem-safe hex.
	base := filepath.Base(s.filename("anything at all, even / or \\"))
	require.Len(t, base, 64)
}

func TestPut_LeavesNoTempFile(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Put("a", []byte("A")))
	require.NoError(t, s.Put("b", []byte("B")))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	for _, de := range entries {
		require.NotContains(t, de.Name(), ".tmp")
	}
}

func TestPut_EncodesValueAsBinaryScalar(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Put("k", []byte("payload")))

	data, err := os.ReadFile(s.filename("k"))
	require.NoError(t, err)
	want := "!!binary " + base64.StdEncoding.EncodeToString([]byte("payload"))
	require.Contains(t, string(data), want)
}

func TestGet_SoftFailsOnCorruptFile(t *testing.T) {
	s := newTestStore(t)

	// Plant garbage where the entry for "k" would live.
	require.NoError(t, os.WriteFile(s.filename("k"), []byte("{::: not yaml"), 0o644))

	v, ok := s.Get("k")
	require.False(t, ok, "undecodable contents must read as absent")
	require.Nil(t, v)
}

func TestGet_SoftFailsOnKeyMismatch(t *testing.T) {
	s := newTestStore(t)

	// Store a valid envelope for another key at k's fingerprint path, as a
	// collision would.
	require.NoError(t, s.Put("other", []byte("V")))
	data, err := os.ReadFile(s.filename("other"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.filename("k"), data, 0o644))

	_, ok := s.Get("k")
	require.False(t, ok, "a mismatched stored key must read as absent")
}

func TestRemove_ReportsExistence(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Put("k", []byte("v")))
	require.True(t, s.Remove("k"))
	require.False(t, s.Remove("k"), "second remove must report absence")
	require.False(t, s.Exists("k"))
}

func TestClearAndTotalSize(t *testing.T) {
	s := newTestStore(t)

	require.Equal(t, int64(0), s.TotalSizeBytes())

	require.NoError(t, s.Put("a", []byte("AAAA")))
	require.NoError(t, s.Put("b", []byte("BBBB")))
	require.Greater(t, s.TotalSizeBytes(), int64(0))

	s.Clear()
	require.Equal(t, int64(0), s.TotalSizeBytes())
	require.False(t, s.Exists("a"))
	require.False(t, s.Exists("b"))
}
