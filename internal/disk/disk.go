// Package disk provides the filesystem-backed tier of the cache hierarchy:
// a non-evicting key–value store holding one file per key.
package disk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gopkg.in/yaml.v3"

	"tiercache/internal/blob"
)

// envelope is the on-disk form of one entry. The key is stored alongside
// the value so reads can verify the file really belongs to the requested
// key and not to a fingerprint collision.
type envelope struct {
	Key   string     `yaml:"key"`
	Value blob.Bytes `yaml:"value"`
}

// Config controls construction of a Store.
type Config struct {
	// Dir is the root directory holding one file per key. Created if
	// absent; construction fails if it cannot be written.
	Dir string

	// Logger receives warn-level records for swallowed best-effort
	// failures. Optional.
	Logger log.Logger
}

// Store is a filesystem-backed key–value store used as the slow tier.
//
// Reads fail soft: any I/O or decode problem reads as "absent", so stacking
// this tier under a memory cache can never make lookups less reliable than
// the memory cache alone. Writes are atomic (a .tmp sibling renamed into
// place), so a crash mid-write never leaves a corrupt entry observable to
// Get.
//
// Store has no lock of its own. Concurrent writers of the same key race on
// the rename, which yields last-writer-wins with no torn file.
type Store struct {
	dir    string
	logger log.Logger
}

// New creates the root directory if needed and probes that it is writable.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("disk: root directory must be set")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", cfg.Dir, err)
	}

	probe, err := os.CreateTemp(cfg.Dir, ".probe-*")
	if err != nil {
		return nil, fmt.Errorf("cache dir %s not writable: %w", cfg.Dir, err)
	}
	probe.Close()
	_ = os.Remove(probe.Name())

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Store{dir: cfg.Dir, logger: logger}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// filename returns the fixed-length fingerprint path for key. The same key
// always maps to the same name; distinct keys collide only with negligible
// probability.
func (s *Store) filename(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:]))
}

// Get returns the stored value for key, or ok=false when absent.
//
// "Absent" covers missing files, unreadable files, undecodable contents,
// and stored-key mismatches alike. Failures beyond plain absence are logged
// at warn level, never returned.
func (s *Store) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(s.filename(key))
	if err != nil {
		if !os.IsNotExist(err) {
			level.Warn(s.logger).Log("msg", "disk read failed", "key", key, "err", err)
		}
		return nil, false
	}

	var env envelope
	if err := yaml.Unmarshal(data, &env); err != nil {
		level.Warn(s.logger).Log("msg", "disk entry undecodable", "key", key, "err", err)
		return nil, false
	}
	if env.Key != key {
		level.Warn(s.logger).Log("msg", "disk entry key mismatch", "want", key, "got", env.Key)
		return nil, false
	}
	return env.Value, true
}

// Put stores value under key.
//
// The write lands in a .tmp sibling first and is renamed into place, so a
// concurrent Get sees either the previous entry or the new one, never a
// partial write. On failure the temp file is removed and the error
// returned; unlike reads, a failed write must stay observable so callers
// can decide whether to retry.
func (s *Store) Put(key string, value []byte) error {
	data, err := yaml.Marshal(envelope{Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("encode disk entry: %w", err)
	}

	path := s.filename(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write disk entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish disk entry: %w", err)
	}
	return nil
}

// Remove deletes key's file and reports whether it existed. Deletion
// failures other than absence are logged and read as "did not exist".
func (s *Store) Remove(key string) bool {
	err := os.Remove(s.filename(key))
	if err == nil {
		return true
	}
	if !os.IsNotExist(err) {
		level.Warn(s.logger).Log("msg", "disk remove failed", "key", key, "err", err)
	}
	return false
}

// Exists reports whether an entry file for key is present.
func (s *Store) Exists(key string) bool {
	_, err := os.Stat(s.filename(key))
	return err == nil
}

// Clear removes every entry file, best effort: failures on individual
// files are logged and skipped, never propagated.
func (s *Store) Clear() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		level.Warn(s.logger).Log("msg", "disk clear: list failed", "err", err)
		return
	}
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, de.Name())); err != nil {
			level.Warn(s.logger).Log("msg", "disk clear: remove failed", "file", de.Name(), "err", err)
		}
	}
}

// TotalSizeBytes sums the sizes of all entry files, best effort: files that
// cannot be stated are skipped.
func (s *Store) TotalSizeBytes() int64 {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		level.Warn(s.logger).Log("msg", "disk size: list failed", "err", err)
		return 0
	}

	var total int64
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total
}
