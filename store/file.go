package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileStore is the persistent adapter: a single JSON file holding the
// prefixed entry map, loaded once and rewritten atomically on every
// mutation. With a passphrase configured the file body is sealed with
// scrypt-derived AES-256-GCM, the same scheme the SDK uses for any
// at-rest license material.
type FileStore struct {
	mu         sync.Mutex
	path       string
	prefix     string
	passphrase string
	entries    map[string]Entry
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFilePrefix overrides the default key prefix.
func WithFilePrefix(prefix string) FileOption {
	return func(s *FileStore) { s.prefix = prefix }
}

// WithPassphrase enables at-rest encryption of the store file.
func WithPassphrase(passphrase string) FileOption {
	return func(s *FileStore) { s.passphrase = passphrase }
}

// NewFileStore opens (or creates) a file-backed adapter at path.
func NewFileStore(path string, opts ...FileOption) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		prefix:  DefaultPrefix,
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("open file store %s: %w", path, err)
	}
	return s, nil
}

// Get implements Store.
func (s *FileStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[s.prefix+key]
	if !ok {
		return nil, false
	}
	if entry.Expired(time.Now()) {
		delete(s.entries, s.prefix+key)
		s.persistBestEffort()
		return nil, false
	}
	return entry.Value, true
}

// Set implements Store. Persistence is best-effort: on a write
// failure, expired entries are purged and the write is retried once
// before giving up silently.
func (s *FileStore) Set(key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.entries[s.prefix+key] = newEntry(value, ttl, now)

	if err := s.persist(); err != nil {
		s.purgeExpiredLocked(now)
		if retryErr := s.persist(); retryErr != nil {
			slog.Warn("file store write failed, cache entry not persisted",
				slog.String("key", key),
				slog.String("error", retryErr.Error()),
			)
		}
	}
}

// Remove implements Store.
func (s *FileStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, s.prefix+key)
	s.persistBestEffort()
}

// Has implements Store.
func (s *FileStore) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Clear implements Store. Entries outside the adapter's prefix (for
// example written by another adapter sharing the same file) survive.
func (s *FileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.entries {
		if strings.HasPrefix(key, s.prefix) {
			delete(s.entries, key)
		}
	}
	s.persistBestEffort()
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if s.passphrase != "" {
		data, err = openSealed(data, s.passphrase)
		if err != nil {
			return fmt.Errorf("decrypt store file: %w", err)
		}
	}
	return json.Unmarshal(data, &s.entries)
}

func (s *FileStore) persist() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return err
	}
	if s.passphrase != "" {
		data, err = seal(data, s.passphrase)
		if err != nil {
			return err
		}
	}

	// Atomic replace so a crash mid-write never corrupts the store.
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) persistBestEffort() {
	if err := s.persist(); err != nil {
		slog.Warn("file store write failed",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
	}
}

func (s *FileStore) purgeExpiredLocked(now time.Time) {
	for key, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, key)
		}
	}
}
