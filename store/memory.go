package store

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the process-memory adapter. Safe for concurrent use;
// entries expire lazily on read. An optional MaxEntries bound makes
// inserts best-effort: when full, already-expired entries are purged
// once and the insert is retried before being dropped silently.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	prefix     string
	maxEntries int
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryPrefix overrides the default key prefix.
func WithMemoryPrefix(prefix string) MemoryOption {
	return func(s *MemoryStore) { s.prefix = prefix }
}

// WithMaxEntries bounds the number of live entries. Zero means
// unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(s *MemoryStore) { s.maxEntries = n }
}

// NewMemoryStore creates an empty in-memory adapter.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]Entry),
		prefix:  DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[s.prefix+key]
	if !ok {
		return nil, false
	}
	if entry.Expired(time.Now()) {
		delete(s.entries, s.prefix+key)
		return nil, false
	}
	return entry.Value, true
}

// Set implements Store.
func (s *MemoryStore) Set(key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		if _, exists := s.entries[s.prefix+key]; !exists {
			s.purgeExpiredLocked(now)
			if len(s.entries) >= s.maxEntries {
				slog.Debug("memory store full, dropping cache write",
					slog.String("key", key),
					slog.Int("max_entries", s.maxEntries),
				)
				return
			}
		}
	}
	s.entries[s.prefix+key] = newEntry(value, ttl, now)
}

// Remove implements Store.
func (s *MemoryStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, s.prefix+key)
}

// Has implements Store.
func (s *MemoryStore) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Clear implements Store. Only the adapter's own prefix is touched.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.entries {
		if strings.HasPrefix(key, s.prefix) {
			delete(s.entries, key)
		}
	}
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) purgeExpiredLocked(now time.Time) {
	for key, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, key)
		}
	}
}
