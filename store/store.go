// Package store provides the key/value storage adapters backing the
// license cache. All adapters share the same entry envelope and expiry
// semantics and scope every operation, including Clear, to their own
// key prefix so that an underlying store shared with host-application
// code is never touched outside the SDK's namespace.
package store

import (
	"encoding/json"
	"time"
)

// DefaultPrefix is the SDK-owned namespace applied when the caller
// does not choose one.
const DefaultPrefix = "uls_sdk:"

// Entry is the envelope persisted for every key. A nil ExpiresAt means
// the entry never expires on the adapter level.
type Entry struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}

// Expired reports whether the entry's adapter TTL has elapsed.
func (e Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// Store is the uniform adapter contract. Implementations are
// best-effort: write failures are logged and swallowed, never
// propagated, so a cache problem cannot fail a successful validation.
type Store interface {
	// Get returns the stored value, or (nil, false) for a missing or
	// expired key. Expired entries are deleted lazily on read.
	Get(key string) ([]byte, bool)

	// Set stores a value with the given TTL. A zero TTL stores the
	// entry without adapter-level expiry.
	Set(key string, value []byte, ttl time.Duration)

	// Remove deletes a single key.
	Remove(key string)

	// Has reports whether a live (non-expired) entry exists.
	Has(key string) bool

	// Clear removes every entry under the adapter's own prefix and
	// nothing else.
	Clear()
}

func newEntry(value []byte, ttl time.Duration, now time.Time) Entry {
	entry := Entry{Value: json.RawMessage(value)}
	if ttl > 0 {
		expires := now.Add(ttl)
		entry.ExpiresAt = &expires
	}
	return entry
}
