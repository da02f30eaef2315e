package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// SessionStore is the session-scoped adapter: a FileStore rooted in
// the system temp directory whose backing file is removed on Close.
// Entries survive across client instances within the same session but
// not beyond it.
type SessionStore struct {
	*FileStore
}

// NewSessionStore creates a session-scoped adapter. The name isolates
// independent sessions sharing a temp directory; an empty name falls
// back to a per-process default.
func NewSessionStore(name string, opts ...FileOption) (*SessionStore, error) {
	if name == "" {
		name = fmt.Sprintf("session-%d", os.Getpid())
	}
	path := filepath.Join(os.TempDir(), "uls-sdk", name+".json")
	fs, err := NewFileStore(path, opts...)
	if err != nil {
		return nil, err
	}
	return &SessionStore{FileStore: fs}, nil
}

// Close ends the session and removes the backing file.
func (s *SessionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("session store cleanup failed",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}
