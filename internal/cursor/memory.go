package cursor

import (
	"context"
	"sync"

	"github.com/uwasa-watch/uwasa/internal/feed"
)

// MemoryStore keeps the cursor in process memory. Intended for
// development runs and tests; nothing survives the process.
type MemoryStore struct {
	mu  sync.Mutex
	cur feed.Cursor

	// CommitErr, when set, is returned by Commit without updating
	// state. Lets tests exercise the commit-failure path.
	CommitErr error
}

var _ feed.CursorStore = (*MemoryStore)(nil)

// NewMemoryStore seeds a store with a starting cursor.
func NewMemoryStore(cur feed.Cursor) *MemoryStore {
	return &MemoryStore{cur: cur}
}

// Load returns the last committed cursor.
func (s *MemoryStore) Load(_ context.Context) feed.Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Commit stores the cursor, or fails without side effects when
// CommitErr is set.
func (s *MemoryStore) Commit(_ context.Context, cur feed.Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CommitErr != nil {
		return s.CommitErr
	}
	s.cur = cur
	return nil
}
