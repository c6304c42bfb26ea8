// Package memory stores announcement artifacts in-memory for tests and
// development.
package memory

import (
	"context"
	"sync"

	"github.com/uwasa-watch/uwasa/internal/feed"
)

// Archive keeps artifacts in a map keyed by item id.
type Archive struct {
	mu   sync.RWMutex
	data map[int64][]byte
}

var _ feed.Archive = (*Archive)(nil)

// New creates an empty in-memory archive.
func New() *Archive {
	return &Archive{data: make(map[int64][]byte)}
}

// Put stores a copy of the artifact.
func (a *Archive) Put(_ context.Context, id int64, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[id] = append([]byte(nil), data...)
	return nil
}

// Get returns the stored artifact and whether it exists.
func (a *Archive) Get(id int64) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.data[id]
	return data, ok
}

// Len reports how many artifacts are stored.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.data)
}
