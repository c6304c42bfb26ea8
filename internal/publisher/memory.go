package publisher

import (
	"context"
	"sync"

	"github.com/uwasa-watch/uwasa/internal/feed"
)

// NoOp discards events. The default when no broker is configured.
type NoOp struct{}

var _ feed.Publisher = (*NoOp)(nil)

// Publish does nothing and always succeeds.
func (NoOp) Publish(_ context.Context, _ any) error { return nil }

// Close does nothing.
func (NoOp) Close() error { return nil }

// Memory records published events in-process for tests.
type Memory struct {
	mu     sync.Mutex
	events []any
}

var _ feed.Publisher = (*Memory)(nil)

// NewMemory creates an empty recording publisher.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish appends the payload to the in-memory event log.
func (m *Memory) Publish(_ context.Context, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, payload)
	return nil
}

// Events returns a snapshot of everything published so far.
func (m *Memory) Events() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.events...)
}

// Close does nothing.
func (m *Memory) Close() error { return nil }
