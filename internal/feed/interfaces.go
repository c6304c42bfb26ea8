package feed

import (
	"context"
	"time"
)

// CursorStore persists the cursor across runs.
type CursorStore interface {
	// Load returns the cursor the previous run committed. It never
	// fails: missing or corrupt state is the zero cursor.
	Load(ctx context.Context) Cursor
	// Commit durably stores the cursor. A partial write (one key
	// updated, the other not) must surface as an error.
	Commit(ctx context.Context, cursor Cursor) error
}

// Archive writes raw announcement artifacts keyed by item id. Writes
// must be idempotent: re-archiving an already-seen id is a safe no-op.
type Archive interface {
	Put(ctx context.Context, id int64, data []byte) error
}

// Sink accepts a formatted outbound message. Implementations own the
// transport; callers treat it as one-way.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// Publisher pushes run-completion events to an external broker.
type Publisher interface {
	Publish(ctx context.Context, payload any) error
	Close() error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Message is the transient outbound payload handed to the Sink.
type Message struct {
	Content  string
	ImageURL string
}

// Empty reports whether the message carries nothing to send.
func (m Message) Empty() bool {
	return m.Content == "" && m.ImageURL == ""
}
