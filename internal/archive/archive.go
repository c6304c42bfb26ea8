// Package archive persists raw announcement artifacts for audit and
// replay. Implementations are addressed by item id and must be
// idempotent; archiving is independent of cursor commit success.
package archive

import (
	"context"
	"fmt"

	"github.com/uwasa-watch/uwasa/internal/feed"
)

// ObjectName derives the artifact path for an item id. All providers
// share the same layout so archives stay portable between backends.
func ObjectName(id int64) string {
	return fmt.Sprintf("announcements/%d.json", id)
}

// NoOp discards artifacts. Useful for dry runs where announcements are
// fetched and relayed but not retained.
type NoOp struct{}

var _ feed.Archive = (*NoOp)(nil)

// Put does nothing and always succeeds.
func (NoOp) Put(_ context.Context, _ int64, _ []byte) error {
	return nil
}
