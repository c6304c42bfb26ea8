package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Ingestor decodes a fetch outcome, archives newly seen items, and
// computes the candidate cursor for the run.
type Ingestor struct {
	archive Archive
	logger  *zap.Logger
}

// NewIngestor constructs an Ingestor.
func NewIngestor(archive Archive, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{archive: archive, logger: logger}
}

// Ingest turns a FetchOutcome into a Batch. On 304 the batch is empty
// and carries the prior cursor unchanged (no decode, no writes). On
// fresh data it decodes the payload, keeps items beyond the cursor,
// archives each kept item verbatim, and advances the candidate id to
// the maximum id of the whole payload, already-seen trailing items
// included.
func (in *Ingestor) Ingest(ctx context.Context, outcome FetchOutcome, cursor Cursor) (Batch, error) {
	if outcome.NotModified {
		in.logger.Info("feed unchanged, skipping")
		return Batch{Candidate: cursor}, nil
	}

	var items []Item
	if err := json.Unmarshal(outcome.Payload, &items); err != nil {
		return Batch{}, fmt.Errorf("decode announcement payload: %w", err)
	}

	candidate := Cursor{LastID: cursor.LastID, Validator: outcome.Validator}
	fresh := make([]Item, 0, len(items))
	for _, item := range items {
		if item.ID > candidate.LastID {
			candidate.LastID = item.ID
		}
		if item.ID <= cursor.LastID {
			continue
		}
		fresh = append(fresh, item)
		if err := in.archive.Put(ctx, item.ID, item.Raw); err != nil {
			return Batch{}, fmt.Errorf("archive item %d: %w", item.ID, err)
		}
	}

	in.logger.Info("ingested announcements",
		zap.Int("payload_items", len(items)),
		zap.Int("new_items", len(fresh)),
		zap.Int64("candidate_last_id", candidate.LastID),
	)

	return Batch{Items: fresh, Candidate: candidate}, nil
}
