// Package pipeline orchestrates one synchronization run: load cursor,
// race origins, ingest, extract, notify, commit.
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/uwasa-watch/uwasa/internal/dispatch"
	"github.com/uwasa-watch/uwasa/internal/extract"
	"github.com/uwasa-watch/uwasa/internal/feed"
	"github.com/uwasa-watch/uwasa/internal/metrics"
	"github.com/uwasa-watch/uwasa/internal/notify"
)

// Fetcher is the origin-race dependency. Satisfied by *feed.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, validator string) (feed.FetchOutcome, error)
}

// Patterns bundles the three compiled category patterns.
type Patterns struct {
	Maintenance *extract.Pattern
	AppVersion  *extract.Pattern
	Bulletin    *extract.Pattern
}

// Deps wires all collaborators into the pipeline.
type Deps struct {
	RunID      string
	Store      feed.CursorStore
	Fetcher    Fetcher
	Ingestor   *feed.Ingestor
	Dispatcher *dispatch.Dispatcher
	Publisher  feed.Publisher
	Clock      feed.Clock
	Patterns   Patterns
	// Origin is the primary feed origin, used to resolve relative
	// bulletin image paths.
	Origin *url.URL
	Logger *zap.Logger
}

// Pipeline executes one run per invocation; external scheduling
// provides periodicity and retry.
type Pipeline struct {
	deps Deps
}

// Result is what a run hands back to the invoking environment.
type Result struct {
	// Cursor is the durably committed cursor after the run. On any
	// fatal error it is the cursor the run started from.
	Cursor     feed.Cursor
	NewItems   int
	Dispatches []dispatch.Outcome
}

// RunEvent is published to the broker after a successful run.
type RunEvent struct {
	RunID       string `json:"run_id"`
	CompletedAt string `json:"completed_at"`
	NewItems    int    `json:"new_items"`
	LastID      int64  `json:"last_id"`
	Validator   string `json:"validator"`
}

// New constructs a Pipeline.
func New(deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Pipeline{deps: deps}
}

// Run performs one synchronization pass. The returned cursor reflects
// only durably committed state: a failed commit discards the in-memory
// advance so the next invocation retries from the old validator.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	d := p.deps
	start := d.Clock.Now()
	defer func() {
		metrics.ObserveRunDuration(d.Clock.Now().Sub(start))
	}()

	cursor := d.Store.Load(ctx)
	d.Logger.Info("starting run",
		zap.String("run_id", d.RunID),
		zap.Int64("cursor_last_id", cursor.LastID),
	)

	outcome, err := d.Fetcher.Fetch(ctx, cursor.Validator)
	if err != nil {
		metrics.RecordFetch("failed")
		return Result{Cursor: cursor}, fmt.Errorf("fetch feed: %w", err)
	}
	if outcome.NotModified {
		metrics.RecordFetch("not_modified")
	} else {
		metrics.RecordFetch("fresh")
	}

	batch, err := d.Ingestor.Ingest(ctx, outcome, cursor)
	if err != nil {
		return Result{Cursor: cursor}, fmt.Errorf("ingest: %w", err)
	}
	metrics.RecordItemsIngested(len(batch.Items))

	msgs := p.render(batch.Items, cursor.LastID)
	outcomes := d.Dispatcher.Send(ctx, msgs)
	for _, o := range outcomes {
		switch {
		case o.Skipped:
			metrics.RecordNotification(string(o.Category), "skipped")
		case o.Err != nil:
			metrics.RecordNotification(string(o.Category), "failed")
		default:
			metrics.RecordNotification(string(o.Category), "sent")
		}
	}

	if batch.Advanced(cursor) {
		if err := d.Store.Commit(ctx, batch.Candidate); err != nil {
			metrics.RecordCommit("failed")
			return Result{
				Cursor:     cursor,
				NewItems:   len(batch.Items),
				Dispatches: outcomes,
			}, fmt.Errorf("commit cursor: %w", err)
		}
		metrics.RecordCommit("ok")
		cursor = batch.Candidate
	}

	p.publishRunEvent(ctx, cursor, len(batch.Items))

	d.Logger.Info("run finished",
		zap.String("run_id", d.RunID),
		zap.Int("new_items", len(batch.Items)),
		zap.Int64("cursor_last_id", cursor.LastID),
	)

	return Result{
		Cursor:     cursor,
		NewItems:   len(batch.Items),
		Dispatches: outcomes,
	}, nil
}

// render runs the three category extractions over the batch, bounded
// below by the prior cursor id, and formats each winner. A pattern
// matching nothing this run is the normal case, not an error; a matched
// item whose fields will not decode is logged and skipped.
func (p *Pipeline) render(items []feed.Item, floor int64) map[feed.Category]feed.Message {
	d := p.deps
	msgs := make(map[feed.Category]feed.Message, 3)

	if res, ok := extract.Latest(items, feed.CategoryMaintenance, d.Patterns.Maintenance, floor); ok {
		if m, err := extract.DecodeMaintenance(res.Fields); err != nil {
			d.Logger.Warn("undecodable maintenance extraction", zap.Int64("item_id", res.ItemID), zap.Error(err))
		} else {
			msgs[feed.CategoryMaintenance] = notify.Maintenance(m)
		}
	}

	if res, ok := extract.Latest(items, feed.CategoryAppVersion, d.Patterns.AppVersion, floor); ok {
		if v, err := extract.DecodeAppVersion(res.Fields); err != nil {
			d.Logger.Warn("undecodable app version extraction", zap.Int64("item_id", res.ItemID), zap.Error(err))
		} else {
			msgs[feed.CategoryAppVersion] = notify.AppVersion(v)
		}
	}

	if res, ok := extract.Latest(items, feed.CategoryBulletin, d.Patterns.Bulletin, floor); ok {
		if b, err := extract.DecodeBulletin(res.Fields); err != nil {
			d.Logger.Warn("undecodable bulletin extraction", zap.Int64("item_id", res.ItemID), zap.Error(err))
		} else if msg, err := notify.Bulletin(b, d.Origin); err != nil {
			d.Logger.Warn("unresolvable bulletin image", zap.Int64("item_id", res.ItemID), zap.Error(err))
		} else {
			msgs[feed.CategoryBulletin] = msg
		}
	}

	return msgs
}

func (p *Pipeline) publishRunEvent(ctx context.Context, cursor feed.Cursor, newItems int) {
	d := p.deps
	if d.Publisher == nil {
		return
	}
	event := RunEvent{
		RunID:       d.RunID,
		CompletedAt: d.Clock.Now().Format(time.RFC3339),
		NewItems:    newItems,
		LastID:      cursor.LastID,
		Validator:   cursor.Validator,
	}
	if err := d.Publisher.Publish(ctx, event); err != nil {
		d.Logger.Warn("publish run event failed", zap.Error(err))
	}
}
