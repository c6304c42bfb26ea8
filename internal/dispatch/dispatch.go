// Package dispatch fans outbound messages out to the sink.
package dispatch

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/uwasa-watch/uwasa/internal/feed"
)

// Outcome is the per-category result of one dispatch attempt.
type Outcome struct {
	Category feed.Category
	Skipped  bool
	Err      error
}

// Dispatcher sends each non-empty message to the webhook sink. The
// category dispatches run concurrently and are joined with a wait-all
// barrier; one failure never cancels or blocks a sibling.
type Dispatcher struct {
	sink   feed.Sink
	logger *zap.Logger
}

// New creates a Dispatcher.
func New(sink feed.Sink, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{sink: sink, logger: logger}
}

// Send dispatches all messages and blocks until every attempt settled.
// An empty message is a silent no-op: not every run produces every
// category. Errors are reported per category, never joined into a
// batch-level failure.
func (d *Dispatcher) Send(ctx context.Context, msgs map[feed.Category]feed.Message) []Outcome {
	results := make(chan Outcome, len(msgs))
	var wg sync.WaitGroup
	for category, msg := range msgs {
		if msg.Empty() {
			results <- Outcome{Category: category, Skipped: true}
			continue
		}
		wg.Add(1)
		go func(category feed.Category, msg feed.Message) {
			defer wg.Done()
			err := d.sink.Send(ctx, msg)
			if err != nil {
				d.logger.Error("dispatch failed",
					zap.String("category", string(category)),
					zap.Error(err),
				)
			} else {
				d.logger.Info("dispatched notification",
					zap.String("category", string(category)),
				)
			}
			results <- Outcome{Category: category, Err: err}
		}(category, msg)
	}
	wg.Wait()
	close(results)

	outcomes := make([]Outcome, 0, len(msgs))
	for res := range results {
		outcomes = append(outcomes, res)
	}
	return outcomes
}
