// Package metrics exposes Prometheus collectors for the watcher.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal         *prometheus.CounterVec
	itemsIngestedTotal prometheus.Counter
	notificationsTotal *prometheus.CounterVec
	cursorCommitsTotal *prometheus.CounterVec
	runDurationSeconds prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call repeatedly.
func Init() {
	once.Do(func() {
		fetchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uwasa_fetch_total",
				Help: "Total feed fetch attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		itemsIngestedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "uwasa_items_ingested_total",
				Help: "Total new announcement items archived.",
			},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uwasa_notifications_total",
				Help: "Total notification dispatches, labeled by category and outcome.",
			},
			[]string{"category", "outcome"},
		)

		cursorCommitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uwasa_cursor_commits_total",
				Help: "Total cursor commit attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		runDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "uwasa_run_duration_seconds",
				Help:    "Wall-clock duration of one pipeline run.",
				Buckets: prometheus.DefBuckets,
			},
		)
	})
}

// RecordFetch counts one fetch attempt outcome: fresh, not_modified or
// failed.
func RecordFetch(outcome string) {
	if fetchTotal != nil {
		fetchTotal.WithLabelValues(outcome).Inc()
	}
}

// RecordItemsIngested counts newly archived items.
func RecordItemsIngested(n int) {
	if itemsIngestedTotal != nil && n > 0 {
		itemsIngestedTotal.Add(float64(n))
	}
}

// RecordNotification counts one dispatch outcome: sent, failed or
// skipped.
func RecordNotification(category, outcome string) {
	if notificationsTotal != nil {
		notificationsTotal.WithLabelValues(category, outcome).Inc()
	}
}

// RecordCommit counts one cursor commit outcome: ok or failed.
func RecordCommit(outcome string) {
	if cursorCommitsTotal != nil {
		cursorCommitsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveRunDuration records the duration of one pipeline run.
func ObserveRunDuration(d time.Duration) {
	if runDurationSeconds != nil {
		runDurationSeconds.Observe(d.Seconds())
	}
}
