package pipeline_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	archmem "github.com/uwasa-watch/uwasa/internal/archive/memory"
	"github.com/uwasa-watch/uwasa/internal/cursor"
	"github.com/uwasa-watch/uwasa/internal/dispatch"
	"github.com/uwasa-watch/uwasa/internal/extract"
	"github.com/uwasa-watch/uwasa/internal/feed"
	"github.com/uwasa-watch/uwasa/internal/pipeline"
	"github.com/uwasa-watch/uwasa/internal/publisher"
)

type fakeFetcher struct {
	outcome       feed.FetchOutcome
	err           error
	gotValidators []string
}

func (f *fakeFetcher) Fetch(_ context.Context, validator string) (feed.FetchOutcome, error) {
	f.gotValidators = append(f.gotValidators, validator)
	return f.outcome, f.err
}

type recordingSink struct {
	mu   sync.Mutex
	msgs []feed.Message
	err  error
}

func (s *recordingSink) Send(_ context.Context, msg feed.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.err
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func defaultPatterns(t *testing.T) pipeline.Patterns {
	t.Helper()
	return pipeline.Patterns{
		Maintenance: extract.MustCompile(extract.DefaultMaintenancePattern),
		AppVersion:  extract.MustCompile(extract.DefaultAppVersionPattern),
		Bulletin:    extract.MustCompile(extract.DefaultBulletinPattern),
	}
}

func newTestPipeline(t *testing.T, store feed.CursorStore, fetcher pipeline.Fetcher, sink feed.Sink, pub feed.Publisher, archive feed.Archive) *pipeline.Pipeline {
	t.Helper()
	origin, err := url.Parse("https://android.magi-reco.com/announcements.json")
	require.NoError(t, err)
	return pipeline.New(pipeline.Deps{
		RunID:      "test-run",
		Store:      store,
		Fetcher:    fetcher,
		Ingestor:   feed.NewIngestor(archive, zap.NewNop()),
		Dispatcher: dispatch.New(sink, zap.NewNop()),
		Publisher:  pub,
		Clock:      fixedClock{at: time.Unix(1720000000, 0).UTC()},
		Patterns:   defaultPatterns(t),
		Origin:     origin,
		Logger:     zap.NewNop(),
	})
}

func TestRunNotifiesAndCommitsOnFreshMaintenance(t *testing.T) {
	t.Parallel()

	payload := `[
		{"id":5,"category":"MNT","text":"2024年6月1日(土) 2:00～4:00の間、メンテナンスを実施いたします。"},
		{"id":4,"category":"OTHER","text":"お知らせ"},
		{"id":3,"category":"MNT","text":"2023年1月1日(日) 1:00～2:00の間、メンテナンスを実施いたしました。"}
	]`
	fetcher := &fakeFetcher{outcome: feed.FetchOutcome{Payload: []byte(payload), Validator: `"v2"`}}
	store := cursor.NewMemoryStore(feed.Cursor{LastID: 3, Validator: `"v1"`})
	sink := &recordingSink{}
	pub := publisher.NewMemory()
	archive := archmem.New()

	result, err := newTestPipeline(t, store, fetcher, sink, pub, archive).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{`"v1"`}, fetcher.gotValidators)
	require.Equal(t, feed.Cursor{LastID: 5, Validator: `"v2"`}, result.Cursor)
	require.Equal(t, result.Cursor, store.Load(context.Background()))
	require.Equal(t, 2, result.NewItems)
	require.Equal(t, 2, archive.Len())

	require.Len(t, sink.msgs, 1)
	content := sink.msgs[0].Content
	require.Contains(t, content, "<t:1717174800:f>")
	require.Contains(t, content, "<t:1717182000:t>")

	events := pub.Events()
	require.Len(t, events, 1)
	event, ok := events[0].(pipeline.RunEvent)
	require.True(t, ok)
	require.Equal(t, int64(5), event.LastID)
	require.Equal(t, 2, event.NewItems)
}

func TestRunNotModifiedIsIdempotent(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{outcome: feed.FetchOutcome{NotModified: true}}
	prior := feed.Cursor{LastID: 9, Validator: `"v9"`}
	store := cursor.NewMemoryStore(prior)
	store.CommitErr = errors.New("commit must not be attempted")
	sink := &recordingSink{}
	archive := archmem.New()

	result, err := newTestPipeline(t, store, fetcher, sink, publisher.NoOp{}, archive).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, prior, result.Cursor)
	require.Zero(t, result.NewItems)
	require.Empty(t, sink.msgs)
	require.Zero(t, archive.Len())
}

func TestRunCommitsValidatorOnlyAdvance(t *testing.T) {
	t.Parallel()

	// Same items as last run, only the validator rotated. Nothing is
	// new, nothing is notified, but the fresh validator must still be
	// persisted so the next run can short-circuit on 304.
	payload := `[{"id":7,"category":"OTHER","text":"お知らせ"}]`
	fetcher := &fakeFetcher{outcome: feed.FetchOutcome{Payload: []byte(payload), Validator: `"v2"`}}
	store := cursor.NewMemoryStore(feed.Cursor{LastID: 7, Validator: `"v1"`})
	sink := &recordingSink{}

	result, err := newTestPipeline(t, store, fetcher, sink, publisher.NoOp{}, archmem.New()).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, feed.Cursor{LastID: 7, Validator: `"v2"`}, result.Cursor)
	require.Equal(t, result.Cursor, store.Load(context.Background()))
	require.Empty(t, sink.msgs)
}

func TestRunNotifiesOnlyLatestPerCategory(t *testing.T) {
	t.Parallel()

	payload := `[
		{"id":12,"category":"MNT","text":"2024年7月10日(水) 14:00～15:00にメンテナンスを実施します。"},
		{"id":11,"category":"MNT","text":"2024年6月1日(土) 2:00～4:00にメンテナンスを実施します。"}
	]`
	fetcher := &fakeFetcher{outcome: feed.FetchOutcome{Payload: []byte(payload), Validator: `"v2"`}}
	store := cursor.NewMemoryStore(feed.Cursor{LastID: 10, Validator: `"v1"`})
	sink := &recordingSink{}

	result, err := newTestPipeline(t, store, fetcher, sink, publisher.NoOp{}, archmem.New()).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, int64(12), result.Cursor.LastID)
	require.Len(t, sink.msgs, 1)
	require.Contains(t, sink.msgs[0].Content, "<t:1720591200:")
	require.NotContains(t, sink.msgs[0].Content, "<t:1717174800:")
}

func TestRunResolvesBulletinImageAgainstOrigin(t *testing.T) {
	t.Parallel()

	payload := `[{"id":20,"category":"NEW","text":"マギアレポート 第129話 を公開しました。<img src=\"/magica/resource/image_web/announce/magirepo_129.png\">"}]`
	fetcher := &fakeFetcher{outcome: feed.FetchOutcome{Payload: []byte(payload), Validator: `"v2"`}}
	store := cursor.NewMemoryStore(feed.Cursor{LastID: 19, Validator: `"v1"`})
	sink := &recordingSink{}

	_, err := newTestPipeline(t, store, fetcher, sink, publisher.NoOp{}, archmem.New()).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.msgs, 1)
	require.Contains(t, sink.msgs[0].Content, "#129")
	require.Equal(t, "https://android.magi-reco.com/magica/resource/image_web/announce/magirepo_129.png", sink.msgs[0].ImageURL)
}

func TestRunFetchFailureLeavesCursorAlone(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: errors.New("all origins down")}
	prior := feed.Cursor{LastID: 4, Validator: `"v1"`}
	store := cursor.NewMemoryStore(prior)
	sink := &recordingSink{}

	result, err := newTestPipeline(t, store, fetcher, sink, publisher.NoOp{}, archmem.New()).Run(context.Background())
	require.Error(t, err)
	require.Equal(t, prior, result.Cursor)
	require.Empty(t, sink.msgs)
}

func TestRunCommitFailureReturnsOldCursor(t *testing.T) {
	t.Parallel()

	payload := `[{"id":6,"category":"OTHER","text":"お知らせ"}]`
	fetcher := &fakeFetcher{outcome: feed.FetchOutcome{Payload: []byte(payload), Validator: `"v2"`}}
	prior := feed.Cursor{LastID: 5, Validator: `"v1"`}
	store := cursor.NewMemoryStore(prior)
	store.CommitErr = errors.New("variables api unavailable")
	sink := &recordingSink{}

	result, err := newTestPipeline(t, store, fetcher, sink, publisher.NoOp{}, archmem.New()).Run(context.Background())
	require.Error(t, err)
	require.Equal(t, prior, result.Cursor)
	require.Equal(t, 1, result.NewItems)
}

func TestRunDispatchFailureStillCommits(t *testing.T) {
	t.Parallel()

	payload := `[{"id":8,"category":"MNT","text":"2024年6月1日(土) 2:00～4:00にメンテナンスを実施します。"}]`
	fetcher := &fakeFetcher{outcome: feed.FetchOutcome{Payload: []byte(payload), Validator: `"v2"`}}
	store := cursor.NewMemoryStore(feed.Cursor{LastID: 7, Validator: `"v1"`})
	sink := &recordingSink{err: errors.New("webhook rejected")}

	result, err := newTestPipeline(t, store, fetcher, sink, publisher.NoOp{}, archmem.New()).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, feed.Cursor{LastID: 8, Validator: `"v2"`}, result.Cursor)
	require.Len(t, result.Dispatches, 1)
	require.Error(t, result.Dispatches[0].Err)
}
