package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrAllOriginsFailed reports that no origin produced a usable response.
// Fatal to the run: no partial progress, no commit.
var ErrAllOriginsFailed = errors.New("all origins failed")

// DefaultRequestTimeout bounds each per-origin request in the race.
const DefaultRequestTimeout = 9999 * time.Millisecond

// Fetcher issues one conditional GET per mirror origin concurrently and
// settles on the first origin that answers with fresh JSON or 304.
type Fetcher struct {
	origins   []*url.URL
	path      string
	userAgent string
	timeout   time.Duration
	client    *http.Client
	logger    *zap.Logger
}

// NewFetcher validates the origin list and constructs a Fetcher.
func NewFetcher(origins []string, path, userAgent string, timeout time.Duration, logger *zap.Logger) (*Fetcher, error) {
	if len(origins) == 0 {
		return nil, fmt.Errorf("at least one origin is required")
	}
	parsed := make([]*url.URL, 0, len(origins))
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil {
			return nil, fmt.Errorf("parse origin %q: %w", o, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("origin %q is not an absolute URL", o)
		}
		parsed = append(parsed, u)
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		origins:   parsed,
		path:      path,
		userAgent: userAgent,
		timeout:   timeout,
		// The transport's transparent compression sends
		// Accept-Encoding: gzip and inflates the body for us.
		client: &http.Client{},
		logger: logger,
	}, nil
}

type originResult struct {
	origin  string
	outcome FetchOutcome
	err     error
}

// Fetch races all origins and returns the first success. A 304 from any
// origin wins immediately. Losing requests are canceled, not awaited.
func (f *Fetcher) Fetch(ctx context.Context, validator string) (FetchOutcome, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan originResult, len(f.origins))
	for _, origin := range f.origins {
		go func(origin *url.URL) {
			outcome, err := f.fetchOrigin(raceCtx, origin, validator)
			results <- originResult{origin: origin.String(), outcome: outcome, err: err}
		}(origin)
	}

	errs := make([]error, 0, len(f.origins))
	for range f.origins {
		res := <-results
		if res.err != nil {
			f.logger.Warn("origin failed",
				zap.String("origin", res.origin),
				zap.Error(res.err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", res.origin, res.err))
			continue
		}
		f.logger.Debug("origin won the race",
			zap.String("origin", res.origin),
			zap.Bool("not_modified", res.outcome.NotModified),
		)
		return res.outcome, nil
	}

	return FetchOutcome{}, fmt.Errorf("%w: %w", ErrAllOriginsFailed, errors.Join(errs...))
}

func (f *Fetcher) fetchOrigin(ctx context.Context, origin *url.URL, validator string) (FetchOutcome, error) {
	target, err := origin.Parse(f.path)
	if err != nil {
		return FetchOutcome{}, fmt.Errorf("resolve feed path: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target.String(), nil)
	if err != nil {
		return FetchOutcome{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("If-None-Match", validator)

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchOutcome{}, fmt.Errorf("conditional get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return FetchOutcome{NotModified: true}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return FetchOutcome{}, fmt.Errorf("bad response status %d", resp.StatusCode)
	}
	// A misconfigured mirror may serve an HTML error page with 200.
	// That is a failed origin, not valid data.
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		return FetchOutcome{}, fmt.Errorf("unexpected content type %q", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchOutcome{}, fmt.Errorf("read body: %w", err)
	}

	return FetchOutcome{
		Payload:   body,
		Validator: resp.Header.Get("ETag"),
	}, nil
}
