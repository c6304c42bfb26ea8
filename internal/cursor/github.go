// Package cursor persists the feed watermark between runs.
package cursor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/uwasa-watch/uwasa/internal/feed"
)

// GitHubConfig addresses the repository-variables endpoint used as the
// durable key/value backend.
type GitHubConfig struct {
	APIURL     string
	Repository string
	Token      string
	// LastVar and ValidatorVar name the two repository variables
	// holding the cursor halves.
	LastVar      string
	ValidatorVar string
	// InitialLast and InitialValidator are the values the invoking
	// workflow read back out of those variables for this run.
	InitialLast      string
	InitialValidator string
	Timeout          time.Duration
}

// GitHubStore commits the cursor as two GitHub Actions repository
// variables via authenticated PATCH calls, one per key.
type GitHubStore struct {
	cfg    GitHubConfig
	client *http.Client
	logger *zap.Logger
}

var _ feed.CursorStore = (*GitHubStore)(nil)

// NewGitHubStore validates the backend coordinates and builds a store.
func NewGitHubStore(cfg GitHubConfig, logger *zap.Logger) (*GitHubStore, error) {
	if cfg.APIURL == "" || cfg.Repository == "" || cfg.Token == "" {
		return nil, fmt.Errorf("api url, repository and token are required")
	}
	if cfg.LastVar == "" {
		cfg.LastVar = "LAST"
	}
	if cfg.ValidatorVar == "" {
		cfg.ValidatorVar = "ETAG"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitHubStore{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Load returns the cursor the previous run committed. The workflow
// passes the stored variable values into this run's environment, so no
// read call is needed; corrupt values degrade to the zero cursor.
func (s *GitHubStore) Load(_ context.Context) feed.Cursor {
	cur := feed.ParseCursor(s.cfg.InitialLast, s.cfg.InitialValidator)
	s.logger.Debug("loaded cursor",
		zap.Int64("last_id", cur.LastID),
		zap.String("validator", cur.Validator),
	)
	return cur
}

// Commit PATCHes both variables concurrently and fails if either write
// fails. The two keys are independent on the backend, so a partial
// write is possible; it is reported as a commit failure so the next run
// retries from consistent durable state.
func (s *GitHubStore) Commit(ctx context.Context, cur feed.Cursor) error {
	updates := map[string]string{
		s.cfg.LastVar:      strconv.FormatInt(cur.LastID, 10),
		s.cfg.ValidatorVar: cur.Validator,
	}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for name, value := range updates {
		wg.Add(1)
		go func(name, value string) {
			defer wg.Done()
			if err := s.patchVariable(ctx, name, value); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("update %s: %w", name, err))
				mu.Unlock()
			}
		}(name, value)
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("commit cursor: %w", errors.Join(errs...))
	}
	return nil
}

func (s *GitHubStore) patchVariable(ctx context.Context, name, value string) error {
	endpoint := fmt.Sprintf("%s/repos/%s/actions/variables/%s", s.cfg.APIURL, s.cfg.Repository, name)

	body, err := json.Marshal(map[string]string{"name": name, "value": value})
	if err != nil {
		return fmt.Errorf("encode variable body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("patch variable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
