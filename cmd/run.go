// Package cmd defines and implements the CLI commands for the uwasa
// executable.
package cmd

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	clock "github.com/uwasa-watch/uwasa/internal/clock/system"
	"github.com/uwasa-watch/uwasa/internal/config"
	"github.com/uwasa-watch/uwasa/internal/cursor"
	"github.com/uwasa-watch/uwasa/internal/discord"
	"github.com/uwasa-watch/uwasa/internal/dispatch"
	"github.com/uwasa-watch/uwasa/internal/extract"
	"github.com/uwasa-watch/uwasa/internal/feed"
	"github.com/uwasa-watch/uwasa/internal/id/uuid"
	"github.com/uwasa-watch/uwasa/internal/pipeline"
)

// newRunCmd creates the 'run' subcommand: one synchronization pass over
// the announcement feed. External scheduling provides periodicity.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Performs one feed synchronization pass",
		Long: `Loads the persisted cursor, races a conditional GET across the feed
mirrors, archives newly published announcements, relays extracted events
to the Discord webhook, and commits the advanced cursor.`,

		RunE: runRunCommand,
	}
	return cmd
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.GetLogger()

	runID, err := uuid.NewGenerator().NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}

	pipe, err := buildPipeline(appInstance, runID)
	if err != nil {
		return err
	}

	result, runErr := pipe.Run(cmd.Context())

	// The resulting cursor goes to the invoking environment even on
	// failure; it then reflects the last durably committed state.
	if err := emitCursor(result.Cursor); err != nil {
		logger.Warn("failed to emit cursor output", zap.Error(err))
	}

	if runErr != nil {
		return fmt.Errorf("run pipeline: %w", runErr)
	}
	return nil
}

func buildPipeline(appInstance App, runID string) (*pipeline.Pipeline, error) {
	cfg := appInstance.Config()
	logger := appInstance.GetLogger()

	fetcher, err := feed.NewFetcher(
		cfg.Feed.Origins,
		cfg.Feed.Path,
		cfg.Feed.UserAgent,
		cfg.Feed.Timeout(),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	store, err := buildCursorStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	sink, err := discord.NewWebhook(discord.Config{
		WebhookURL: cfg.Discord.WebhookURL,
		Username:   cfg.Discord.Username,
		AvatarURL:  cfg.Discord.AvatarURL,
		UserAgent:  cfg.Feed.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("init webhook sink: %w", err)
	}

	patterns, err := buildPatterns(cfg)
	if err != nil {
		return nil, err
	}

	origin, err := url.Parse(cfg.Feed.Origins[0])
	if err != nil {
		return nil, fmt.Errorf("parse primary origin: %w", err)
	}

	return pipeline.New(pipeline.Deps{
		RunID:      runID,
		Store:      store,
		Fetcher:    fetcher,
		Ingestor:   feed.NewIngestor(appInstance.GetArchive(), logger),
		Dispatcher: dispatch.New(sink, logger),
		Publisher:  appInstance.GetPublisher(),
		Clock:      clock.New(),
		Patterns:   patterns,
		Origin:     origin,
		Logger:     logger,
	}), nil
}

func buildCursorStore(cfg config.Config, logger *zap.Logger) (feed.CursorStore, error) {
	switch cfg.Cursor.Provider {
	case "github":
		store, err := cursor.NewGitHubStore(cursor.GitHubConfig{
			APIURL:           cfg.Cursor.GitHub.APIURL,
			Repository:       cfg.Cursor.GitHub.Repository,
			Token:            cfg.Cursor.GitHub.Token,
			LastVar:          cfg.Cursor.GitHub.LastVar,
			ValidatorVar:     cfg.Cursor.GitHub.ValidatorVar,
			InitialLast:      cfg.Cursor.Last,
			InitialValidator: cfg.Cursor.Etag,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init github cursor store: %w", err)
		}
		return store, nil
	case "memory":
		return cursor.NewMemoryStore(feed.ParseCursor(cfg.Cursor.Last, cfg.Cursor.Etag)), nil
	default:
		return nil, fmt.Errorf("unknown cursor provider: %s", cfg.Cursor.Provider)
	}
}

func buildPatterns(cfg config.Config) (pipeline.Patterns, error) {
	maintenance, err := extract.Compile(cfg.Patterns.Maintenance)
	if err != nil {
		return pipeline.Patterns{}, fmt.Errorf("compile maintenance pattern: %w", err)
	}
	appVersion, err := extract.Compile(cfg.Patterns.AppVersion)
	if err != nil {
		return pipeline.Patterns{}, fmt.Errorf("compile app version pattern: %w", err)
	}
	bulletin, err := extract.Compile(cfg.Patterns.Bulletin)
	if err != nil {
		return pipeline.Patterns{}, fmt.Errorf("compile bulletin pattern: %w", err)
	}
	return pipeline.Patterns{
		Maintenance: maintenance,
		AppVersion:  appVersion,
		Bulletin:    bulletin,
	}, nil
}

// emitCursor hands the resulting cursor to the invoking environment:
// appended to the GITHUB_OUTPUT file when running under Actions,
// printed to stdout otherwise.
func emitCursor(cur feed.Cursor) error {
	out := fmt.Sprintf("last=%s\netag=%s\n", strconv.FormatInt(cur.LastID, 10), cur.Validator)

	if path := os.Getenv("GITHUB_OUTPUT"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open output file: %w", err)
		}
		defer f.Close()
		if _, err := f.WriteString(out); err != nil {
			return fmt.Errorf("write output file: %w", err)
		}
		return nil
	}

	fmt.Print(out)
	return nil
}
