// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/uwasa-watch/uwasa/internal/archive"
	archivelocal "github.com/uwasa-watch/uwasa/internal/archive/local"
	archivepg "github.com/uwasa-watch/uwasa/internal/archive/postgres"
	"github.com/uwasa-watch/uwasa/internal/config"
	"github.com/uwasa-watch/uwasa/internal/feed"
	"github.com/uwasa-watch/uwasa/internal/logging"
	"github.com/uwasa-watch/uwasa/internal/metrics"
	"github.com/uwasa-watch/uwasa/internal/ops"
	"github.com/uwasa-watch/uwasa/internal/publisher"
)

// App holds the shared, long-lived services: logger, archive backend,
// event publisher. Initialized once at startup and handed to commands.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	archive   feed.Archive
	publisher feed.Publisher

	closeArchive func()
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// GetLogger returns the shared zap logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetArchive exposes the configured announcement archive.
func (a *App) GetArchive() feed.Archive {
	return a.archive
}

// GetPublisher returns the run-event publisher.
func (a *App) GetPublisher() feed.Publisher {
	return a.publisher
}

// NewApp creates and initializes the service container from
// configuration. It fails fast if any critical backend cannot be
// reached.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics.Init()

	a := &App{cfg: cfg, logger: logger}

	switch cfg.Archive.Provider {
	case "local":
		store, err := archivelocal.New(archivelocal.Config{BaseDir: cfg.Archive.Local.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		logger.Info("using local archive", zap.String("base_dir", cfg.Archive.Local.BaseDir))
		a.archive = store
	case "gcs":
		store, err := archive.NewGCSArchive(ctx, cfg.Archive.GCS.Bucket, cfg.Archive.GCS.Prefix, logger)
		if err != nil {
			return nil, fmt.Errorf("init GCS archive: %w", err)
		}
		logger.Info("using GCS archive", zap.String("bucket", cfg.Archive.GCS.Bucket))
		a.archive = store
		a.closeArchive = func() {
			if err := store.Close(); err != nil {
				logger.Warn("error closing GCS archive", zap.Error(err))
			}
		}
	case "postgres":
		store, err := archivepg.NewStore(ctx, archivepg.StoreConfig{
			DSN:      cfg.Archive.Postgres.DSN,
			Table:    cfg.Archive.Postgres.Table,
			MaxConns: cfg.Archive.Postgres.MaxConns,
			MinConns: cfg.Archive.Postgres.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres archive: %w", err)
		}
		logger.Info("using postgres archive", zap.String("table", cfg.Archive.Postgres.Table))
		a.archive = store
		a.closeArchive = store.Close
	case "noop":
		logger.Info("using no-op archive, raw items will be discarded")
		a.archive = archive.NoOp{}
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", cfg.Archive.Provider)
	}

	switch cfg.Publisher.Provider {
	case "pubsub":
		pub, err := publisher.NewPubSub(ctx, cfg.Publisher.ProjectID, cfg.Publisher.TopicID, logger)
		if err != nil {
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		logger.Info("using pubsub publisher", zap.String("topic", cfg.Publisher.TopicID))
		a.publisher = pub
	case "noop":
		a.publisher = publisher.NoOp{}
	default:
		return nil, fmt.Errorf("unknown publisher provider: %s", cfg.Publisher.Provider)
	}

	if cfg.Ops.Enabled {
		srv := ops.NewServer(logger)
		go func() {
			if err := srv.ListenAndServe(cfg.Ops.Port); err != nil {
				logger.Error("ops server failed", zap.Error(err))
			}
		}()
	}

	return a, nil
}

// Close gracefully shuts down the container's services.
func (a *App) Close() {
	if a.closeArchive != nil {
		a.closeArchive()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("error closing publisher", zap.Error(err))
		}
	}
	// Flush buffered log entries; best effort on shutdown.
	_ = a.logger.Sync()
}
