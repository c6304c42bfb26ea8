package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uwasa-watch/uwasa/internal/app"
	"github.com/uwasa-watch/uwasa/internal/config"
	"github.com/uwasa-watch/uwasa/internal/feed"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use. Allows
// injecting a mock container in tests.
type App interface {
	Close()
	Config() config.Config
	GetLogger() *zap.Logger
	GetArchive() feed.Archive
	GetPublisher() feed.Publisher
}

// newApp is the application factory. It's a variable so tests can
// replace it with a mock factory.
var newApp func(ctx context.Context, cfg config.Config) (App, error) = func(ctx context.Context, cfg config.Config) (App, error) {
	return app.NewApp(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uwasa",
		Short: "Watches a game announcement feed and relays new events to Discord.",
		Long: `uwasa polls a mirrored announcement feed with conditional requests,
extracts maintenance windows, forced app updates and Magia Report issues
from the announcement text, and relays each newly discovered event to a
Discord webhook exactly once, tracking progress with a persisted cursor.`,

		// Runs after flags are parsed and before the subcommand's
		// RunE: load config, build the container, inject it.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// Shuts services down after the subcommand finishes.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (values may also come from UWASA_* env vars)")

	cmd.AddCommand(newRunCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
