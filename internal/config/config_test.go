package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/uwasa-watch/uwasa/internal/extract"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadWithFileOverrides(t *testing.T) {
	path := writeConfig(t, `
feed:
  origins:
    - https://android.magi-reco.com
    - https://ios.magi-reco.com
  timeout_ms: 5000
discord:
  webhook_url: https://discord.test/webhook
  username: Kyubey
  avatar_url: https://cdn.test/kyubey.png
cursor:
  provider: github
  last: "1234"
  etag: '"abc"'
  github:
    repository: example/uwasa
    token: ghp_test
archive:
  provider: local
  local:
    base_dir: /tmp/archive
publisher:
  provider: pubsub
  project_id: proj
  topic_id: runs
ops:
  enabled: true
  port: 9100
logging:
  development: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Feed.Origins) != 2 || cfg.Feed.Origins[0] != "https://android.magi-reco.com" {
		t.Fatalf("expected origin overrides to apply: %+v", cfg.Feed.Origins)
	}
	if got := cfg.Feed.Timeout(); got != 5*time.Second {
		t.Fatalf("expected 5s request budget, got %v", got)
	}
	if cfg.Feed.Path != "announcements.json" || cfg.Feed.UserAgent != "UoSM" {
		t.Fatalf("expected feed defaults to survive partial override: %+v", cfg.Feed)
	}
	if cfg.Discord.Username != "Kyubey" {
		t.Fatalf("expected discord branding override, got %+v", cfg.Discord)
	}
	if cfg.Cursor.Last != "1234" || cfg.Cursor.Etag != `"abc"` {
		t.Fatalf("expected injected cursor values: %+v", cfg.Cursor)
	}
	if cfg.Cursor.GitHub.APIURL != "https://api.github.com" || cfg.Cursor.GitHub.LastVar != "LAST" {
		t.Fatalf("expected github cursor defaults: %+v", cfg.Cursor.GitHub)
	}
	if cfg.Publisher.Provider != "pubsub" || cfg.Publisher.TopicID != "runs" {
		t.Fatalf("expected pubsub publisher config: %+v", cfg.Publisher)
	}
	if !cfg.Ops.Enabled || cfg.Ops.Port != 9100 {
		t.Fatalf("expected ops overrides: %+v", cfg.Ops)
	}
	if cfg.Logging.Development {
		t.Fatalf("expected development logging disabled")
	}
	if cfg.Patterns.Maintenance != extract.DefaultMaintenancePattern {
		t.Fatalf("expected default maintenance pattern")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("UWASA_DISCORD_USERNAME", "Madoka")

	path := writeConfig(t, `
feed:
  origins: ["https://android.magi-reco.com"]
discord:
  webhook_url: https://discord.test/webhook
cursor:
  provider: memory
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Discord.Username != "Madoka" {
		t.Fatalf("expected env override to win, got %q", cfg.Discord.Username)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			Feed: FeedConfig{
				Origins:   []string{"https://android.magi-reco.com"},
				Path:      "announcements.json",
				UserAgent: "UoSM",
				TimeoutMs: 9999,
			},
			Discord: DiscordConfig{WebhookURL: "https://discord.test/webhook"},
			Cursor:  CursorConfig{Provider: "memory"},
			Archive: ArchiveConfig{Provider: "noop"},
			Publisher: PublisherConfig{
				Provider: "noop",
			},
			Patterns: PatternsConfig{
				Maintenance: extract.DefaultMaintenancePattern,
				AppVersion:  extract.DefaultAppVersionPattern,
				Bulletin:    extract.DefaultBulletinPattern,
			},
		}
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "no origins",
			mutate:  func(c *Config) { c.Feed.Origins = nil },
			wantErr: "feed.origins",
		},
		{
			name:    "missing webhook",
			mutate:  func(c *Config) { c.Discord.WebhookURL = "" },
			wantErr: "discord.webhook_url",
		},
		{
			name:    "github cursor without token",
			mutate:  func(c *Config) { c.Cursor = CursorConfig{Provider: "github"} },
			wantErr: "cursor.github",
		},
		{
			name:    "unknown cursor provider",
			mutate:  func(c *Config) { c.Cursor.Provider = "redis" },
			wantErr: "unknown cursor provider",
		},
		{
			name:    "gcs without bucket",
			mutate:  func(c *Config) { c.Archive.Provider = "gcs" },
			wantErr: "archive.gcs.bucket",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Archive.Provider = "postgres" },
			wantErr: "archive.postgres.dsn",
		},
		{
			name:    "pubsub without topic",
			mutate:  func(c *Config) { c.Publisher = PublisherConfig{Provider: "pubsub", ProjectID: "proj"} },
			wantErr: "publisher.project_id and publisher.topic_id",
		},
		{
			name:    "pattern without named group",
			mutate:  func(c *Config) { c.Patterns.Bulletin = `\d+` },
			wantErr: "patterns.bulletin",
		},
		{
			name:    "ops enabled without port",
			mutate:  func(c *Config) { c.Ops = OpsConfig{Enabled: true} },
			wantErr: "ops.port",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
