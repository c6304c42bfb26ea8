// Package config loads and validates watcher configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/uwasa-watch/uwasa/internal/extract"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Feed      FeedConfig      `mapstructure:"feed"`
	Discord   DiscordConfig   `mapstructure:"discord"`
	Cursor    CursorConfig    `mapstructure:"cursor"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Patterns  PatternsConfig  `mapstructure:"patterns"`
	Ops       OpsConfig       `mapstructure:"ops"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// FeedConfig addresses the announcement feed and its mirrors.
type FeedConfig struct {
	// Origins are equivalent mirror base URLs, raced on every fetch.
	Origins   []string `mapstructure:"origins"`
	Path      string   `mapstructure:"path"`
	UserAgent string   `mapstructure:"user_agent"`
	TimeoutMs int      `mapstructure:"timeout_ms"`
}

// Timeout converts the per-request budget to a duration.
func (f FeedConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutMs) * time.Millisecond
}

// DiscordConfig holds the outbound webhook and branding constants.
type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Username   string `mapstructure:"username"`
	AvatarURL  string `mapstructure:"avatar_url"`
}

// CursorConfig selects and parameterizes the cursor backend.
type CursorConfig struct {
	Provider string `mapstructure:"provider"`
	// Last and Etag are the values of the previously committed cursor,
	// injected by the invoking environment.
	Last   string             `mapstructure:"last"`
	Etag   string             `mapstructure:"etag"`
	GitHub GitHubCursorConfig `mapstructure:"github"`
}

// GitHubCursorConfig addresses the repository-variables backend.
type GitHubCursorConfig struct {
	APIURL       string `mapstructure:"api_url"`
	Repository   string `mapstructure:"repository"`
	Token        string `mapstructure:"token"`
	LastVar      string `mapstructure:"last_var"`
	ValidatorVar string `mapstructure:"validator_var"`
}

// ArchiveConfig selects and parameterizes the raw-item archive backend.
type ArchiveConfig struct {
	Provider string                `mapstructure:"provider"`
	Local    LocalArchiveConfig    `mapstructure:"local"`
	GCS      GCSArchiveConfig      `mapstructure:"gcs"`
	Postgres PostgresArchiveConfig `mapstructure:"postgres"`
}

// LocalArchiveConfig sets the filesystem archive root.
type LocalArchiveConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// GCSArchiveConfig sets the bucket for blob archival.
type GCSArchiveConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// PostgresArchiveConfig controls the Postgres archive pool.
type PostgresArchiveConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PublisherConfig selects the run-event broker.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// PatternsConfig carries the locale extraction patterns. Empty values
// fall back to the package defaults in internal/extract.
type PatternsConfig struct {
	Maintenance string `mapstructure:"maintenance"`
	AppVersion  string `mapstructure:"app_version"`
	Bulletin    string `mapstructure:"bulletin"`
}

// OpsConfig controls the optional health/metrics HTTP surface.
type OpsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("UWASA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.origins", []string{})
	v.SetDefault("feed.path", "announcements.json")
	v.SetDefault("feed.user_agent", "UoSM")
	v.SetDefault("feed.timeout_ms", 9999)
	v.SetDefault("discord.webhook_url", "")
	v.SetDefault("discord.username", "")
	v.SetDefault("discord.avatar_url", "")
	v.SetDefault("cursor.provider", "github")
	v.SetDefault("cursor.last", "")
	v.SetDefault("cursor.etag", "")
	v.SetDefault("cursor.github.api_url", "https://api.github.com")
	v.SetDefault("cursor.github.repository", "")
	v.SetDefault("cursor.github.token", "")
	v.SetDefault("cursor.github.last_var", "LAST")
	v.SetDefault("cursor.github.validator_var", "ETAG")
	v.SetDefault("archive.provider", "local")
	v.SetDefault("archive.local.base_dir", "data")
	v.SetDefault("archive.gcs.prefix", "")
	v.SetDefault("archive.postgres.table", "announcements")
	v.SetDefault("publisher.provider", "noop")
	v.SetDefault("patterns.maintenance", extract.DefaultMaintenancePattern)
	v.SetDefault("patterns.app_version", extract.DefaultAppVersionPattern)
	v.SetDefault("patterns.bulletin", extract.DefaultBulletinPattern)
	v.SetDefault("ops.enabled", false)
	v.SetDefault("ops.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if len(c.Feed.Origins) == 0 {
		return fmt.Errorf("feed.origins must list at least one origin")
	}
	if c.Feed.TimeoutMs <= 0 {
		return fmt.Errorf("feed.timeout_ms must be > 0")
	}
	if c.Discord.WebhookURL == "" {
		return fmt.Errorf("discord.webhook_url must be set")
	}
	switch c.Cursor.Provider {
	case "github":
		if c.Cursor.GitHub.Repository == "" || c.Cursor.GitHub.Token == "" {
			return fmt.Errorf("cursor.github.repository and cursor.github.token must be set when cursor provider is github")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown cursor provider: %s", c.Cursor.Provider)
	}
	switch c.Archive.Provider {
	case "local", "gcs", "postgres", "noop":
	default:
		return fmt.Errorf("unknown archive provider: %s", c.Archive.Provider)
	}
	if c.Archive.Provider == "gcs" && c.Archive.GCS.Bucket == "" {
		return fmt.Errorf("archive.gcs.bucket must be set when archive provider is gcs")
	}
	if c.Archive.Provider == "postgres" && c.Archive.Postgres.DSN == "" {
		return fmt.Errorf("archive.postgres.dsn must be set when archive provider is postgres")
	}
	switch c.Publisher.Provider {
	case "pubsub":
		if c.Publisher.ProjectID == "" || c.Publisher.TopicID == "" {
			return fmt.Errorf("publisher.project_id and publisher.topic_id must be set when publisher is pubsub")
		}
	case "noop":
	default:
		return fmt.Errorf("unknown publisher provider: %s", c.Publisher.Provider)
	}
	for name, expr := range map[string]string{
		"patterns.maintenance": c.Patterns.Maintenance,
		"patterns.app_version": c.Patterns.AppVersion,
		"patterns.bulletin":    c.Patterns.Bulletin,
	} {
		if _, err := extract.Compile(expr); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Ops.Enabled && c.Ops.Port <= 0 {
		return fmt.Errorf("ops.port must be > 0 when ops is enabled")
	}
	return nil
}
