// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig       `mapstructure:"server"`
	Auth      AuthConfig         `mapstructure:"auth"`
	Crawl     CrawlConfig        `mapstructure:"crawl"`
	Retry     ingest.RetryPolicy `mapstructure:"retry"`
	Render    RenderConfig       `mapstructure:"render"`
	Direct    DirectConfig       `mapstructure:"direct"`
	Blocklist ingest.FilterRules `mapstructure:"blocklist"`
	Database  DatabaseConfig     `mapstructure:"database"`
	Archive   ArchiveConfig      `mapstructure:"archive"`
	Notify    NotifyConfig       `mapstructure:"notify"`
	Logging   LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlConfig governs orchestrator and pagination behavior.
type CrawlConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	MaxPages       int           `mapstructure:"max_pages"`
	PageDelay      time.Duration `mapstructure:"page_delay"`
	CategoryDelay  time.Duration `mapstructure:"category_delay"`
	DiscoveryDepth int           `mapstructure:"discovery_depth"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// RenderConfig configures the headless rendering fetcher.
type RenderConfig struct {
	MaxTabs    int           `mapstructure:"max_tabs"`
	NavTimeout time.Duration `mapstructure:"nav_timeout"`
	NavQPS     float64       `mapstructure:"nav_qps"`
}

// DirectConfig configures the plain-HTTP fetcher.
type DirectConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig controls the catalog/run persistence backend.
type DatabaseConfig struct {
	// Provider selects the backend: "postgres" or "memory".
	Provider        string        `mapstructure:"provider"`
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// ArchiveConfig controls run-export object storage.
type ArchiveConfig struct {
	// Provider selects the backend: "local", "gcs", or "none".
	Provider  string `mapstructure:"provider"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// NotifyConfig holds metadata for run-completed notifications.
type NotifyConfig struct {
	// Provider selects the backend: "pubsub" or "none".
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GROCERY")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("crawl.concurrency", 2)
	v.SetDefault("crawl.max_pages", 0)
	v.SetDefault("crawl.page_delay", "1s")
	v.SetDefault("crawl.category_delay", "2s")
	v.SetDefault("crawl.discovery_depth", 2)
	v.SetDefault("crawl.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "500ms")
	v.SetDefault("retry.max_delay", "10s")
	v.SetDefault("render.max_tabs", 2)
	v.SetDefault("render.nav_timeout", "60s")
	v.SetDefault("render.nav_qps", 1.0)
	v.SetDefault("direct.timeout", "20s")
	v.SetDefault("database.provider", "memory")
	v.SetDefault("archive.provider", "none")
	v.SetDefault("archive.local_dir", "exports")
	v.SetDefault("notify.provider", "none")
	v.SetDefault("logging.development", true)

	defaults := ingest.DefaultFilterRules()
	v.SetDefault("blocklist.suffixes", defaults.Suffixes)
	v.SetDefault("blocklist.substrings", defaults.Substrings)
	v.SetDefault("blocklist.domains", defaults.Domains)
	v.SetDefault("blocklist.types", defaults.Types)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawl.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be > 0")
	}
	if c.Render.MaxTabs <= 0 {
		return fmt.Errorf("render.max_tabs must be > 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Database.Provider {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must be set when database.provider is postgres")
		}
	default:
		return fmt.Errorf("unknown database.provider %q", c.Database.Provider)
	}
	switch c.Archive.Provider {
	case "none":
	case "local":
		if c.Archive.LocalDir == "" {
			return fmt.Errorf("archive.local_dir must be set when archive.provider is local")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set when archive.provider is gcs")
		}
	default:
		return fmt.Errorf("unknown archive.provider %q", c.Archive.Provider)
	}
	switch c.Notify.Provider {
	case "none":
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.Topic == "" {
			return fmt.Errorf("notify.project_id and notify.topic must be set when notify.provider is pubsub")
		}
	default:
		return fmt.Errorf("unknown notify.provider %q", c.Notify.Provider)
	}
	return nil
}
