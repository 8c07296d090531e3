// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	DB        DBConfig        `mapstructure:"db"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Retention RetentionConfig `mapstructure:"retention"`
	Scores    ScoresConfig    `mapstructure:"scores"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DBConfig selects and configures the backing store.
type DBConfig struct {
	// Provider is "postgres" or "memory".
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
}

// FeedSource describes one scrapeable headline list.
type FeedSource struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	BaseURL  string `mapstructure:"base_url"`
	Category string `mapstructure:"category"`
	// ItemSelector matches one container element per headline, e.g. "article.Box-row".
	ItemSelector string `mapstructure:"item_selector"`
	// TitleSelector matches the headline anchor within the item; defaults to "a".
	TitleSelector string `mapstructure:"title_selector"`
	// SummarySelector optionally matches a teaser element within the item.
	SummarySelector string `mapstructure:"summary_selector"`
}

// CrawlerConfig governs the ingestion pipeline.
type CrawlerConfig struct {
	Sources        []FeedSource `mapstructure:"sources"`
	MaxItems       int          `mapstructure:"max_items"`
	Concurrency    int          `mapstructure:"concurrency"`
	UserAgent      string       `mapstructure:"user_agent"`
	TimeoutSeconds int          `mapstructure:"timeout_seconds"`
	SummaryLimit   int          `mapstructure:"summary_limit"`
}

// RetentionConfig governs the retention sweeper.
type RetentionConfig struct {
	WindowDays int `mapstructure:"window_days"`
	// At is the daily fire time for the recurring sweep, "HH:MM" wall clock.
	At string `mapstructure:"at"`
	// Mode is "delete" (hard removal) or "archive" (status transition).
	Mode string `mapstructure:"mode"`
}

// ScoresConfig sets the default item scores assigned at ingestion.
type ScoresConfig struct {
	Importance float64 `mapstructure:"importance"`
	Sentiment  float64 `mapstructure:"sentiment"`
}

// PubSubConfig holds metadata for run-completion event publishing.
type PubSubConfig struct {
	// Provider is "pubsub" or "noop".
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NEWSTIDE")
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
	v.SetDefault("logging.development", true)
	v.SetDefault("db.provider", "memory")
	v.SetDefault("crawler.max_items", 20)
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.user_agent", "newstide-bot/0.1")
	v.SetDefault("crawler.timeout_seconds", 15)
	v.SetDefault("crawler.summary_limit", 200)
	v.SetDefault("retention.window_days", 7)
	v.SetDefault("retention.at", "03:30")
	v.SetDefault("retention.mode", "delete")
	v.SetDefault("scores.importance", 0.6)
	v.SetDefault("scores.sentiment", 0.0)
	v.SetDefault("pubsub.provider", "noop")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.DB.Provider {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.provider is postgres")
		}
	default:
		return fmt.Errorf("unknown db.provider: %s", c.DB.Provider)
	}
	if c.Crawler.MaxItems <= 0 {
		return fmt.Errorf("crawler.max_items must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Crawler.SummaryLimit <= 0 {
		return fmt.Errorf("crawler.summary_limit must be > 0")
	}
	if c.Retention.WindowDays <= 0 {
		return fmt.Errorf("retention.window_days must be > 0")
	}
	if _, _, err := ParseTimeOfDay(c.Retention.At); err != nil {
		return fmt.Errorf("retention.at: %w", err)
	}
	if c.Retention.Mode != "delete" && c.Retention.Mode != "archive" {
		return fmt.Errorf("retention.mode must be delete or archive, got %q", c.Retention.Mode)
	}
	if c.Scores.Importance < 0 || c.Scores.Importance > 1 {
		return fmt.Errorf("scores.importance must be within [0,1]")
	}
	if c.Scores.Sentiment < -1 || c.Scores.Sentiment > 1 {
		return fmt.Errorf("scores.sentiment must be within [-1,1]")
	}
	if c.PubSub.Provider == "pubsub" && (c.PubSub.ProjectID == "" || c.PubSub.TopicID == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_id must be set when pubsub.provider is pubsub")
	}
	return nil
}

// FetchTimeout converts the crawler timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// ParseTimeOfDay parses an "HH:MM" wall-clock string into hour and minute.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
}
