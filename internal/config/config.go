// Package config loads and validates tracker configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Diff     DiffConfig     `mapstructure:"diff"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	DB       DBConfig       `mapstructure:"db"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Targets  []string       `mapstructure:"targets"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// HTTPConfig configures fetch retry behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	RetryCount     int `mapstructure:"retry_count"`
	BackoffMs      int `mapstructure:"backoff_ms"`
}

// FetchConfig governs request shaping for tracked pages.
type FetchConfig struct {
	DefaultUserAgent string `mapstructure:"default_user_agent"`
	RotateUserAgents bool   `mapstructure:"rotate_user_agents"`
	Proxy            string `mapstructure:"proxy"`
}

// DiffConfig controls change detection sensitivity.
type DiffConfig struct {
	PriceThresholdPct   float64 `mapstructure:"price_threshold_pct"`
	AlertOnAvailability bool    `mapstructure:"alert_on_availability"`
}

// ScheduleConfig selects one recurrence form for the daemon. Exactly one
// of EveryMinutes, Cron or DailyAt must be set.
type ScheduleConfig struct {
	EveryMinutes  int    `mapstructure:"every_minutes"`
	JitterSeconds int    `mapstructure:"jitter_seconds"`
	Cron          string `mapstructure:"cron"`
	DailyAt       string `mapstructure:"daily_at"`
}

// DBConfig controls access to the relational database. An empty DSN keeps
// snapshots in process memory.
type DBConfig struct {
	DSN                string `mapstructure:"dsn"`
	MaxConns           int32  `mapstructure:"max_conns"`
	MinConns           int32  `mapstructure:"min_conns"`
	MaxConnLifetimeMin int    `mapstructure:"max_conn_lifetime_minutes"`
	SnapshotCache      int    `mapstructure:"snapshot_cache"`
}

// TelegramConfig holds bot credentials for alert delivery.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID string `mapstructure:"chat_id"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ArchiveConfig selects where raw changed-page bodies are archived. An
// empty config disables archiving.
type ArchiveConfig struct {
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.RetryCount <= 0 {
		return fmt.Errorf("http.retry_count must be > 0")
	}
	if c.Diff.PriceThresholdPct < 0 {
		return fmt.Errorf("diff.price_threshold_pct must be >= 0")
	}
	if c.Schedule.JitterSeconds < 0 {
		return fmt.Errorf("schedule.jitter_seconds must be >= 0")
	}
	forms := 0
	if c.Schedule.EveryMinutes > 0 {
		forms++
	}
	if strings.TrimSpace(c.Schedule.Cron) != "" {
		forms++
	}
	if strings.TrimSpace(c.Schedule.DailyAt) != "" {
		forms++
	}
	if forms > 1 {
		return fmt.Errorf("schedule: set only one of every_minutes, cron, daily_at")
	}
	return nil
}

// FetchTimeout converts the HTTP timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// BackoffBase converts the HTTP backoff config into a duration.
func (c Config) BackoffBase() time.Duration {
	return time.Duration(c.HTTP.BackoffMs) * time.Millisecond
}
