package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load builds a Config from disk/environment. Environment variables use
// the PRICEWATCH prefix, e.g. PRICEWATCH_HTTP_TIMEOUT_SECONDS=30.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("pricewatch")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pricewatch/")
		v.AddConfigPath("$HOME/.pricewatch")
		// Missing config file is fine; defaults and env still apply.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
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
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.retry_count", 3)
	v.SetDefault("http.backoff_ms", 700)
	v.SetDefault("fetch.rotate_user_agents", true)
	v.SetDefault("diff.price_threshold_pct", 1.0)
	v.SetDefault("diff.alert_on_availability", true)
	v.SetDefault("schedule.every_minutes", 30)
	v.SetDefault("schedule.jitter_seconds", 0)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime_minutes", 30)
	v.SetDefault("db.snapshot_cache", 128)
}
