// Package config provides configuration management for the Value Tipster application.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "VALUE_TIPSTER"
	defaultConfigPath = "config/config.yaml"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	// Read the configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	applyDefaults(v)

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error: defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	applyDefaults(v)

	// Read and expand the configuration file if it exists
	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// ReloadFromEnv reloads the configuration from VALUE_TIPSTER_CONFIG_PATH when set
func ReloadFromEnv(cfg *Config) error {
	if envPath := os.Getenv(envPrefix + "_CONFIG_PATH"); envPath != "" {
		newCfg, err := Load(envPath)
		if err != nil {
			return err
		}
		*cfg = *newCfg
	}

	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// Environment variables override file values: VALUE_TIPSTER_VALUE_BANKROLL
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return v
}

// applyDefaults registers every optional key so that environment overrides
// also reach keys missing from the file.
func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "value-tipster")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "text")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/value-tipster.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("predictor.mode", "local")
	v.SetDefault("predictor.request_timeout_seconds", 10)
	v.SetDefault("predictor.retry_attempts", 3)
	v.SetDefault("predictor.rate_limit", 20.0)
	v.SetDefault("predictor.cache_enabled", true)
	v.SetDefault("predictor.cache_ttl_seconds", 900)
	v.SetDefault("predictor.cache_max_size", 10000)
	v.SetDefault("predictor.max_training_rows", 3000)
	v.SetDefault("predictor.shrinkage_matches", 5.0)
	v.SetDefault("predictor.breaker_max_failures", 5)
	v.SetDefault("predictor.breaker_window_seconds", 60)
	v.SetDefault("predictor.breaker_cooldown_seconds", 30)

	v.SetDefault("value.min_value_threshold", 5.0)
	v.SetDefault("value.min_confidence_threshold", 0.6)
	v.SetDefault("value.bankroll", 1000.0)
	v.SetDefault("value.max_stake_percentage", 5.0)
	v.SetDefault("value.kelly_fraction", 0.25)
	v.SetDefault("value.markets_enabled", []string{"moneyline", "total", "spread"})
	v.SetDefault("value.min_odds", 0.0)
	v.SetDefault("value.max_odds", 0.0)
	v.SetDefault("value.exclude_draws", false)
	v.SetDefault("value.min_stake", 0.0)
	v.SetDefault("value.probability_model", "bucket")

	v.SetDefault("backtest.min_season_fixtures", 100)
	v.SetDefault("backtest.min_training_rows", 500)
	v.SetDefault("backtest.max_bets_per_fixture", 0)
	v.SetDefault("backtest.monte_carlo_iterations", 0)
	v.SetDefault("backtest.monte_carlo_seed", 42)
	v.SetDefault("backtest.ruin_threshold", 0.2)
	v.SetDefault("backtest.concurrency", 2)
	v.SetDefault("backtest.output_path", "output/backtests")
	v.SetDefault("backtest.persist_reports", true)

	v.SetDefault("scan.schedule", "*/15 * * * *")
	v.SetDefault("scan.reset_schedule", "0 6 * * *")
	v.SetDefault("scan.lookahead_hours", 72)
	v.SetDefault("scan.workers", 8)
	v.SetDefault("scan.max_results", 20)
	v.SetDefault("scan.timeout_seconds", 120)
	v.SetDefault("scan.persist", true)

	v.SetDefault("feed.redis_enabled", false)
	v.SetDefault("feed.stream_name", "opportunities.detected.football")
	v.SetDefault("feed.stream_max_len", 10000)
	v.SetDefault("feed.websocket_path", "/ws/opportunities")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("health.port", 8080)
}
