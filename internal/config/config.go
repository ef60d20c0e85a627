// Package config loads value-tipster settings from YAML, VALUE_TIPSTER_
// environment variables and an optional AWS Secrets Manager overlay.
package config

import (
	"fmt"
	"time"

	"github.com/yourusername/value-tipster/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Predictor PredictorConfig `mapstructure:"predictor" validate:"required"`
	Value     ValueConfig     `mapstructure:"value" validate:"required"`
	Backtest  BacktestConfig  `mapstructure:"backtest" validate:"required"`
	Scan      ScanConfig      `mapstructure:"scan" validate:"required"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Metrics   MetricsConfig   `mapstructure:"metrics" validate:"required"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
	LogFormat   string `mapstructure:"log_format" validate:"omitempty,oneof=text json"`
}

// DatabaseConfig represents historical store configuration. The sqlite
// driver only needs Path; postgres needs the connection fields.
type DatabaseConfig struct {
	Driver             string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	Host               string `mapstructure:"host" validate:"required_if=Driver postgres"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required_if=Driver postgres"`
	User               string `mapstructure:"user" validate:"required_if=Driver postgres"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"omitempty,gt=0"`
	Path               string `mapstructure:"path" validate:"required_if=Driver sqlite"`
}

// PredictorConfig selects and tunes the outcome predictor
type PredictorConfig struct {
	Mode                  string  `mapstructure:"mode" validate:"required,oneof=local grpc http"`
	GRPCAddress           string  `mapstructure:"grpc_address"`
	HTTPAddress           string  `mapstructure:"http_address"`
	APIKey                string  `mapstructure:"api_key"`
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds" validate:"required,gt=0"`
	RetryAttempts         int     `mapstructure:"retry_attempts" validate:"gte=0"`
	RateLimit             float64 `mapstructure:"rate_limit" validate:"gte=0"`
	CacheEnabled          bool    `mapstructure:"cache_enabled"`
	CacheTTLSeconds       int     `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	CacheMaxSize          int     `mapstructure:"cache_max_size" validate:"gte=0"`
	MaxTrainingRows       int     `mapstructure:"max_training_rows" validate:"gte=0"`
	ShrinkageMatches      float64 `mapstructure:"shrinkage_matches" validate:"gte=0"`
	// Circuit breaker around remote predictors; zero failures disables it
	BreakerMaxFailures     int `mapstructure:"breaker_max_failures" validate:"gte=0"`
	BreakerWindowSeconds   int `mapstructure:"breaker_window_seconds" validate:"gte=0"`
	BreakerCooldownSeconds int `mapstructure:"breaker_cooldown_seconds" validate:"gte=0"`
}

// ValueConfig holds the value detection and staking policy
type ValueConfig struct {
	MinValueThreshold      float64  `mapstructure:"min_value_threshold" validate:"gte=0"`
	MinConfidenceThreshold float64  `mapstructure:"min_confidence_threshold" validate:"gte=0,lte=1"`
	Bankroll               float64  `mapstructure:"bankroll" validate:"required,gt=0"`
	MaxStakePercentage     float64  `mapstructure:"max_stake_percentage" validate:"required,gt=0,lte=100"`
	KellyFraction          float64  `mapstructure:"kelly_fraction" validate:"required,gt=0,lte=1"`
	MarketsEnabled         []string `mapstructure:"markets_enabled" validate:"required,min=1,markets"`
	MinOdds                float64  `mapstructure:"min_odds" validate:"gte=0"`
	MaxOdds                float64  `mapstructure:"max_odds" validate:"gte=0"`
	ExcludeDraws           bool     `mapstructure:"exclude_draws"`
	MinStake               float64  `mapstructure:"min_stake" validate:"gte=0"`
	ProbabilityModel       string   `mapstructure:"probability_model" validate:"omitempty,probmodel"`
}

// BacktestConfig represents season-holdout backtesting configuration
type BacktestConfig struct {
	Season               string   `mapstructure:"season" validate:"omitempty,season"`
	Seasons              []string `mapstructure:"seasons" validate:"omitempty,dive,season"`
	League               string   `mapstructure:"league"`
	MinSeasonFixtures    int      `mapstructure:"min_season_fixtures" validate:"gte=0"`
	MinTrainingRows      int      `mapstructure:"min_training_rows" validate:"gte=0"`
	MaxBetsPerFixture    int      `mapstructure:"max_bets_per_fixture" validate:"gte=0"`
	MonteCarloIterations int      `mapstructure:"monte_carlo_iterations" validate:"gte=0"`
	MonteCarloSeed       int64    `mapstructure:"monte_carlo_seed"`
	RuinThreshold        float64  `mapstructure:"ruin_threshold" validate:"gte=0,lt=1"`
	Concurrency          int      `mapstructure:"concurrency" validate:"gte=0"`
	OutputPath           string   `mapstructure:"output_path"`
	PersistReports       bool     `mapstructure:"persist_reports"`
}

// ScanConfig represents the live opportunity scan
type ScanConfig struct {
	Schedule       string `mapstructure:"schedule"`
	ResetSchedule  string `mapstructure:"reset_schedule"`
	LookaheadHours int    `mapstructure:"lookahead_hours" validate:"required,gt=0"`
	League         string `mapstructure:"league"`
	Workers        int    `mapstructure:"workers" validate:"required,gt=0"`
	MaxResults     int    `mapstructure:"max_results" validate:"required,gt=0"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	Persist        bool   `mapstructure:"persist"`
}

// FeedConfig configures where scan results are published
type FeedConfig struct {
	RedisEnabled   bool     `mapstructure:"redis_enabled"`
	RedisAddress   string   `mapstructure:"redis_address" validate:"required_if=RedisEnabled true"`
	RedisPassword  string   `mapstructure:"redis_password"`
	RedisDB        int      `mapstructure:"redis_db" validate:"gte=0"`
	StreamName     string   `mapstructure:"stream_name"`
	StreamMaxLen   int64    `mapstructure:"stream_max_len" validate:"gte=0"`
	WebsocketPath  string   `mapstructure:"websocket_path"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// HealthConfig represents the health/readiness server
type HealthConfig struct {
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Policy converts the value section into the immutable policy record
func (v ValueConfig) Policy() models.ValuePolicy {
	markets := make([]models.MarketKind, 0, len(v.MarketsEnabled))
	for _, m := range v.MarketsEnabled {
		markets = append(markets, models.MarketKind(m))
	}
	probabilityModel := v.ProbabilityModel
	if probabilityModel == "" {
		probabilityModel = models.ProbabilityModelBucket
	}
	return models.ValuePolicy{
		MinValueThreshold:      v.MinValueThreshold,
		MinConfidenceThreshold: v.MinConfidenceThreshold,
		Bankroll:               v.Bankroll,
		MaxStakePercentage:     v.MaxStakePercentage,
		KellyFraction:          v.KellyFraction,
		MarketsEnabled:         markets,
		MinOdds:                v.MinOdds,
		MaxOdds:                v.MaxOdds,
		ExcludeDraws:           v.ExcludeDraws,
		MinStake:               v.MinStake,
		ProbabilityModel:       probabilityModel,
	}
}

// RequestTimeout returns the predictor request timeout
func (p PredictorConfig) RequestTimeout() time.Duration {
	return time.Duration(p.RequestTimeoutSeconds) * time.Second
}

// CacheTTL returns the prediction cache TTL
func (p PredictorConfig) CacheTTL() time.Duration {
	return time.Duration(p.CacheTTLSeconds) * time.Second
}

// BreakerWindow returns the window in which predictor failures are counted
func (p PredictorConfig) BreakerWindow() time.Duration {
	return time.Duration(p.BreakerWindowSeconds) * time.Second
}

// BreakerCooldown returns how long an open breaker rejects calls
func (p PredictorConfig) BreakerCooldown() time.Duration {
	return time.Duration(p.BreakerCooldownSeconds) * time.Second
}

// Timeout returns the scan deadline
func (s ScanConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Lookahead returns how far ahead upcoming fixtures are scanned
func (s ScanConfig) Lookahead() time.Duration {
	return time.Duration(s.LookaheadHours) * time.Hour
}

// SeasonsToRun returns the configured seasons, preferring the list form
func (b BacktestConfig) SeasonsToRun() []string {
	if len(b.Seasons) > 0 {
		return b.Seasons
	}
	if b.Season != "" {
		return []string{b.Season}
	}
	return nil
}
