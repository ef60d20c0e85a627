package backtest

import (
	"fmt"

	"github.com/yourusername/value-tipster/internal/config"
)

// Defaults for the setup checks
const (
	DefaultMinSeasonFixtures = 100
	DefaultMinTrainingRows   = 500
	DefaultDrawdownAlert     = 0.25
)

// Config holds the settings of a season-holdout backtest
type Config struct {
	League               string
	MinSeasonFixtures    int
	MinTrainingRows      int
	MaxBetsPerFixture    int
	MonteCarloIterations int
	MonteCarloSeed       int64
	RuinThreshold        float64
	DrawdownAlert        float64
	Concurrency          int
	OutputPath           string
	PersistReports       bool
}

// FromConfig converts app config to backtest config
func FromConfig(cfg *config.BacktestConfig) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("backtest config is required")
	}

	bt := Config{
		League:               cfg.League,
		MinSeasonFixtures:    cfg.MinSeasonFixtures,
		MinTrainingRows:      cfg.MinTrainingRows,
		MaxBetsPerFixture:    cfg.MaxBetsPerFixture,
		MonteCarloIterations: cfg.MonteCarloIterations,
		MonteCarloSeed:       cfg.MonteCarloSeed,
		RuinThreshold:        cfg.RuinThreshold,
		DrawdownAlert:        DefaultDrawdownAlert,
		Concurrency:          cfg.Concurrency,
		OutputPath:           cfg.OutputPath,
		PersistReports:       cfg.PersistReports,
	}

	return bt, bt.Validate()
}

// DefaultConfig returns the setup minimums with no optional analysis
func DefaultConfig() Config {
	return Config{
		MinSeasonFixtures: DefaultMinSeasonFixtures,
		MinTrainingRows:   DefaultMinTrainingRows,
		DrawdownAlert:     DefaultDrawdownAlert,
		Concurrency:       1,
	}
}

// Validate validates backtest config parameters
func (c Config) Validate() error {
	if c.MinSeasonFixtures < 0 {
		return fmt.Errorf("min season fixtures cannot be negative")
	}
	if c.MinTrainingRows < 0 {
		return fmt.Errorf("min training rows cannot be negative")
	}
	if c.MaxBetsPerFixture < 0 {
		return fmt.Errorf("max bets per fixture cannot be negative")
	}
	if c.MonteCarloIterations < 0 {
		return fmt.Errorf("monte carlo iterations cannot be negative")
	}
	if c.RuinThreshold < 0 || c.RuinThreshold >= 1 {
		return fmt.Errorf("ruin threshold must be in [0, 1)")
	}
	if c.DrawdownAlert < 0 || c.DrawdownAlert > 1 {
		return fmt.Errorf("drawdown alert must be in [0, 1]")
	}
	return nil
}
