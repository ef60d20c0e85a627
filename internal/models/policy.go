package models

import (
	"errors"
	"fmt"
)

// Probability models for total and spread markets
const (
	ProbabilityModelBucket  = "bucket"
	ProbabilityModelPoisson = "poisson"
)

// ValuePolicy is the immutable set of thresholds shared by the detector,
// the stake sizer and the backtest engine.
type ValuePolicy struct {
	MinValueThreshold      float64      `json:"min_value_threshold"`
	MinConfidenceThreshold float64      `json:"min_confidence_threshold"`
	Bankroll               float64      `json:"bankroll"`
	MaxStakePercentage     float64      `json:"max_stake_percentage"`
	KellyFraction          float64      `json:"kelly_fraction"`
	MarketsEnabled         []MarketKind `json:"markets_enabled"`
	MinOdds                float64      `json:"min_odds"`
	MaxOdds                float64      `json:"max_odds"`
	ExcludeDraws           bool         `json:"exclude_draws"`
	MinStake               float64      `json:"min_stake"`
	ProbabilityModel       string       `json:"probability_model"`
}

// DefaultValuePolicy returns the policy used when nothing is configured
func DefaultValuePolicy() ValuePolicy {
	return ValuePolicy{
		MinValueThreshold:      5.0,
		MinConfidenceThreshold: 0.6,
		Bankroll:               1000,
		MaxStakePercentage:     5.0,
		KellyFraction:          0.25,
		MarketsEnabled:         []MarketKind{MarketMoneyline, MarketTotal, MarketSpread},
		ProbabilityModel:       ProbabilityModelBucket,
	}
}

// MarketEnabled reports whether the market is in scope
func (p ValuePolicy) MarketEnabled(m MarketKind) bool {
	for _, enabled := range p.MarketsEnabled {
		if enabled == m {
			return true
		}
	}
	return false
}

// OddsInRange applies the optional min/max odds bounds; zero disables a bound
func (p ValuePolicy) OddsInRange(odds float64) bool {
	if p.MinOdds > 0 && odds < p.MinOdds {
		return false
	}
	if p.MaxOdds > 0 && odds > p.MaxOdds {
		return false
	}
	return true
}

// Validate checks policy bounds
func (p ValuePolicy) Validate() error {
	if p.Bankroll <= 0 {
		return errors.New("bankroll must be positive")
	}
	if p.KellyFraction <= 0 || p.KellyFraction > 1 {
		return fmt.Errorf("kelly fraction must be in (0,1], got %v", p.KellyFraction)
	}
	if p.MaxStakePercentage <= 0 || p.MaxStakePercentage > 100 {
		return fmt.Errorf("max stake percentage must be in (0,100], got %v", p.MaxStakePercentage)
	}
	if p.MinConfidenceThreshold < 0 || p.MinConfidenceThreshold > 1 {
		return fmt.Errorf("min confidence threshold must be in [0,1], got %v", p.MinConfidenceThreshold)
	}
	if p.MinOdds < 0 || p.MaxOdds < 0 {
		return errors.New("odds bounds must not be negative")
	}
	if p.MinOdds > 0 && p.MaxOdds > 0 && p.MinOdds > p.MaxOdds {
		return fmt.Errorf("min odds %v exceeds max odds %v", p.MinOdds, p.MaxOdds)
	}
	if p.MinStake < 0 {
		return errors.New("min stake must not be negative")
	}
	if len(p.MarketsEnabled) == 0 {
		return errors.New("at least one market must be enabled")
	}
	for _, m := range p.MarketsEnabled {
		if m != MarketMoneyline && m != MarketTotal && m != MarketSpread {
			return fmt.Errorf("unknown market %q", m)
		}
	}
	switch p.ProbabilityModel {
	case "", ProbabilityModelBucket, ProbabilityModelPoisson:
	default:
		return fmt.Errorf("unknown probability model %q", p.ProbabilityModel)
	}
	return nil
}
