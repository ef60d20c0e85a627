// Package staking sizes bets with a capped fractional Kelly criterion.
package staking

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/yourusername/value-tipster/internal/models"
)

// Stake is the outcome of sizing one bet
type Stake struct {
	Kelly       float64 `json:"kelly"`
	Fractional  float64 `json:"fractional"`
	BankrollPct float64 `json:"bankroll_pct"`
	Amount      float64 `json:"amount"`
}

// Sizer applies fractional Kelly with a hard cap on the bankroll share
type Sizer struct {
	kellyFraction float64
	maxStake      float64
	minStake      float64
}

// NewSizer builds a sizer from the policy's kelly fraction, stake cap and
// minimum stake.
func NewSizer(policy models.ValuePolicy) (*Sizer, error) {
	if policy.KellyFraction <= 0 || policy.KellyFraction > 1 {
		return nil, fmt.Errorf("kelly fraction must be in (0,1], got %v", policy.KellyFraction)
	}
	if policy.MaxStakePercentage <= 0 || policy.MaxStakePercentage > 100 {
		return nil, fmt.Errorf("max stake percentage must be in (0,100], got %v", policy.MaxStakePercentage)
	}
	if policy.MinStake < 0 {
		return nil, fmt.Errorf("min stake must not be negative, got %v", policy.MinStake)
	}
	return &Sizer{
		kellyFraction: policy.KellyFraction,
		maxStake:      policy.MaxStakePercentage / 100,
		minStake:      policy.MinStake,
	}, nil
}

// Size computes the stake for probability p at decimal odds against the
// bankroll. Kelly is clamped to [0, max stake] before the fraction is
// applied and the amount is rounded to cents, never above bankroll times the
// max stake. Odds of exactly 1.0 return
// models.ErrDegenerateKelly with a zero stake.
func (s *Sizer) Size(p, odds, bankroll float64) (Stake, error) {
	b := odds - 1
	if b == 0 {
		return Stake{}, models.ErrDegenerateKelly
	}
	if b < 0 {
		return Stake{}, &models.InvalidOddsError{Raw: fmt.Sprintf("%v", odds), Reason: "decimal odds below 1.0"}
	}
	if bankroll <= 0 || p <= 0 {
		return Stake{}, nil
	}

	q := 1 - p
	kelly := (b*p - q) / b
	if kelly <= 0 {
		return Stake{}, nil
	}
	if kelly > s.maxStake {
		kelly = s.maxStake
	}

	fractional := kelly * s.kellyFraction
	stakeCap := decimal.NewFromFloat(bankroll).Mul(decimal.NewFromFloat(s.maxStake))
	amount := decimal.NewFromFloat(bankroll).Mul(decimal.NewFromFloat(fractional)).Round(2)
	if amount.GreaterThan(stakeCap) {
		amount = stakeCap.RoundFloor(2)
	}
	if amount.LessThan(decimal.NewFromFloat(s.minStake)) {
		return Stake{Kelly: kelly, Fractional: fractional}, nil
	}

	return Stake{
		Kelly:       kelly,
		Fractional:  fractional,
		BankrollPct: fractional * 100,
		Amount:      amount.InexactFloat64(),
	}, nil
}

// Apply sizes an opportunity in place against the given bankroll
func (s *Sizer) Apply(opp *models.ValueOpportunity, bankroll float64) error {
	stake, err := s.Size(opp.ModelProbability, opp.Odds, bankroll)
	if err != nil {
		return err
	}
	opp.KellyFraction = stake.Kelly
	opp.FractionalKelly = stake.Fractional
	opp.BankrollPct = stake.BankrollPct
	opp.RecommendedStake = stake.Amount
	return nil
}
