package models

import (
	"time"

	"github.com/google/uuid"
)

// ValueOpportunity is a priced selection where the model disagrees with the
// market enough to clear the value and confidence thresholds.
type ValueOpportunity struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	RunID             uuid.UUID  `db:"run_id" json:"run_id"`
	FixtureID         string     `db:"fixture_id" json:"fixture_id"`
	League            string     `db:"league" json:"league"`
	HomeTeam          string     `db:"home_team" json:"home_team"`
	AwayTeam          string     `db:"away_team" json:"away_team"`
	KickoffAt         time.Time  `db:"kickoff_at" json:"kickoff_at"`
	Market            MarketKind `db:"market" json:"market"`
	Selection         Selection  `db:"selection" json:"selection"`
	Line              *float64   `db:"line" json:"line,omitempty"`
	Bookmaker         string     `db:"bookmaker" json:"bookmaker"`
	Odds              float64    `db:"odds" json:"odds"`
	ModelProbability  float64    `db:"model_probability" json:"model_probability"`
	MarketProbability float64    `db:"market_probability" json:"market_probability"`
	MarketMargin      float64    `db:"market_margin" json:"market_margin"`
	Edge              float64    `db:"edge" json:"edge"`
	ValuePct          float64    `db:"value_pct" json:"value_pct"`
	ExpectedValue     float64    `db:"expected_value" json:"expected_value"`
	Confidence        float64    `db:"confidence" json:"confidence"`
	KellyFraction     float64    `db:"kelly_fraction" json:"kelly_fraction"`
	FractionalKelly   float64    `db:"fractional_kelly" json:"fractional_kelly"`
	BankrollPct       float64    `db:"bankroll_pct" json:"bankroll_pct"`
	RecommendedStake  float64    `db:"recommended_stake" json:"recommended_stake"`
	ModelVariant      string     `db:"model_variant" json:"model_variant"`
	DetectedAt        time.Time  `db:"detected_at" json:"detected_at"`
}

// LineValue returns the line or zero for markets without one
func (o *ValueOpportunity) LineValue() float64 {
	if o.Line == nil {
		return 0
	}
	return *o.Line
}
