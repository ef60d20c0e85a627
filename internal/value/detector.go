// Package value compares model probabilities with bookmaker prices and keeps
// the selections that clear the configured value and confidence thresholds.
package value

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/yourusername/value-tipster/internal/models"
	"github.com/yourusername/value-tipster/internal/odds"
)

// Confidence multipliers applied on top of the prediction's own confidence
var marketConfidence = map[models.MarketKind]float64{
	models.MarketMoneyline: 1.0,
	models.MarketTotal:     0.85,
	models.MarketSpread:    0.9,
}

const (
	otherMarketConfidence = 0.8
	drawConfidence        = 0.8
	confidencePlaces      = 3
)

// ExpectedValue returns the expected profit per unit staked
func ExpectedValue(p, odds float64) float64 {
	return p*(odds-1) - (1 - p)
}

// ValuePercentage returns (p*odds - 1) * 100
func ValuePercentage(p, odds float64) float64 {
	return (p*odds - 1) * 100
}

// Edge returns the model probability minus the market probability
func Edge(modelProbability, marketProbability float64) float64 {
	return modelProbability - marketProbability
}

// Confidence scales the prediction confidence by market and selection,
// clamped to [0,1] and rounded to three places.
func Confidence(base float64, market models.MarketKind, selection models.Selection) float64 {
	multiplier, ok := marketConfidence[market]
	if !ok {
		multiplier = otherMarketConfidence
	}
	c := base * multiplier
	if selection == models.SelectionDraw {
		c *= drawConfidence
	}
	c = clamp01(c)
	return decimal.NewFromFloat(c).Round(confidencePlaces).InexactFloat64()
}

// Detector evaluates quotes against predictions under a fixed policy
type Detector struct {
	policy        models.ValuePolicy
	probabilities ProbabilityModel
}

// NewDetector validates the policy and selects its probability model
func NewDetector(policy models.ValuePolicy) (*Detector, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid value policy: %w", err)
	}
	probabilities, err := NewProbabilityModel(policy.ProbabilityModel)
	if err != nil {
		return nil, err
	}
	return &Detector{policy: policy, probabilities: probabilities}, nil
}

// Policy returns the detector's policy
func (d *Detector) Policy() models.ValuePolicy {
	return d.policy
}

// ModelProbability derives the model's probability for a quoted selection.
// It returns false for selections the model cannot price.
func (d *Detector) ModelProbability(pred *models.Prediction, quote models.MarketQuote) (float64, bool) {
	switch quote.Market {
	case models.MarketMoneyline:
		switch quote.Selection {
		case models.SelectionHome, models.SelectionDraw, models.SelectionAway:
			return pred.Probability(quote.Selection), true
		}
	case models.MarketTotal:
		if quote.Line == nil {
			return 0, false
		}
		total := PredictedTotalGoals(pred)
		switch quote.Selection {
		case models.SelectionOver:
			return d.probabilities.OverProbability(total, *quote.Line), true
		case models.SelectionUnder:
			return d.probabilities.UnderProbability(total, *quote.Line), true
		}
	case models.MarketSpread:
		if quote.Line == nil {
			return 0, false
		}
		home, away := ExpectedGoals(pred)
		switch quote.Selection {
		case models.SelectionHome:
			return d.probabilities.HomeCoverProbability(home, away, *quote.Line), true
		case models.SelectionAway:
			return d.probabilities.AwayCoverProbability(home, away, *quote.Line), true
		}
	}
	return 0, false
}

// Assess computes the value figures of one quote without applying thresholds
func (d *Detector) Assess(fixture models.Fixture, pred *models.Prediction, quote models.MarketQuote) (models.ValueOpportunity, bool) {
	p, ok := d.ModelProbability(pred, quote)
	if !ok {
		return models.ValueOpportunity{}, false
	}

	opp := models.ValueOpportunity{
		FixtureID:         fixture.ID,
		League:            fixture.League,
		HomeTeam:          fixture.HomeTeam,
		AwayTeam:          fixture.AwayTeam,
		KickoffAt:         fixture.KickoffAt,
		Market:            quote.Market,
		Selection:         quote.Selection,
		Bookmaker:         quote.Bookmaker,
		Odds:              quote.Odds,
		ModelProbability:  p,
		MarketProbability: quote.ImpliedProbability,
		Edge:              Edge(p, quote.ImpliedProbability),
		ValuePct:          ValuePercentage(p, quote.Odds),
		ExpectedValue:     ExpectedValue(p, quote.Odds),
		Confidence:        Confidence(pred.Confidence, quote.Market, quote.Selection),
		ModelVariant:      pred.ModelVariant,
	}
	if quote.Line != nil {
		l := *quote.Line
		opp.Line = &l
	}
	return opp, true
}

// Qualifies applies the policy thresholds and filters to an assessed quote
func (d *Detector) Qualifies(opp models.ValueOpportunity) bool {
	if !d.policy.MarketEnabled(opp.Market) {
		return false
	}
	if d.policy.ExcludeDraws && opp.Selection == models.SelectionDraw {
		return false
	}
	if !d.policy.OddsInRange(opp.Odds) {
		return false
	}
	return opp.ValuePct >= d.policy.MinValueThreshold && opp.Confidence >= d.policy.MinConfidenceThreshold
}

// Evaluate returns the qualifying opportunities of one fixture, best first.
// When several bookmakers price the same selection only the best value is kept.
func (d *Detector) Evaluate(fixture models.Fixture, pred *models.Prediction, quotes []models.MarketQuote) []models.ValueOpportunity {
	if pred == nil || len(quotes) == 0 {
		return nil
	}

	margins := odds.Margins(quotes)
	best := make(map[selectionKey]models.ValueOpportunity)
	for _, q := range quotes {
		if q.FixtureID != "" && q.FixtureID != fixture.ID {
			continue
		}
		opp, ok := d.Assess(fixture, pred, q)
		if !ok || !d.Qualifies(opp) {
			continue
		}
		opp.MarketMargin = margins[odds.KeyOf(q)]

		key := selectionKey{market: opp.Market, selection: opp.Selection, line: opp.LineValue()}
		if current, exists := best[key]; exists && !ranksBefore(opp, current) {
			continue
		}
		best[key] = opp
	}

	opportunities := make([]models.ValueOpportunity, 0, len(best))
	for _, opp := range best {
		opportunities = append(opportunities, opp)
	}
	SortOpportunities(opportunities)
	return opportunities
}

type selectionKey struct {
	market    models.MarketKind
	selection models.Selection
	line      float64
}

// SortOpportunities orders by value desc, confidence desc, then by kickoff
// and identity so ties are deterministic.
func SortOpportunities(opps []models.ValueOpportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		return ranksBefore(opps[i], opps[j])
	})
}

func ranksBefore(a, b models.ValueOpportunity) bool {
	if a.ValuePct != b.ValuePct {
		return a.ValuePct > b.ValuePct
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if !a.KickoffAt.Equal(b.KickoffAt) {
		return a.KickoffAt.Before(b.KickoffAt)
	}
	if a.FixtureID != b.FixtureID {
		return a.FixtureID < b.FixtureID
	}
	if a.Market != b.Market {
		return a.Market < b.Market
	}
	if a.Selection != b.Selection {
		return a.Selection < b.Selection
	}
	if a.LineValue() != b.LineValue() {
		return a.LineValue() < b.LineValue()
	}
	return a.Bookmaker < b.Bookmaker
}
