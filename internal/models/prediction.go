package models

import (
	"fmt"
	"math"
	"time"
)

// PredictionTolerance is how far an incoming distribution may drift from 1
const PredictionTolerance = 0.02

// PredictionRequest asks a predictor for a fixture's outcome distribution.
// When ExcludedSeason is set the predictor must not use any result from it.
type PredictionRequest struct {
	FixtureID      string    `json:"fixture_id"`
	League         string    `json:"league"`
	HomeTeam       string    `json:"home_team"`
	AwayTeam       string    `json:"away_team"`
	AsOf           time.Time `json:"as_of"`
	ExcludedSeason string    `json:"excluded_season,omitempty"`
}

// Prediction is a home/draw/away distribution for one fixture
type Prediction struct {
	FixtureID    string  `json:"fixture_id"`
	HomeWin      float64 `json:"home_win" validate:"gte=0,lte=1"`
	Draw         float64 `json:"draw" validate:"gte=0,lte=1"`
	AwayWin      float64 `json:"away_win" validate:"gte=0,lte=1"`
	Confidence   float64 `json:"confidence" validate:"gte=0,lte=1"`
	Outcome      Outcome `json:"outcome"`
	ModelVariant string  `json:"model_variant"`
}

// NewPrediction builds a normalised prediction from raw probabilities.
// Confidence is the probability of the most likely outcome.
func NewPrediction(fixtureID string, home, draw, away float64, variant string) (*Prediction, error) {
	p := &Prediction{
		FixtureID:    fixtureID,
		HomeWin:      home,
		Draw:         draw,
		AwayWin:      away,
		ModelVariant: variant,
	}
	if err := p.Normalize(); err != nil {
		return nil, err
	}
	return p, nil
}

// Normalize validates the distribution, rescales it to sum to exactly one and
// derives the outcome and, when unset or outside (0,1], the confidence.
func (p *Prediction) Normalize() error {
	for _, v := range []float64{p.HomeWin, p.Draw, p.AwayWin} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: probability %v out of range", ErrMissingPrediction, v)
		}
	}
	sum := p.HomeWin + p.Draw + p.AwayWin
	if math.Abs(sum-1) > PredictionTolerance {
		return fmt.Errorf("%w: probabilities sum to %.4f", ErrMissingPrediction, sum)
	}
	p.HomeWin /= sum
	p.Draw /= sum
	p.AwayWin /= sum

	p.Outcome = OutcomeHome
	best := p.HomeWin
	if p.Draw > best {
		p.Outcome, best = OutcomeDraw, p.Draw
	}
	if p.AwayWin > best {
		p.Outcome, best = OutcomeAway, p.AwayWin
	}
	if math.IsNaN(p.Confidence) || p.Confidence <= 0 || p.Confidence > 1 {
		p.Confidence = best
	}
	return nil
}

// Probability returns the model probability of a moneyline selection
func (p *Prediction) Probability(s Selection) float64 {
	switch s {
	case SelectionHome:
		return p.HomeWin
	case SelectionDraw:
		return p.Draw
	case SelectionAway:
		return p.AwayWin
	default:
		return 0
	}
}
