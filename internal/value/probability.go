package value

import (
	"fmt"
	"math"

	"github.com/yourusername/value-tipster/internal/models"
)

// Goal baselines used to derive total and spread probabilities from a
// home/draw/away prediction.
const (
	HomeGoalBaseline     = 1.5
	AwayGoalBaseline     = 1.3
	ConfidenceGoalWeight = 0.5
	FavouriteGoalBonus   = 0.5
)

// Bucket probabilities for the fixed-constant policy
const (
	overLikely      = 0.65
	overUnlikely    = 0.35
	overUndecided   = 0.50
	overMargin      = 0.5
	spreadFavoured  = 0.6
	spreadOpposed   = 0.4
	poissonMaxGoals = 15
)

// PredictedTotalGoals estimates match goals from the prediction's confidence
func PredictedTotalGoals(pred *models.Prediction) float64 {
	return HomeGoalBaseline + AwayGoalBaseline + pred.Confidence*ConfidenceGoalWeight
}

// ExpectedGoals returns per-side goal estimates, giving the predicted winner
// a fixed bonus.
func ExpectedGoals(pred *models.Prediction) (home, away float64) {
	home, away = HomeGoalBaseline, AwayGoalBaseline
	switch pred.Outcome {
	case models.OutcomeHome:
		home += FavouriteGoalBonus
	case models.OutcomeAway:
		away += FavouriteGoalBonus
	}
	return home, away
}

// ProbabilityModel maps goal estimates onto total and spread selections.
// Spread lines are handicaps applied to the home side.
type ProbabilityModel interface {
	Name() string
	OverProbability(expectedTotal, line float64) float64
	UnderProbability(expectedTotal, line float64) float64
	HomeCoverProbability(expectedHome, expectedAway, line float64) float64
	AwayCoverProbability(expectedHome, expectedAway, line float64) float64
}

// NewProbabilityModel returns the model registered under name
func NewProbabilityModel(name string) (ProbabilityModel, error) {
	switch name {
	case "", models.ProbabilityModelBucket:
		return BucketModel{}, nil
	case models.ProbabilityModelPoisson:
		return PoissonModel{MaxGoals: poissonMaxGoals}, nil
	default:
		return nil, fmt.Errorf("unknown probability model %q", name)
	}
}

// BucketModel uses fixed empirical constants. It is a placeholder rather
// than a calibrated model.
type BucketModel struct{}

func (BucketModel) Name() string { return models.ProbabilityModelBucket }

func (BucketModel) OverProbability(expectedTotal, line float64) float64 {
	switch {
	case expectedTotal > line:
		return overLikely
	case expectedTotal < line-overMargin:
		return overUnlikely
	default:
		return overUndecided
	}
}

func (m BucketModel) UnderProbability(expectedTotal, line float64) float64 {
	return 1 - m.OverProbability(expectedTotal, line)
}

func (BucketModel) HomeCoverProbability(expectedHome, expectedAway, line float64) float64 {
	if expectedHome-expectedAway+line > 0 {
		return spreadFavoured
	}
	return spreadOpposed
}

func (BucketModel) AwayCoverProbability(expectedHome, expectedAway, line float64) float64 {
	if expectedHome-expectedAway+line < 0 {
		return spreadFavoured
	}
	return spreadOpposed
}

// PoissonModel treats each side's goals as independent Poisson variables.
// Integer lines leave the push mass out of both selections.
type PoissonModel struct {
	MaxGoals int
}

func (PoissonModel) Name() string { return models.ProbabilityModelPoisson }

func (m PoissonModel) OverProbability(expectedTotal, line float64) float64 {
	// P(N > line) = 1 - P(N <= floor(line))
	return clamp01(1 - poissonCDF(int(math.Floor(line)), expectedTotal))
}

func (m PoissonModel) UnderProbability(expectedTotal, line float64) float64 {
	// P(N < line) = P(N <= ceil(line)-1)
	return clamp01(poissonCDF(int(math.Ceil(line))-1, expectedTotal))
}

func (m PoissonModel) HomeCoverProbability(expectedHome, expectedAway, line float64) float64 {
	return m.coverProbability(expectedHome, expectedAway, func(diff int) bool {
		return float64(diff)+line > 0
	})
}

func (m PoissonModel) AwayCoverProbability(expectedHome, expectedAway, line float64) float64 {
	return m.coverProbability(expectedHome, expectedAway, func(diff int) bool {
		return float64(diff)+line < 0
	})
}

func (m PoissonModel) coverProbability(lambdaHome, lambdaAway float64, covers func(diff int) bool) float64 {
	maxGoals := m.MaxGoals
	if maxGoals <= 0 {
		maxGoals = poissonMaxGoals
	}
	p := 0.0
	for h := 0; h <= maxGoals; h++ {
		ph := poissonPMF(h, lambdaHome)
		for a := 0; a <= maxGoals; a++ {
			if covers(h - a) {
				p += ph * poissonPMF(a, lambdaAway)
			}
		}
	}
	return clamp01(p)
}

func poissonPMF(k int, lambda float64) float64 {
	if k < 0 || lambda <= 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	lg, _ := math.Lgamma(float64(k + 1))
	return math.Exp(float64(k)*math.Log(lambda) - lambda - lg)
}

func poissonCDF(k int, lambda float64) float64 {
	if k < 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i <= k; i++ {
		sum += poissonPMF(i, lambda)
	}
	return sum
}

// clamp01 maps NaN to zero
func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
