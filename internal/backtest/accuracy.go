package backtest

import "github.com/yourusername/value-tipster/internal/models"

// AccuracyTracker counts predicted against actual outcomes for every
// replayed fixture, whether or not it was bet on.
type AccuracyTracker struct {
	replayed  int
	correct   int
	predicted map[models.Outcome]int
	actual    map[models.Outcome]int
	hits      map[models.Outcome]int
}

// NewAccuracyTracker creates an empty tracker
func NewAccuracyTracker() *AccuracyTracker {
	return &AccuracyTracker{
		predicted: make(map[models.Outcome]int),
		actual:    make(map[models.Outcome]int),
		hits:      make(map[models.Outcome]int),
	}
}

// Record adds one fixture
func (a *AccuracyTracker) Record(predicted, actual models.Outcome) {
	a.replayed++
	a.predicted[predicted]++
	a.actual[actual]++
	if predicted == actual {
		a.correct++
		a.hits[predicted]++
	}
}

// Metrics returns overall accuracy and per-outcome accuracy, where the
// per-outcome denominator is the number of times that outcome was predicted.
func (a *AccuracyTracker) Metrics() models.AccuracyMetrics {
	m := models.AccuracyMetrics{
		Replayed:  a.replayed,
		Correct:   a.correct,
		ByOutcome: make(map[models.Outcome]models.OutcomeAccuracy, len(models.Outcomes)),
	}
	if a.replayed > 0 {
		m.Overall = float64(a.correct) / float64(a.replayed)
	}

	for _, o := range models.Outcomes {
		oa := models.OutcomeAccuracy{
			Predicted: a.predicted[o],
			Actual:    a.actual[o],
			Correct:   a.hits[o],
		}
		if oa.Predicted > 0 {
			oa.Accuracy = float64(oa.Correct) / float64(oa.Predicted)
		}
		m.ByOutcome[o] = oa
	}
	return m
}
