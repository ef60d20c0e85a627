// Package predictor supplies home/draw/away outcome distributions for
// fixtures, either from an in-process ratings model or from a remote
// prediction service.
package predictor

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/value-tipster/internal/models"
)

var (
	// ErrPredictorUnavailable indicates the prediction service could not be reached
	ErrPredictorUnavailable = errors.New("predictor unavailable")

	// ErrInvalidResponse indicates the prediction service returned a malformed
	// payload. It unwraps to models.ErrMissingPrediction so callers skip the fixture.
	ErrInvalidResponse = fmt.Errorf("invalid response from predictor: %w", models.ErrMissingPrediction)
)

// Predictor produces an outcome distribution for one fixture.
// It returns an error wrapping models.ErrMissingPrediction when it has no
// opinion about the fixture, for example an unknown team.
type Predictor interface {
	Predict(ctx context.Context, req models.PredictionRequest) (*models.Prediction, error)
	Variant() string
}

// Preparer is implemented by predictors that must be trained before use.
// The backtest engine calls Prepare once per season with the held-out season.
type Preparer interface {
	Prepare(ctx context.Context, league, excludedSeason string) error
}

// TrainingSource provides played fixtures for model training
type TrainingSource interface {
	GetTrainingMatches(ctx context.Context, filter models.FixtureFilter) ([]models.Fixture, error)
}

// Closer is implemented by predictors holding network resources
type Closer interface {
	Close() error
}

// Close releases resources held by p, if any
func Close(p Predictor) error {
	if c, ok := p.(Closer); ok {
		return c.Close()
	}
	return nil
}
