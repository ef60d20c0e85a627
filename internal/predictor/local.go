package predictor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/yourusername/value-tipster/internal/logger"
	"github.com/yourusername/value-tipster/internal/models"
)

// LocalVariant identifies the in-process ratings model in reports
const LocalVariant = "poisson-ratings-v1"

// LocalPredictor fits a ratings model per league and held-out season from
// the historical store and serves predictions from it. Concurrent requests
// for the same untrained key share one training run.
type LocalPredictor struct {
	source    TrainingSource
	maxRows   int
	shrinkage float64
	logger    *logger.PredictorLogger

	mu     sync.RWMutex
	models map[string]*RatingsModel
	group  singleflight.Group
}

// NewLocalPredictor creates an in-process predictor. maxRows caps the
// training pool to the most recent played fixtures; zero means no cap.
func NewLocalPredictor(source TrainingSource, maxRows int, shrinkage float64, log *logrus.Logger) *LocalPredictor {
	return &LocalPredictor{
		source:    source,
		maxRows:   maxRows,
		shrinkage: shrinkage,
		logger:    logger.NewPredictorLogger(log),
		models:    make(map[string]*RatingsModel),
	}
}

// Variant returns the model variant name
func (p *LocalPredictor) Variant() string {
	return LocalVariant
}

// Prepare trains the model for a league with a season held out
func (p *LocalPredictor) Prepare(ctx context.Context, league, excludedSeason string) error {
	_, err := p.model(ctx, league, excludedSeason)
	return err
}

// Predict returns the outcome distribution for a fixture
func (p *LocalPredictor) Predict(ctx context.Context, req models.PredictionRequest) (*models.Prediction, error) {
	start := time.Now()
	defer func() {
		PredictionLatency.WithLabelValues("local").Observe(time.Since(start).Seconds())
	}()

	m, err := p.model(ctx, req.League, req.ExcludedSeason)
	if err != nil {
		PredictionErrorsTotal.WithLabelValues("local", "training").Inc()
		return nil, err
	}

	home, draw, away, err := m.OutcomeProbabilities(req.HomeTeam, req.AwayTeam)
	if err != nil {
		PredictionErrorsTotal.WithLabelValues("local", "unknown_team").Inc()
		p.logger.LogPredictionError(LocalVariant, req.FixtureID, err.Error())
		return nil, err
	}

	pred, err := models.NewPrediction(req.FixtureID, home, draw, away, LocalVariant)
	if err != nil {
		PredictionErrorsTotal.WithLabelValues("local", "invalid").Inc()
		return nil, err
	}

	PredictionsTotal.WithLabelValues("local", "false").Inc()
	p.logger.LogPrediction(LocalVariant, req.FixtureID, false, float64(time.Since(start).Microseconds())/1000)
	return pred, nil
}

// Reset drops every trained model so the next request refits from the store
func (p *LocalPredictor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.models = make(map[string]*RatingsModel)
}

func (p *LocalPredictor) model(ctx context.Context, league, excludedSeason string) (*RatingsModel, error) {
	key := trainingKey(league, excludedSeason)

	p.mu.RLock()
	m, ok := p.models[key]
	p.mu.RUnlock()
	if ok {
		return m, nil
	}

	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		p.mu.RLock()
		m, ok := p.models[key]
		p.mu.RUnlock()
		if ok {
			return m, nil
		}
		return p.train(ctx, key, league, excludedSeason)
	})
	if err != nil {
		return nil, err
	}
	return v.(*RatingsModel), nil
}

func (p *LocalPredictor) train(ctx context.Context, key, league, excludedSeason string) (*RatingsModel, error) {
	start := time.Now()

	fixtures, err := p.source.GetTrainingMatches(ctx, models.TrainingFilter(league, excludedSeason, p.maxRows))
	if err != nil {
		ModelTrainingsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("failed to load training matches: %w", err)
	}

	m, err := FitRatings(fixtures, p.shrinkage)
	if err != nil {
		ModelTrainingsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	p.mu.Lock()
	p.models[key] = m
	p.mu.Unlock()

	ModelTrainingsTotal.WithLabelValues("success").Inc()
	p.logger.LogModelTraining(LocalVariant, key, m.Matches, len(m.Teams), float64(time.Since(start).Milliseconds()))
	return m, nil
}

func trainingKey(league, excludedSeason string) string {
	return league + "|" + excludedSeason
}
