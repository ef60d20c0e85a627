// Package logger provides predictor logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// PredictorLogger provides dedicated logging for outcome predictors.
type PredictorLogger struct {
	*logrus.Entry
}

// NewPredictorLogger creates a new predictor logger.
func NewPredictorLogger(baseLogger *logrus.Logger) *PredictorLogger {
	return &PredictorLogger{
		Entry: baseLogger.WithField("component", "predictor"),
	}
}

// LogPrediction logs a completed prediction request.
func (pl *PredictorLogger) LogPrediction(variant, fixtureID string, cacheHit bool, latencyMs float64) {
	pl.WithFields(logrus.Fields{
		"model_variant": variant,
		"fixture_id":    fixtureID,
		"cache_hit":     cacheHit,
		"latency_ms":    latencyMs,
	}).Debug("Prediction completed")
}

// LogModelTraining logs an in-process model fit.
func (pl *PredictorLogger) LogModelTraining(variant, trainingKey string, matches, teams int, durationMs float64) {
	pl.WithFields(logrus.Fields{
		"model_variant": variant,
		"training_key":  trainingKey,
		"matches":       matches,
		"teams":         teams,
		"duration_ms":   durationMs,
	}).Info("Model training completed")
}

// LogPredictionError logs a failed prediction.
func (pl *PredictorLogger) LogPredictionError(variant, fixtureID, reason string) {
	pl.WithFields(logrus.Fields{
		"model_variant": variant,
		"fixture_id":    fixtureID,
		"error_reason":  reason,
	}).Warn("Prediction failed")
}
