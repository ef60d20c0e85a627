package predictor

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/value-tipster/internal/config"
)

// NewFromConfig builds the configured predictor, wrapped in a prediction
// cache when caching is enabled. source is only used in local mode.
func NewFromConfig(cfg config.PredictorConfig, source TrainingSource, log *logrus.Logger) (Predictor, error) {
	var p Predictor
	switch cfg.Mode {
	case "", "local":
		if source == nil {
			return nil, fmt.Errorf("local predictor requires a training source")
		}
		p = NewLocalPredictor(source, cfg.MaxTrainingRows, cfg.ShrinkageMatches, log)
	case "grpc":
		g, err := NewGRPCPredictor(cfg, log)
		if err != nil {
			return nil, err
		}
		p = g
	case "http":
		p = NewHTTPPredictor(cfg, log)
	default:
		return nil, fmt.Errorf("unknown predictor mode %q", cfg.Mode)
	}

	remote := cfg.Mode == "grpc" || cfg.Mode == "http"
	if remote && cfg.BreakerMaxFailures > 0 {
		p = NewBreakerPredictor(p, BreakerConfig{
			MaxFailures:    cfg.BreakerMaxFailures,
			FailureWindow:  cfg.BreakerWindow(),
			CooldownPeriod: cfg.BreakerCooldown(),
		}, log)
	}

	if cfg.CacheEnabled {
		p = NewCachedPredictor(p, cfg.CacheTTL(), cfg.CacheMaxSize, log)
	}

	log.WithFields(logrus.Fields{
		"mode":    cfg.Mode,
		"variant": p.Variant(),
		"cached":  cfg.CacheEnabled,
		"breaker": remote && cfg.BreakerMaxFailures > 0,
	}).Info("Predictor initialised")
	return p, nil
}
