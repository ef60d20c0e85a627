package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/value-tipster/internal/config"
	"github.com/yourusername/value-tipster/internal/logger"
	"github.com/yourusername/value-tipster/internal/models"
)

const predictPath = "/v1/predict"

// HTTPPredictor asks a remote prediction service over HTTP
type HTTPPredictor struct {
	client  *RateLimitedHTTPClient
	baseURL string
	apiKey  string
	variant string
	logger  *logger.PredictorLogger
}

// predictResponse is the prediction service payload
type predictResponse struct {
	HomeWin      float64 `json:"home_win"`
	Draw         float64 `json:"draw"`
	AwayWin      float64 `json:"away_win"`
	Confidence   float64 `json:"confidence"`
	ModelVariant string  `json:"model_variant"`
}

// NewHTTPPredictor creates an HTTP predictor client
func NewHTTPPredictor(cfg config.PredictorConfig, log *logrus.Logger) *HTTPPredictor {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = cfg.RequestTimeout()
	httpCfg.MaxRetries = cfg.RetryAttempts
	httpCfg.RateLimit = cfg.RateLimit

	return &HTTPPredictor{
		client:  NewRateLimitedHTTPClient(httpCfg, log),
		baseURL: strings.TrimRight(cfg.HTTPAddress, "/"),
		apiKey:  cfg.APIKey,
		variant: "remote-http",
		logger:  logger.NewPredictorLogger(log),
	}
}

// Variant returns the variant reported by the service, once known
func (c *HTTPPredictor) Variant() string {
	return c.variant
}

// Predict posts the request and maps the response onto a prediction
func (c *HTTPPredictor) Predict(ctx context.Context, r models.PredictionRequest) (*models.Prediction, error) {
	start := time.Now()
	defer func() {
		PredictionLatency.WithLabelValues("http").Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		PredictionErrorsTotal.WithLabelValues("http", "network").Inc()
		c.logger.LogPredictionError(c.variant, r.FixtureID, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrPredictorUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnprocessableEntity:
		PredictionErrorsTotal.WithLabelValues("http", "no_prediction").Inc()
		return nil, fmt.Errorf("%w: fixture %s", models.ErrMissingPrediction, r.FixtureID)
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		PredictionErrorsTotal.WithLabelValues("http", "http_error").Inc()
		return nil, fmt.Errorf("%w: status %d: %s", ErrPredictorUnavailable, resp.StatusCode, string(msg))
	}

	var payload predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		PredictionErrorsTotal.WithLabelValues("http", "decode").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	pred := &models.Prediction{
		FixtureID:    r.FixtureID,
		HomeWin:      payload.HomeWin,
		Draw:         payload.Draw,
		AwayWin:      payload.AwayWin,
		Confidence:   payload.Confidence,
		ModelVariant: payload.ModelVariant,
	}
	if pred.ModelVariant == "" {
		pred.ModelVariant = c.variant
	}
	if err := pred.Normalize(); err != nil {
		PredictionErrorsTotal.WithLabelValues("http", "invalid").Inc()
		return nil, err
	}

	PredictionsTotal.WithLabelValues("http", "false").Inc()
	c.logger.LogPrediction(pred.ModelVariant, r.FixtureID, false, float64(time.Since(start).Milliseconds()))
	return pred, nil
}

// HealthCheck checks prediction service health
func (c *HTTPPredictor) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPredictorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrPredictorUnavailable, resp.StatusCode)
	}
	return nil
}

// Close releases idle connections
func (c *HTTPPredictor) Close() error {
	return c.client.Close()
}
