package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/value-tipster/internal/config"
	"github.com/yourusername/value-tipster/internal/models"
)

func httpPredictorConfig(addr string) config.PredictorConfig {
	return config.PredictorConfig{
		Mode:                  "http",
		HTTPAddress:           addr,
		APIKey:                "secret",
		RequestTimeoutSeconds: 5,
		RetryAttempts:         0,
	}
}

func TestHTTPPredictorPredict(t *testing.T) {
	var received models.PredictionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, predictPath, r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"home_win":      0.55,
			"draw":          0.25,
			"away_win":      0.20,
			"confidence":    0.7,
			"model_variant": "gbm-v3",
		})
	}))
	defer server.Close()

	p := NewHTTPPredictor(httpPredictorConfig(server.URL), testLogger())
	defer p.Close()

	pred, err := p.Predict(context.Background(), models.PredictionRequest{
		FixtureID:      "fx-1",
		League:         "E0",
		HomeTeam:       "Arsenal",
		AwayTeam:       "Chelsea",
		ExcludedSeason: "2023-24",
	})
	require.NoError(t, err)

	assert.Equal(t, "Arsenal", received.HomeTeam)
	assert.Equal(t, "2023-24", received.ExcludedSeason)
	assert.Equal(t, "fx-1", pred.FixtureID)
	assert.Equal(t, "gbm-v3", pred.ModelVariant)
	assert.Equal(t, models.OutcomeHome, pred.Outcome)
	assert.InDelta(t, 0.7, pred.Confidence, 1e-9)
}

func TestHTTPPredictorErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "unknown fixture", status: http.StatusNotFound, body: `{}`, wantErr: models.ErrMissingPrediction},
		{name: "bad request", status: http.StatusBadRequest, body: `bad`, wantErr: ErrPredictorUnavailable},
		{name: "malformed json", status: http.StatusOK, body: `{"home_win":`, wantErr: ErrInvalidResponse},
		{name: "malformed json skips the fixture", status: http.StatusOK, body: `{"home_win":`, wantErr: models.ErrMissingPrediction},
		{name: "distribution off", status: http.StatusOK, body: `{"home_win":0.9,"draw":0.5,"away_win":0.4}`, wantErr: models.ErrMissingPrediction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewHTTPPredictor(httpPredictorConfig(server.URL), testLogger())
			_, err := p.Predict(context.Background(), models.PredictionRequest{FixtureID: "fx-1"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestHTTPPredictorHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := NewHTTPPredictor(httpPredictorConfig(server.URL+"/"), testLogger())
	assert.NoError(t, p.HealthCheck(context.Background()))
}

func TestCustomRetryPolicy(t *testing.T) {
	policy := customRetryPolicy()
	ctx := context.Background()

	retry, _ := policy(ctx, &http.Response{StatusCode: http.StatusServiceUnavailable}, nil)
	assert.True(t, retry)

	retry, _ = policy(ctx, &http.Response{StatusCode: http.StatusNotFound}, nil)
	assert.False(t, retry)

	retry, _ = policy(ctx, nil, errors.New("connection reset"))
	assert.True(t, retry)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	retry, err := policy(cancelled, nil, errors.New("connection reset"))
	assert.False(t, retry)
	assert.Error(t, err)
}
