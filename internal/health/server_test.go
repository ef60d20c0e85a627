package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/value-tipster/internal/scan"
)

type stubScans struct{ last *scan.Result }

func (s stubScans) Last() *scan.Result { return s.last }

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func get(t *testing.T, s *Server, path string, body interface{}) int {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	if body != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), body))
	}
	return rec.Code
}

func newTestServer(cfg Config) *Server {
	s := NewServer(cfg)
	s.now = func() time.Time { return now }
	return s
}

func TestHealthAndLive(t *testing.T) {
	s := newTestServer(Config{ServiceName: "value-scan", Version: "1.2.0"})

	var resp HealthResponse
	assert.Equal(t, http.StatusOK, get(t, s, "/health", &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.0", resp.Version)
	assert.Equal(t, "2024-03-01T12:00:00Z", resp.Timestamp)

	assert.Equal(t, http.StatusOK, get(t, s, "/live", nil))
}

func TestReadyReflectsFlagAndChecks(t *testing.T) {
	var dbErr error
	s := newTestServer(Config{
		ServiceName: "value-scan",
		Checks: map[string]Check{
			"database": func(ctx context.Context) error { return dbErr },
		},
	})

	var resp ReadyResponse
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/ready", &resp))
	assert.Equal(t, "not_ready", resp.Checks["service"])

	s.SetReady(true)
	assert.Equal(t, http.StatusOK, get(t, s, "/ready", &resp))
	assert.Equal(t, "ok", resp.Checks["database"])

	dbErr = errors.New("connection refused")
	resp = ReadyResponse{}
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/ready", &resp))
	assert.Equal(t, "error: connection refused", resp.Checks["database"])
}

func TestReadyFlagsStaleScan(t *testing.T) {
	scans := &stubScans{}
	s := newTestServer(Config{Scans: scans, StaleAfter: time.Hour})
	s.SetReady(true)

	var resp ReadyResponse
	assert.Equal(t, http.StatusOK, get(t, s, "/ready", &resp))
	assert.Equal(t, "pending", resp.Checks["scan"])

	scans.last = &scan.Result{CompletedAt: now.Add(-2 * time.Hour)}
	resp = ReadyResponse{}
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/ready", &resp))

	scans.last = &scan.Result{CompletedAt: now.Add(-time.Minute)}
	resp = ReadyResponse{}
	assert.Equal(t, http.StatusOK, get(t, s, "/ready", &resp))
	assert.Equal(t, "ok", resp.Checks["scan"])
}

func TestScanEndpoint(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, newTestServer(Config{}), "/scan", nil))

	runID := uuid.New()
	scans := &stubScans{last: &scan.Result{
		RunID:           runID,
		FixturesScanned: 12,
		CompletedAt:     now.Add(-90 * time.Second),
	}}
	var resp ScanResponse
	assert.Equal(t, http.StatusOK, get(t, newTestServer(Config{Scans: scans}), "/scan", &resp))
	assert.Equal(t, runID.String(), resp.RunID)
	assert.Equal(t, 12, resp.FixturesScanned)
	assert.Equal(t, "1m30s", resp.Age)
}

func TestExtraRoutesAreMounted(t *testing.T) {
	s := newTestServer(Config{Routes: map[string]http.Handler{
		"/ws/opportunities": http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTeapot, HealthResponse{Status: "feed"})
		}),
	}})

	var resp HealthResponse
	assert.Equal(t, http.StatusTeapot, get(t, s, "/ws/opportunities", &resp))
	assert.Equal(t, "feed", resp.Status)
}
