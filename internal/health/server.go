// Package health provides a lightweight HTTP server for container health checks.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/value-tipster/internal/scan"
)

// Check probes one dependency and returns an error when it is unhealthy
type Check func(ctx context.Context) error

// ScanReporter exposes the most recent live scan
type ScanReporter interface {
	Last() *scan.Result
}

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// ScanResponse summarises the most recent live scan
type ScanResponse struct {
	Status          string    `json:"status"`
	RunID           string    `json:"run_id,omitempty"`
	CompletedAt     time.Time `json:"completed_at,omitempty"`
	FixturesScanned int       `json:"fixtures_scanned"`
	Opportunities   int       `json:"opportunities"`
	Failed          int       `json:"failed"`
	Age             string    `json:"age,omitempty"`
}

// Server is a lightweight HTTP server for health check endpoints.
type Server struct {
	serviceName string
	version     string
	commit      string
	port        string
	server      *http.Server
	logger      *logrus.Logger
	checks      map[string]Check
	scans       ScanReporter
	staleAfter  time.Duration
	routes      map[string]http.Handler
	now         func() time.Time
	mu          sync.RWMutex
	ready       bool
}

// Config holds the configuration for the health server.
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Port        int
	Logger      *logrus.Logger
	// Checks run on every readiness probe, keyed by dependency name
	Checks map[string]Check
	Scans  ScanReporter
	// StaleAfter marks the service not ready when the last scan is older; zero disables it
	StaleAfter time.Duration
	// Routes mounts extra handlers, such as the websocket feed, on the same port
	Routes map[string]http.Handler
}

// NewServer creates a new health check server.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == 0 {
		port = 8080
	}
	checks := cfg.Checks
	if checks == nil {
		checks = map[string]Check{}
	}

	return &Server{
		serviceName: cfg.ServiceName,
		version:     cfg.Version,
		commit:      cfg.Commit,
		port:        fmt.Sprintf("%d", port),
		logger:      cfg.Logger,
		checks:      checks,
		scans:       cfg.Scans,
		staleAfter:  cfg.StaleAfter,
		routes:      cfg.Routes,
		now:         time.Now,
	}
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the health endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/live", s.handleLive)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/scan", s.handleScan)
	for path, h := range s.routes {
		mux.Handle(path, h)
	}
	return mux
}

// Start starts the health check server in the background and shuts it down
// when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"port":    s.port,
				"service": s.serviceName,
			}).Info("Health check server starting")
		}

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.WithError(err).Error("Health check server error")
			}
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()

	return nil
}

// Shutdown gracefully shuts down the health check server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	if s.logger != nil {
		s.logger.Info("Health check server shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.serviceName,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Version:   s.version,
		Commit:    s.commit,
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: s.serviceName,
	})
}

// handleReady runs every dependency check and the scan freshness check
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks := make(map[string]string)
	healthy := true

	if !s.IsReady() {
		healthy = false
		checks["service"] = "not_ready"
	} else {
		checks["service"] = "ok"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			healthy = false
			checks[name] = fmt.Sprintf("error: %v", err)
		} else {
			checks[name] = "ok"
		}
	}

	if s.scans != nil && s.staleAfter > 0 {
		last := s.scans.Last()
		switch {
		case last == nil:
			checks["scan"] = "pending"
		case s.now().Sub(last.CompletedAt) > s.staleAfter:
			healthy = false
			checks["scan"] = fmt.Sprintf("stale: last completed %s", last.CompletedAt.Format(time.RFC3339))
		default:
			checks["scan"] = "ok"
		}
	}

	response := ReadyResponse{
		Status:   "ok",
		Service:  s.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}
	status := http.StatusOK
	if !healthy {
		response.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.scans == nil {
		writeJSON(w, http.StatusNotFound, ScanResponse{Status: "disabled"})
		return
	}
	last := s.scans.Last()
	if last == nil {
		writeJSON(w, http.StatusOK, ScanResponse{Status: "pending"})
		return
	}
	writeJSON(w, http.StatusOK, ScanResponse{
		Status:          "ok",
		RunID:           last.RunID.String(),
		CompletedAt:     last.CompletedAt,
		FixturesScanned: last.FixturesScanned,
		Opportunities:   len(last.Opportunities),
		Failed:          last.Failed,
		Age:             s.now().Sub(last.CompletedAt).Round(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
