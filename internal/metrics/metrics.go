// Package metrics provides centralized Prometheus metrics registry for the value tipster.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "value_tipster"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	FixturesScannedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fixtures_scanned_total",
		Help:      "Total number of fixtures evaluated by live scans",
	})
	OpportunitiesDetectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "opportunities_detected_total",
		Help:      "Total number of qualifying value opportunities by market",
	}, []string{"market"})
	QuotesDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quotes_dropped_total",
		Help:      "Total number of bookmaker quotes rejected by the normaliser",
	})
	FixturesSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fixtures_skipped_total",
		Help:      "Total number of fixtures skipped by reason",
	}, []string{"reason"})
	OpportunitiesPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "opportunities_published_total",
		Help:      "Total number of opportunities published by sink",
	}, []string{"sink", "status"})
)

// Gauge metrics
var (
	LastScanOpportunities = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_scan_opportunities",
		Help:      "Number of opportunities returned by the most recent scan",
	})
	FeedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_clients",
		Help:      "Number of connected websocket feed clients",
	})
)

// Histogram metrics
var (
	ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scan_duration_seconds",
		Help:      "Duration of live value scans in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	OpportunityValuePct = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "opportunity_value_pct",
		Help:      "Value percentage of detected opportunities",
		Buckets:   []float64{5, 7.5, 10, 15, 20, 30, 50, 100},
	}, []string{"market"})
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(FixturesScannedTotal)
		registry.MustRegister(OpportunitiesDetectedTotal)
		registry.MustRegister(QuotesDroppedTotal)
		registry.MustRegister(FixturesSkippedTotal)
		registry.MustRegister(OpportunitiesPublishedTotal)

		// Register gauge metrics
		registry.MustRegister(LastScanOpportunities)
		registry.MustRegister(FeedClients)

		// Register histogram metrics
		registry.MustRegister(ScanDuration)
		registry.MustRegister(OpportunityValuePct)
		registry.MustRegister(BacktestDuration)

		// Register backtest metrics
		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(BacktestBetsTotal)
		registry.MustRegister(BacktestROI)
		registry.MustRegister(BacktestMaxDrawdown)
		registry.MustRegister(BacktestAccuracy)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler. It also exposes collectors
// registered on the default registry, such as the predictor metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.Gatherers{GetRegistry(), prometheus.DefaultGatherer}, promhttp.HandlerOpts{})
}

// RecordFixtureScanned records a fixture evaluated by a live scan.
func RecordFixtureScanned() {
	FixturesScannedTotal.Inc()
}

// RecordOpportunity records a qualifying opportunity.
func RecordOpportunity(market string, valuePct float64) {
	OpportunitiesDetectedTotal.WithLabelValues(market).Inc()
	OpportunityValuePct.WithLabelValues(market).Observe(valuePct)
}

// RecordQuotesDropped records quotes rejected by the normaliser.
func RecordQuotesDropped(n int) {
	QuotesDroppedTotal.Add(float64(n))
}

// RecordFixtureSkipped records a skipped fixture.
// reason should be one of: "missing_prediction", "no_quotes", "error"
func RecordFixtureSkipped(reason string) {
	FixturesSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordPublish records a publish attempt to a feed sink.
func RecordPublish(sink, status string, n int) {
	OpportunitiesPublishedTotal.WithLabelValues(sink, status).Add(float64(n))
}

// RecordScan records a completed scan.
func RecordScan(durationSeconds float64, opportunities int) {
	ScanDuration.Observe(durationSeconds)
	LastScanOpportunities.Set(float64(opportunities))
}

// UpdateFeedClients updates the connected feed clients gauge.
func UpdateFeedClients(count int) {
	FeedClients.Set(float64(count))
}

// RecordBacktestDuration records backtest duration.
func RecordBacktestDuration(durationSeconds float64) {
	BacktestDuration.Observe(durationSeconds)
}
