// Package metrics defines backtesting-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backtest counter vectors
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by season and status",
	}, []string{"season", "status"})

	BacktestBetsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_bets_total",
		Help:      "Total number of simulated bets by market and result",
	}, []string{"market", "result"})
)

// Backtest gauge vectors
var (
	BacktestROI = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backtest_roi_pct",
		Help:      "Return on investment of the latest backtest per season and model",
	}, []string{"season", "model_variant"})

	BacktestMaxDrawdown = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backtest_max_drawdown",
		Help:      "Maximum drawdown of the latest backtest per season and model",
	}, []string{"season", "model_variant"})

	BacktestAccuracy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backtest_accuracy",
		Help:      "Outcome prediction accuracy of the latest backtest per season and model",
	}, []string{"season", "model_variant"})
)

// RecordBacktestRun records a backtest run event.
// status should be one of: "success", "insufficient_data", "cancelled", "failure"
func RecordBacktestRun(season, status string) {
	BacktestRunsTotal.WithLabelValues(season, status).Inc()
}

// RecordBacktestBet records a settled simulated bet.
func RecordBacktestBet(market, result string) {
	BacktestBetsTotal.WithLabelValues(market, result).Inc()
}

// RecordBacktestResult records the headline figures of a completed run.
func RecordBacktestResult(season, modelVariant string, roi, maxDrawdown, accuracy float64) {
	BacktestROI.WithLabelValues(season, modelVariant).Set(roi)
	BacktestMaxDrawdown.WithLabelValues(season, modelVariant).Set(maxDrawdown)
	BacktestAccuracy.WithLabelValues(season, modelVariant).Set(accuracy)
}
