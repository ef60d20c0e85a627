// Package logger provides backtest audit logging.
package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/value-tipster/internal/models"
)

// BacktestLogger provides an audit trail for season-holdout backtests.
type BacktestLogger struct {
	*logrus.Entry
}

// NewBacktestLogger creates a new backtest logger.
func NewBacktestLogger(baseLogger *logrus.Logger) *BacktestLogger {
	return &BacktestLogger{
		Entry: baseLogger.WithField("component", "backtest"),
	}
}

// LogPhase logs the start of a run phase.
func (bl *BacktestLogger) LogPhase(season, league, phase string) {
	bl.WithFields(logrus.Fields{
		"season": season,
		"league": league,
		"phase":  phase,
	}).Info("Backtest phase started")
}

// LogSettlement logs a settled simulated bet.
func (bl *BacktestLogger) LogSettlement(bet models.BetRecord) {
	bl.WithFields(logrus.Fields{
		"sequence":       bet.Sequence,
		"fixture_id":     bet.FixtureID,
		"market":         bet.Market,
		"selection":      bet.Selection,
		"odds":           bet.Odds,
		"stake":          bet.Stake,
		"result":         bet.Result,
		"profit":         bet.Profit,
		"bankroll_after": bet.BankrollAfter,
	}).Debug("Bet settled")
}

// LogDrawdownAlert logs when the simulated bankroll falls far below its peak.
func (bl *BacktestLogger) LogDrawdownAlert(season string, drawdown, bankroll float64) {
	bl.WithFields(logrus.Fields{
		"season":   season,
		"drawdown": drawdown,
		"bankroll": bankroll,
	}).Warn("Drawdown threshold breached")
}

// LogInsufficientData logs a run rejected during setup.
func (bl *BacktestLogger) LogInsufficientData(season, league string, err error) {
	bl.WithFields(logrus.Fields{
		"season": season,
		"league": league,
	}).WithError(err).Warn("Backtest rejected before replay")
}

// LogCancelled logs a run abandoned by its caller.
func (bl *BacktestLogger) LogCancelled(season string, fixturesReplayed int) {
	bl.WithFields(logrus.Fields{
		"season":            season,
		"fixtures_replayed": fixturesReplayed,
	}).Warn("Backtest cancelled, nothing persisted")
}

// LogCompleted logs a finished benchmark.
func (bl *BacktestLogger) LogCompleted(report *models.BenchmarkReport) {
	bl.WithFields(logrus.Fields{
		"report_id":      report.ID,
		"season":         report.Season,
		"league":         report.League,
		"model_variant":  report.ModelVariant,
		"fixtures":       report.Accuracy.Replayed,
		"accuracy":       report.Accuracy.Overall,
		"total_bets":     report.Statistics.TotalBets,
		"roi":            report.Statistics.ROI,
		"max_drawdown":   report.Statistics.MaxDrawdown,
		"final_bankroll": report.FinalBankroll,
		"duration":       report.Duration().String(),
	}).Info("Backtest completed")
}
