// Package logger provides value-detection logging.
package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/value-tipster/internal/models"
)

// ValueLogger provides dedicated logging for opportunity detection and staking.
type ValueLogger struct {
	*logrus.Entry
}

// NewValueLogger creates a new value logger.
func NewValueLogger(baseLogger *logrus.Logger) *ValueLogger {
	return &ValueLogger{
		Entry: baseLogger.WithField("component", "value"),
	}
}

// LogOpportunity logs a qualifying value opportunity.
func (vl *ValueLogger) LogOpportunity(opp models.ValueOpportunity) {
	vl.WithFields(logrus.Fields{
		"fixture_id":        opp.FixtureID,
		"home_team":         opp.HomeTeam,
		"away_team":         opp.AwayTeam,
		"market":            opp.Market,
		"selection":         opp.Selection,
		"line":              opp.LineValue(),
		"odds":              opp.Odds,
		"model_probability": opp.ModelProbability,
		"value_pct":         opp.ValuePct,
		"confidence":        opp.Confidence,
		"recommended_stake": opp.RecommendedStake,
	}).Info("Value opportunity detected")
}

// LogStakeDecision logs the Kelly sizing of one selection.
func (vl *ValueLogger) LogStakeDecision(fixtureID string, market models.MarketKind, selection models.Selection, kelly, fractional, stake, bankroll float64) {
	vl.WithFields(logrus.Fields{
		"fixture_id":       fixtureID,
		"market":           market,
		"selection":        selection,
		"kelly_fraction":   kelly,
		"fractional_kelly": fractional,
		"stake":            stake,
		"bankroll":         bankroll,
	}).Debug("Stake sized")
}

// LogFixtureSkipped logs a fixture the scan or replay could not evaluate.
func (vl *ValueLogger) LogFixtureSkipped(fixtureID, reason string) {
	vl.WithFields(logrus.Fields{
		"fixture_id": fixtureID,
		"reason":     reason,
	}).Warn("Fixture skipped")
}

// LogQuotesDropped logs quotes rejected by the normaliser.
func (vl *ValueLogger) LogQuotesDropped(fixtureID string, dropped int) {
	vl.WithFields(logrus.Fields{
		"fixture_id": fixtureID,
		"dropped":    dropped,
	}).Debug("Invalid quotes dropped")
}

// LogScanCompleted logs a finished live scan.
func (vl *ValueLogger) LogScanCompleted(runID string, fixturesScanned, opportunities, skipped int, durationMs float64) {
	vl.WithFields(logrus.Fields{
		"run_id":           runID,
		"fixtures_scanned": fixturesScanned,
		"opportunities":    opportunities,
		"skipped":          skipped,
		"duration_ms":      durationMs,
	}).Info("Value scan completed")
}
