package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/value-tipster/internal/models"
)

// GenerateConsoleReport formats a benchmark report for terminal output
func GenerateConsoleReport(report *models.BenchmarkReport) string {
	s := report.Statistics
	var builder strings.Builder
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Season: %s  League: %s  Model: %s\n", report.Season, report.League, report.ModelVariant))
	builder.WriteString(fmt.Sprintf("Bankroll: %.2f -> %.2f\n", report.InitialBankroll, report.FinalBankroll))
	builder.WriteString(fmt.Sprintf("Bets: %d (W %d / L %d / P %d)\n", s.TotalBets, s.Wins, s.Losses, s.Pushes))
	builder.WriteString(fmt.Sprintf("Staked: %.2f  Profit: %.2f\n", s.TotalStaked, s.TotalProfit))
	builder.WriteString(fmt.Sprintf("ROI: %.2f%%\n", s.ROI))
	builder.WriteString(fmt.Sprintf("Win Rate: %.2f%%\n", s.WinRate*100))
	builder.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%\n", s.MaxDrawdown*100))
	builder.WriteString(fmt.Sprintf("Profit Factor: %.2f\n", s.ProfitFactor))
	builder.WriteString(fmt.Sprintf("Sharpe Ratio: %.2f\n", s.SharpeRatio))
	builder.WriteString(fmt.Sprintf("Streaks: win %d / loss %d\n", s.LongestWinStreak, s.LongestLossStreak))
	builder.WriteString(fmt.Sprintf("Average Odds: %.2f  Average Value: %.2f%%\n", s.AverageOdds, s.AverageValuePct))

	builder.WriteString(fmt.Sprintf("\nAccuracy: %.2f%% of %d fixtures\n", report.Accuracy.Overall*100, report.Accuracy.Replayed))
	for _, outcome := range models.Outcomes {
		oa := report.Accuracy.ByOutcome[outcome]
		builder.WriteString(fmt.Sprintf("  %s: predicted %d, actual %d, correct %d (%.2f%%)\n",
			outcome, oa.Predicted, oa.Actual, oa.Correct, oa.Accuracy*100))
	}

	if len(report.Markets) > 0 {
		builder.WriteString("\nMarkets:\n")
		for _, market := range sortedMarkets(report.Markets) {
			ms := report.Markets[market]
			builder.WriteString(fmt.Sprintf("  %-10s bets %d  profit %.2f  ROI %.2f%%  win rate %.2f%%\n",
				market, ms.Bets, ms.Profit, ms.ROI, ms.WinRate*100))
		}
	}

	sk := report.Skipped
	builder.WriteString(fmt.Sprintf("\nSkipped: missing prediction %d, predictor errors %d, no quotes %d, invalid quotes %d, degenerate stakes %d, zero stakes %d\n",
		sk.MissingPrediction, sk.PredictorErrors, sk.NoQuotes, sk.InvalidQuotes, sk.DegenerateStakes, sk.ZeroStakes))

	if mc := report.MonteCarlo; mc != nil {
		builder.WriteString(fmt.Sprintf("\nMonte Carlo (%d paths): median %.2f  p5 %.2f  p95 %.2f\n",
			mc.Iterations, mc.MedianFinalBankroll, mc.Percentile5, mc.Percentile95))
		builder.WriteString(fmt.Sprintf("  P(profit) %.2f%%  P(ruin) %.2f%%\n", mc.ProbabilityOfProfit*100, mc.ProbabilityOfRuin*100))
	}
	return builder.String()
}

// GenerateSeasonsReport formats a multi-season summary for terminal output
func GenerateSeasonsReport(summary *SeasonSummary) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Season Benchmark: %s\n", summary.League))
	builder.WriteString("================\n")
	for _, o := range summary.Seasons {
		if o.Report == nil {
			builder.WriteString(fmt.Sprintf("%-10s skipped: %s\n", o.Season, o.Skipped))
			continue
		}
		s := o.Report.Statistics
		builder.WriteString(fmt.Sprintf("%-10s bets %4d  profit %10.2f  ROI %7.2f%%  drawdown %6.2f%%  accuracy %6.2f%%\n",
			o.Season, s.TotalBets, s.TotalProfit, s.ROI, s.MaxDrawdown*100, o.Report.Accuracy.Overall*100))
	}
	builder.WriteString(fmt.Sprintf("\nCompleted: %d of %d\n", summary.Completed, len(summary.Seasons)))
	builder.WriteString(fmt.Sprintf("Average ROI: %.2f%%\n", summary.AverageROI))
	builder.WriteString(fmt.Sprintf("Consistency: %.2f%%\n", summary.ConsistencyScore*100))
	builder.WriteString(fmt.Sprintf("Worst Drawdown: %.2f%%\n", summary.WorstDrawdown*100))
	builder.WriteString(fmt.Sprintf("Recommendation: %s\n", summary.Recommendation))
	return builder.String()
}

var ledgerHeader = []string{
	"sequence", "fixture_id", "kickoff_at", "home_team", "away_team", "market", "selection", "line",
	"odds", "model_probability", "implied_probability", "value_pct", "confidence",
	"stake", "result", "profit", "bankroll_after",
}

// WriteLedgerCSV writes the bet ledger as CSV
func WriteLedgerCSV(w io.Writer, ledger []models.BetRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledgerHeader); err != nil {
		return err
	}
	for _, bet := range ledger {
		line := ""
		if bet.Line != nil {
			line = strconv.FormatFloat(*bet.Line, 'f', -1, 64)
		}
		row := []string{
			strconv.Itoa(bet.Sequence),
			bet.FixtureID,
			bet.KickoffAt.Format(time.RFC3339),
			bet.HomeTeam,
			bet.AwayTeam,
			string(bet.Market),
			string(bet.Selection),
			line,
			formatFloat(bet.Odds, 2),
			formatFloat(bet.ModelProbability, 4),
			formatFloat(bet.ImpliedProbability, 4),
			formatFloat(bet.ValuePct, 2),
			formatFloat(bet.Confidence, 3),
			formatFloat(bet.Stake, 2),
			string(bet.Result),
			formatFloat(bet.Profit, 2),
			formatFloat(bet.BankrollAfter, 2),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func sortedMarkets(markets map[models.MarketKind]models.MarketStats) []models.MarketKind {
	keys := make([]models.MarketKind, 0, len(markets))
	for k := range markets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
