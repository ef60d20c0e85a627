package backtest

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/yourusername/value-tipster/internal/models"
)

// CalculateStatistics reduces an ordered ledger to its performance figures.
// It reads only the ledger and the initial bankroll, so a persisted ledger
// always recomputes to the same result.
func CalculateStatistics(initialBankroll float64, ledger []models.BetRecord) models.Statistics {
	stats := models.Statistics{
		TotalBets:     len(ledger),
		FinalBankroll: initialBankroll,
	}
	if len(ledger) == 0 {
		return stats
	}

	staked := decimal.Zero
	profit := decimal.Zero
	grossWin := 0.0
	grossLoss := 0.0
	oddsSum := 0.0
	valueSum := 0.0
	returns := make([]float64, 0, len(ledger))

	for i, bet := range ledger {
		staked = staked.Add(decimal.NewFromFloat(bet.Stake))
		profit = profit.Add(decimal.NewFromFloat(bet.Profit))
		oddsSum += bet.Odds
		valueSum += bet.ValuePct

		switch bet.Result {
		case models.BetResultWon:
			stats.Wins++
		case models.BetResultLost:
			stats.Losses++
		case models.BetResultPush:
			stats.Pushes++
		}

		if bet.Profit > 0 {
			grossWin += bet.Profit
		} else if bet.Profit < 0 {
			grossLoss += math.Abs(bet.Profit)
		}

		if i == 0 || bet.Profit > stats.BestBetProfit {
			stats.BestBetProfit = bet.Profit
		}
		if i == 0 || bet.Profit < stats.WorstBetLoss {
			stats.WorstBetLoss = bet.Profit
		}

		if bet.Stake > 0 {
			returns = append(returns, bet.Profit/bet.Stake)
		}
	}

	n := float64(len(ledger))
	stats.TotalStaked = staked.InexactFloat64()
	stats.TotalProfit = profit.InexactFloat64()
	stats.FinalBankroll = decimal.NewFromFloat(initialBankroll).Add(profit).InexactFloat64()
	if staked.IsPositive() {
		stats.ROI = profit.Div(staked).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	stats.WinRate = float64(stats.Wins) / n
	stats.AverageOdds = oddsSum / n
	stats.AverageValuePct = valueSum / n
	stats.AverageStake = stats.TotalStaked / n
	stats.Expectancy = stats.TotalProfit / n
	stats.ProfitFactor = calculateProfitFactor(grossWin, grossLoss)
	stats.MaxDrawdown = calculateMaxDrawdown(initialBankroll, ledger)
	stats.LongestWinStreak, stats.LongestLossStreak = calculateStreaks(ledger)
	stats.SharpeRatio = calculateSharpeRatio(returns)

	return stats
}

// calculateProfitFactor is zero when nothing was lost, including a ledger
// of only winners.
func calculateProfitFactor(grossWin, grossLoss float64) float64 {
	if grossLoss == 0 {
		return 0
	}
	return grossWin / grossLoss
}

// calculateMaxDrawdown tracks a running peak that starts at the initial
// bankroll and returns the largest (peak - current) / peak, in [0, 1].
func calculateMaxDrawdown(initialBankroll float64, ledger []models.BetRecord) float64 {
	peak := decimal.NewFromFloat(initialBankroll)
	current := peak
	maxDD := 0.0
	for _, bet := range ledger {
		current = current.Add(decimal.NewFromFloat(bet.Profit))
		if current.GreaterThan(peak) {
			peak = current
		}
		if !peak.IsPositive() {
			continue
		}
		drawdown := peak.Sub(current).Div(peak).InexactFloat64()
		if drawdown > maxDD {
			maxDD = drawdown
		}
	}
	return math.Min(maxDD, 1)
}

// calculateStreaks returns the longest runs of wins and losses. Pushes
// neither extend nor break a run.
func calculateStreaks(ledger []models.BetRecord) (longestWin, longestLoss int) {
	var run int
	var last models.BetResult
	for _, bet := range ledger {
		if bet.Result == models.BetResultPush {
			continue
		}
		if bet.Result == last {
			run++
		} else {
			run = 1
			last = bet.Result
		}
		switch last {
		case models.BetResultWon:
			if run > longestWin {
				longestWin = run
			}
		case models.BetResultLost:
			if run > longestLoss {
				longestLoss = run
			}
		}
	}
	return longestWin, longestLoss
}

// calculateSharpeRatio is the mean per-bet return over its population
// standard deviation, zero for fewer than two bets or no variance.
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	std := stddev(returns)
	if std == 0 {
		return 0
	}
	return average(returns) / std
}

// MarketBreakdown slices the ledger per market
func MarketBreakdown(ledger []models.BetRecord) map[models.MarketKind]models.MarketStats {
	breakdown := make(map[models.MarketKind]models.MarketStats)
	for _, bet := range ledger {
		ms := breakdown[bet.Market]
		ms.Bets++
		ms.Staked += bet.Stake
		ms.Profit += bet.Profit
		switch bet.Result {
		case models.BetResultWon:
			ms.Wins++
		case models.BetResultLost:
			ms.Losses++
		case models.BetResultPush:
			ms.Pushes++
		}
		breakdown[bet.Market] = ms
	}

	for market, ms := range breakdown {
		ms.Staked = roundCents(ms.Staked)
		ms.Profit = roundCents(ms.Profit)
		if ms.Staked > 0 {
			ms.ROI = ms.Profit / ms.Staked * 100
		}
		if ms.Bets > 0 {
			ms.WinRate = float64(ms.Wins) / float64(ms.Bets)
		}
		breakdown[market] = ms
	}
	return breakdown
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	return mean / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := average(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	idx := int(math.Floor(p * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
