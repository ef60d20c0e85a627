package backtest

import (
	"math"
	"testing"

	"github.com/yourusername/value-tipster/internal/models"
)

func bet(result models.BetResult, stake, odds, profit, after float64) models.BetRecord {
	return models.BetRecord{
		Market:        models.MarketMoneyline,
		Selection:     models.SelectionHome,
		Odds:          odds,
		Stake:         stake,
		Result:        result,
		Profit:        profit,
		BankrollAfter: after,
		ValuePct:      10,
	}
}

func TestCalculateStatisticsEmpty(t *testing.T) {
	stats := CalculateStatistics(1000, nil)
	if stats.TotalBets != 0 || stats.ROI != 0 || stats.MaxDrawdown != 0 || stats.ProfitFactor != 0 {
		t.Fatalf("expected zeroed statistics, got %+v", stats)
	}
	if stats.FinalBankroll != 1000 {
		t.Fatalf("expected final bankroll 1000, got %v", stats.FinalBankroll)
	}
}

func TestCalculateStatistics(t *testing.T) {
	tests := []struct {
		name         string
		ledger       []models.BetRecord
		roi          float64
		profitFactor float64
		drawdown     float64
		winStreak    int
		lossStreak   int
	}{
		{
			name: "single winner",
			ledger: []models.BetRecord{
				bet(models.BetResultWon, 10, 2.5, 15, 1015),
			},
			roi:          150,
			profitFactor: 0,
			drawdown:     0,
			winStreak:    1,
		},
		{
			name: "win then loss",
			ledger: []models.BetRecord{
				bet(models.BetResultWon, 10, 2, 10, 1010),
				bet(models.BetResultLost, 20, 2, -20, 990),
			},
			roi:          -10.0 / 30.0 * 100,
			profitFactor: 0.5,
			drawdown:     20.0 / 1010.0,
			winStreak:    1,
			lossStreak:   1,
		},
		{
			name: "push does not break streak",
			ledger: []models.BetRecord{
				bet(models.BetResultLost, 10, 2, -10, 990),
				bet(models.BetResultPush, 10, 2, 0, 990),
				bet(models.BetResultLost, 10, 2, -10, 980),
				bet(models.BetResultWon, 10, 3, 20, 1000),
			},
			roi:          0,
			profitFactor: 1,
			drawdown:     0.02,
			winStreak:    1,
			lossStreak:   2,
		},
		{
			name: "drawdown capped at total loss",
			ledger: []models.BetRecord{
				bet(models.BetResultLost, 1000, 2, -1000, 0),
			},
			roi:        -100,
			drawdown:   1,
			lossStreak: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := CalculateStatistics(1000, tt.ledger)
			if math.Abs(stats.ROI-tt.roi) > 1e-9 {
				t.Fatalf("expected ROI %v, got %v", tt.roi, stats.ROI)
			}
			if math.Abs(stats.ProfitFactor-tt.profitFactor) > 1e-9 {
				t.Fatalf("expected profit factor %v, got %v", tt.profitFactor, stats.ProfitFactor)
			}
			if math.Abs(stats.MaxDrawdown-tt.drawdown) > 1e-9 {
				t.Fatalf("expected drawdown %v, got %v", tt.drawdown, stats.MaxDrawdown)
			}
			if stats.MaxDrawdown < 0 || stats.MaxDrawdown > 1 {
				t.Fatalf("drawdown out of bounds: %v", stats.MaxDrawdown)
			}
			if stats.LongestWinStreak != tt.winStreak || stats.LongestLossStreak != tt.lossStreak {
				t.Fatalf("expected streaks %d/%d, got %d/%d", tt.winStreak, tt.lossStreak, stats.LongestWinStreak, stats.LongestLossStreak)
			}
		})
	}
}

func TestCalculateStatisticsIsIdempotent(t *testing.T) {
	ledger := []models.BetRecord{
		bet(models.BetResultWon, 10, 2, 10, 1010),
		bet(models.BetResultLost, 12, 2, -12, 998),
		bet(models.BetResultWon, 11, 1.9, 9.9, 1007.9),
	}
	a := CalculateStatistics(1000, ledger)
	b := CalculateStatistics(1000, ledger)
	if a != b {
		t.Fatalf("expected identical statistics, got %+v and %+v", a, b)
	}
	if a.FinalBankroll != 1007.9 {
		t.Fatalf("expected final bankroll 1007.9, got %v", a.FinalBankroll)
	}
	if a.BestBetProfit != 10 || a.WorstBetLoss != -12 {
		t.Fatalf("unexpected best/worst: %v/%v", a.BestBetProfit, a.WorstBetLoss)
	}
}

func TestSharpeRatio(t *testing.T) {
	if got := calculateSharpeRatio([]float64{0.5}); got != 0 {
		t.Fatalf("expected 0 for a single return, got %v", got)
	}
	if got := calculateSharpeRatio([]float64{0.2, 0.2, 0.2}); got != 0 {
		t.Fatalf("expected 0 with no variance, got %v", got)
	}
	// mean 0, population std 1
	if got := calculateSharpeRatio([]float64{1, -1}); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	// mean 0.5, population std 0.5
	if got := calculateSharpeRatio([]float64{1, 0}); math.Abs(got-1) > 1e-12 {
		t.Fatalf("expected 1, got %v", got)
	}
}

func TestMarketBreakdown(t *testing.T) {
	line := 2.5
	total := bet(models.BetResultPush, 10, 1.9, 0, 1000)
	total.Market = models.MarketTotal
	total.Selection = models.SelectionOver
	total.Line = &line

	breakdown := MarketBreakdown([]models.BetRecord{
		bet(models.BetResultWon, 10, 2, 10, 1010),
		bet(models.BetResultLost, 10, 2, -10, 1000),
		total,
	})

	ml := breakdown[models.MarketMoneyline]
	if ml.Bets != 2 || ml.Wins != 1 || ml.Losses != 1 || ml.Profit != 0 || ml.WinRate != 0.5 {
		t.Fatalf("unexpected moneyline stats: %+v", ml)
	}
	tot := breakdown[models.MarketTotal]
	if tot.Bets != 1 || tot.Pushes != 1 || tot.ROI != 0 {
		t.Fatalf("unexpected total stats: %+v", tot)
	}
}
