package backtest

import (
	"encoding/csv"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/value-tipster/internal/models"
)

// EquityPoint is the bankroll after one settled bet
type EquityPoint struct {
	Sequence  int       `json:"sequence"`
	KickoffAt time.Time `json:"kickoff_at"`
	Bankroll  float64   `json:"bankroll"`
	Drawdown  float64   `json:"drawdown"`
	Profit    float64   `json:"profit"`
}

// EquityCurve is the bankroll path of a ledger
type EquityCurve []EquityPoint

// BuildEquityCurve replays the ledger's bankroll path. The peak starts at
// the initial bankroll, matching the statistics drawdown.
func BuildEquityCurve(initialBankroll float64, ledger []models.BetRecord) EquityCurve {
	curve := make(EquityCurve, 0, len(ledger))
	peak := initialBankroll
	for _, bet := range ledger {
		if bet.BankrollAfter > peak {
			peak = bet.BankrollAfter
		}
		drawdown := 0.0
		if peak > 0 {
			drawdown = math.Min(1, (peak-bet.BankrollAfter)/peak)
		}
		curve = append(curve, EquityPoint{
			Sequence:  bet.Sequence,
			KickoffAt: bet.KickoffAt,
			Bankroll:  bet.BankrollAfter,
			Drawdown:  drawdown,
			Profit:    bet.Profit,
		})
	}
	return curve
}

// GetReturns calculates per-bet bankroll returns
func (e EquityCurve) GetReturns(initialBankroll float64) []float64 {
	if len(e) == 0 {
		return []float64{}
	}
	returns := make([]float64, 0, len(e))
	prev := initialBankroll
	for _, point := range e {
		if prev == 0 {
			returns = append(returns, 0)
		} else {
			returns = append(returns, (point.Bankroll-prev)/prev)
		}
		prev = point.Bankroll
	}
	return returns
}

// GetDownsideDeviation calculates downside deviation of returns
func (e EquityCurve) GetDownsideDeviation(initialBankroll float64) float64 {
	variance := 0.0
	count := 0
	for _, r := range e.GetReturns(initialBankroll) {
		if r < 0 {
			variance += r * r
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(variance / float64(count))
}

// ToCSV exports the equity curve as CSV
func (e EquityCurve) ToCSV() string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write([]string{"sequence", "kickoff_at", "bankroll", "drawdown", "profit"})
	for _, point := range e {
		_ = w.Write([]string{
			strconv.Itoa(point.Sequence),
			point.KickoffAt.Format(time.RFC3339),
			formatFloat(point.Bankroll, 2),
			formatFloat(point.Drawdown, 6),
			formatFloat(point.Profit, 2),
		})
	}
	w.Flush()
	return b.String()
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
