package backtest

import (
	"github.com/shopspring/decimal"

	"github.com/yourusername/value-tipster/internal/models"
)

// State tracks the simulated bankroll of one run. Bankroll arithmetic is
// done in decimal so that replaying the same ledger always lands on the
// same cent.
type State struct {
	initial       decimal.Decimal
	bankroll      decimal.Decimal
	peak          decimal.Decimal
	Ledger        []models.BetRecord
	alertRaised   bool
	drawdownAlert float64
}

// NewState initializes backtest state
func NewState(initialBankroll, drawdownAlert float64) *State {
	b := decimal.NewFromFloat(initialBankroll)
	return &State{
		initial:       b,
		bankroll:      b,
		peak:          b,
		Ledger:        []models.BetRecord{},
		drawdownAlert: drawdownAlert,
	}
}

// Bankroll returns the current simulated bankroll
func (s *State) Bankroll() float64 {
	return s.bankroll.InexactFloat64()
}

// InitialBankroll returns the starting bankroll
func (s *State) InitialBankroll() float64 {
	return s.initial.InexactFloat64()
}

// Settle applies a settled bet to the bankroll and appends it to the ledger.
// It returns the completed record and whether the drawdown alert was
// crossed for the first time.
func (s *State) Settle(bet models.BetRecord) (models.BetRecord, bool) {
	stake := decimal.NewFromFloat(bet.Stake)
	var profit decimal.Decimal
	switch bet.Result {
	case models.BetResultWon:
		profit = stake.Mul(decimal.NewFromFloat(bet.Odds).Sub(decimal.NewFromInt(1))).Round(2)
	case models.BetResultLost:
		profit = stake.Neg()
	default:
		profit = decimal.Zero
	}

	s.bankroll = s.bankroll.Add(profit)
	if s.bankroll.GreaterThan(s.peak) {
		s.peak = s.bankroll
	}

	bet.Sequence = len(s.Ledger) + 1
	bet.Profit = profit.InexactFloat64()
	bet.BankrollAfter = s.bankroll.InexactFloat64()
	s.Ledger = append(s.Ledger, bet)

	crossed := false
	if !s.alertRaised && s.drawdownAlert > 0 && s.CurrentDrawdown() >= s.drawdownAlert {
		s.alertRaised = true
		crossed = true
	}
	return bet, crossed
}

// CurrentDrawdown calculates peak-to-trough drawdown
func (s *State) CurrentDrawdown() float64 {
	if !s.peak.IsPositive() {
		return 0
	}
	drawdown := s.peak.Sub(s.bankroll).Div(s.peak).InexactFloat64()
	if drawdown < 0 {
		return 0
	}
	return drawdown
}
