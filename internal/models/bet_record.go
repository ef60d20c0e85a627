package models

import "time"

// BetResult is the settlement state of a simulated bet
type BetResult string

const (
	BetResultWon  BetResult = "won"
	BetResultLost BetResult = "lost"
	BetResultPush BetResult = "push"
)

// BetRecord is one settled entry of a backtest ledger
type BetRecord struct {
	Sequence           int        `db:"sequence" json:"sequence"`
	FixtureID          string     `db:"fixture_id" json:"fixture_id"`
	KickoffAt          time.Time  `db:"kickoff_at" json:"kickoff_at"`
	HomeTeam           string     `db:"home_team" json:"home_team"`
	AwayTeam           string     `db:"away_team" json:"away_team"`
	Market             MarketKind `db:"market" json:"market"`
	Selection          Selection  `db:"selection" json:"selection"`
	Line               *float64   `db:"line" json:"line,omitempty"`
	Odds               float64    `db:"odds" json:"odds"`
	ModelProbability   float64    `db:"model_probability" json:"model_probability"`
	ImpliedProbability float64    `db:"implied_probability" json:"implied_probability"`
	ValuePct           float64    `db:"value_pct" json:"value_pct"`
	Confidence         float64    `db:"confidence" json:"confidence"`
	Stake              float64    `db:"stake" json:"stake"`
	Result             BetResult  `db:"result" json:"result"`
	Profit             float64    `db:"profit" json:"profit"`
	BankrollAfter      float64    `db:"bankroll_after" json:"bankroll_after"`
}

// Won reports whether the bet was a winner
func (b *BetRecord) Won() bool {
	return b.Result == BetResultWon
}

// Lost reports whether the bet was a loser
func (b *BetRecord) Lost() bool {
	return b.Result == BetResultLost
}

// Push reports whether the stake was returned
func (b *BetRecord) Push() bool {
	return b.Result == BetResultPush
}
