package models

import "time"

// MarketKind identifies a wagering market
type MarketKind string

const (
	MarketMoneyline MarketKind = "moneyline"
	MarketTotal     MarketKind = "total"
	MarketSpread    MarketKind = "spread"
)

// Markets lists supported markets in reporting order
var Markets = []MarketKind{MarketMoneyline, MarketTotal, MarketSpread}

// Selection identifies a side within a market
type Selection string

const (
	SelectionHome  Selection = "home"
	SelectionDraw  Selection = "draw"
	SelectionAway  Selection = "away"
	SelectionOver  Selection = "over"
	SelectionUnder Selection = "under"
)

// Supports reports whether the selection belongs to the market
func (m MarketKind) Supports(s Selection) bool {
	switch m {
	case MarketMoneyline:
		return s == SelectionHome || s == SelectionDraw || s == SelectionAway
	case MarketTotal:
		return s == SelectionOver || s == SelectionUnder
	case MarketSpread:
		return s == SelectionHome || s == SelectionAway
	default:
		return false
	}
}

// HasLine reports whether quotes in the market carry a line
func (m MarketKind) HasLine() bool {
	return m == MarketTotal || m == MarketSpread
}

// RawQuote is a bookmaker price as recorded, before validation.
// Odds is kept as text because feeds deliver decimal, fractional and
// American formats as well as placeholders such as "SP".
type RawQuote struct {
	FixtureID  string     `db:"fixture_id" json:"fixture_id"`
	Market     MarketKind `db:"market" json:"market"`
	Selection  Selection  `db:"selection" json:"selection"`
	Odds       string     `db:"odds" json:"odds"`
	// Line is the total goals line, or for spreads the handicap applied to
	// the home side. Both spread selections carry the same line: an away
	// +1.5 price is stored with Line -1.5.
	Line       *float64   `db:"line" json:"line,omitempty"`
	Bookmaker  string     `db:"bookmaker" json:"bookmaker"`
	CapturedAt time.Time  `db:"captured_at" json:"captured_at"`
}

// MarketQuote is a validated price with its implied probability
type MarketQuote struct {
	FixtureID          string     `json:"fixture_id"`
	Market             MarketKind `json:"market"`
	Selection          Selection  `json:"selection"`
	Odds               float64    `json:"odds"`
	ImpliedProbability float64    `json:"implied_probability"`
	Line               *float64   `json:"line,omitempty"`
	Bookmaker          string     `json:"bookmaker"`
}

// LineValue returns the line or zero for markets without one
func (q *MarketQuote) LineValue() float64 {
	if q.Line == nil {
		return 0
	}
	return *q.Line
}
