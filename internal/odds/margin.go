package odds

import (
	"fmt"

	"github.com/yourusername/value-tipster/internal/models"
)

// MarketKey groups the quotes of one bookmaker's market on a fixture
type MarketKey struct {
	FixtureID string
	Market    models.MarketKind
	Line      float64
	Bookmaker string
}

func (k MarketKey) String() string {
	return fmt.Sprintf("%s/%s/%g/%s", k.FixtureID, k.Market, k.Line, k.Bookmaker)
}

// KeyOf returns the market grouping key of a quote
func KeyOf(q models.MarketQuote) MarketKey {
	return MarketKey{FixtureID: q.FixtureID, Market: q.Market, Line: q.LineValue(), Bookmaker: q.Bookmaker}
}

// Overround returns the bookmaker margin of a complete market: the sum of
// implied probabilities minus one. It returns false when a selection of the
// market is missing.
func Overround(quotes []models.MarketQuote) (float64, bool) {
	if len(quotes) == 0 {
		return 0, false
	}
	required := 2
	if quotes[0].Market == models.MarketMoneyline {
		required = 3
	}

	seen := make(map[models.Selection]bool, required)
	sum := 0.0
	for _, q := range quotes {
		if seen[q.Selection] {
			continue
		}
		seen[q.Selection] = true
		sum += q.ImpliedProbability
	}
	if len(seen) < required {
		return 0, false
	}
	return sum - 1, true
}

// Margins computes the overround of every complete market in the batch
func Margins(quotes []models.MarketQuote) map[MarketKey]float64 {
	groups := make(map[MarketKey][]models.MarketQuote)
	for _, q := range quotes {
		k := KeyOf(q)
		groups[k] = append(groups[k], q)
	}

	margins := make(map[MarketKey]float64, len(groups))
	for k, group := range groups {
		if m, ok := Overround(group); ok {
			margins[k] = m
		}
	}
	return margins
}
