package odds

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/yourusername/value-tipster/internal/models"
)

// ProbabilityPlaces is the rounding applied to implied probabilities
const ProbabilityPlaces = 4

func invalid(raw, reason string) error {
	return &models.InvalidOddsError{Raw: raw, Reason: reason}
}

// ImpliedProbability returns 1/odds rounded to four decimal places
func ImpliedProbability(odds decimal.Decimal) float64 {
	return one.DivRound(odds, ProbabilityPlaces).InexactFloat64()
}

// Normalize validates a raw quote and attaches its implied probability.
// Invalid prices unwrap to models.ErrInvalidOdds; market and selection
// mismatches unwrap to models.ErrInvalidQuote.
func Normalize(raw models.RawQuote) (models.MarketQuote, error) {
	if !raw.Market.Supports(raw.Selection) {
		return models.MarketQuote{}, fmt.Errorf("%w: selection %q not valid for market %q",
			models.ErrInvalidQuote, raw.Selection, raw.Market)
	}
	if raw.Market.HasLine() {
		if raw.Line == nil || math.IsNaN(*raw.Line) || math.IsInf(*raw.Line, 0) {
			return models.MarketQuote{}, fmt.Errorf("%w: %s quote requires a line", models.ErrInvalidQuote, raw.Market)
		}
		if raw.Market == models.MarketTotal && *raw.Line < 0 {
			return models.MarketQuote{}, fmt.Errorf("%w: negative total line %v", models.ErrInvalidQuote, *raw.Line)
		}
	}

	d, err := ParseOdds(raw.Odds)
	if err != nil {
		return models.MarketQuote{}, err
	}

	quote := models.MarketQuote{
		FixtureID:          raw.FixtureID,
		Market:             raw.Market,
		Selection:          raw.Selection,
		Odds:               d.Round(4).InexactFloat64(),
		ImpliedProbability: ImpliedProbability(d),
		Bookmaker:          raw.Bookmaker,
	}
	if raw.Market.HasLine() {
		line := *raw.Line
		quote.Line = &line
	}
	return quote, nil
}

// NormalizeAll normalises a batch, dropping and counting the invalid entries
func NormalizeAll(raws []models.RawQuote) ([]models.MarketQuote, int) {
	quotes := make([]models.MarketQuote, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		q, err := Normalize(raw)
		if err != nil {
			dropped++
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, dropped
}
