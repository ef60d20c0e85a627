package odds

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/value-tipster/internal/models"
)

func line(v float64) *float64 { return &v }

func TestParseOdds(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{name: "decimal", raw: "2.50", want: 2.5},
		{name: "decimal with spaces", raw: " 3.10 ", want: 3.1},
		{name: "fractional", raw: "6/4", want: 2.5},
		{name: "fractional evens", raw: "1/1", want: 2.0},
		{name: "american positive", raw: "+150", want: 2.5},
		{name: "american negative", raw: "-200", want: 1.5},
		{name: "exactly one", raw: "1.0", wantErr: true},
		{name: "below one", raw: "0.95", wantErr: true},
		{name: "starting price placeholder", raw: "SP", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "american too small", raw: "+50", wantErr: true},
		{name: "zero fraction", raw: "0/1", wantErr: true},
		{name: "zero denominator", raw: "5/0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOdds(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, models.ErrInvalidOdds))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got.InexactFloat64(), 1e-9)
		})
	}
}

func TestImpliedProbability(t *testing.T) {
	assert.Equal(t, 0.4, ImpliedProbability(decimal.RequireFromString("2.5")))
	assert.Equal(t, 0.3333, ImpliedProbability(decimal.RequireFromString("3")))
	assert.Equal(t, 0.6667, ImpliedProbability(decimal.RequireFromString("1.5")))
}

func TestNormalize(t *testing.T) {
	q, err := Normalize(models.RawQuote{
		FixtureID: "f1",
		Market:    models.MarketMoneyline,
		Selection: models.SelectionHome,
		Odds:      "2.00",
		Bookmaker: "b365",
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, q.Odds)
	assert.Equal(t, 0.5, q.ImpliedProbability)
	assert.Nil(t, q.Line)
	assert.Equal(t, "b365", q.Bookmaker)

	q, err = Normalize(models.RawQuote{
		FixtureID: "f1",
		Market:    models.MarketTotal,
		Selection: models.SelectionOver,
		Odds:      "1.90",
		Line:      line(2.5),
	})
	require.NoError(t, err)
	require.NotNil(t, q.Line)
	assert.Equal(t, 2.5, *q.Line)
	assert.Equal(t, 0.5263, q.ImpliedProbability)
}

func TestNormalizeRejects(t *testing.T) {
	_, err := Normalize(models.RawQuote{Market: models.MarketMoneyline, Selection: models.SelectionHome, Odds: "1.00"})
	require.Error(t, err)
	var oddsErr *models.InvalidOddsError
	require.True(t, errors.As(err, &oddsErr))
	assert.Equal(t, "1.00", oddsErr.Raw)
	assert.ErrorIs(t, err, models.ErrInvalidOdds)

	_, err = Normalize(models.RawQuote{Market: models.MarketTotal, Selection: models.SelectionOver, Odds: "1.9"})
	assert.ErrorIs(t, err, models.ErrInvalidQuote)

	_, err = Normalize(models.RawQuote{Market: models.MarketMoneyline, Selection: models.SelectionOver, Odds: "1.9"})
	assert.ErrorIs(t, err, models.ErrInvalidQuote)

	_, err = Normalize(models.RawQuote{Market: models.MarketSpread, Selection: models.SelectionDraw, Odds: "1.9", Line: line(-0.5)})
	assert.ErrorIs(t, err, models.ErrInvalidQuote)
}

func TestNormalizeRoundTrip(t *testing.T) {
	for o := 1.01; o <= 50; o += 0.37 {
		raw := decimal.NewFromFloat(o).Round(2)
		q, err := Normalize(models.RawQuote{
			Market:    models.MarketMoneyline,
			Selection: models.SelectionAway,
			Odds:      raw.String(),
		})
		require.NoError(t, err, "odds %s", raw)
		assert.LessOrEqual(t, math.Abs(q.ImpliedProbability-1/raw.InexactFloat64()), 0.00005, "odds %s", raw)
	}
}

func TestNormalizeAll(t *testing.T) {
	raws := []models.RawQuote{
		{FixtureID: "f1", Market: models.MarketMoneyline, Selection: models.SelectionHome, Odds: "2.1"},
		{FixtureID: "f1", Market: models.MarketMoneyline, Selection: models.SelectionDraw, Odds: "abc"},
		{FixtureID: "f1", Market: models.MarketMoneyline, Selection: models.SelectionAway, Odds: "0.5"},
		{FixtureID: "f1", Market: models.MarketTotal, Selection: models.SelectionUnder, Odds: "1.8", Line: line(2.5)},
	}

	quotes, dropped := NormalizeAll(raws)
	assert.Len(t, quotes, 2)
	assert.Equal(t, 2, dropped)

	quotes, dropped = NormalizeAll(nil)
	assert.Empty(t, quotes)
	assert.Zero(t, dropped)
}

func TestOverround(t *testing.T) {
	raws := []models.RawQuote{
		{FixtureID: "f1", Market: models.MarketMoneyline, Selection: models.SelectionHome, Odds: "2.0", Bookmaker: "b"},
		{FixtureID: "f1", Market: models.MarketMoneyline, Selection: models.SelectionDraw, Odds: "3.4", Bookmaker: "b"},
		{FixtureID: "f1", Market: models.MarketMoneyline, Selection: models.SelectionAway, Odds: "3.8", Bookmaker: "b"},
		{FixtureID: "f1", Market: models.MarketTotal, Selection: models.SelectionOver, Odds: "1.9", Line: line(2.5), Bookmaker: "b"},
	}
	quotes, dropped := NormalizeAll(raws)
	require.Zero(t, dropped)

	margin, ok := Overround(quotes[:3])
	require.True(t, ok)
	assert.InDelta(t, 0.0573, margin, 1e-9)

	_, ok = Overround(quotes[3:])
	assert.False(t, ok, "one-sided total market has no margin")

	margins := Margins(quotes)
	assert.Len(t, margins, 1)
	assert.InDelta(t, 0.0573, margins[KeyOf(quotes[0])], 1e-9)
}
