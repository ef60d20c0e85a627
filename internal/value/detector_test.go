package value

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/value-tipster/internal/models"
	"github.com/yourusername/value-tipster/internal/odds"
)

func testPolicy() models.ValuePolicy {
	p := models.DefaultValuePolicy()
	p.MinValueThreshold = 5
	p.MinConfidenceThreshold = 0.6
	return p
}

func testFixture() models.Fixture {
	return models.Fixture{
		ID:        "f1",
		League:    "E0",
		Season:    "2023",
		HomeTeam:  "Arsenal",
		AwayTeam:  "Everton",
		KickoffAt: time.Date(2023, 9, 2, 15, 0, 0, 0, time.UTC),
	}
}

func quotes(t *testing.T, raws ...models.RawQuote) []models.MarketQuote {
	t.Helper()
	for i := range raws {
		if raws[i].FixtureID == "" {
			raws[i].FixtureID = "f1"
		}
		if raws[i].Bookmaker == "" {
			raws[i].Bookmaker = "b1"
		}
	}
	qs, dropped := odds.NormalizeAll(raws)
	require.Zero(t, dropped)
	return qs
}

func ptr(v float64) *float64 { return &v }

func TestScenarioAValueAndExpectedValue(t *testing.T) {
	assert.InDelta(t, 20.0, ValuePercentage(0.60, 2.0), 1e-9)
	assert.InDelta(t, 0.20, ExpectedValue(0.60, 2.0), 1e-9)
	assert.InDelta(t, 0.10, Edge(0.60, 0.50), 1e-9)
}

func TestValuePercentageSign(t *testing.T) {
	for p := 0.01; p < 1; p += 0.03 {
		for o := 1.05; o < 15; o += 0.25 {
			v := ValuePercentage(p, o)
			ev := ExpectedValue(p, o)
			assert.InDelta(t, v, ev*100, 1e-9)
			if p*o > 1+1e-12 {
				assert.Greater(t, v, 0.0, "p=%v o=%v", p, o)
			}
			if p*o < 1-1e-12 {
				assert.Less(t, v, 0.0, "p=%v o=%v", p, o)
			}
		}
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name      string
		base      float64
		market    models.MarketKind
		selection models.Selection
		want      float64
	}{
		{"moneyline home", 0.7, models.MarketMoneyline, models.SelectionHome, 0.7},
		{"moneyline draw", 0.7, models.MarketMoneyline, models.SelectionDraw, 0.56},
		{"total", 0.7, models.MarketTotal, models.SelectionOver, 0.595},
		{"spread", 0.7, models.MarketSpread, models.SelectionAway, 0.63},
		{"unknown market", 0.5, models.MarketKind("corners"), models.SelectionOver, 0.4},
		{"clamped high", 1.5, models.MarketMoneyline, models.SelectionHome, 1.0},
		{"clamped low", -0.2, models.MarketMoneyline, models.SelectionHome, 0.0},
		{"rounded", 0.6667, models.MarketMoneyline, models.SelectionHome, 0.667},
		{"nan", math.NaN(), models.MarketMoneyline, models.SelectionHome, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Confidence(tt.base, tt.market, tt.selection))
		})
	}
}

func TestDetectorMoneyline(t *testing.T) {
	d, err := NewDetector(testPolicy())
	require.NoError(t, err)

	pred, err := models.NewPrediction("f1", 0.6, 0.25, 0.15, "test")
	require.NoError(t, err)

	opps := d.Evaluate(testFixture(), pred, quotes(t,
		models.RawQuote{Market: models.MarketMoneyline, Selection: models.SelectionHome, Odds: "2.0"},
		models.RawQuote{Market: models.MarketMoneyline, Selection: models.SelectionDraw, Odds: "3.2"},
		models.RawQuote{Market: models.MarketMoneyline, Selection: models.SelectionAway, Odds: "4.5"},
		// qualifies on value but total confidence is 0.6*0.85
		models.RawQuote{Market: models.MarketTotal, Selection: models.SelectionOver, Odds: "1.9", Line: ptr(2.5)},
	))

	require.Len(t, opps, 1)
	opp := opps[0]
	assert.Equal(t, models.MarketMoneyline, opp.Market)
	assert.Equal(t, models.SelectionHome, opp.Selection)
	assert.InDelta(t, 20.0, opp.ValuePct, 1e-9)
	assert.InDelta(t, 0.2, opp.ExpectedValue, 1e-9)
	assert.InDelta(t, 0.1, opp.Edge, 1e-9)
	assert.Equal(t, 0.6, opp.Confidence)
	assert.Equal(t, "Arsenal", opp.HomeTeam)
	assert.Equal(t, "test", opp.ModelVariant)
	assert.InDelta(t, 0.0347, opp.MarketMargin, 1e-9)
}

func TestDetectorSurvivesNaNConfidence(t *testing.T) {
	d, err := NewDetector(testPolicy())
	require.NoError(t, err)

	pred := &models.Prediction{FixtureID: "f1", HomeWin: 0.6, Draw: 0.25, AwayWin: 0.15, Confidence: math.NaN()}
	qs := quotes(t, models.RawQuote{Market: models.MarketMoneyline, Selection: models.SelectionHome, Odds: "2.0"})

	var opps []models.ValueOpportunity
	require.NotPanics(t, func() { opps = d.Evaluate(testFixture(), pred, qs) })
	assert.Empty(t, opps)
}

func TestDetectorNoQuotes(t *testing.T) {
	d, err := NewDetector(testPolicy())
	require.NoError(t, err)
	pred, err := models.NewPrediction("f1", 0.7, 0.2, 0.1, "test")
	require.NoError(t, err)

	assert.Empty(t, d.Evaluate(testFixture(), pred, nil))
	assert.Empty(t, d.Evaluate(testFixture(), nil, quotes(t,
		models.RawQuote{Market: models.MarketMoneyline, Selection: models.SelectionHome, Odds: "2.0"},
	)))
}

func TestDetectorFilters(t *testing.T) {
	pred, err := models.NewPrediction("f1", 0.2, 0.45, 0.35, "test")
	require.NoError(t, err)

	policy := testPolicy()
	policy.MinConfidenceThreshold = 0.2
	draw := models.RawQuote{Market: models.MarketMoneyline, Selection: models.SelectionDraw, Odds: "3.0"}
	away := models.RawQuote{Market: models.MarketMoneyline, Selection: models.SelectionAway, Odds: "4.5"}

	d, err := NewDetector(policy)
	require.NoError(t, err)
	assert.Len(t, d.Evaluate(testFixture(), pred, quotes(t, draw, away)), 2)

	policy.ExcludeDraws = true
	d, err = NewDetector(policy)
	require.NoError(t, err)
	opps := d.Evaluate(testFixture(), pred, quotes(t, draw, away))
	require.Len(t, opps, 1)
	assert.Equal(t, models.SelectionAway, opps[0].Selection)

	policy.ExcludeDraws = false
	policy.MaxOdds = 4.0
	d, err = NewDetector(policy)
	require.NoError(t, err)
	opps = d.Evaluate(testFixture(), pred, quotes(t, draw, away))
	require.Len(t, opps, 1)
	assert.Equal(t, models.SelectionDraw, opps[0].Selection)

	policy.MaxOdds = 0
	policy.MarketsEnabled = []models.MarketKind{models.MarketSpread}
	d, err = NewDetector(policy)
	require.NoError(t, err)
	assert.Empty(t, d.Evaluate(testFixture(), pred, quotes(t, draw, away)))
}

func TestDetectorKeepsBestPrice(t *testing.T) {
	d, err := NewDetector(testPolicy())
	require.NoError(t, err)
	pred, err := models.NewPrediction("f1", 0.6, 0.25, 0.15, "test")
	require.NoError(t, err)

	opps := d.Evaluate(testFixture(), pred, quotes(t,
		models.RawQuote{Market: models.MarketMoneyline, Selection: models.SelectionHome, Odds: "2.0", Bookmaker: "b1"},
		models.RawQuote{Market: models.MarketMoneyline, Selection: models.SelectionHome, Odds: "2.1", Bookmaker: "b2"},
	))
	require.Len(t, opps, 1)
	assert.Equal(t, 2.1, opps[0].Odds)
	assert.Equal(t, "b2", opps[0].Bookmaker)
}

func TestDetectorSpreadAndTotal(t *testing.T) {
	policy := testPolicy()
	policy.MinConfidenceThreshold = 0.5
	d, err := NewDetector(policy)
	require.NoError(t, err)

	// home favourite: expected 2.0 v 1.3, predicted total 2.8 + 0.8*0.5
	pred, err := models.NewPrediction("f1", 0.8, 0.15, 0.05, "test")
	require.NoError(t, err)

	opps := d.Evaluate(testFixture(), pred, quotes(t,
		models.RawQuote{Market: models.MarketSpread, Selection: models.SelectionHome, Odds: "1.9", Line: ptr(-0.5)},
		models.RawQuote{Market: models.MarketSpread, Selection: models.SelectionAway, Odds: "1.9", Line: ptr(-0.5)},
		models.RawQuote{Market: models.MarketTotal, Selection: models.SelectionOver, Odds: "1.8", Line: ptr(2.5)},
		models.RawQuote{Market: models.MarketTotal, Selection: models.SelectionUnder, Odds: "2.0", Line: ptr(2.5)},
	))

	require.Len(t, opps, 2)
	// over: 0.65*1.8 = 1.17, spread home: 0.6*1.9 = 1.14
	assert.Equal(t, models.MarketTotal, opps[0].Market)
	assert.Equal(t, models.SelectionOver, opps[0].Selection)
	assert.InDelta(t, 0.65, opps[0].ModelProbability, 1e-9)
	assert.Equal(t, 0.68, opps[0].Confidence)
	assert.Equal(t, models.MarketSpread, opps[1].Market)
	assert.Equal(t, models.SelectionHome, opps[1].Selection)
	assert.InDelta(t, 0.6, opps[1].ModelProbability, 1e-9)
	assert.Equal(t, 0.72, opps[1].Confidence)
}

func TestSortOpportunitiesDeterministic(t *testing.T) {
	kickoff := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	opps := []models.ValueOpportunity{
		{FixtureID: "b", ValuePct: 10, Confidence: 0.7, KickoffAt: kickoff, Market: models.MarketMoneyline, Selection: models.SelectionHome},
		{FixtureID: "a", ValuePct: 10, Confidence: 0.7, KickoffAt: kickoff, Market: models.MarketMoneyline, Selection: models.SelectionHome},
		{FixtureID: "c", ValuePct: 10, Confidence: 0.8, KickoffAt: kickoff, Market: models.MarketMoneyline, Selection: models.SelectionHome},
		{FixtureID: "d", ValuePct: 12, Confidence: 0.6, KickoffAt: kickoff, Market: models.MarketMoneyline, Selection: models.SelectionHome},
	}
	SortOpportunities(opps)

	ids := make([]string, len(opps))
	for i, o := range opps {
		ids[i] = o.FixtureID
	}
	assert.Equal(t, []string{"d", "c", "a", "b"}, ids)
}

func TestNewDetectorRejectsInvalidPolicy(t *testing.T) {
	policy := testPolicy()
	policy.KellyFraction = 0
	_, err := NewDetector(policy)
	assert.Error(t, err)

	policy = testPolicy()
	policy.ProbabilityModel = "neural"
	_, err = NewDetector(policy)
	assert.Error(t, err)
}
