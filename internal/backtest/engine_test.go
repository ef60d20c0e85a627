package backtest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/value-tipster/internal/models"
	"github.com/yourusername/value-tipster/internal/predictor"
)

const season = "2023-24"

func newTestEngine(t *testing.T, cfg Config, store *fakeStore, pred *fakePredictor, sink *fakeSink) *Engine {
	t.Helper()
	engine, err := NewEngine(cfg, models.DefaultValuePolicy(), store, pred, sink, quietLogger())
	require.NoError(t, err)
	return engine
}

func TestNewEngineRequiresDependencies(t *testing.T) {
	_, err := NewEngine(testConfig(), models.DefaultValuePolicy(), nil, newFakePredictor(), nil, nil)
	assert.Error(t, err)

	_, err = NewEngine(testConfig(), models.DefaultValuePolicy(), newFakeStore(), nil, nil, nil)
	assert.Error(t, err)

	policy := models.DefaultValuePolicy()
	policy.Bankroll = 0
	_, err = NewEngine(testConfig(), policy, newFakeStore(), newFakePredictor(), nil, nil)
	assert.Error(t, err)
}

func TestRunCompoundsBankroll(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	store.add("f1", season, kickoff(0), 2, 0, "2.00")
	store.add("f2", season, kickoff(7), 0, 1, "2.00")
	sink := &fakeSink{}

	report, err := newTestEngine(t, testConfig(), store, newFakePredictor(), sink).Run(context.Background(), season, "")
	require.NoError(t, err)

	require.Len(t, report.Ledger, 2)
	first, second := report.Ledger[0], report.Ledger[1]

	// kelly 0.30 capped at 5%, quarter kelly: 1.25% of bankroll
	assert.Equal(t, 12.5, first.Stake)
	assert.Equal(t, models.BetResultWon, first.Result)
	assert.Equal(t, 12.5, first.Profit)
	assert.Equal(t, 1012.5, first.BankrollAfter)

	assert.Equal(t, 12.66, second.Stake)
	assert.Equal(t, models.BetResultLost, second.Result)
	assert.Equal(t, -12.66, second.Profit)
	assert.InDelta(t, 999.84, second.BankrollAfter, 1e-9)

	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, 2, second.Sequence)
	assert.InDelta(t, 999.84, report.FinalBankroll, 1e-9)
	assert.InDelta(t, -0.16/25.16*100, report.Statistics.ROI, 1e-6)
	assert.InDelta(t, 12.66/1012.5, report.Statistics.MaxDrawdown, 1e-9)
	assert.Equal(t, "fake-v1", report.ModelVariant)
	assert.Equal(t, testLeague, report.League)
	assert.Equal(t, 1, sink.count())
}

func TestRunHoldsOutSeason(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	store.add("f1", season, kickoff(0), 1, 0, "2.00")
	pred := newFakePredictor()

	_, err := newTestEngine(t, testConfig(), store, pred, nil).Run(context.Background(), season, testLeague)
	require.NoError(t, err)

	assert.Equal(t, []string{testLeague + "|" + season}, pred.prepared)
	assert.Equal(t, map[string]bool{season: true}, pred.excluded)
}

func TestRunIsDeterministic(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	for i := 0; i < 20; i++ {
		home, away := 1, 0
		if i%3 == 0 {
			home, away = 0, 2
		}
		store.add(uuidLike("fx", i), season, kickoff(i), home, away, "2.10")
	}
	engine := newTestEngine(t, testConfig(), store, newFakePredictor(), nil)

	a, err := engine.Run(context.Background(), season, "")
	require.NoError(t, err)
	b, err := engine.Run(context.Background(), season, "")
	require.NoError(t, err)

	assert.Equal(t, a.Ledger, b.Ledger)
	assert.Equal(t, a.Statistics, b.Statistics)
	assert.Equal(t, a.Accuracy, b.Accuracy)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestRunReplaysInKickoffOrder(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	store.add("late", season, kickoff(5), 1, 0, "2.00")
	store.add("early", season, kickoff(1), 1, 0, "2.00")
	store.add("b-same", season, kickoff(3), 1, 0, "2.00")
	store.add("a-same", season, kickoff(3), 1, 0, "2.00")

	report, err := newTestEngine(t, testConfig(), store, newFakePredictor(), nil).Run(context.Background(), season, "")
	require.NoError(t, err)

	ids := make([]string, 0, len(report.Ledger))
	for _, bet := range report.Ledger {
		ids = append(ids, bet.FixtureID)
	}
	assert.Equal(t, []string{"early", "a-same", "b-same", "late"}, ids)
}

func TestRunWithoutQuotesStillCountsAccuracy(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	store.add("f1", season, kickoff(0), 1, 0, "")
	store.add("f2", season, kickoff(1), 0, 0, "SP")

	report, err := newTestEngine(t, testConfig(), store, newFakePredictor(), nil).Run(context.Background(), season, "")
	require.NoError(t, err)

	assert.Empty(t, report.Ledger)
	assert.Equal(t, 0, report.Statistics.TotalBets)
	assert.Equal(t, 0.0, report.Statistics.ROI)
	assert.Equal(t, 1000.0, report.FinalBankroll)
	assert.Equal(t, 2, report.Accuracy.Replayed)
	assert.Equal(t, 1, report.Accuracy.Correct)
	assert.Equal(t, 0.5, report.Accuracy.Overall)
	assert.Equal(t, 2, report.Skipped.NoQuotes)
	assert.Equal(t, 1, report.Skipped.InvalidQuotes)
	assert.Nil(t, report.MonteCarlo)
}

func TestRunAllLosses(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	store.add("f1", season, kickoff(0), 0, 1, "2.00")
	store.add("f2", season, kickoff(1), 0, 2, "2.00")
	store.add("f3", season, kickoff(2), 1, 3, "2.00")

	report, err := newTestEngine(t, testConfig(), store, newFakePredictor(), nil).Run(context.Background(), season, "")
	require.NoError(t, err)

	stats := report.Statistics
	assert.Equal(t, 3, stats.Losses)
	assert.Equal(t, 0.0, stats.WinRate)
	assert.Equal(t, -100.0, stats.ROI)
	assert.Equal(t, 0.0, stats.ProfitFactor)
	assert.Equal(t, 3, stats.LongestLossStreak)

	// 12.50, then 12.34 of 987.50, then 12.19 of 975.16
	assert.InDelta(t, 962.97, report.FinalBankroll, 1e-9)
	assert.InDelta(t, (1000-962.97)/1000, stats.MaxDrawdown, 1e-9)
	assert.Equal(t, 0.0, report.Accuracy.Overall)
}

func TestRunSkipsMissingPredictions(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	store.add("f1", season, kickoff(0), 1, 0, "2.00")
	store.add("f2", season, kickoff(1), 1, 0, "2.00")
	pred := newFakePredictor()
	pred.unknown["f2"] = true

	report, err := newTestEngine(t, testConfig(), store, pred, nil).Run(context.Background(), season, "")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped.MissingPrediction)
	assert.Equal(t, 1, report.Accuracy.Replayed)
	assert.Len(t, report.Ledger, 1)
}

func TestRunSkipsFailedPredictions(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	store.add("f1", season, kickoff(0), 1, 0, "2.00")
	store.add("f2", season, kickoff(1), 1, 0, "2.00")
	store.add("f3", season, kickoff(2), 1, 0, "2.00")
	store.add("f4", season, kickoff(3), 1, 0, "2.00")
	pred := newFakePredictor()
	pred.failing["f2"] = fmt.Errorf("%w: missing field home_win", predictor.ErrInvalidResponse)
	pred.failing["f3"] = fmt.Errorf("%w: deadline exceeded", predictor.ErrPredictorUnavailable)

	report, err := newTestEngine(t, testConfig(), store, pred, nil).Run(context.Background(), season, "")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped.MissingPrediction)
	assert.Equal(t, 1, report.Skipped.PredictorErrors)
	assert.Equal(t, 2, report.Accuracy.Replayed)
	assert.Len(t, report.Ledger, 2)
}

func TestRunAbortsWhenPredictorStopsAnswering(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	pred := newFakePredictor()
	for i := 0; i < maxConsecutivePredictorErrors+2; i++ {
		id := fmt.Sprintf("f%d", i)
		store.add(id, season, kickoff(i), 1, 0, "2.00")
		pred.failing[id] = fmt.Errorf("%w: connection refused", predictor.ErrPredictorUnavailable)
	}
	sink := &fakeSink{}

	report, err := newTestEngine(t, testConfig(), store, pred, sink).Run(context.Background(), season, "")
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, predictor.ErrPredictorUnavailable)
	assert.Equal(t, 0, sink.count())
}

func TestRunAbortsOnOpenCircuit(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	store.add("f1", season, kickoff(0), 1, 0, "2.00")
	store.add("f2", season, kickoff(1), 1, 0, "2.00")
	pred := newFakePredictor()
	pred.failing["f1"] = predictor.ErrCircuitOpen

	_, err := newTestEngine(t, testConfig(), store, pred, nil).Run(context.Background(), season, "")
	assert.ErrorIs(t, err, predictor.ErrCircuitOpen)
}

func TestRunCapsBetsPerFixture(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	store.add("f1", season, kickoff(0), 3, 0, "2.00")
	line := 2.5
	store.quotes["f1"] = append(store.quotes["f1"], models.RawQuote{
		FixtureID: "f1",
		Market:    models.MarketTotal,
		Selection: models.SelectionOver,
		Odds:      "2.50",
		Line:      &line,
		Bookmaker: "book",
	})

	cfg := testConfig()
	cfg.MaxBetsPerFixture = 1
	report, err := newTestEngine(t, cfg, store, newFakePredictor(), nil).Run(context.Background(), season, "")
	require.NoError(t, err)
	assert.Len(t, report.Ledger, 1)
}

func TestRunInsufficientSeasonFixtures(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	store.add("f1", season, kickoff(0), 1, 0, "2.00")
	pred := newFakePredictor()
	sink := &fakeSink{}

	cfg := testConfig()
	cfg.MinSeasonFixtures = DefaultMinSeasonFixtures
	_, err := newTestEngine(t, cfg, store, pred, sink).Run(context.Background(), season, "")

	var insufficient *models.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.True(t, errors.Is(err, models.ErrInsufficientData))
	assert.Equal(t, "season fixtures", insufficient.What)
	assert.Equal(t, 1, insufficient.Have)
	assert.Equal(t, DefaultMinSeasonFixtures, insufficient.Required)
	assert.Empty(t, pred.prepared)
	assert.Zero(t, pred.calls)
	assert.Zero(t, sink.count())
}

func TestRunInsufficientTrainingRows(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	store.add("f1", season, kickoff(0), 1, 0, "2.00")

	cfg := testConfig()
	cfg.MinTrainingRows = 4
	_, err := newTestEngine(t, cfg, store, newFakePredictor(), nil).Run(context.Background(), season, "")

	var insufficient *models.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "training rows", insufficient.What)
	assert.Equal(t, 3, insufficient.Have)
}

func TestRunCancelledPersistsNothing(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	for i := 0; i < 10; i++ {
		store.add(uuidLike("fx", i), season, kickoff(i), 1, 0, "2.00")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pred := newFakePredictor()
	pred.onPredict = func(calls int) {
		if calls == 3 {
			cancel()
		}
	}
	sink := &fakeSink{}

	report, err := newTestEngine(t, testConfig(), store, pred, sink).Run(ctx, season, "")
	assert.Nil(t, report)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, pred.calls)
	assert.Zero(t, sink.count())
}

func TestRunWithoutPersistence(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	store.add("f1", season, kickoff(0), 1, 0, "2.00")
	sink := &fakeSink{}

	cfg := testConfig()
	cfg.PersistReports = false
	_, err := newTestEngine(t, cfg, store, newFakePredictor(), sink).Run(context.Background(), season, "")
	require.NoError(t, err)
	assert.Zero(t, sink.count())
}

func TestRunWithMonteCarlo(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	for i := 0; i < 10; i++ {
		store.add(uuidLike("fx", i), season, kickoff(i), 1, 0, "2.00")
	}
	cfg := testConfig()
	cfg.MonteCarloIterations = 200
	cfg.MonteCarloSeed = 7

	report, err := newTestEngine(t, cfg, store, newFakePredictor(), nil).Run(context.Background(), season, "")
	require.NoError(t, err)
	require.NotNil(t, report.MonteCarlo)
	assert.Equal(t, 200, report.MonteCarlo.Iterations)
}

func TestRunRequiresSeason(t *testing.T) {
	_, err := newTestEngine(t, testConfig(), newFakeStore(), newFakePredictor(), nil).Run(context.Background(), "", "")
	assert.Error(t, err)
}
