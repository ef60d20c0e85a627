package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/value-tipster/internal/models"
)

func TestRunSeasonsSkipsThinSeasons(t *testing.T) {
	store := newFakeStore()
	seedTraining(store, 3)
	for i := 0; i < 3; i++ {
		store.add(uuidLike("a", i), "2023-24", kickoff(i), 1, 0, "2.00")
	}
	store.add("b1", "2024-25", kickoff(400), 0, 1, "2.00")

	cfg := testConfig()
	cfg.MinSeasonFixtures = 2
	cfg.Concurrency = 2
	sink := &fakeSink{}
	engine := newTestEngine(t, cfg, store, newFakePredictor(), sink)

	summary, err := RunSeasons(context.Background(), engine, []string{"2024-25", "2023-24"}, "")
	require.NoError(t, err)

	require.Len(t, summary.Seasons, 2)
	assert.Equal(t, "2023-24", summary.Seasons[0].Season)
	require.NotNil(t, summary.Seasons[0].Report)
	assert.Equal(t, "2024-25", summary.Seasons[1].Season)
	assert.Nil(t, summary.Seasons[1].Report)
	assert.NotEmpty(t, summary.Seasons[1].Skipped)

	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 3, summary.TotalBets)
	assert.Equal(t, 1.0, summary.ConsistencyScore)
	assert.Equal(t, testLeague, summary.League)
	assert.Equal(t, 1, sink.count())
}

func TestRunSeasonsValidatesInput(t *testing.T) {
	_, err := RunSeasons(context.Background(), nil, []string{"2023-24"}, "")
	assert.Error(t, err)

	engine := newTestEngine(t, testConfig(), newFakeStore(), newFakePredictor(), nil)
	_, err = RunSeasons(context.Background(), engine, nil, "")
	assert.Error(t, err)
}

func TestGenerateRecommendation(t *testing.T) {
	assert.Equal(t, RecommendationAccept, GenerateRecommendation(4, 0.75, 0.1))
	assert.Equal(t, RecommendationReject, GenerateRecommendation(-2, 0.75, 0.1))
	assert.Equal(t, RecommendationReject, GenerateRecommendation(3, 0.25, 0.1))
	assert.Equal(t, RecommendationNeedsReview, GenerateRecommendation(1, 0.5, 0.2))
}

func TestSummarizeWithoutReports(t *testing.T) {
	summary := Summarize("EPL", []SeasonOutcome{{Season: "2023-24", Skipped: "too few"}})
	assert.Equal(t, 0, summary.Completed)
	assert.Equal(t, RecommendationNeedsReview, summary.Recommendation)
	assert.Equal(t, 0.0, CalculateConsistency(nil))
	assert.Equal(t, 0.5, CalculateConsistency([]*models.BenchmarkReport{
		{Statistics: models.Statistics{TotalProfit: 10}},
		{Statistics: models.Statistics{TotalProfit: -10}},
	}))
}
