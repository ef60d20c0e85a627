package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/value-tipster/internal/models"
)

func TestBucketOverProbability(t *testing.T) {
	m := BucketModel{}
	assert.Equal(t, 0.65, m.OverProbability(3.0, 2.5))
	assert.Equal(t, 0.35, m.OverProbability(1.9, 2.5))
	assert.Equal(t, 0.50, m.OverProbability(2.2, 2.5))
	assert.Equal(t, 0.50, m.OverProbability(2.5, 2.5))
	assert.InDelta(t, 0.35, m.UnderProbability(3.0, 2.5), 1e-12)
}

func TestBucketSpreadProbability(t *testing.T) {
	m := BucketModel{}
	// home favourite 2.0 v 1.3
	assert.Equal(t, 0.6, m.HomeCoverProbability(2.0, 1.3, -0.5))
	assert.Equal(t, 0.4, m.AwayCoverProbability(2.0, 1.3, -0.5))
	assert.Equal(t, 0.4, m.HomeCoverProbability(2.0, 1.3, -1.0))
	assert.Equal(t, 0.6, m.AwayCoverProbability(2.0, 1.3, -1.0))
}

func TestOverProbabilityMonotone(t *testing.T) {
	for _, name := range []string{models.ProbabilityModelBucket, models.ProbabilityModelPoisson} {
		m, err := NewProbabilityModel(name)
		require.NoError(t, err)
		for _, line := range []float64{0.5, 1.5, 2.0, 2.5, 3.5} {
			prev := -1.0
			for total := 0.1; total <= 6; total += 0.05 {
				p := m.OverProbability(total, line)
				assert.GreaterOrEqual(t, p, prev-1e-12, "%s line=%v total=%v", name, line, total)
				assert.GreaterOrEqual(t, p, 0.0)
				assert.LessOrEqual(t, p, 1.0)
				prev = p
			}
		}
	}
}

func TestPoissonModel(t *testing.T) {
	m := PoissonModel{MaxGoals: 15}

	over := m.OverProbability(2.7, 2.5)
	under := m.UnderProbability(2.7, 2.5)
	assert.InDelta(t, 1.0, over+under, 1e-9)
	assert.Greater(t, over, 0.5)

	// integer line leaves the push out of both sides
	assert.Less(t, m.OverProbability(2.7, 3)+m.UnderProbability(2.7, 3), 1.0)

	home := m.HomeCoverProbability(2.0, 1.3, -0.5)
	away := m.AwayCoverProbability(2.0, 1.3, -0.5)
	assert.InDelta(t, 1.0, home+away, 1e-6)
	assert.Greater(t, home, away)
}

func TestExpectedGoals(t *testing.T) {
	home, err := models.NewPrediction("f", 0.6, 0.25, 0.15, "t")
	require.NoError(t, err)
	h, a := ExpectedGoals(home)
	assert.Equal(t, 2.0, h)
	assert.Equal(t, 1.3, a)
	assert.InDelta(t, 3.1, PredictedTotalGoals(home), 1e-9)

	away, err := models.NewPrediction("f", 0.2, 0.3, 0.5, "t")
	require.NoError(t, err)
	h, a = ExpectedGoals(away)
	assert.Equal(t, 1.5, h)
	assert.Equal(t, 1.8, a)

	_, err = NewProbabilityModel("neural")
	assert.Error(t, err)
}
