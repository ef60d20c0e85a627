package staking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/value-tipster/internal/models"
)

func newSizer(t *testing.T, fraction, maxPct float64) *Sizer {
	t.Helper()
	policy := models.DefaultValuePolicy()
	policy.KellyFraction = fraction
	policy.MaxStakePercentage = maxPct
	s, err := NewSizer(policy)
	require.NoError(t, err)
	return s
}

func TestScenarioBQuarterKelly(t *testing.T) {
	s := newSizer(t, 0.25, 100)
	stake, err := s.Size(0.55, 2.5, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, stake.Kelly, 1e-9)
	assert.InDelta(t, 0.0625, stake.Fractional, 1e-9)
	assert.Equal(t, 62.50, stake.Amount)
	assert.InDelta(t, 6.25, stake.BankrollPct, 1e-9)
}

func TestStakeCapped(t *testing.T) {
	s := newSizer(t, 0.25, 5)
	stake, err := s.Size(0.55, 2.5, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, stake.Kelly, 1e-12)
	assert.Equal(t, 12.50, stake.Amount)
}

func TestNoStakeWithoutEdge(t *testing.T) {
	s := newSizer(t, 0.25, 5)
	for _, tc := range []struct{ p, odds float64 }{
		{0.4, 2.0},
		{0.5, 2.0},
		{0, 3.0},
		{0.2, 4.0},
	} {
		stake, err := s.Size(tc.p, tc.odds, 1000)
		require.NoError(t, err)
		assert.Zero(t, stake.Amount, "p=%v odds=%v", tc.p, tc.odds)
	}

	stake, err := s.Size(0.7, 2.0, 0)
	require.NoError(t, err)
	assert.Zero(t, stake.Amount)
}

func TestDegenerateOdds(t *testing.T) {
	s := newSizer(t, 0.25, 5)
	stake, err := s.Size(0.6, 1.0, 1000)
	assert.True(t, errors.Is(err, models.ErrDegenerateKelly))
	assert.Zero(t, stake.Amount)

	_, err = s.Size(0.6, 0.8, 1000)
	assert.ErrorIs(t, err, models.ErrInvalidOdds)
}

func TestStakeBounds(t *testing.T) {
	for _, maxPct := range []float64{1, 5, 25, 100} {
		for _, fraction := range []float64{0.1, 0.25, 0.5, 1} {
			s := newSizer(t, fraction, maxPct)
			for p := 0.05; p < 1; p += 0.05 {
				for o := 1.1; o < 12; o += 0.3 {
					stake, err := s.Size(p, o, 1000)
					require.NoError(t, err)
					assert.GreaterOrEqual(t, stake.Amount, 0.0)
					assert.LessOrEqual(t, stake.Amount, 1000*maxPct/100,
						"p=%v o=%v fraction=%v cap=%v", p, o, fraction, maxPct)
				}
			}
		}
	}
}

func TestStakeRoundingNeverExceedsCap(t *testing.T) {
	s := newSizer(t, 1, 5)

	// full kelly 0.8 capped at 5% of 1000.333 = 50.01665
	stake, err := s.Size(0.9, 2.0, 1000.333)
	require.NoError(t, err)
	assert.Equal(t, 50.01, stake.Amount)
	assert.LessOrEqual(t, stake.Amount, 1000.333*0.05)

	for _, bankroll := range []float64{0.07, 1.99, 333.33, 1000.333, 98765.4321} {
		stake, err := s.Size(0.9, 2.0, bankroll)
		require.NoError(t, err)
		assert.LessOrEqual(t, stake.Amount, bankroll*0.05, "bankroll=%v", bankroll)
	}
}

func TestStakeMonotoneInProbability(t *testing.T) {
	s := newSizer(t, 0.5, 100)
	for _, o := range []float64{1.5, 2.0, 3.4, 7.0} {
		prev := 0.0
		for p := 0.01; p < 1; p += 0.01 {
			stake, err := s.Size(p, o, 1000)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, stake.Amount, prev, "o=%v p=%v", o, p)
			prev = stake.Amount
		}
	}
}

func TestMinStake(t *testing.T) {
	policy := models.DefaultValuePolicy()
	policy.MinStake = 5
	s, err := NewSizer(policy)
	require.NoError(t, err)

	// kelly 0.02 -> 0.005 of 1000 = 5.00
	stake, err := s.Size(0.51, 2.0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 5.0, stake.Amount)

	stake, err = s.Size(0.505, 2.0, 1000)
	require.NoError(t, err)
	assert.Zero(t, stake.Amount)
}

func TestApply(t *testing.T) {
	s := newSizer(t, 0.25, 100)
	opp := &models.ValueOpportunity{ModelProbability: 0.55, Odds: 2.5}
	require.NoError(t, s.Apply(opp, 1000))
	assert.Equal(t, 62.50, opp.RecommendedStake)
	assert.InDelta(t, 0.0625, opp.FractionalKelly, 1e-9)
}

func TestNewSizerValidation(t *testing.T) {
	policy := models.DefaultValuePolicy()
	policy.KellyFraction = 1.5
	_, err := NewSizer(policy)
	assert.Error(t, err)

	policy = models.DefaultValuePolicy()
	policy.MaxStakePercentage = 0
	_, err = NewSizer(policy)
	assert.Error(t, err)
}
