package predictor

import (
	"fmt"
	"math"

	"github.com/yourusername/value-tipster/internal/models"
)

// DefaultScoreBound is the largest per-side score in the score matrix
const DefaultScoreBound = 10

// TeamRating holds multiplicative attack and defence strengths relative to
// the league average. A defence above 1 concedes more than average.
type TeamRating struct {
	Attack  float64
	Defence float64
	Matches int
}

// RatingsModel is an independent-Poisson goals model fitted from results
type RatingsModel struct {
	HomeAverage float64
	AwayAverage float64
	Matches     int
	Teams       map[string]TeamRating
	ScoreBound  int
}

type teamTally struct {
	scored   int
	conceded int
	games    int
}

// FitRatings estimates team strengths from played fixtures. Each team's
// per-match rates are shrunk towards the league average by adding shrinkage
// phantom average matches, which keeps promoted teams with few results sane.
func FitRatings(fixtures []models.Fixture, shrinkage float64) (*RatingsModel, error) {
	tallies := make(map[string]*teamTally)
	var homeGoals, awayGoals, played int

	for i := range fixtures {
		f := &fixtures[i]
		if !f.IsPlayed() {
			continue
		}
		played++
		homeGoals += *f.HomeGoals
		awayGoals += *f.AwayGoals

		home := tallyFor(tallies, f.HomeTeam)
		home.scored += *f.HomeGoals
		home.conceded += *f.AwayGoals
		home.games++

		away := tallyFor(tallies, f.AwayTeam)
		away.scored += *f.AwayGoals
		away.conceded += *f.HomeGoals
		away.games++
	}

	if played == 0 {
		return nil, fmt.Errorf("%w: no played fixtures to fit ratings", models.ErrInsufficientData)
	}

	m := &RatingsModel{
		HomeAverage: float64(homeGoals) / float64(played),
		AwayAverage: float64(awayGoals) / float64(played),
		Matches:     played,
		Teams:       make(map[string]TeamRating, len(tallies)),
		ScoreBound:  DefaultScoreBound,
	}

	// Goals per team per match across the pool
	perTeam := float64(homeGoals+awayGoals) / float64(2*played)
	if perTeam == 0 {
		return nil, fmt.Errorf("%w: training pool contains no goals", models.ErrInsufficientData)
	}

	for team, t := range tallies {
		prior := shrinkage * perTeam
		denom := float64(t.games) + shrinkage
		m.Teams[team] = TeamRating{
			Attack:  (float64(t.scored) + prior) / denom / perTeam,
			Defence: (float64(t.conceded) + prior) / denom / perTeam,
			Matches: t.games,
		}
	}

	return m, nil
}

func tallyFor(tallies map[string]*teamTally, team string) *teamTally {
	t, ok := tallies[team]
	if !ok {
		t = &teamTally{}
		tallies[team] = t
	}
	return t
}

// ExpectedGoals returns the Poisson means for a pairing
func (m *RatingsModel) ExpectedGoals(homeTeam, awayTeam string) (float64, float64, error) {
	home, ok := m.Teams[homeTeam]
	if !ok {
		return 0, 0, fmt.Errorf("%w: no rating for team %q", models.ErrMissingPrediction, homeTeam)
	}
	away, ok := m.Teams[awayTeam]
	if !ok {
		return 0, 0, fmt.Errorf("%w: no rating for team %q", models.ErrMissingPrediction, awayTeam)
	}
	return m.HomeAverage * home.Attack * away.Defence, m.AwayAverage * away.Attack * home.Defence, nil
}

// OutcomeProbabilities sums the score matrix into home, draw and away
func (m *RatingsModel) OutcomeProbabilities(homeTeam, awayTeam string) (home, draw, away float64, err error) {
	lambdaHome, lambdaAway, err := m.ExpectedGoals(homeTeam, awayTeam)
	if err != nil {
		return 0, 0, 0, err
	}

	bound := m.ScoreBound
	if bound <= 0 {
		bound = DefaultScoreBound
	}

	for h := 0; h <= bound; h++ {
		ph := poissonProb(lambdaHome, h)
		for a := 0; a <= bound; a++ {
			p := ph * poissonProb(lambdaAway, a)
			switch {
			case h > a:
				home += p
			case h == a:
				draw += p
			default:
				away += p
			}
		}
	}
	return home, draw, away, nil
}

func poissonProb(lambda float64, k int) float64 {
	if lambda <= 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	lg, _ := math.Lgamma(float64(k) + 1)
	return math.Exp(float64(k)*math.Log(lambda) - lambda - lg)
}
