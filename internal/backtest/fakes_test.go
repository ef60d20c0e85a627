package backtest

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/value-tipster/internal/models"
)

const testLeague = "EPL"

type fakeStore struct {
	fixtures []models.Fixture
	quotes   map[string][]models.RawQuote
}

func newFakeStore() *fakeStore {
	return &fakeStore{quotes: make(map[string][]models.RawQuote)}
}

func (s *fakeStore) matches(f models.Fixture, filter models.FixtureFilter) bool {
	if filter.League != "" && f.League != filter.League {
		return false
	}
	if filter.Season != "" && f.Season != filter.Season {
		return false
	}
	if filter.ExcludeSeason != "" && f.Season == filter.ExcludeSeason {
		return false
	}
	if filter.PlayedOnly && !f.IsPlayed() {
		return false
	}
	return true
}

func (s *fakeStore) GetFixtures(ctx context.Context, filter models.FixtureFilter) ([]models.Fixture, error) {
	out := []models.Fixture{}
	for _, f := range s.fixtures {
		if s.matches(f, filter) {
			out = append(out, f)
		}
	}
	sortFixtures(out)
	return out, nil
}

func (s *fakeStore) CountFixtures(ctx context.Context, filter models.FixtureFilter) (int, error) {
	fixtures, _ := s.GetFixtures(ctx, filter)
	return len(fixtures), nil
}

func (s *fakeStore) GetQuotes(ctx context.Context, fixtureID string) ([]models.RawQuote, error) {
	return s.quotes[fixtureID], nil
}

func (s *fakeStore) GetTrainingMatches(ctx context.Context, filter models.FixtureFilter) ([]models.Fixture, error) {
	return s.GetFixtures(ctx, filter)
}

func (s *fakeStore) ListSeasons(ctx context.Context, league string) ([]string, error) {
	seen := map[string]bool{}
	seasons := []string{}
	for _, f := range s.fixtures {
		if !seen[f.Season] {
			seen[f.Season] = true
			seasons = append(seasons, f.Season)
		}
	}
	sort.Strings(seasons)
	return seasons, nil
}

// add records a played fixture with a home moneyline price
func (s *fakeStore) add(id, season string, kickoff time.Time, home, away int, homeOdds string) models.Fixture {
	f := models.Fixture{
		ID:        id,
		League:    testLeague,
		Season:    season,
		HomeTeam:  id + "-home",
		AwayTeam:  id + "-away",
		KickoffAt: kickoff,
		HomeGoals: &home,
		AwayGoals: &away,
	}
	s.fixtures = append(s.fixtures, f)
	if homeOdds != "" {
		s.quotes[id] = append(s.quotes[id], models.RawQuote{
			FixtureID: id,
			Market:    models.MarketMoneyline,
			Selection: models.SelectionHome,
			Odds:      homeOdds,
			Bookmaker: "book",
		})
	}
	return f
}

type fakeSink struct {
	mu    sync.Mutex
	saved []*models.BenchmarkReport
}

func (s *fakeSink) SaveReport(ctx context.Context, report *models.BenchmarkReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, report)
	return nil
}

func (s *fakeSink) GetReport(ctx context.Context, id uuid.UUID) (*models.BenchmarkReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.saved {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *fakeSink) ListReports(ctx context.Context, season, league string, limit int) ([]*models.BenchmarkReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved, nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

// fakePredictor favours the home side for every fixture it knows
type fakePredictor struct {
	mu        sync.Mutex
	unknown   map[string]bool
	failing   map[string]error
	prepared  []string
	excluded  map[string]bool
	calls     int
	onPredict func(calls int)
}

func newFakePredictor() *fakePredictor {
	return &fakePredictor{unknown: map[string]bool{}, failing: map[string]error{}, excluded: map[string]bool{}}
}

func (p *fakePredictor) Variant() string { return "fake-v1" }

func (p *fakePredictor) Prepare(ctx context.Context, league, excludedSeason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prepared = append(p.prepared, league+"|"+excludedSeason)
	return nil
}

func (p *fakePredictor) Predict(ctx context.Context, req models.PredictionRequest) (*models.Prediction, error) {
	p.mu.Lock()
	p.calls++
	calls := p.calls
	p.excluded[req.ExcludedSeason] = true
	unknown := p.unknown[req.FixtureID]
	failure := p.failing[req.FixtureID]
	hook := p.onPredict
	p.mu.Unlock()

	if hook != nil {
		hook(calls)
	}
	if unknown {
		return nil, models.ErrMissingPrediction
	}
	if failure != nil {
		return nil, failure
	}
	return models.NewPrediction(req.FixtureID, 0.65, 0.20, 0.15, "fake-v1")
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.League = testLeague
	cfg.MinSeasonFixtures = 1
	cfg.MinTrainingRows = 1
	cfg.PersistReports = true
	return cfg
}

func kickoff(day int) time.Time {
	return time.Date(2023, time.August, 1, 15, 0, 0, 0, time.UTC).AddDate(0, 0, day)
}

// seedTraining adds played fixtures from an earlier season
func seedTraining(store *fakeStore, n int) {
	for i := 0; i < n; i++ {
		store.add(uuidLike("train", i), "2022-23", kickoff(-400+i), 1, 0, "")
	}
}

func uuidLike(prefix string, i int) string {
	return prefix + "-" + string(rune('a'+i/26)) + string(rune('a'+i%26))
}
