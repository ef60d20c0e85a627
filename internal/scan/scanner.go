// Package scan evaluates upcoming fixtures against current prices and
// produces a ranked list of value opportunities.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/value-tipster/internal/config"
	"github.com/yourusername/value-tipster/internal/logger"
	"github.com/yourusername/value-tipster/internal/metrics"
	"github.com/yourusername/value-tipster/internal/models"
	"github.com/yourusername/value-tipster/internal/odds"
	"github.com/yourusername/value-tipster/internal/predictor"
	"github.com/yourusername/value-tipster/internal/repository"
	"github.com/yourusername/value-tipster/internal/staking"
	"github.com/yourusername/value-tipster/internal/value"
)

// Skip reasons recorded in metrics and logs
const (
	SkipMissingPrediction = "missing_prediction"
	SkipNoQuotes          = "no_quotes"
	SkipFailed            = "failed"
)

// Result is the outcome of one scan run
type Result struct {
	RunID           uuid.UUID                 `json:"run_id"`
	League          string                    `json:"league,omitempty"`
	WindowStart     time.Time                 `json:"window_start"`
	WindowEnd       time.Time                 `json:"window_end"`
	FixturesScanned int                       `json:"fixtures_scanned"`
	Skipped         models.SkipTally          `json:"skipped"`
	Failed          int                       `json:"failed"`
	Opportunities   []models.ValueOpportunity `json:"opportunities"`
	StartedAt       time.Time                 `json:"started_at"`
	CompletedAt     time.Time                 `json:"completed_at"`
}

// Duration returns how long the run took
func (r *Result) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Scanner runs live scans over the fixtures kicking off inside the lookahead
// window. A Scanner is safe for concurrent use.
type Scanner struct {
	config        config.ScanConfig
	policy        models.ValuePolicy
	store         repository.HistoricalStore
	opportunities repository.OpportunityRepository
	predictor     predictor.Predictor
	detector      *value.Detector
	sizer         *staking.Sizer
	publishers    []Publisher
	logger        *logrus.Logger
	valueLogger   *logger.ValueLogger
	now           func() time.Time

	mu   sync.RWMutex
	last *Result
}

// NewScanner creates a scanner. opportunities may be nil when results are not persisted.
func NewScanner(
	cfg config.ScanConfig,
	policy models.ValuePolicy,
	store repository.HistoricalStore,
	pred predictor.Predictor,
	opportunities repository.OpportunityRepository,
	log *logrus.Logger,
	publishers ...Publisher,
) (*Scanner, error) {
	if store == nil {
		return nil, fmt.Errorf("historical store is required")
	}
	if pred == nil {
		return nil, fmt.Errorf("predictor is required")
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("scan workers must be positive, got %d", cfg.Workers)
	}
	if cfg.LookaheadHours <= 0 {
		return nil, fmt.Errorf("scan lookahead must be positive, got %d hours", cfg.LookaheadHours)
	}

	detector, err := value.NewDetector(policy)
	if err != nil {
		return nil, err
	}
	sizer, err := staking.NewSizer(policy)
	if err != nil {
		return nil, err
	}

	return &Scanner{
		config:        cfg,
		policy:        policy,
		store:         store,
		opportunities: opportunities,
		predictor:     pred,
		detector:      detector,
		sizer:         sizer,
		publishers:    publishers,
		logger:        log,
		valueLogger:   logger.NewValueLogger(log),
		now:           time.Now,
	}, nil
}

// Last returns the most recent completed scan, or nil before the first one
func (s *Scanner) Last() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// fixtureOutcome is what one worker reports back for one fixture
type fixtureOutcome struct {
	opportunities []models.ValueOpportunity
	skip          string
	dropped       int
	degenerate    int
	zeroStakes    int
	err           error
}

// Scan evaluates every upcoming fixture in the window, ranks the qualifying
// opportunities and persists and publishes the top results.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	if timeout := s.config.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := s.now().UTC()
	result := &Result{
		RunID:       uuid.New(),
		League:      s.config.League,
		WindowStart: start,
		WindowEnd:   start.Add(s.config.Lookahead()),
		StartedAt:   start,
	}

	fixtures, err := s.store.GetFixtures(ctx, models.FixtureFilter{
		League:       s.config.League,
		KickoffFrom:  result.WindowStart,
		KickoffTo:    result.WindowEnd,
		UpcomingOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming fixtures: %w", err)
	}

	outcomes := make([]fixtureOutcome, len(fixtures))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i, fixture := range fixtures {
		i, fixture := i, fixture
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.evaluate(gctx, fixture, start)
			metrics.RecordFixtureScanned()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var lastErr error
	for _, o := range outcomes {
		result.FixturesScanned++
		result.Skipped.InvalidQuotes += o.dropped
		result.Skipped.DegenerateStakes += o.degenerate
		result.Skipped.ZeroStakes += o.zeroStakes
		switch o.skip {
		case SkipMissingPrediction:
			result.Skipped.MissingPrediction++
		case SkipNoQuotes:
			result.Skipped.NoQuotes++
		case SkipFailed:
			result.Failed++
			lastErr = o.err
		}
		result.Opportunities = append(result.Opportunities, o.opportunities...)
	}
	if result.Failed > 0 && result.Failed == len(fixtures) {
		return nil, fmt.Errorf("every fixture failed to evaluate: %w", lastErr)
	}

	value.SortOpportunities(result.Opportunities)
	if limit := s.config.MaxResults; limit > 0 && len(result.Opportunities) > limit {
		result.Opportunities = result.Opportunities[:limit]
	}
	for i := range result.Opportunities {
		opp := &result.Opportunities[i]
		opp.ID = uuid.New()
		opp.RunID = result.RunID
		opp.DetectedAt = start
		metrics.RecordOpportunity(string(opp.Market), opp.ValuePct)
		s.valueLogger.LogOpportunity(*opp)
	}

	if s.config.Persist && s.opportunities != nil {
		if err := s.opportunities.SaveBatch(ctx, result.Opportunities); err != nil {
			return nil, fmt.Errorf("failed to persist scan results: %w", err)
		}
	}

	result.CompletedAt = s.now().UTC()
	s.publish(ctx, result)

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	skipped := result.Skipped.MissingPrediction + result.Skipped.NoQuotes + result.Failed
	metrics.RecordScan(result.Duration().Seconds(), len(result.Opportunities))
	s.valueLogger.LogScanCompleted(result.RunID.String(), result.FixturesScanned, len(result.Opportunities),
		skipped, float64(result.Duration().Milliseconds()))

	return result, nil
}

func (s *Scanner) evaluate(ctx context.Context, fixture models.Fixture, asOf time.Time) fixtureOutcome {
	pred, err := s.predictor.Predict(ctx, models.PredictionRequest{
		FixtureID: fixture.ID,
		League:    fixture.League,
		HomeTeam:  fixture.HomeTeam,
		AwayTeam:  fixture.AwayTeam,
		AsOf:      asOf,
	})
	if err != nil {
		if errors.Is(err, models.ErrMissingPrediction) {
			return s.skip(fixture.ID, SkipMissingPrediction, err)
		}
		return s.skip(fixture.ID, SkipFailed, err)
	}

	raws, err := s.store.GetQuotes(ctx, fixture.ID)
	if err != nil {
		return s.skip(fixture.ID, SkipFailed, fmt.Errorf("failed to load quotes for fixture %s: %w", fixture.ID, err))
	}

	var out fixtureOutcome
	quotes, dropped := odds.NormalizeAll(raws)
	if dropped > 0 {
		out.dropped = dropped
		metrics.RecordQuotesDropped(dropped)
		s.valueLogger.LogQuotesDropped(fixture.ID, dropped)
	}
	if len(quotes) == 0 {
		skipped := s.skip(fixture.ID, SkipNoQuotes, nil)
		skipped.dropped = out.dropped
		return skipped
	}

	for _, opp := range s.detector.Evaluate(fixture, pred, quotes) {
		if err := s.sizer.Apply(&opp, s.policy.Bankroll); err != nil {
			out.degenerate++
			continue
		}
		if opp.RecommendedStake <= 0 {
			out.zeroStakes++
			continue
		}
		s.valueLogger.LogStakeDecision(fixture.ID, opp.Market, opp.Selection,
			opp.KellyFraction, opp.FractionalKelly, opp.RecommendedStake, s.policy.Bankroll)
		out.opportunities = append(out.opportunities, opp)
	}
	return out
}

func (s *Scanner) skip(fixtureID, reason string, err error) fixtureOutcome {
	metrics.RecordFixtureSkipped(reason)
	detail := reason
	if err != nil {
		detail = err.Error()
	}
	s.valueLogger.LogFixtureSkipped(fixtureID, detail)
	return fixtureOutcome{skip: reason, err: err}
}

// publish hands the result to every publisher. Publication failures are
// logged and counted but never fail the scan.
func (s *Scanner) publish(ctx context.Context, result *Result) {
	for _, p := range s.publishers {
		if err := p.Publish(ctx, result); err != nil {
			metrics.RecordPublish(p.Name(), "failure", len(result.Opportunities))
			s.logger.WithError(err).WithFields(logrus.Fields{
				"publisher": p.Name(),
				"run_id":    result.RunID.String(),
			}).Warn("Failed to publish scan result")
			continue
		}
		metrics.RecordPublish(p.Name(), "success", len(result.Opportunities))
	}
}
