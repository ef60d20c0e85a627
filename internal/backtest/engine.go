package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/value-tipster/internal/logger"
	"github.com/yourusername/value-tipster/internal/metrics"
	"github.com/yourusername/value-tipster/internal/models"
	"github.com/yourusername/value-tipster/internal/odds"
	"github.com/yourusername/value-tipster/internal/predictor"
	"github.com/yourusername/value-tipster/internal/repository"
	"github.com/yourusername/value-tipster/internal/staking"
	"github.com/yourusername/value-tipster/internal/value"
)

// Engine orchestrates season-holdout backtests. It holds no per-run state,
// so one engine may run several seasons concurrently.
type Engine struct {
	config      Config
	policy      models.ValuePolicy
	store       repository.HistoricalStore
	sink        repository.ReportSink
	predictor   predictor.Predictor
	detector    *value.Detector
	sizer       *staking.Sizer
	logger      *logrus.Logger
	btLogger    *logger.BacktestLogger
	valueLogger *logger.ValueLogger
}

// NewEngine creates a new backtesting engine. sink may be nil, in which
// case reports are returned but not persisted.
func NewEngine(cfg Config, policy models.ValuePolicy, store repository.HistoricalStore, pred predictor.Predictor, sink repository.ReportSink, log *logrus.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("historical store is required")
	}
	if pred == nil {
		return nil, fmt.Errorf("predictor is required")
	}
	if log == nil {
		log = logrus.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}

	detector, err := value.NewDetector(policy)
	if err != nil {
		return nil, err
	}
	sizer, err := staking.NewSizer(policy)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:      cfg,
		policy:      policy,
		store:       store,
		sink:        sink,
		predictor:   pred,
		detector:    detector,
		sizer:       sizer,
		logger:      log,
		btLogger:    logger.NewBacktestLogger(log),
		valueLogger: logger.NewValueLogger(log),
	}, nil
}

// Config returns the backtest configuration
func (e *Engine) Config() Config {
	return e.config
}

// Policy returns the value policy
func (e *Engine) Policy() models.ValuePolicy {
	return e.policy
}

// runState is the mutable state of one replay
type runState struct {
	season   string
	state    *State
	accuracy *AccuracyTracker
	skipped  models.SkipTally
	variant  string
	// consecutive predictor failures since the last usable answer
	failures int
}

// maxConsecutivePredictorErrors aborts a replay whose predictor has stopped answering
const maxConsecutivePredictorErrors = 10

// Run backtests one held-out season of a league and returns its report. An
// empty league falls back to the configured one. Setup failures return
// before any replay; a cancelled context discards the run.
func (e *Engine) Run(ctx context.Context, season, league string) (*models.BenchmarkReport, error) {
	if season == "" {
		return nil, fmt.Errorf("season is required")
	}
	if league == "" {
		league = e.config.League
	}
	started := time.Now().UTC()

	e.btLogger.LogPhase(season, league, "setup")
	if err := e.checkData(ctx, season, league); err != nil {
		var insufficient *models.InsufficientDataError
		if errors.As(err, &insufficient) {
			e.btLogger.LogInsufficientData(season, league, err)
			metrics.RecordBacktestRun(season, "insufficient_data")
		} else {
			metrics.RecordBacktestRun(season, "failure")
		}
		return nil, err
	}

	e.btLogger.LogPhase(season, league, "exclusion")
	if p, ok := e.predictor.(predictor.Preparer); ok {
		if err := p.Prepare(ctx, league, season); err != nil {
			metrics.RecordBacktestRun(season, "failure")
			return nil, fmt.Errorf("failed to prepare predictor without season %s: %w", season, err)
		}
	}

	e.btLogger.LogPhase(season, league, "replay")
	fixtures, err := e.store.GetFixtures(ctx, models.FixtureFilter{League: league, Season: season, PlayedOnly: true})
	if err != nil {
		metrics.RecordBacktestRun(season, "failure")
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}
	sortFixtures(fixtures)

	run := &runState{
		season:   season,
		state:    NewState(e.policy.Bankroll, e.config.DrawdownAlert),
		accuracy: NewAccuracyTracker(),
	}

	for i := range fixtures {
		if err := ctx.Err(); err != nil {
			e.btLogger.LogCancelled(season, i)
			metrics.RecordBacktestRun(season, "cancelled")
			return nil, err
		}
		if err := e.replayFixture(ctx, run, fixtures[i]); err != nil {
			if ctx.Err() != nil {
				e.btLogger.LogCancelled(season, i)
				metrics.RecordBacktestRun(season, "cancelled")
				return nil, ctx.Err()
			}
			metrics.RecordBacktestRun(season, "failure")
			return nil, err
		}
	}

	e.btLogger.LogPhase(season, league, "completion")
	report, err := e.buildReport(ctx, run, league, started)
	if err != nil {
		if ctx.Err() != nil {
			e.btLogger.LogCancelled(season, len(fixtures))
			metrics.RecordBacktestRun(season, "cancelled")
			return nil, ctx.Err()
		}
		metrics.RecordBacktestRun(season, "failure")
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		e.btLogger.LogCancelled(season, len(fixtures))
		metrics.RecordBacktestRun(season, "cancelled")
		return nil, err
	}
	if e.sink != nil && e.config.PersistReports {
		if err := e.sink.SaveReport(ctx, report); err != nil {
			metrics.RecordBacktestRun(season, "failure")
			return nil, fmt.Errorf("failed to save report: %w", err)
		}
	}

	metrics.RecordBacktestRun(season, "success")
	metrics.RecordBacktestResult(season, report.ModelVariant, report.Statistics.ROI, report.Statistics.MaxDrawdown, report.Accuracy.Overall)
	metrics.RecordBacktestDuration(report.Duration().Seconds())
	e.btLogger.LogCompleted(report)
	return report, nil
}

// checkData fails fast when the season or its training pool is too small
func (e *Engine) checkData(ctx context.Context, season, league string) error {
	seasonRows, err := e.store.CountFixtures(ctx, models.FixtureFilter{League: league, Season: season, PlayedOnly: true})
	if err != nil {
		return fmt.Errorf("failed to count season fixtures: %w", err)
	}
	if seasonRows < e.config.MinSeasonFixtures {
		return &models.InsufficientDataError{
			Season:   season,
			League:   league,
			What:     "season fixtures",
			Have:     seasonRows,
			Required: e.config.MinSeasonFixtures,
		}
	}

	trainingRows, err := e.store.CountFixtures(ctx, models.FixtureFilter{League: league, ExcludeSeason: season, PlayedOnly: true})
	if err != nil {
		return fmt.Errorf("failed to count training fixtures: %w", err)
	}
	if trainingRows < e.config.MinTrainingRows {
		return &models.InsufficientDataError{
			Season:   season,
			League:   league,
			What:     "training rows",
			Have:     trainingRows,
			Required: e.config.MinTrainingRows,
		}
	}
	return nil
}

// replayFixture predicts, detects and settles one fixture. Per-fixture
// problems, including a single failed prediction call, are tallied and return
// nil. Store failures, an open predictor circuit and a run of
// maxConsecutivePredictorErrors failed calls abort the run.
func (e *Engine) replayFixture(ctx context.Context, run *runState, fixture models.Fixture) error {
	pred, err := e.predictor.Predict(ctx, models.PredictionRequest{
		FixtureID:      fixture.ID,
		League:         fixture.League,
		HomeTeam:       fixture.HomeTeam,
		AwayTeam:       fixture.AwayTeam,
		AsOf:           fixture.KickoffAt,
		ExcludedSeason: run.season,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMissingPrediction):
			run.failures = 0
			run.skipped.MissingPrediction++
			e.valueLogger.LogFixtureSkipped(fixture.ID, err.Error())
			return nil
		case ctx.Err() != nil, errors.Is(err, predictor.ErrCircuitOpen):
			return fmt.Errorf("prediction failed for fixture %s: %w", fixture.ID, err)
		}
		run.failures++
		if run.failures >= maxConsecutivePredictorErrors {
			return fmt.Errorf("prediction failed for %d consecutive fixtures, last %s: %w", run.failures, fixture.ID, err)
		}
		run.skipped.PredictorErrors++
		e.valueLogger.LogFixtureSkipped(fixture.ID, err.Error())
		return nil
	}
	run.failures = 0
	if run.variant == "" {
		run.variant = pred.ModelVariant
	}

	actual, _ := fixture.Result()
	run.accuracy.Record(pred.Outcome, actual)

	raws, err := e.store.GetQuotes(ctx, fixture.ID)
	if err != nil {
		return fmt.Errorf("failed to load quotes for fixture %s: %w", fixture.ID, err)
	}
	quotes, dropped := odds.NormalizeAll(raws)
	if dropped > 0 {
		run.skipped.InvalidQuotes += dropped
		e.valueLogger.LogQuotesDropped(fixture.ID, dropped)
	}
	if len(quotes) == 0 {
		run.skipped.NoQuotes++
		return nil
	}

	opportunities := e.detector.Evaluate(fixture, pred, quotes)
	if limit := e.config.MaxBetsPerFixture; limit > 0 && len(opportunities) > limit {
		opportunities = opportunities[:limit]
	}

	// Every bet on a fixture is sized before any of them settles
	bankroll := run.state.Bankroll()
	for _, opp := range opportunities {
		stake, err := e.sizer.Size(opp.ModelProbability, opp.Odds, bankroll)
		if err != nil {
			if errors.Is(err, models.ErrDegenerateKelly) {
				run.skipped.DegenerateStakes++
				continue
			}
			run.skipped.InvalidQuotes++
			continue
		}
		if stake.Amount <= 0 {
			run.skipped.ZeroStakes++
			continue
		}
		e.valueLogger.LogStakeDecision(fixture.ID, opp.Market, opp.Selection, stake.Kelly, stake.Fractional, stake.Amount, bankroll)

		result, err := SettleSelection(fixture, opp.Market, opp.Selection, opp.Line)
		if err != nil {
			return err
		}

		record, crossed := run.state.Settle(models.BetRecord{
			FixtureID:          fixture.ID,
			KickoffAt:          fixture.KickoffAt,
			HomeTeam:           fixture.HomeTeam,
			AwayTeam:           fixture.AwayTeam,
			Market:             opp.Market,
			Selection:          opp.Selection,
			Line:               opp.Line,
			Odds:               opp.Odds,
			ModelProbability:   opp.ModelProbability,
			ImpliedProbability: opp.MarketProbability,
			ValuePct:           opp.ValuePct,
			Confidence:         opp.Confidence,
			Stake:              stake.Amount,
			Result:             result,
		})
		e.btLogger.LogSettlement(record)
		metrics.RecordBacktestBet(string(record.Market), string(record.Result))
		if crossed {
			e.btLogger.LogDrawdownAlert(run.season, run.state.CurrentDrawdown(), run.state.Bankroll())
		}
	}
	return nil
}

func (e *Engine) buildReport(ctx context.Context, run *runState, league string, started time.Time) (*models.BenchmarkReport, error) {
	variant := run.variant
	if variant == "" {
		variant = e.predictor.Variant()
	}

	report := &models.BenchmarkReport{
		ID:              uuid.New(),
		Season:          run.season,
		League:          league,
		ModelVariant:    variant,
		Policy:          e.policy,
		InitialBankroll: e.policy.Bankroll,
		FinalBankroll:   run.state.Bankroll(),
		Accuracy:        run.accuracy.Metrics(),
		Statistics:      CalculateStatistics(e.policy.Bankroll, run.state.Ledger),
		Markets:         MarketBreakdown(run.state.Ledger),
		Skipped:         run.skipped,
		Ledger:          run.state.Ledger,
		StartedAt:       started,
	}

	if e.config.MonteCarloIterations > 0 && len(report.Ledger) > 0 {
		mc, err := RunMonteCarlo(ctx, report.Ledger, MonteCarloConfig{
			Iterations:      e.config.MonteCarloIterations,
			Seed:            e.config.MonteCarloSeed,
			InitialBankroll: e.policy.Bankroll,
			RuinThreshold:   e.config.RuinThreshold,
		})
		if err != nil {
			return nil, err
		}
		report.MonteCarlo = mc
	}

	report.CompletedAt = time.Now().UTC()
	return report, nil
}

// sortFixtures orders fixtures by kickoff, then id
func sortFixtures(fixtures []models.Fixture) {
	sort.SliceStable(fixtures, func(i, j int) bool {
		if !fixtures[i].KickoffAt.Equal(fixtures[j].KickoffAt) {
			return fixtures[i].KickoffAt.Before(fixtures[j].KickoffAt)
		}
		return fixtures[i].ID < fixtures[j].ID
	})
}
