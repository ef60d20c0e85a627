package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/value-tipster/internal/models"
)

// Recommendations for a multi-season benchmark
const (
	RecommendationAccept      = "ACCEPT"
	RecommendationReject      = "REJECT"
	RecommendationNeedsReview = "NEEDS_REVIEW"
)

// SeasonOutcome is the result of one season in a multi-season benchmark.
// Exactly one of Report and Skipped is set.
type SeasonOutcome struct {
	Season  string                  `json:"season"`
	Report  *models.BenchmarkReport `json:"report,omitempty"`
	Skipped string                  `json:"skipped,omitempty"`
}

// SeasonSummary combines independent season-holdout runs
type SeasonSummary struct {
	League           string          `json:"league"`
	Seasons          []SeasonOutcome `json:"seasons"`
	Completed        int             `json:"completed"`
	TotalBets        int             `json:"total_bets"`
	TotalStaked      float64         `json:"total_staked"`
	TotalProfit      float64         `json:"total_profit"`
	AverageROI       float64         `json:"average_roi"`
	AverageAccuracy  float64         `json:"average_accuracy"`
	WorstDrawdown    float64         `json:"worst_drawdown"`
	ConsistencyScore float64         `json:"consistency_score"`
	Recommendation   string          `json:"recommendation"`
}

// RunSeasons backtests each season independently, at most
// Config.Concurrency at a time. Seasons without enough data are recorded as
// skipped; any other failure cancels the remaining runs.
func RunSeasons(ctx context.Context, engine *Engine, seasons []string, league string) (*SeasonSummary, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if len(seasons) == 0 {
		return nil, fmt.Errorf("at least one season is required")
	}
	if league == "" {
		league = engine.config.League
	}

	limit := engine.config.Concurrency
	if limit <= 0 {
		limit = 1
	}

	outcomes := make([]SeasonOutcome, len(seasons))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, season := range seasons {
		i, season := i, season
		g.Go(func() error {
			report, err := engine.Run(gctx, season, league)
			if err != nil {
				if errors.Is(err, models.ErrInsufficientData) {
					outcomes[i] = SeasonOutcome{Season: season, Skipped: err.Error()}
					return nil
				}
				return fmt.Errorf("season %s: %w", season, err)
			}
			outcomes[i] = SeasonOutcome{Season: season, Report: report}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := Summarize(league, outcomes)
	return &summary, nil
}

// Summarize aggregates season outcomes in season order
func Summarize(league string, outcomes []SeasonOutcome) SeasonSummary {
	sorted := make([]SeasonOutcome, len(outcomes))
	copy(sorted, outcomes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Season < sorted[j].Season
	})

	summary := SeasonSummary{League: league, Seasons: sorted}
	reports := make([]*models.BenchmarkReport, 0, len(sorted))
	for _, o := range sorted {
		if o.Report != nil {
			reports = append(reports, o.Report)
		}
	}
	summary.Completed = len(reports)
	if len(reports) == 0 {
		summary.Recommendation = RecommendationNeedsReview
		return summary
	}

	rois := make([]float64, 0, len(reports))
	accuracies := make([]float64, 0, len(reports))
	for _, r := range reports {
		summary.TotalBets += r.Statistics.TotalBets
		summary.TotalStaked += r.Statistics.TotalStaked
		summary.TotalProfit += r.Statistics.TotalProfit
		if r.Statistics.MaxDrawdown > summary.WorstDrawdown {
			summary.WorstDrawdown = r.Statistics.MaxDrawdown
		}
		rois = append(rois, r.Statistics.ROI)
		accuracies = append(accuracies, r.Accuracy.Overall)
	}
	summary.TotalStaked = roundCents(summary.TotalStaked)
	summary.TotalProfit = roundCents(summary.TotalProfit)
	summary.AverageROI = average(rois)
	summary.AverageAccuracy = average(accuracies)
	summary.ConsistencyScore = CalculateConsistency(reports)
	summary.Recommendation = GenerateRecommendation(summary.AverageROI, summary.ConsistencyScore, summary.WorstDrawdown)
	return summary
}

// CalculateConsistency returns the share of seasons that ended in profit
func CalculateConsistency(reports []*models.BenchmarkReport) float64 {
	if len(reports) == 0 {
		return 0
	}
	profitable := 0
	for _, r := range reports {
		if r.Statistics.TotalProfit > 0 {
			profitable++
		}
	}
	return float64(profitable) / float64(len(reports))
}

// GenerateRecommendation determines if the policy held up across seasons
func GenerateRecommendation(averageROI, consistency, worstDrawdown float64) string {
	if averageROI > 0 && consistency > 0.6 && worstDrawdown < 0.3 {
		return RecommendationAccept
	}
	if averageROI < 0 || consistency < 0.4 || worstDrawdown > 0.5 {
		return RecommendationReject
	}
	return RecommendationNeedsReview
}
