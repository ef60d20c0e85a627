package models

import (
	"time"

	"github.com/google/uuid"
)

// Statistics summarises a bet ledger
type Statistics struct {
	TotalBets         int     `json:"total_bets"`
	Wins              int     `json:"wins"`
	Losses            int     `json:"losses"`
	Pushes            int     `json:"pushes"`
	TotalStaked       float64 `json:"total_staked"`
	TotalProfit       float64 `json:"total_profit"`
	ROI               float64 `json:"roi"`
	WinRate           float64 `json:"win_rate"`
	MaxDrawdown       float64 `json:"max_drawdown"`
	ProfitFactor      float64 `json:"profit_factor"`
	LongestWinStreak  int     `json:"longest_win_streak"`
	LongestLossStreak int     `json:"longest_loss_streak"`
	SharpeRatio       float64 `json:"sharpe_ratio"`
	AverageOdds       float64 `json:"average_odds"`
	AverageValuePct   float64 `json:"average_value_pct"`
	AverageStake      float64 `json:"average_stake"`
	BestBetProfit     float64 `json:"best_bet_profit"`
	WorstBetLoss      float64 `json:"worst_bet_loss"`
	Expectancy        float64 `json:"expectancy"`
	FinalBankroll     float64 `json:"final_bankroll"`
}

// MarketStats is the per-market slice of a ledger
type MarketStats struct {
	Bets    int     `json:"bets"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Pushes  int     `json:"pushes"`
	Staked  float64 `json:"staked"`
	Profit  float64 `json:"profit"`
	ROI     float64 `json:"roi"`
	WinRate float64 `json:"win_rate"`
}

// OutcomeAccuracy tracks how often one outcome was predicted and how often
// the prediction was right.
type OutcomeAccuracy struct {
	Predicted int     `json:"predicted"`
	Actual    int     `json:"actual"`
	Correct   int     `json:"correct"`
	Accuracy  float64 `json:"accuracy"`
}

// AccuracyMetrics covers every replayed fixture, including those without bets
type AccuracyMetrics struct {
	Replayed  int                         `json:"replayed"`
	Correct   int                         `json:"correct"`
	Overall   float64                     `json:"overall"`
	ByOutcome map[Outcome]OutcomeAccuracy `json:"by_outcome"`
}

// SkipTally counts fixtures and quotes the replay could not use
type SkipTally struct {
	MissingPrediction int `json:"missing_prediction"`
	PredictorErrors   int `json:"predictor_errors"`
	NoQuotes          int `json:"no_quotes"`
	InvalidQuotes     int `json:"invalid_quotes"`
	DegenerateStakes  int `json:"degenerate_stakes"`
	ZeroStakes        int `json:"zero_stakes"`
}

// MonteCarloSummary is the resampled distribution of final bankrolls
type MonteCarloSummary struct {
	Iterations          int     `json:"iterations"`
	MeanFinalBankroll   float64 `json:"mean_final_bankroll"`
	MedianFinalBankroll float64 `json:"median_final_bankroll"`
	Percentile5         float64 `json:"percentile_5"`
	Percentile95        float64 `json:"percentile_95"`
	ProbabilityOfProfit float64 `json:"probability_of_profit"`
	ProbabilityOfRuin   float64 `json:"probability_of_ruin"`
	MeanMaxDrawdown     float64 `json:"mean_max_drawdown"`
}

// BenchmarkReport is the immutable result of one season-holdout backtest
type BenchmarkReport struct {
	ID              uuid.UUID                  `db:"id" json:"id"`
	Season          string                     `db:"season" json:"season"`
	League          string                     `db:"league" json:"league"`
	ModelVariant    string                     `db:"model_variant" json:"model_variant"`
	Policy          ValuePolicy                `json:"policy"`
	InitialBankroll float64                    `db:"initial_bankroll" json:"initial_bankroll"`
	FinalBankroll   float64                    `db:"final_bankroll" json:"final_bankroll"`
	Accuracy        AccuracyMetrics            `json:"accuracy"`
	Statistics      Statistics                 `json:"statistics"`
	Markets         map[MarketKind]MarketStats `json:"markets"`
	Skipped         SkipTally                  `json:"skipped"`
	MonteCarlo      *MonteCarloSummary         `json:"monte_carlo,omitempty"`
	Ledger          []BetRecord                `json:"ledger"`
	StartedAt       time.Time                  `db:"started_at" json:"started_at"`
	CompletedAt     time.Time                  `db:"completed_at" json:"completed_at"`
}

// Duration returns how long the run took
func (r *BenchmarkReport) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
