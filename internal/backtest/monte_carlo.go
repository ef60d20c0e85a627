package backtest

import (
	"context"
	"math/rand"

	"github.com/yourusername/value-tipster/internal/models"
)

// MonteCarloConfig configures monte carlo simulation
type MonteCarloConfig struct {
	Iterations      int
	Seed            int64
	InitialBankroll float64
	// RuinThreshold is the fraction of the initial bankroll at or below which
	// a path counts as ruined
	RuinThreshold float64
}

// RunMonteCarlo resamples the ledger's outcomes from the model probabilities.
// Each path re-stakes the same bankroll fraction the replay staked, so the
// distribution reflects compounding. Pushes stay pushes. The same seed
// always yields the same summary.
func RunMonteCarlo(ctx context.Context, ledger []models.BetRecord, cfg MonteCarloConfig) (*models.MonteCarloSummary, error) {
	if cfg.Iterations <= 0 {
		cfg.Iterations = 1000
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 42
	}

	fractions := make([]float64, len(ledger))
	for i, bet := range ledger {
		before := bet.BankrollAfter - bet.Profit
		if before > 0 {
			fractions[i] = bet.Stake / before
		}
	}

	rng := rand.New(rand.NewSource(seed))
	finals := make([]float64, cfg.Iterations)
	drawdowns := make([]float64, cfg.Iterations)
	ruinLevel := cfg.InitialBankroll * cfg.RuinThreshold

	for i := 0; i < cfg.Iterations; i++ {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		bankroll := cfg.InitialBankroll
		peak := bankroll
		maxDD := 0.0
		for j, bet := range ledger {
			// Pushes still consume a draw
			draw := rng.Float64()
			if bet.Result == models.BetResultPush {
				continue
			}
			stake := bankroll * fractions[j]
			if draw < bet.ModelProbability {
				bankroll += stake * (bet.Odds - 1)
			} else {
				bankroll -= stake
			}
			if bankroll > peak {
				peak = bankroll
			}
			if peak > 0 {
				if dd := (peak - bankroll) / peak; dd > maxDD {
					maxDD = dd
				}
			}
			if bankroll <= 0 {
				bankroll = 0
				maxDD = 1
				break
			}
		}
		finals[i] = bankroll
		drawdowns[i] = maxDD
	}

	return &models.MonteCarloSummary{
		Iterations:          cfg.Iterations,
		MeanFinalBankroll:   roundCents(average(finals)),
		MedianFinalBankroll: roundCents(percentile(finals, 0.5)),
		Percentile5:         roundCents(percentile(finals, 0.05)),
		Percentile95:        roundCents(percentile(finals, 0.95)),
		ProbabilityOfProfit: probabilityAbove(finals, cfg.InitialBankroll),
		ProbabilityOfRuin:   probabilityAtOrBelow(finals, ruinLevel),
		MeanMaxDrawdown:     average(drawdowns),
	}, nil
}

func probabilityAbove(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v > threshold {
			count++
		}
	}
	return float64(count) / float64(len(values))
}

func probabilityAtOrBelow(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v <= threshold {
			count++
		}
	}
	return float64(count) / float64(len(values))
}
