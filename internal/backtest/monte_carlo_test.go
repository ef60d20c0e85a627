package backtest

import (
	"context"
	"testing"

	"github.com/yourusername/value-tipster/internal/models"
)

func monteCarloLedger() []models.BetRecord {
	state := NewState(100, 0)
	results := []models.BetResult{models.BetResultWon, models.BetResultLost, models.BetResultPush, models.BetResultWon}
	for _, r := range results {
		state.Settle(models.BetRecord{Stake: 5, Odds: 2.0, ModelProbability: 0.6, Result: r})
	}
	return state.Ledger
}

func TestRunMonteCarloDeterministic(t *testing.T) {
	cfg := MonteCarloConfig{Iterations: 1000, Seed: 42, InitialBankroll: 100, RuinThreshold: 0.5}

	a, err := RunMonteCarlo(context.Background(), monteCarloLedger(), cfg)
	if err != nil {
		t.Fatalf("RunMonteCarlo failed: %v", err)
	}
	b, err := RunMonteCarlo(context.Background(), monteCarloLedger(), cfg)
	if err != nil {
		t.Fatalf("RunMonteCarlo failed: %v", err)
	}
	if *a != *b {
		t.Fatalf("expected identical summaries, got %+v and %+v", a, b)
	}
	if a.Iterations != 1000 {
		t.Fatalf("expected 1000 iterations, got %d", a.Iterations)
	}
	if a.Percentile5 > a.MedianFinalBankroll || a.MedianFinalBankroll > a.Percentile95 {
		t.Fatalf("percentiles out of order: %+v", a)
	}
	if a.ProbabilityOfProfit <= 0 || a.ProbabilityOfProfit > 1 {
		t.Fatalf("unexpected profit probability %v", a.ProbabilityOfProfit)
	}
	if a.ProbabilityOfRuin != 0 {
		t.Fatalf("four 5%% bets cannot halve the bankroll, got ruin probability %v", a.ProbabilityOfRuin)
	}
}

func TestRunMonteCarloCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunMonteCarlo(ctx, monteCarloLedger(), MonteCarloConfig{Iterations: 10, InitialBankroll: 100})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}
