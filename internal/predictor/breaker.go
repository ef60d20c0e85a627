package predictor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/value-tipster/internal/models"
)

// ErrCircuitOpen is returned while the breaker rejects calls to a failing predictor
var ErrCircuitOpen = fmt.Errorf("%w: circuit open", ErrPredictorUnavailable)

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	// CircuitClosed means requests flow to the predictor
	CircuitClosed CircuitState = iota
	// CircuitHalfOpen means one trial request is allowed after cooldown
	CircuitHalfOpen
	// CircuitOpen means requests are rejected without calling the predictor
	CircuitOpen
)

// String returns string representation of circuit state
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	case CircuitOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// BreakerConfig defines circuit breaker thresholds
type BreakerConfig struct {
	MaxFailures    int
	FailureWindow  time.Duration
	CooldownPeriod time.Duration
}

// BreakerPredictor stops calling a remote predictor after repeated transport
// failures, so that a scan over many fixtures fails fast instead of waiting
// out every request timeout. Missing predictions do not count as failures.
type BreakerPredictor struct {
	next   Predictor
	config BreakerConfig
	logger *logrus.Logger
	now    func() time.Time

	mu              sync.Mutex
	state           CircuitState
	failureCount    int
	lastFailureTime time.Time
	openedAt        time.Time
	trialInFlight   bool
}

// NewBreakerPredictor wraps next with a circuit breaker
func NewBreakerPredictor(next Predictor, cfg BreakerConfig, log *logrus.Logger) *BreakerPredictor {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = time.Minute
	}
	if cfg.CooldownPeriod <= 0 {
		cfg.CooldownPeriod = 30 * time.Second
	}
	return &BreakerPredictor{
		next:   next,
		config: cfg,
		logger: log,
		now:    time.Now,
		state:  CircuitClosed,
	}
}

// Variant returns the wrapped predictor's variant
func (b *BreakerPredictor) Variant() string {
	return b.next.Variant()
}

// Predict calls the wrapped predictor unless the circuit is open
func (b *BreakerPredictor) Predict(ctx context.Context, req models.PredictionRequest) (*models.Prediction, error) {
	trial, err := b.allow()
	if err != nil {
		PredictionErrorsTotal.WithLabelValues("breaker", "circuit_open").Inc()
		return nil, err
	}

	pred, err := b.next.Predict(ctx, req)
	switch {
	case err == nil, errors.Is(err, models.ErrMissingPrediction):
		b.recordSuccess(trial)
	case ctx.Err() != nil:
		// The caller gave up; that says nothing about the predictor
		b.release(trial)
	default:
		b.recordFailure(trial, err)
	}
	return pred, err
}

// State returns the current circuit state
func (b *BreakerPredictor) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset closes the circuit and resets the wrapped predictor, if resettable
func (b *BreakerPredictor) Reset() {
	b.mu.Lock()
	old := b.state
	b.state = CircuitClosed
	b.failureCount = 0
	b.trialInFlight = false
	b.mu.Unlock()

	if old != CircuitClosed {
		b.logger.WithFields(logrus.Fields{
			"old_state": old.String(),
			"new_state": CircuitClosed.String(),
		}).Info("Predictor circuit breaker reset")
	}
	if r, ok := b.next.(interface{ Reset() }); ok {
		r.Reset()
	}
}

// Close closes the wrapped predictor
func (b *BreakerPredictor) Close() error {
	return Close(b.next)
}

// allow reports whether a call may proceed and whether it is the half-open trial
func (b *BreakerPredictor) allow() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitOpen:
		if b.now().Sub(b.openedAt) < b.config.CooldownPeriod {
			return false, ErrCircuitOpen
		}
		b.state = CircuitHalfOpen
		b.logger.Info("Predictor circuit breaker entering half-open state after cooldown")
		fallthrough
	case CircuitHalfOpen:
		if b.trialInFlight {
			return false, ErrCircuitOpen
		}
		b.trialInFlight = true
		return true, nil
	default:
		return false, nil
	}
}

func (b *BreakerPredictor) recordSuccess(trial bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	if trial {
		b.trialInFlight = false
		b.state = CircuitClosed
		b.logger.Info("Predictor circuit breaker closed")
	}
}

func (b *BreakerPredictor) release(trial bool) {
	if !trial {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trialInFlight = false
}

func (b *BreakerPredictor) recordFailure(trial bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if trial {
		b.trialInFlight = false
		b.open(now, fmt.Sprintf("half-open trial failed: %v", err))
		return
	}

	if now.Sub(b.lastFailureTime) > b.config.FailureWindow {
		b.failureCount = 0
	}
	b.failureCount++
	b.lastFailureTime = now

	b.logger.WithFields(logrus.Fields{
		"failure_count": b.failureCount,
		"max_allowed":   b.config.MaxFailures,
		"time_window":   b.config.FailureWindow,
		"error":         err.Error(),
	}).Debug("Predictor failure recorded")

	if b.state == CircuitClosed && b.failureCount >= b.config.MaxFailures {
		b.open(now, fmt.Sprintf("max failure count exceeded (%d >= %d) within %v",
			b.failureCount, b.config.MaxFailures, b.config.FailureWindow))
	}
}

// open assumes b.mu is held
func (b *BreakerPredictor) open(now time.Time, reason string) {
	old := b.state
	b.state = CircuitOpen
	b.openedAt = now

	b.logger.WithFields(logrus.Fields{
		"old_state":       old.String(),
		"new_state":       CircuitOpen.String(),
		"reason":          reason,
		"failure_count":   b.failureCount,
		"cooldown_period": b.config.CooldownPeriod,
	}).Warn("Predictor circuit breaker opened")
}
