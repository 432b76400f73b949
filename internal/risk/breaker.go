// Package risk holds the trading circuit breaker and exposure gate: the two
// checks every execution must pass before an order group is submitted.
package risk

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/pkg/venueerrors"
)

// BreakerState is the circuit breaker's finite-state-machine state.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerConfig holds every trip threshold and timing the breaker enforces.
type BreakerConfig struct {
	MaxDailyLossCents     int
	MaxConsecutiveLosses  int
	MaxExposureCents      int
	CooldownSeconds       int
	HalfOpenTestLimit     int
}

// DefaultBreakerConfig matches spec §6's documented defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxDailyLossCents:    10000,
		MaxConsecutiveLosses: 5,
		MaxExposureCents:     50000,
		CooldownSeconds:      300,
		HalfOpenTestLimit:    1,
	}
}

// BreakerMetrics is the snapshot of counters the breaker tracks.
type BreakerMetrics struct {
	DailyLossCents     int
	ConsecutiveLosses  int
	TotalExposureCents int
	TripCount          int
}

// OnTrip is invoked (outside the breaker's lock) with the trip reason every
// time the breaker transitions to OPEN.
type OnTrip func(reason string)

// OnReset is invoked (outside the breaker's lock) every time the breaker
// transitions from HALF_OPEN back to CLOSED.
type OnReset func()

// CircuitBreaker is the operator-protective trading halt mechanism: it trips
// to OPEN when daily loss, consecutive losses, or total exposure cross a
// configured threshold, and only resumes trading after a cooldown and one
// successful HALF_OPEN probe trade.
type CircuitBreaker struct {
	cfg     BreakerConfig
	logger  *zap.Logger
	onTrip  OnTrip
	onReset OnReset

	mu             sync.Mutex
	state          BreakerState
	metrics        BreakerMetrics
	tripReason     string
	tripTime       time.Time
	halfOpenTrades int

	now func() time.Time
}

// New creates a CircuitBreaker starting CLOSED.
func New(cfg BreakerConfig, logger *zap.Logger, onTrip OnTrip, onReset OnReset) *CircuitBreaker {
	if cfg.HalfOpenTestLimit <= 0 {
		cfg.HalfOpenTestLimit = 1
	}
	b := &CircuitBreaker{
		cfg:     cfg,
		logger:  logger,
		onTrip:  onTrip,
		onReset: onReset,
		state:   BreakerClosed,
		now:     time.Now,
	}
	breakerState.Set(stateValue(BreakerClosed))
	return b
}

// State returns the current FSM state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Metrics returns a copy of the current metric counters.
func (b *CircuitBreaker) Metrics() BreakerMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metrics
}

// CheckAndAllow checks whether trading is currently permitted, performing
// any due OPEN -> HALF_OPEN transition first. It returns
// *venueerrors.CircuitBreakerOpenError when trading is denied.
func (b *CircuitBreaker) CheckAndAllow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if b.cooldownElapsedLocked() {
			b.state = BreakerHalfOpen
			b.halfOpenTrades = 0
			breakerState.Set(stateValue(BreakerHalfOpen))
			b.logger.Info("circuit-breaker-half-open")
		} else {
			return &venueerrors.CircuitBreakerOpenError{CooldownRemaining: b.cooldownRemainingLocked()}
		}
	}

	if b.state == BreakerHalfOpen {
		if b.halfOpenTrades >= b.cfg.HalfOpenTestLimit {
			return &venueerrors.CircuitBreakerOpenError{CooldownRemaining: 0}
		}
		b.halfOpenTrades++
	}

	return nil
}

// RecordTradeResult records the outcome of one executed trade: a loss
// (profitCents < 0) accumulates daily_loss and consecutive_losses and may
// trip the breaker; a win (profitCents > 0) zeros consecutive_losses and,
// in HALF_OPEN, closes the breaker. A zero-profit record is neither: it
// leaves consecutive_losses and breaker state untouched, since §4.11/§8
// define a win strictly as profit > 0 and HALF_OPEN -> CLOSED only on a
// positive-profit record. exposureCents is the caller's current total
// exposure, recorded alongside the trade result.
func (b *CircuitBreaker) RecordTradeResult(profitCents, exposureCents int) {
	b.mu.Lock()
	b.metrics.TotalExposureCents = exposureCents
	breakerExposureCents.Set(float64(exposureCents))

	switch {
	case profitCents < 0:
		b.metrics.DailyLossCents += -profitCents
		b.metrics.ConsecutiveLosses++
		breakerDailyLossCents.Set(float64(b.metrics.DailyLossCents))
		breakerConsecutiveLosses.Set(float64(b.metrics.ConsecutiveLosses))

		if b.state == BreakerHalfOpen {
			b.tripLocked(fmt.Sprintf("Loss in half-open: %d cents", -profitCents))
			b.mu.Unlock()
			return
		}
		b.checkTripConditionsLocked()
		b.mu.Unlock()

	case profitCents > 0:
		b.metrics.ConsecutiveLosses = 0
		breakerConsecutiveLosses.Set(0)

		wasHalfOpen := b.state == BreakerHalfOpen
		if wasHalfOpen {
			b.transitionToClosedLocked()
		}
		b.mu.Unlock()

		if wasHalfOpen && b.onReset != nil {
			b.onReset()
		}

	default:
		b.mu.Unlock()
	}
}

// RecordExposure updates total exposure outside of a trade result (e.g. the
// engine's periodic sync tick) and checks trip conditions against it.
func (b *CircuitBreaker) RecordExposure(exposureCents int) {
	b.mu.Lock()
	b.metrics.TotalExposureCents = exposureCents
	breakerExposureCents.Set(float64(exposureCents))
	if b.state != BreakerOpen {
		b.checkTripConditionsLocked()
	}
	b.mu.Unlock()
}

// ResetDailyMetrics zeros the daily loss counter without altering state.
func (b *CircuitBreaker) ResetDailyMetrics() {
	b.mu.Lock()
	b.metrics.DailyLossCents = 0
	breakerDailyLossCents.Set(0)
	b.mu.Unlock()
	b.logger.Info("circuit-breaker-daily-metrics-reset")
}

// ForceOpen manually trips the breaker, e.g. from an operator command.
func (b *CircuitBreaker) ForceOpen(reason string) {
	b.mu.Lock()
	b.tripLocked(reason)
	b.mu.Unlock()
}

// ForceClose manually resets the breaker to CLOSED.
func (b *CircuitBreaker) ForceClose() {
	b.mu.Lock()
	b.transitionToClosedLocked()
	b.mu.Unlock()
}

func (b *CircuitBreaker) checkTripConditionsLocked() {
	if b.state == BreakerOpen {
		return
	}

	var reason string
	switch {
	case b.metrics.DailyLossCents >= b.cfg.MaxDailyLossCents:
		reason = fmt.Sprintf("Daily loss limit: %d cents", b.metrics.DailyLossCents)
	case b.metrics.ConsecutiveLosses >= b.cfg.MaxConsecutiveLosses:
		reason = fmt.Sprintf("Consecutive losses: %d", b.metrics.ConsecutiveLosses)
	case b.metrics.TotalExposureCents >= b.cfg.MaxExposureCents:
		reason = fmt.Sprintf("Exposure limit: %d cents", b.metrics.TotalExposureCents)
	}

	if reason != "" {
		b.tripLocked(reason)
	}
}

func (b *CircuitBreaker) tripLocked(reason string) {
	b.state = BreakerOpen
	b.tripReason = reason
	b.tripTime = b.now()
	b.metrics.TripCount++
	breakerState.Set(stateValue(BreakerOpen))
	breakerTripsTotal.Inc()

	b.logger.Warn("circuit-breaker-tripped",
		zap.String("reason", reason),
		zap.Int("daily_loss_cents", b.metrics.DailyLossCents),
		zap.Int("consecutive_losses", b.metrics.ConsecutiveLosses),
		zap.Int("total_exposure_cents", b.metrics.TotalExposureCents))

	// The lock is released around the callback so it may call back into
	// the breaker (e.g. Metrics); callers still hold it on return.
	if b.onTrip != nil {
		b.mu.Unlock()
		b.onTrip(reason)
		b.mu.Lock()
	}
}

func (b *CircuitBreaker) transitionToClosedLocked() {
	b.state = BreakerClosed
	b.tripReason = ""
	b.halfOpenTrades = 0
	breakerState.Set(stateValue(BreakerClosed))
	b.logger.Info("circuit-breaker-closed")
}

func (b *CircuitBreaker) cooldownElapsedLocked() bool {
	if b.tripTime.IsZero() {
		return true
	}
	return b.now().Sub(b.tripTime) >= time.Duration(b.cfg.CooldownSeconds)*time.Second
}

func (b *CircuitBreaker) cooldownRemainingLocked() time.Duration {
	if b.tripTime.IsZero() {
		return 0
	}
	remaining := time.Duration(b.cfg.CooldownSeconds)*time.Second - b.now().Sub(b.tripTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func stateValue(s BreakerState) float64 {
	switch s {
	case BreakerClosed:
		return 0
	case BreakerHalfOpen:
		return 1
	case BreakerOpen:
		return 2
	default:
		return -1
	}
}
