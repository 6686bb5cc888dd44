package livekit

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is rejecting requests.
// Callers can distinguish it from upstream failures and back off without
// burning retries.
var ErrCircuitOpen = errors.New("livekit circuit breaker open")

// BreakerState is the current circuit breaker state.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

const (
	// DefaultFailureThreshold is the consecutive failure count that opens
	// the breaker.
	DefaultFailureThreshold = 5
	// DefaultCooldown is how long the breaker stays open before allowing
	// a trial request.
	DefaultCooldown = 60 * time.Second
)

// CircuitBreaker guards the LiveKit API with a shared failure budget. All
// operations on one client flow through the same breaker, so a degraded
// upstream trips it regardless of which endpoint is failing.
type CircuitBreaker struct {
	mu            sync.Mutex
	state         BreakerState
	failures      int
	openedAt      time.Time
	trialInFlight bool

	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// NewCircuitBreaker creates a closed breaker with default thresholds.
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{
		state:     BreakerClosed,
		threshold: DefaultFailureThreshold,
		cooldown:  DefaultCooldown,
		now:       time.Now,
	}
}

// Allow reports whether a request may proceed. When the cooldown has elapsed
// on an open breaker it moves to half-open and admits exactly one trial
// request; concurrent callers get ErrCircuitOpen until the trial resolves.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrCircuitOpen
		}
		slog.Info("CircuitBreaker.Allow: cooldown elapsed, admitting trial request")
		b.state = BreakerHalfOpen
		b.trialInFlight = true
		return nil
	case BreakerHalfOpen:
		if b.trialInFlight {
			return ErrCircuitOpen
		}
		b.trialInFlight = true
		return nil
	}
	return nil
}

// RecordSuccess closes the breaker and resets the failure count.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != BreakerClosed {
		slog.Info("CircuitBreaker.RecordSuccess: closing breaker", "previous_state", b.state)
	}
	b.state = BreakerClosed
	b.failures = 0
	b.trialInFlight = false
}

// RecordFailure counts a failed request. A failed half-open trial reopens
// the breaker immediately; in the closed state the breaker opens once the
// consecutive failure threshold is reached.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		slog.Warn("CircuitBreaker.RecordFailure: trial request failed, reopening breaker")
		b.state = BreakerOpen
		b.openedAt = b.now()
		b.trialInFlight = false
		return
	}

	b.failures++
	if b.state == BreakerClosed && b.failures >= b.threshold {
		slog.Warn("CircuitBreaker.RecordFailure: failure threshold reached, opening breaker",
			"failures", b.failures)
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
