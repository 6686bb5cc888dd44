package livekit

import (
	"errors"
	"testing"
	"time"
)

func newTestBreaker(now *time.Time) *CircuitBreaker {
	b := NewCircuitBreaker()
	b.now = func() time.Time { return *now }
	return b
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	now := time.Now()
	b := newTestBreaker(&now)

	for i := 0; i < DefaultFailureThreshold-1; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("failure %d: expected request allowed, got %v", i, err)
		}
		b.RecordFailure()
	}
	if b.State() != BreakerClosed {
		t.Fatalf("expected breaker closed before threshold, got %s", b.State())
	}

	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("expected breaker open at threshold, got %s", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen while open, got %v", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	now := time.Now()
	b := newTestBreaker(&now)

	for i := 0; i < DefaultFailureThreshold-1; i++ {
		b.RecordFailure()
	}
	b.RecordSuccess()
	for i := 0; i < DefaultFailureThreshold-1; i++ {
		b.RecordFailure()
	}
	if b.State() != BreakerClosed {
		t.Errorf("expected breaker closed after reset, got %s", b.State())
	}
}

func TestBreakerHalfOpenSingleTrial(t *testing.T) {
	now := time.Now()
	b := newTestBreaker(&now)

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordFailure()
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected rejection during cooldown, got %v", err)
	}

	now = now.Add(DefaultCooldown)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected trial request admitted after cooldown, got %v", err)
	}
	if b.State() != BreakerHalfOpen {
		t.Fatalf("expected half-open state, got %s", b.State())
	}

	// Only one trial in flight.
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected second concurrent request rejected, got %v", err)
	}
}

func TestBreakerTrialSuccessCloses(t *testing.T) {
	now := time.Now()
	b := newTestBreaker(&now)

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordFailure()
	}
	now = now.Add(DefaultCooldown)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected trial admitted, got %v", err)
	}
	b.RecordSuccess()
	if b.State() != BreakerClosed {
		t.Errorf("expected breaker closed after trial success, got %s", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Errorf("expected request allowed after close, got %v", err)
	}
}

func TestBreakerTrialFailureReopens(t *testing.T) {
	now := time.Now()
	b := newTestBreaker(&now)

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.RecordFailure()
	}
	now = now.Add(DefaultCooldown)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected trial admitted, got %v", err)
	}
	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("expected breaker reopened after trial failure, got %s", b.State())
	}

	// Cooldown restarts from the reopen.
	now = now.Add(DefaultCooldown / 2)
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected rejection during new cooldown, got %v", err)
	}
	now = now.Add(DefaultCooldown / 2)
	if err := b.Allow(); err != nil {
		t.Errorf("expected trial admitted after full cooldown, got %v", err)
	}
}
