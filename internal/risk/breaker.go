// Package risk implements the engine's risk controls: the collaborator
// circuit breaker, the per-symbol cooldown ledger, correlation exposure
// limits, position sizing, the loss-streak cooldown, and the monthly
// drawdown breaker. Cross-cycle state lives in EngineState, loaded once at
// cycle start and saved at defined checkpoints.
package risk

import (
	"sync"
	"time"
)

// Breaker trips after maxFailures collaborator failures inside a sliding
// window, then rejects calls for a fixed cooldown. When the cooldown
// elapses the breaker resets and clears its failure history. Unlike a
// half-open breaker there is no probe call: the engine runs on a schedule,
// so the next cycle simply tries again.
type Breaker struct {
	mu          sync.Mutex
	maxFailures int
	window      time.Duration
	cooldown    time.Duration

	failures []time.Time
	openedAt time.Time
	open     bool

	now func() time.Time // injectable for tests

	// OnTrip is called when the breaker opens (optional).
	OnTrip func()
}

// NewBreaker creates a breaker with explicit thresholds.
func NewBreaker(maxFailures int, window, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		window:      window,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// DefaultBreaker returns the production configuration:
// 3 failures in 60s opens the breaker for 5 minutes.
func DefaultBreaker() *Breaker {
	return NewBreaker(3, 60*time.Second, 5*time.Minute)
}

// Allow reports whether collaborator calls may proceed. An expired cooldown
// resets the breaker and clears failure history.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}
	if b.now().Sub(b.openedAt) >= b.cooldown {
		b.open = false
		b.failures = nil
		return true
	}
	return false
}

// RecordFailure adds a failure at the current time and trips the breaker if
// the windowed count reaches the threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	now := b.now()

	// Drop failures that fell out of the window.
	cutoff := now.Add(-b.window)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = append(kept, now)

	tripped := false
	if !b.open && len(b.failures) >= b.maxFailures {
		b.open = true
		b.openedAt = now
		tripped = true
	}
	b.mu.Unlock()

	if tripped && b.OnTrip != nil {
		b.OnTrip()
	}
}

// Open reports whether the breaker is currently rejecting calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open && b.now().Sub(b.openedAt) < b.cooldown
}

// FailureCount returns the number of failures still inside the window.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	cutoff := b.now().Add(-b.window)
	n := 0
	for _, t := range b.failures {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
