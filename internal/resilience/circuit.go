package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrCircuitOpen is returned when a call is rejected without being attempted.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// Breaker is a per-provider circuit breaker. After Threshold consecutive
// failures it rejects calls outright for Cooldown, then lets a single probe
// through; a successful probe closes the circuit again. This keeps a dead
// upstream from eating the per-request fetch timeout on every query.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration

	failures int
	openedAt time.Time
	probing  bool
	nowFunc  func() time.Time
}

// NewBreaker creates a breaker. Non-positive arguments select the defaults
// of 5 failures and a 30s cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		nowFunc:   time.Now,
	}
}

// WithNow sets the clock for testing.
func (b *Breaker) WithNow(fn func() time.Time) *Breaker {
	b.nowFunc = fn
	return b
}

// Allow reports whether a call may proceed. While open, it returns
// ErrCircuitOpen until the cooldown elapses, then admits one probe.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return nil
	}
	if b.nowFunc().Sub(b.openedAt) < b.cooldown {
		return ErrCircuitOpen
	}
	if b.probing {
		return ErrCircuitOpen
	}
	b.probing = true
	return nil
}

// Record reports the outcome of an admitted call.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if err == nil {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures == b.threshold {
		b.openedAt = b.nowFunc()
	}
	if b.failures > b.threshold {
		// Failed probe: restart the cooldown.
		b.openedAt = b.nowFunc()
	}
}

// Open reports whether the breaker is currently rejecting calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.threshold && b.nowFunc().Sub(b.openedAt) < b.cooldown
}
