// Package ratelimit enforces per-client request quotas at the request
// boundary. Each client gets one counting window per tier; windows reset
// lazily on the next request after they elapse, so no background timer is
// involved in correctness.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Tier is one independent limit, e.g. 60 requests per minute.
type Tier struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Error reports a rejected request. It is surfaced to the caller so front
// ends can show a cooldown rather than a generic failure.
type Error struct {
	Tier       string
	Limit      int
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d per %s, retry after %s", e.Limit, e.Tier, e.RetryAfter.Round(time.Second))
}

// TierStatus is a read-only view of one client tier, for operational tooling.
type TierStatus struct {
	Tier          string  `json:"tier"`
	Count         int     `json:"count"`
	Limit         int     `json:"limit"`
	WindowSeconds int     `json:"window_seconds"`
	RetryAfter    float64 `json:"retry_after_seconds"`
}

type window struct {
	start time.Time
	count int
}

type clientState struct {
	windows []window // index-aligned with Limiter.tiers
	touched time.Time
}

// Limiter tracks request counts per client across all configured tiers.
// A request is rejected if any tier is at its limit; tiers are evaluated
// independently. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	tiers   []Tier
	clients map[string]*clientState

	stop chan struct{}
	once sync.Once

	// nowFunc is injectable for testing window arithmetic.
	nowFunc func() time.Time
}

// New creates a limiter with the given tiers and starts a janitor that
// drops long-idle clients.
func New(tiers []Tier) *Limiter {
	l := &Limiter{
		tiers:   tiers,
		clients: make(map[string]*clientState),
		stop:    make(chan struct{}),
		nowFunc: time.Now,
	}
	go l.janitor()
	return l
}

// DefaultTiers builds the minute/hour/day tiers from configured limits.
// Non-positive limits disable the tier.
func DefaultTiers(perMinute, perHour, perDay int) []Tier {
	var tiers []Tier
	if perMinute > 0 {
		tiers = append(tiers, Tier{Name: "minute", Limit: perMinute, Window: time.Minute})
	}
	if perHour > 0 {
		tiers = append(tiers, Tier{Name: "hour", Limit: perHour, Window: time.Hour})
	}
	if perDay > 0 {
		tiers = append(tiers, Tier{Name: "day", Limit: perDay, Window: 24 * time.Hour})
	}
	return tiers
}

// WithNow sets the clock for testing.
func (l *Limiter) WithNow(fn func() time.Time) *Limiter {
	l.nowFunc = fn
	return l
}

// Allow records one request for clientID. It returns nil and increments
// every tier when the request is admitted, or a *Error for the first
// exhausted tier without incrementing anything.
func (l *Limiter) Allow(clientID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	state, ok := l.clients[clientID]
	if !ok {
		state = &clientState{windows: make([]window, len(l.tiers))}
		for i := range state.windows {
			state.windows[i].start = now
		}
		l.clients[clientID] = state
	}
	state.touched = now

	// Lazy reset, then check all tiers before counting the request.
	for i, tier := range l.tiers {
		w := &state.windows[i]
		if now.Sub(w.start) > tier.Window {
			w.start = now
			w.count = 0
		}
		if w.count >= tier.Limit {
			return &Error{
				Tier:       tier.Name,
				Limit:      tier.Limit,
				RetryAfter: tier.Window - now.Sub(w.start),
			}
		}
	}

	for i := range l.tiers {
		state.windows[i].count++
	}
	return nil
}

// Status returns the current state of every tier for clientID without
// mutating any counter. Unknown clients report zero counts.
func (l *Limiter) Status(clientID string) []TierStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	statuses := make([]TierStatus, len(l.tiers))
	state := l.clients[clientID]

	for i, tier := range l.tiers {
		st := TierStatus{
			Tier:          tier.Name,
			Limit:         tier.Limit,
			WindowSeconds: int(tier.Window.Seconds()),
		}
		if state != nil {
			w := state.windows[i]
			if now.Sub(w.start) <= tier.Window {
				st.Count = w.count
				if w.count >= tier.Limit {
					st.RetryAfter = (tier.Window - now.Sub(w.start)).Seconds()
				}
			}
		}
		statuses[i] = st
	}
	return statuses
}

// Close stops the janitor.
func (l *Limiter) Close() error {
	l.once.Do(func() { close(l.stop) })
	return nil
}

// janitor removes clients idle for more than twice the largest window.
func (l *Limiter) janitor() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			var largest time.Duration
			for _, t := range l.tiers {
				if t.Window > largest {
					largest = t.Window
				}
			}
			cutoff := l.nowFunc().Add(-2 * largest)
			l.mu.Lock()
			for id, state := range l.clients {
				if state.touched.Before(cutoff) {
					delete(l.clients, id)
				}
			}
			l.mu.Unlock()
		}
	}
}
