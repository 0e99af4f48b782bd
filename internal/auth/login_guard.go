package auth

import (
	"sync"
	"time"
)

// LoginGuard tracks failed login attempts in a sliding window per opaque
// key. The login handler consults it under two keys per attempt, the caller
// network origin and the submitted account identifier, and both must allow
// the attempt. State is in-memory and process-local.
type LoginGuard struct {
	mu          sync.Mutex
	maxFailures int
	lockout     time.Duration
	failures    map[string][]time.Time
	now         func() time.Time
}

func NewLoginGuard(maxFailures int, lockout time.Duration) *LoginGuard {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if lockout <= 0 {
		lockout = 5 * time.Minute
	}

	return &LoginGuard{
		maxFailures: maxFailures,
		lockout:     lockout,
		failures:    make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Check reports whether a login attempt for key may proceed. When denied,
// the returned duration is how long until the oldest failure ages out of the
// window. Check never records anything; failures are only added through
// RecordFailure.
func (g *LoginGuard) Check(key string) (bool, time.Duration) {
	now := g.now()
	threshold := now.Add(-g.lockout)

	g.mu.Lock()
	defer g.mu.Unlock()

	kept := g.pruneLocked(key, threshold)
	if len(kept) < g.maxFailures {
		return true, 0
	}

	retryAfter := kept[0].Add(g.lockout).Sub(now)
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return false, retryAfter
}

func (g *LoginGuard) RecordFailure(key string) {
	now := g.now()
	threshold := now.Add(-g.lockout)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.failures[key] = append(g.pruneLocked(key, threshold), now)
}

// Clear wipes the failure history for key so a successful login does not
// leave a legitimate user one mistake away from lockout.
func (g *LoginGuard) Clear(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.failures, key)
}

// Sweep drops keys whose failures have all aged out of the lockout window.
// Returns the number of keys removed.
func (g *LoginGuard) Sweep() int {
	threshold := g.now().Add(-g.lockout)

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for key, hits := range g.failures {
		if len(hits) == 0 || !hits[len(hits)-1].After(threshold) {
			delete(g.failures, key)
			removed++
		}
	}
	return removed
}

func (g *LoginGuard) pruneLocked(key string, threshold time.Time) []time.Time {
	hits := g.failures[key]
	kept := hits[:0]
	for _, hit := range hits {
		if hit.After(threshold) {
			kept = append(kept, hit)
		}
	}
	if len(kept) == 0 {
		delete(g.failures, key)
		return nil
	}
	g.failures[key] = kept
	return kept
}
