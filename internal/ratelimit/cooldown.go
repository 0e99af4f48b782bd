package ratelimit

import (
	"context"
	"sync"
	"time"
)

// CooldownDecision is the outcome of a cooldown check-and-set.
type CooldownDecision struct {
	Allowed   bool
	Remaining time.Duration
}

// CooldownStore enforces minimum spacing between invocations of a guarded
// action per key. TryStart is a single check-and-set: when it allows, the
// stamp is already committed, so of two concurrent callers exactly one wins.
// The stamp is never rolled back if the guarded action later fails.
type CooldownStore interface {
	TryStart(ctx context.Context, key string, cooldown time.Duration) (CooldownDecision, error)
}

type MemoryCooldown struct {
	mu     sync.Mutex
	stamps map[string]time.Time
	now    func() time.Time
}

func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{
		stamps: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (c *MemoryCooldown) TryStart(ctx context.Context, key string, cooldown time.Duration) (CooldownDecision, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if stamp, ok := c.stamps[key]; ok {
		elapsed := now.Sub(stamp)
		if elapsed < cooldown {
			return CooldownDecision{Allowed: false, Remaining: cooldown - elapsed}, nil
		}
	}

	c.stamps[key] = now
	return CooldownDecision{Allowed: true}, nil
}

// Sweep drops stamps older than maxAge. Returns the number removed.
func (c *MemoryCooldown) Sweep(maxAge time.Duration) int {
	cutoff := c.now().Add(-maxAge)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, stamp := range c.stamps {
		if stamp.Before(cutoff) {
			delete(c.stamps, key)
			removed++
		}
	}
	return removed
}
