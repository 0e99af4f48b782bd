package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of a sliding-window admission check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// WindowStore counts events per key in a continuously sliding trailing
// window. Implementations must only record the event when admitting it.
type WindowStore interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) (Decision, error)
}

// MemoryWindow is the in-process WindowStore: per-key timestamp slices,
// pruned on every access, guarded by a single mutex. Valid for one backend
// instance; use RedisWindow when state must be shared.
type MemoryWindow struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

func NewMemoryWindow() *MemoryWindow {
	return &MemoryWindow{
		hits: make(map[string][]time.Time),
		now:  time.Now,
	}
}

func (w *MemoryWindow) Allow(ctx context.Context, key string, max int, window time.Duration) (Decision, error) {
	now := w.now()
	threshold := now.Add(-window)

	w.mu.Lock()
	defer w.mu.Unlock()

	hits := w.hits[key]
	kept := hits[:0]
	for _, hit := range hits {
		if hit.After(threshold) {
			kept = append(kept, hit)
		}
	}

	if len(kept) >= max {
		w.hits[key] = kept
		retryAfter := kept[0].Add(window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	kept = append(kept, now)
	w.hits[key] = kept

	return Decision{Allowed: true, Remaining: max - len(kept)}, nil
}

// Sweep drops keys with no hits inside the given window, bounding memory for
// a long-running process. Returns the number of keys removed.
func (w *MemoryWindow) Sweep(window time.Duration) int {
	threshold := w.now().Add(-window)

	w.mu.Lock()
	defer w.mu.Unlock()

	removed := 0
	for key, hits := range w.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(threshold) {
			delete(w.hits, key)
			removed++
		}
	}
	return removed
}
