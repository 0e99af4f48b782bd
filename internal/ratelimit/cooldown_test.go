package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryCooldown_BlocksUntilElapsed(t *testing.T) {
	c := NewMemoryCooldown()
	base := time.Unix(1_700_000_000, 0)
	now := base
	c.now = func() time.Time { return now }
	ctx := context.Background()

	d, err := c.TryStart(ctx, "player-1", 2*time.Second)
	if err != nil || !d.Allowed {
		t.Fatalf("first start should be allowed: %+v %v", d, err)
	}

	now = base.Add(1 * time.Second)
	d, _ = c.TryStart(ctx, "player-1", 2*time.Second)
	if d.Allowed {
		t.Fatal("start inside the cooldown must be denied")
	}
	if d.Remaining != time.Second {
		t.Errorf("remaining = %v, want 1s", d.Remaining)
	}

	now = base.Add(2100 * time.Millisecond)
	if d, _ = c.TryStart(ctx, "player-1", 2*time.Second); !d.Allowed {
		t.Fatal("start after the cooldown elapsed must be allowed")
	}
}

func TestMemoryCooldown_ExactlyOneConcurrentWinner(t *testing.T) {
	c := NewMemoryCooldown()
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	const racers = 8
	var wg sync.WaitGroup
	results := make([]CooldownDecision, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			d, err := c.TryStart(ctx, "player-1", 2*time.Second)
			if err != nil {
				t.Errorf("try start: %v", err)
			}
			results[slot] = d
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, d := range results {
		if d.Allowed {
			winners++
		} else if d.Remaining != 2*time.Second {
			t.Errorf("loser remaining = %v, want 2s", d.Remaining)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestMemoryCooldown_KeysAreIsolated(t *testing.T) {
	c := NewMemoryCooldown()
	ctx := context.Background()

	if d, _ := c.TryStart(ctx, "player-1", time.Minute); !d.Allowed {
		t.Fatal("player-1 first start should be allowed")
	}
	if d, _ := c.TryStart(ctx, "player-2", time.Minute); !d.Allowed {
		t.Fatal("player-2 must not share player-1's cooldown")
	}
}

func TestMemoryCooldown_SweepKeepsActiveStamps(t *testing.T) {
	c := NewMemoryCooldown()
	base := time.Unix(1_700_000_000, 0)
	now := base
	c.now = func() time.Time { return now }
	ctx := context.Background()

	cooldown := 120 * time.Second
	if d, _ := c.TryStart(ctx, "player-1", cooldown); !d.Allowed {
		t.Fatal("first start should be allowed")
	}

	// a sweep mid-cooldown, with retention covering the full cooldown,
	// must not free the key early
	now = base.Add(70 * time.Second)
	if removed := c.Sweep(cooldown); removed != 0 {
		t.Fatalf("active stamp must survive the sweep, removed %d", removed)
	}

	d, _ := c.TryStart(ctx, "player-1", cooldown)
	if d.Allowed {
		t.Fatal("start inside the cooldown must still be denied after a sweep")
	}
	if d.Remaining != 50*time.Second {
		t.Errorf("remaining = %v, want 50s", d.Remaining)
	}
}

func TestMemoryCooldown_Sweep(t *testing.T) {
	c := NewMemoryCooldown()
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.TryStart(ctx, "stale", time.Second)
	now = now.Add(time.Hour)
	c.TryStart(ctx, "fresh", time.Second)

	if removed := c.Sweep(time.Minute); removed != 1 {
		t.Fatalf("expected 1 swept stamp, got %d", removed)
	}
}
