package maintenance

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fishing-api/internal/auth"
	"fishing-api/internal/observability"
	"fishing-api/internal/ratelimit"
)

func newTestHandler(secret string) (*SweepHandler, *auth.Blacklist) {
	blacklist := auth.NewBlacklist()
	return NewSweepHandler(
		observability.NewLogger(),
		secret,
		blacklist,
		auth.NewLoginGuard(5, 5*time.Minute),
		ratelimit.NewMemoryWindow(),
		ratelimit.NewMemoryCooldown(),
		ratelimit.NewIPThrottle(20, 40),
		time.Hour,
		time.Minute,
		2*time.Second,
	), blacklist
}

func TestSweep_CooldownRetentionCoversConfiguredCooldown(t *testing.T) {
	// a cast cooldown longer than the window retention must stretch the
	// cooldown retention with it, or a sweep could free an active stamp
	h := NewSweepHandler(
		observability.NewLogger(),
		"cron-secret",
		auth.NewBlacklist(),
		auth.NewLoginGuard(5, 5*time.Minute),
		ratelimit.NewMemoryWindow(),
		ratelimit.NewMemoryCooldown(),
		ratelimit.NewIPThrottle(20, 40),
		time.Hour,
		time.Minute,
		120*time.Second,
	)
	if h.cooldownRetention != 120*time.Second {
		t.Errorf("cooldown retention = %v, want 120s", h.cooldownRetention)
	}

	// and a short cooldown never drops the retention below the window's
	h2, _ := newTestHandler("cron-secret")
	if h2.cooldownRetention != time.Minute {
		t.Errorf("cooldown retention = %v, want the window retention floor", h2.cooldownRetention)
	}
}

func TestSweep_DisabledWithoutSecret(t *testing.T) {
	handler, _ := newTestHandler("")

	w := httptest.NewRecorder()
	handler.Handle(w, httptest.NewRequest(http.MethodPost, "/internal/maintenance/sweep", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when no cron secret configured, got %d", w.Code)
	}
}

func TestSweep_RejectsWrongSecret(t *testing.T) {
	handler, _ := newTestHandler("cron-secret")

	r := httptest.NewRequest(http.MethodPost, "/internal/maintenance/sweep", nil)
	r.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	handler.Handle(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestSweep_ReportsCounts(t *testing.T) {
	handler, blacklist := newTestHandler("cron-secret")
	blacklist.Record("some-token")

	r := httptest.NewRequest(http.MethodPost, "/internal/maintenance/sweep", nil)
	r.Header.Set("Authorization", "Bearer cron-secret")
	w := httptest.NewRecorder()
	handler.Handle(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Status string      `json:"status"`
		Result SweepResult `json:"result"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q", body.Status)
	}
	// the fresh revocation is inside its retention window
	if body.Result.RevokedTokens != 0 {
		t.Errorf("revoked_tokens = %d, want 0", body.Result.RevokedTokens)
	}
}
