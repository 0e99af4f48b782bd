package maintenance

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"fishing-api/internal/auth"
	"fishing-api/internal/observability"
	"fishing-api/internal/ratelimit"
)

// SweepHandler is the cron-invoked endpoint that bounds the in-memory guard
// state for a long-running process: revoked-token fingerprints past the
// credential lifetime, idle rate windows, stale cooldown stamps, aged-out
// login failures. Disabled (404) unless a cron secret is configured.
type SweepHandler struct {
	logger     *observability.Logger
	cronSecret string

	blacklist  *auth.Blacklist
	loginGuard *auth.LoginGuard
	windows    *ratelimit.MemoryWindow
	cooldowns  *ratelimit.MemoryCooldown
	throttle   *ratelimit.IPThrottle

	tokenRetention    time.Duration
	windowRetention   time.Duration
	cooldownRetention time.Duration
}

type SweepResult struct {
	RevokedTokens   int `json:"revoked_tokens"`
	LoginKeys       int `json:"login_keys"`
	RateWindows     int `json:"rate_windows"`
	CooldownStamps  int `json:"cooldown_stamps"`
	ThrottleBuckets int `json:"throttle_buckets"`
}

func NewSweepHandler(
	logger *observability.Logger,
	cronSecret string,
	blacklist *auth.Blacklist,
	loginGuard *auth.LoginGuard,
	windows *ratelimit.MemoryWindow,
	cooldowns *ratelimit.MemoryCooldown,
	throttle *ratelimit.IPThrottle,
	tokenRetention time.Duration,
	windowRetention time.Duration,
	cooldownRetention time.Duration,
) *SweepHandler {
	// A stamp may only be dropped once its cooldown has fully run, so the
	// retention can never undercut the configured cooldown.
	if cooldownRetention < windowRetention {
		cooldownRetention = windowRetention
	}
	return &SweepHandler{
		logger:            logger,
		cronSecret:        strings.TrimSpace(cronSecret),
		blacklist:         blacklist,
		loginGuard:        loginGuard,
		windows:           windows,
		cooldowns:         cooldowns,
		throttle:          throttle,
		tokenRetention:    tokenRetention,
		windowRetention:   windowRetention,
		cooldownRetention: cooldownRetention,
	}
}

func (h *SweepHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.cronSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var result SweepResult
	if h.blacklist != nil {
		result.RevokedTokens = h.blacklist.Sweep(h.tokenRetention)
	}
	if h.loginGuard != nil {
		result.LoginKeys = h.loginGuard.Sweep()
	}
	if h.windows != nil {
		result.RateWindows = h.windows.Sweep(h.windowRetention)
	}
	if h.cooldowns != nil {
		result.CooldownStamps = h.cooldowns.Sweep(h.cooldownRetention)
	}
	if h.throttle != nil {
		result.ThrottleBuckets = h.throttle.Cleanup()
	}

	h.logger.Info("guard_sweep_completed", map[string]any{
		"revoked_tokens":   result.RevokedTokens,
		"login_keys":       result.LoginKeys,
		"rate_windows":     result.RateWindows,
		"cooldown_stamps":  result.CooldownStamps,
		"throttle_buckets": result.ThrottleBuckets,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"result": result,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
