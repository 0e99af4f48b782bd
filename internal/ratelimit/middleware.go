package ratelimit

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"

	"fishing-api/internal/observability"
)

// KeyFunc extracts the admission key for a request, typically the verified
// identity subject. An empty key means the request has no identity and is
// rejected with 401 rather than sharing an anonymous bucket.
type KeyFunc func(r *http.Request) string

// Middleware applies a sliding-window limit per key. On deny the response is
// 429 with the configured limit spelled out, which helps legitimate clients
// back off and reveals nothing useful to an attacker.
func Middleware(store WindowStore, max int, window time.Duration, keyFn KeyFunc, logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			decision, err := store.Allow(r.Context(), key, max, window)
			if err != nil {
				// A broken shared store should not take every endpoint down
				// with it; admit, but make the failure loud.
				logger.Error("rate_limit_store_failed", map[string]any{"error": err.Error()})
				sentry.CaptureException(err)
				next.ServeHTTP(w, r)
				return
			}

			if !decision.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
				writeJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":   "Rate limit exceeded",
					"message": fmt.Sprintf("Maximum %d requests per %d seconds", max, int(window.Seconds())),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CooldownMiddleware enforces minimum spacing between invocations per key.
// The stamp is committed before the handler runs and is not rolled back on
// handler failure, so a failed attempt still costs the cooldown.
func CooldownMiddleware(store CooldownStore, cooldown time.Duration, keyFn KeyFunc, logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			decision, err := store.TryStart(r.Context(), key, cooldown)
			if err != nil {
				logger.Error("cooldown_store_failed", map[string]any{"error": err.Error()})
				sentry.CaptureException(err)
				next.ServeHTTP(w, r)
				return
			}

			if !decision.Allowed {
				remaining := decision.Remaining.Seconds()
				writeJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":             "Cooldown active",
					"message":           fmt.Sprintf("Please wait %.1f seconds before casting again", remaining),
					"remaining_seconds": math.Round(remaining*10) / 10,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
