package auth

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"fishing-api/internal/observability"
)

// Middleware enforces the authorization guard on a protected handler. On
// success the verified Identity is attached to the request context; on any
// failure the response is the same generic 401, with the internal failure
// kind going to the log only.
func Middleware(verifier *Verifier, logger *observability.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		identity, err := verifier.Verify(parts[1])
		if err != nil {
			kind := KindMalformedCredential
			var verr *VerificationError
			if errors.As(err, &verr) {
				kind = verr.Kind
			}
			logger.Info("auth_rejected", map[string]any{
				"kind": string(kind),
				"path": r.URL.Path,
				"ip":   clientIP(r),
			})
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func clientIP(r *http.Request) string {
	xForwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xForwardedFor != "" {
		parts := strings.Split(xForwardedFor, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}

	// Drop the ephemeral port so every connection from one host shares a
	// lockout key.
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return "unknown"
}
