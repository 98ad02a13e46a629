package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mkirkeby/opgave/pkg/observability"
)

// Middleware creates the authentication gate from an AuthChain and
// optional RateLimiter. It checks the bypass list, runs authentication
// exactly once, attaches the resolved principal to the request context,
// and optionally enforces rate limits.
//
// On rejection the response body is always the same generic message; the
// specific failure kind (malformed token, bad signature, expiry, stale
// principal) is logged only.
func Middleware(chain *AuthChain, limiter RateLimiter, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check bypass list.
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			// Run auth chain.
			result := chain.Authenticate(r.Context(), r)

			if result.Decision == No && errors.Is(result.Err, ErrInternal) {
				slog.Error("authentication infrastructure fault",
					"path", r.URL.Path,
					"error", result.Err,
				)
				http.Error(w, `{"error":{"type":"server_error","message":"internal authentication error"}}`, http.StatusInternalServerError)
				return
			}

			if result.Decision == No {
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				observability.AuthAttemptsTotal.WithLabelValues("rejected").Inc()
				http.Error(w, `{"error":{"type":"unauthenticated","message":"authentication required"}}`, http.StatusUnauthorized)
				return
			}

			if result.Decision != Yes || result.Principal == nil {
				http.Error(w, `{"error":{"type":"unauthenticated","message":"authentication required"}}`, http.StatusUnauthorized)
				return
			}

			// Validate principal.
			if result.Principal.ID == "" {
				slog.Error("authenticator returned principal with empty id")
				http.Error(w, `{"error":{"type":"server_error","message":"internal authentication error"}}`, http.StatusInternalServerError)
				return
			}

			slog.Debug("authentication succeeded",
				"principal", result.Principal.ID,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			observability.AuthAttemptsTotal.WithLabelValues("accepted").Inc()

			// Rate limiting (if configured).
			if limiter != nil {
				if err := limiter.Allow(r.Context(), result.Principal); err != nil {
					slog.Warn("rate limit exceeded",
						"principal", result.Principal.ID,
						"role", result.Principal.Role,
					)
					observability.RateLimitRejectedTotal.WithLabelValues(string(result.Principal.Role)).Inc()
					http.Error(w, `{"error":{"type":"too_many_requests","message":"rate limit exceeded"}}`, http.StatusTooManyRequests)
					return
				}
			}

			// Attach principal for the rest of the request.
			ctx := SetPrincipal(r.Context(), result.Principal)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DefaultBypassEndpoints lists endpoints that skip authentication:
// health and metrics probes plus the credential endpoints themselves.
var DefaultBypassEndpoints = []string{
	"/healthz",
	"/readyz",
	"/metrics",
	"/auth/register",
	"/auth/login",
}
