package httpx

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/twitchtv/twirp"
)

// SecurityConfig holds configuration for security middleware
type SecurityConfig struct {
	APIKey             string
	RateLimitPerMinute int
	RateLimitBurst     int
	PublicPaths        []string
}

// Security applies per-IP rate limiting to every request and then API key
// authentication to non-public paths.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	limiter := PerMinute(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	auth := NewAPIKeyAuth(cfg.APIKey, cfg.PublicPaths...)

	return func(next http.Handler) http.Handler {
		return limiter.Middleware()(auth.Middleware()(next))
	}
}

// Recovery turns a handler panic into a 500.
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					slog.ErrorContext(r.Context(), "Handler panicked",
						"panic", fmt.Sprint(rec),
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					_ = twirp.WriteError(w, twirp.InternalError("internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders sets conservative response headers.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}
