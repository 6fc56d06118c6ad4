package httpx

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/twitchtv/twirp"

	"github.com/8adimka/Go_Weather_Assistant/internal/errorsx"
)

// APIKeyAuth checks the X-API-Key header. Public paths and an empty key
// bypass the check.
type APIKeyAuth struct {
	apiKey      string
	publicPaths []string
}

// NewAPIKeyAuth creates a new API key authentication middleware
func NewAPIKeyAuth(apiKey string, publicPaths ...string) *APIKeyAuth {
	return &APIKeyAuth{
		apiKey:      apiKey,
		publicPaths: publicPaths,
	}
}

func (a *APIKeyAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.apiKey == "" || a.isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			providedKey := r.Header.Get("X-API-Key")
			if providedKey == "" {
				slog.WarnContext(r.Context(), "API key missing",
					"ip", GetClientIP(r),
					"method", r.Method,
					"path", r.URL.Path,
				)
				unauthorized(w, "API key required")
				return
			}

			if subtle.ConstantTimeCompare([]byte(providedKey), []byte(a.apiKey)) != 1 {
				slog.WarnContext(r.Context(), "Invalid API key",
					"ip", GetClientIP(r),
					"method", r.Method,
					"path", r.URL.Path,
				)
				unauthorized(w, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (a *APIKeyAuth) isPublic(path string) bool {
	for _, p := range a.publicPaths {
		if matchesPath(path, p) {
			return true
		}
	}
	return false
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "API-Key")
	te, _ := errorsx.ToTwirpError(errorsx.Wrap(errorsx.ErrUnauthorized, message)).(twirp.Error)
	_ = twirp.WriteError(w, te)
}

// matchesPath supports exact matches and prefix patterns such as /v1/tools/*.
func matchesPath(path, pattern string) bool {
	if path == pattern {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		return strings.HasPrefix(path, prefix+"/") || path == prefix
	}
	return false
}
