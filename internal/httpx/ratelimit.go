package httpx

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/twitchtv/twirp"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than ten minutes are dropped when a new client shows up.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	rps      rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter with the given requests per second and burst
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

// PerMinute converts a per-minute budget into a limiter.
func PerMinute(n, burst int) *RateLimiter {
	return NewRateLimiter(float64(n)/60, burst)
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.limiters[ip]
	if !exists {
		rl.evict(now)
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// evict drops visitors idle for longer than rl.idle. Caller holds mu.
func (rl *RateLimiter) evict(now time.Time) {
	for ip, v := range rl.limiters {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.limiters, ip)
		}
	}
}

// visitors reports how many client buckets are tracked.
func (rl *RateLimiter) visitors() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// wait returns how long ip must wait for its next token, zero when the
// request may proceed now. A rejected reservation is cancelled.
func (rl *RateLimiter) wait(ip string) time.Duration {
	res := rl.getLimiter(ip).ReserveN(rl.now(), 1)
	if !res.OK() {
		return time.Minute
	}
	delay := res.DelayFrom(rl.now())
	if delay > 0 {
		res.CancelAt(rl.now())
	}
	return delay
}

// Middleware rejects requests over the client's budget with a twirp
// resource_exhausted error and a Retry-After in whole seconds.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := GetClientIP(r)

			if delay := rl.wait(ip); delay > 0 {
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"ip", ip,
					"method", r.Method,
					"path", r.URL.Path,
					"retry_in", delay,
				)

				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%.2f", float64(rl.rps)))
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				_ = twirp.WriteError(w, twirp.NewError(twirp.ResourceExhausted, "too many requests, please try again later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection's remote host.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
