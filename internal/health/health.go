package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync/atomic"
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// CheckFunc pings one dependency.
type CheckFunc func(ctx context.Context) error

type check struct {
	name string
	fn   CheckFunc
}

// HealthChecker handles health checks
type HealthChecker struct {
	checks   []check
	timeout  time.Duration
	draining atomic.Bool
}

// NewHealthChecker creates a new health checker
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{timeout: 2 * time.Second}
}

// AddCheck registers a dependency. Nil functions are ignored so optional
// stores can be passed unconditionally.
func (h *HealthChecker) AddCheck(name string, fn CheckFunc) *HealthChecker {
	if fn != nil {
		h.checks = append(h.checks, check{name: name, fn: fn})
	}
	return h
}

// Drain makes /ready fail so load balancers stop routing during shutdown.
func (h *HealthChecker) Drain() { h.draining.Store(true) }

func (h *HealthChecker) run(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	ok := true
	for _, c := range h.checks {
		if err := c.fn(ctx); err != nil {
			results[c.name] = "failed: " + err.Error()
			ok = false
			continue
		}
		results[c.name] = "ok"
	}
	return results, ok
}

// Names lists the registered checks in sorted order.
func (h *HealthChecker) Names() []string {
	names := make([]string, 0, len(h.checks))
	for _, c := range h.checks {
		names = append(names, c.name)
	}
	sort.Strings(names)
	return names
}

// HealthHandler handles the /health endpoint
func (h *HealthChecker) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checks, ok := h.run(r.Context())
	response := HealthResponse{Status: "healthy", Timestamp: time.Now(), Checks: checks}
	if !ok {
		response.Status = "unhealthy"
	}
	writeJSON(w, ok, response)
}

// ReadyHandler handles the /ready endpoint
func (h *HealthChecker) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	checks, ok := h.run(r.Context())
	if h.draining.Load() {
		ok = false
		checks["server"] = "draining"
	}
	response := HealthResponse{Status: "ready", Timestamp: time.Now(), Checks: checks}
	if !ok {
		response.Status = "not ready"
	}
	writeJSON(w, ok, response)
}

func writeJSON(w http.ResponseWriter, ok bool, response HealthResponse) {
	statusCode := http.StatusOK
	if !ok {
		statusCode = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
