package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application instruments. A nil *Metrics is valid and
// records nothing, so library packages can take it as an optional dependency.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	inferenceRequestsTotal   metric.Int64Counter
	inferenceRequestDuration metric.Float64Histogram
	inferenceRetriesTotal    metric.Int64Counter
	tokenUsageTotal          metric.Int64Counter
	contextTokenCount        metric.Int64Histogram

	toolCallsTotal       metric.Int64Counter
	geocodeLookupsTotal  metric.Int64Counter
	forecastFetchesTotal metric.Int64Counter
	forecastDuration     metric.Float64Histogram
	coordinatorDecisions metric.Int64Counter
	breakerTransitions   metric.Int64Counter
}

// NewMetrics creates and initializes all metrics
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.httpRequestsTotal, err = meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if m.httpRequestDuration, err = meter.Float64Histogram(
		"http_server_latency_ms",
		metric.WithDescription("HTTP request latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.inferenceRequestsTotal, err = meter.Int64Counter(
		"inference_requests_total",
		metric.WithDescription("Chat completion requests by stage and outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if m.inferenceRequestDuration, err = meter.Float64Histogram(
		"inference_request_duration_ms",
		metric.WithDescription("Chat completion latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.inferenceRetriesTotal, err = meter.Int64Counter(
		"inference_retries_total",
		metric.WithDescription("Chat completion attempts retried after a transient failure"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if m.tokenUsageTotal, err = meter.Int64Counter(
		"token_usage_total",
		metric.WithDescription("Tokens reported by the model, by type"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if m.contextTokenCount, err = meter.Int64Histogram(
		"context_token_count",
		metric.WithDescription("Estimated prompt size per inference call"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(100, 500, 1000, 2000, 4000, 8000, 16000, 32000),
	); err != nil {
		return nil, err
	}

	if m.toolCallsTotal, err = meter.Int64Counter(
		"tool_calls_total",
		metric.WithDescription("Tool surface invocations by tool and outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if m.geocodeLookupsTotal, err = meter.Int64Counter(
		"geocode_lookups_total",
		metric.WithDescription("City resolutions by source (static, cache, remote) and outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if m.forecastFetchesTotal, err = meter.Int64Counter(
		"forecast_fetches_total",
		metric.WithDescription("Forecast API calls by outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if m.forecastDuration, err = meter.Float64Histogram(
		"forecast_fetch_duration_ms",
		metric.WithDescription("Forecast API latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.coordinatorDecisions, err = meter.Int64Counter(
		"coordinator_decisions_total",
		metric.WithDescription("Routing decisions by kind and target"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if m.breakerTransitions, err = meter.Int64Counter(
		"circuit_breaker_transitions_total",
		metric.WithDescription("Circuit breaker state changes"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// HTTPMetricsMiddleware returns middleware for collecting HTTP metrics.
// Paths are labelled with the mux route template to bound cardinality.
func (m *Metrics) HTTPMetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			attrs := metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("path", routePath(r)),
				attribute.String("status_code", strconv.Itoa(rw.statusCode)),
			)
			m.httpRequestsTotal.Add(r.Context(), 1, attrs)
			m.httpRequestDuration.Record(r.Context(), float64(time.Since(start).Microseconds())/1000, attrs)
		})
	}
}

func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// RecordInference records one chat completion call.
func (m *Metrics) RecordInference(ctx context.Context, stage, model string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("model", model),
		attribute.String("status", outcome(err)),
	)
	m.inferenceRequestsTotal.Add(ctx, 1, attrs)
	m.inferenceRequestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordInferenceRetry counts one retried chat completion attempt.
func (m *Metrics) RecordInferenceRetry(ctx context.Context, stage string, attempt int) {
	if m == nil {
		return
	}
	m.inferenceRetriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Int("attempt", attempt),
	))
}

// RecordTokenUsage records token counts reported by the model.
func (m *Metrics) RecordTokenUsage(ctx context.Context, stage, model string, promptTokens, completionTokens int64) {
	if m == nil {
		return
	}
	for tokenType, n := range map[string]int64{"prompt": promptTokens, "completion": completionTokens} {
		m.tokenUsageTotal.Add(ctx, n, metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("model", model),
			attribute.String("token_type", tokenType),
		))
	}
}

// RecordContextTokens records the estimated prompt size before a call.
func (m *Metrics) RecordContextTokens(ctx context.Context, stage string, tokens int64) {
	if m == nil {
		return
	}
	m.contextTokenCount.Record(ctx, tokens, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordToolCall records a tool surface invocation. outcome is "ok" or the
// failure class rendered to the caller.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, result string) {
	if m == nil {
		return
	}
	m.toolCallsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("outcome", result),
	))
}

// RecordGeocode records where a city resolution was answered from.
func (m *Metrics) RecordGeocode(ctx context.Context, source string, err error) {
	if m == nil {
		return
	}
	m.geocodeLookupsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", outcome(err)),
	))
}

// RecordForecast records a forecast API call.
func (m *Metrics) RecordForecast(ctx context.Context, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", outcome(err)))
	m.forecastFetchesTotal.Add(ctx, 1, attrs)
	m.forecastDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordDecision records a coordinator routing decision.
func (m *Metrics) RecordDecision(ctx context.Context, kind, target string) {
	if m == nil {
		return
	}
	m.coordinatorDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("target", target),
	))
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, name, from, to string) {
	if m == nil {
		return
	}
	m.breakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker", name),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// responseWriter captures the status code for metrics
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
