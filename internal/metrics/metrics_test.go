package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}
	return m, reader
}

// counterValue sums the data points of an int64 counter matching attr.
func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string, attr attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != name {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is not an int64 sum", name)
			}
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value(attr.Key); ok && v.Emit() == attr.Value.Emit() {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestHTTPMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	m, reader := newTestMetrics(t)

	router := mux.NewRouter()
	router.Use(m.HTTPMetricsMiddleware())
	router.HandleFunc("/v1/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/conversations/"+id, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d", rec.Code)
		}
	}

	got := counterValue(t, reader, "http_server_requests_total", attribute.String("path", "/v1/conversations/{id}"))
	if got != 3 {
		t.Errorf("Expected 3 requests on the route template, got %d", got)
	}
	got = counterValue(t, reader, "http_server_requests_total", attribute.String("status_code", "404"))
	if got != 3 {
		t.Errorf("Expected 3 requests with status 404, got %d", got)
	}
}

func TestDomainCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordGeocode(ctx, "static", nil)
	m.RecordGeocode(ctx, "static", nil)
	m.RecordGeocode(ctx, "remote", errors.New("timeout"))
	m.RecordToolCall(ctx, "query_weather_today", "ok")
	m.RecordDecision(ctx, "terminate", "max-messages-reached")
	m.RecordForecast(ctx, 120*time.Millisecond, nil)
	m.RecordInference(ctx, "formatter", "gpt-4o-mini", time.Second, nil)
	m.RecordInferenceRetry(ctx, "weather_agent", 1)
	m.RecordTokenUsage(ctx, "formatter", "gpt-4o-mini", 100, 20)
	m.RecordBreakerTransition(ctx, "amap", "closed", "open")

	tests := []struct {
		name  string
		attr  attribute.KeyValue
		value int64
	}{
		{"geocode_lookups_total", attribute.String("source", "static"), 2},
		{"geocode_lookups_total", attribute.String("status", "error"), 1},
		{"tool_calls_total", attribute.String("tool", "query_weather_today"), 1},
		{"coordinator_decisions_total", attribute.String("target", "max-messages-reached"), 1},
		{"forecast_fetches_total", attribute.String("status", "success"), 1},
		{"inference_requests_total", attribute.String("stage", "formatter"), 1},
		{"inference_retries_total", attribute.String("stage", "weather_agent"), 1},
		{"token_usage_total", attribute.String("token_type", "prompt"), 100},
		{"token_usage_total", attribute.String("token_type", "completion"), 20},
		{"circuit_breaker_transitions_total", attribute.String("breaker", "amap"), 1},
	}
	for _, tt := range tests {
		if got := counterValue(t, reader, tt.name, tt.attr); got != tt.value {
			t.Errorf("%s{%s=%s}: expected %d, got %d", tt.name, tt.attr.Key, tt.attr.Value.Emit(), tt.value, got)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	m.RecordGeocode(ctx, "cache", nil)
	m.RecordToolCall(ctx, "get_supported_cities", "ok")
	m.RecordDecision(ctx, "route", "intent_parser")
	m.RecordForecast(ctx, time.Millisecond, nil)
	m.RecordInference(ctx, "intent_parser", "m", time.Millisecond, nil)
	m.RecordInferenceRetry(ctx, "intent_parser", 1)
	m.RecordTokenUsage(ctx, "intent_parser", "m", 1, 1)
	m.RecordContextTokens(ctx, "intent_parser", 10)
	m.RecordBreakerTransition(ctx, "caiyun", "open", "closed")

	handler := m.HTTPMetricsMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected 418, got %d", rec.Code)
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusCreated)
	if rw.statusCode != http.StatusCreated {
		t.Errorf("Expected status code 201, got %d", rw.statusCode)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("Expected recorder status code 201, got %d", rec.Code)
	}
}
