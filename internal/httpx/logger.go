package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type statusAwareResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusAwareResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusAwareResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func Logger() func(handler http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			saw := &statusAwareResponseWriter{ResponseWriter: w}
			start := time.Now()

			defer func() {
				status := saw.status
				if status == 0 {
					status = http.StatusOK
				}

				logAttrs := []any{
					"http_method", r.Method,
					"http_path", r.URL.Path,
					"http_status", status,
					"duration_ms", time.Since(start).Milliseconds(),
					"http_remote_addr", GetClientIP(r),
				}
				if sc := trace.SpanFromContext(r.Context()).SpanContext(); sc.HasTraceID() {
					logAttrs = append(logAttrs, "trace_id", sc.TraceID().String())
				}
				if userAgent := r.Header.Get("User-Agent"); userAgent != "" {
					logAttrs = append(logAttrs, "http_user_agent", userAgent)
				}

				if status/100 == 5 {
					slog.ErrorContext(r.Context(), "HTTP request failed", logAttrs...)
				} else {
					slog.InfoContext(r.Context(), "HTTP request complete", logAttrs...)
				}
			}()

			handler.ServeHTTP(saw, r)
		})
	}
}
