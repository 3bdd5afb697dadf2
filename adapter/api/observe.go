package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fieldops/dispatch/pkg/observability"
)

// statusWriter captures the response status for request logging. Flush is
// forwarded so the SSE stream keeps working behind the middleware.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// requestObserver stamps every request with request and correlation IDs,
// logs its completion and records request metrics.
func requestObserver(next http.Handler, logger *slog.Logger, metrics observability.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.NewRequestContext(r.Context(), r.Header.Get("X-Correlation-ID"))
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(sw, r.WithContext(ctx))

		duration := time.Since(start)
		tags := []observability.Tag{
			observability.T("method", r.Method),
			observability.T("status", strconv.Itoa(sw.status)),
		}
		metrics.Counter(observability.MetricHTTPRequests, 1, tags...)
		metrics.Timing(observability.MetricHTTPDuration, duration, observability.T("method", r.Method))
		if sw.status >= http.StatusInternalServerError {
			metrics.Counter(observability.MetricHTTPErrors, 1, tags...)
		}

		logger.DebugContext(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", duration.Milliseconds(),
		)
	})
}
