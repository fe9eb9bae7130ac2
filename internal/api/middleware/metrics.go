package middleware

import (
	"net/http"
	"regexp"
	"time"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/observability"
)

// External ids are caller-supplied, so the segment after a collection is replaced to bound cardinality.
var externalIDSegmentRegex = regexp.MustCompile(`^/v1/(people|tasks|agents)/[^/]+`)

// Metrics records HTTP request count and duration. When metrics is nil, recording is skipped.
// Put Metrics outermost so duration is full request time.
func Metrics(metrics observability.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)

				return
			}

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			metrics.RecordRequest(r.Context(), r.Method, normalizeRoute(r.URL.Path), statusToClass(rw.statusCode), time.Since(start))
		})
	}
}

// normalizeRoute maps /v1/tasks/abc/delegate to /v1/tasks/{external_id}/delegate.
func normalizeRoute(path string) string {
	return externalIDSegmentRegex.ReplaceAllString(path, "/v1/$1/{external_id}")
}

// statusToClass maps HTTP status code to 1xx..5xx.
func statusToClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status >= 100:
		return "1xx"
	default:
		return "unknown"
	}
}
