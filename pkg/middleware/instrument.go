package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/khidma-co/khidma/pkg/metrics"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Instrument returns middleware that records request counts and durations
// in the Prometheus collectors.
func Instrument() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			status := strconv.Itoa(sw.status)
			route := RouteLabel(r.URL.Path)
			metrics.RequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			metrics.RequestDuration.WithLabelValues(r.Method, route, status).
				Observe(time.Since(start).Seconds())
		})
	}
}

// RouteLabel collapses identifier path segments to ":id" so metric label
// cardinality stays bounded.
func RouteLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if len(segment) == 36 {
			if _, err := uuid.Parse(segment); err == nil {
				segments[i] = ":id"
			}
		}
	}
	return strings.Join(segments, "/")
}
