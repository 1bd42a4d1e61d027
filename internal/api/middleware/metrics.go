package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/statement-converter/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// Metrics records request counts and durations. Routes are labelled by
// their chi pattern so session IDs do not inflate cardinality.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			m.ObserveHTTP(r.Method, routePattern(r), strconv.Itoa(wrapped.statusCode), time.Since(start))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
