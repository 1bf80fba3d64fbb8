package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/labreport/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// Metrics records request count and latency per route pattern. Requests
// that match no route are recorded as "unmatched" to keep label
// cardinality bounded.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			m.ObserveHTTP(r.Method, route, strconv.Itoa(ww.status), time.Since(start))
		})
	}
}
