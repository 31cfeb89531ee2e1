package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tabdeck/tabdeck/internal/metrics"
)

// Metrics records request counts and latency by route pattern.
// Unmatched requests are grouped under "unmatched" to bound label cardinality.
func Metrics(recorder metrics.Recorder) func(http.Handler) http.Handler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			recorder.ObserveHTTPRequest(r.Method, route, wrapped.status, time.Since(start))
		})
	}
}
