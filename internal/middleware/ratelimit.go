package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tabdeck/tabdeck/internal/cache"
)

// IPRateLimiter checks a per-IP token bucket. *cache.Cache implements it.
type IPRateLimiter interface {
	CheckIPRateLimit(ctx context.Context, scope, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter IPRateLimiter
	Enabled bool
	// Scope names the bucket, e.g. "auth".
	Scope string
	RPS   int // Requests per second
	Burst int
}

// RateLimitIP returns middleware that rate limits requests per client IP.
// Run it after chi's RealIP so RemoteAddr holds the client address.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || cfg.Limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)

			result, err := cfg.Limiter.CheckIPRateLimit(r.Context(), cfg.Scope, ip, cfg.RPS, cfg.Burst)
			if err != nil {
				cfg.Logger.Error("IP rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("scope", cfg.Scope),
				)
			}
			if result == nil {
				// Fail open - allow request
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, cfg.Burst, result.Remaining, result.ResetAt)

			if !result.Allowed {
				retryAfter := int(result.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}

				cfg.Logger.Warn("rate limit exceeded",
					slog.String("scope", cfg.Scope),
					slog.String("ip", ip),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int("retry_after_seconds", retryAfter),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, CodeRateLimited,
					fmt.Sprintf("rate limit exceeded, retry after %d seconds", retryAfter))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setRateLimitHeaders sets standard rate limit response headers.
func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	if limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
}

// clientIP strips the port from RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
