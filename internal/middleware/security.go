package middleware

import (
	"net/http"
)

// SecurityConfig holds configuration for security headers.
type SecurityConfig struct {
	// IsDevelopment disables HSTS in dev environments.
	IsDevelopment bool
}

// Security returns a middleware that applies security headers to all responses.
//
// Headers applied:
//   - Strict-Transport-Security (HSTS) - only outside development
//   - X-Content-Type-Options: nosniff
//   - X-Frame-Options: DENY
//   - Referrer-Policy: strict-origin-when-cross-origin
//   - Content-Security-Policy: minimal policy for API responses
//   - Cache-Control: no-store
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "0")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=()")

			if !cfg.IsDevelopment {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			// Tokens and per-user data must not land in shared caches.
			h.Set("Cache-Control", "no-store")

			next.ServeHTTP(w, r)
		})
	}
}
