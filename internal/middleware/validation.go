package middleware

import (
	"mime"
	"net/http"
)

// DefaultMaxBodySize is used when no limit is configured.
const DefaultMaxBodySize int64 = 1 << 20

// MaxBodySize returns a middleware that limits request body size.
// Oversized declared bodies are rejected up front; streamed bodies fail on read.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "request body too large")
				return
			}

			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireJSON rejects request bodies declared as anything other than JSON.
// Requests without a Content-Type are let through and decoded as JSON.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			writeError(w, http.StatusUnsupportedMediaType, CodeUnsupportedMediaType, "content type must be application/json")
			return
		}

		next.ServeHTTP(w, r)
	})
}
