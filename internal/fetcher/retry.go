package fetcher

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/tabdeck/tabdeck/internal/unsplash"
)

// Delays between download report attempts.
// Attempt 1 fails: 2s, attempt 2 fails: 10s, then 30s.
var trackRetryDelays = []time.Duration{
	2 * time.Second,
	10 * time.Second,
	30 * time.Second,
}

const (
	// DefaultTrackAttempts is the default number of download report attempts.
	DefaultTrackAttempts = 3

	// jitterFactor is the ±fraction of jitter applied to delays.
	jitterFactor = 0.2
)

// nextRetryDelay returns the backoff after a failed attempt, with jitter.
// attempt is 0-indexed.
func nextRetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(trackRetryDelays) {
		attempt = len(trackRetryDelays) - 1
	}

	base := trackRetryDelays[attempt]
	jitter := (rand.Float64()*2 - 1) * float64(base) * jitterFactor

	return time.Duration(float64(base) + jitter)
}

// retryable reports whether a failed provider call may succeed if repeated soon.
// Open breakers and exhausted budgets will not recover within the retry window.
func retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, unsplash.ErrBreakerOpen), errors.Is(err, unsplash.ErrRateLimited):
		return false
	case errors.Is(err, unsplash.ErrUntrustedLocation):
		return false
	}

	var apiErr *unsplash.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}

	// Transport failures.
	return true
}
