// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Auth operations.
const (
	OpRegister     = "register"
	OpLogin        = "login"
	OpRefresh      = "refresh"
	OpLogout       = "logout"
	OpAuthenticate = "authenticate"
)

// Outcomes for auth operations and image fetches.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeError       = "error"
	OutcomeBreakerOpen = "breaker_open"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Auth metrics
	IncAuthOperation(op, outcome string)

	// Image fetcher metrics
	IncImageFetch(outcome string)
	ObserveImageFetchDuration(duration time.Duration)
	SetCircuitBreakerState(component string, state int)

	// Image read path metrics
	IncLatestImageCacheHit()
	IncLatestImageCacheMiss()

	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
