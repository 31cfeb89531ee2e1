package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncAuthOperation is a no-op.
func (n *NoopRecorder) IncAuthOperation(op, outcome string) {}

// IncImageFetch is a no-op.
func (n *NoopRecorder) IncImageFetch(outcome string) {}

// ObserveImageFetchDuration is a no-op.
func (n *NoopRecorder) ObserveImageFetchDuration(duration time.Duration) {}

// SetCircuitBreakerState is a no-op.
func (n *NoopRecorder) SetCircuitBreakerState(component string, state int) {}

// IncLatestImageCacheHit is a no-op.
func (n *NoopRecorder) IncLatestImageCacheHit() {}

// IncLatestImageCacheMiss is a no-op.
func (n *NoopRecorder) IncLatestImageCacheMiss() {}

// ObserveHTTPRequest is a no-op.
func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}
