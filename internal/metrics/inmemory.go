package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	AuthOperations          map[string]uint64 // key: "op/outcome"
	ImageFetches            map[string]uint64 // key: outcome
	ImageFetchDurationCount uint64
	LatestImageCacheHits    uint64
	LatestImageCacheMisses  uint64
	CircuitBreakerStates    map[string]int
	HTTPRequests            uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu             sync.Mutex
	authOperations map[string]uint64
	imageFetches   map[string]uint64
	breakerStates  map[string]int

	imageFetchDurationCount uint64
	latestImageCacheHits    uint64
	latestImageCacheMisses  uint64
	httpRequests            uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		authOperations: make(map[string]uint64),
		imageFetches:   make(map[string]uint64),
		breakerStates:  make(map[string]int),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		AuthOperations:          make(map[string]uint64, len(m.authOperations)),
		ImageFetches:            make(map[string]uint64, len(m.imageFetches)),
		CircuitBreakerStates:    make(map[string]int, len(m.breakerStates)),
		ImageFetchDurationCount: atomic.LoadUint64(&m.imageFetchDurationCount),
		LatestImageCacheHits:    atomic.LoadUint64(&m.latestImageCacheHits),
		LatestImageCacheMisses:  atomic.LoadUint64(&m.latestImageCacheMisses),
		HTTPRequests:            atomic.LoadUint64(&m.httpRequests),
	}
	for k, v := range m.authOperations {
		snap.AuthOperations[k] = v
	}
	for k, v := range m.imageFetches {
		snap.ImageFetches[k] = v
	}
	for k, v := range m.breakerStates {
		snap.CircuitBreakerStates[k] = v
	}
	return snap
}

// IncAuthOperation counts an auth operation by outcome.
func (m *InMemoryRecorder) IncAuthOperation(op, outcome string) {
	m.mu.Lock()
	m.authOperations[op+"/"+outcome]++
	m.mu.Unlock()
}

// IncImageFetch counts an image fetch attempt by outcome.
func (m *InMemoryRecorder) IncImageFetch(outcome string) {
	m.mu.Lock()
	m.imageFetches[outcome]++
	m.mu.Unlock()
}

// ObserveImageFetchDuration records a fetch duration.
func (m *InMemoryRecorder) ObserveImageFetchDuration(duration time.Duration) {
	atomic.AddUint64(&m.imageFetchDurationCount, 1)
}

// SetCircuitBreakerState records the current breaker state.
func (m *InMemoryRecorder) SetCircuitBreakerState(component string, state int) {
	m.mu.Lock()
	m.breakerStates[component] = state
	m.mu.Unlock()
}

// IncLatestImageCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncLatestImageCacheHit() {
	atomic.AddUint64(&m.latestImageCacheHits, 1)
}

// IncLatestImageCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncLatestImageCacheMiss() {
	atomic.AddUint64(&m.latestImageCacheMisses, 1)
}

// ObserveHTTPRequest counts a served request.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}
