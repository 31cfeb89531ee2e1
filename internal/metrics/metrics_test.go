package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRecorder_Snapshot(t *testing.T) {
	m := NewInMemory()

	m.IncAuthOperation(OpLogin, OutcomeSuccess)
	m.IncAuthOperation(OpLogin, OutcomeSuccess)
	m.IncAuthOperation(OpLogin, OutcomeFailure)
	m.IncImageFetch(OutcomeError)
	m.ObserveImageFetchDuration(time.Second)
	m.IncLatestImageCacheHit()
	m.IncLatestImageCacheMiss()
	m.SetCircuitBreakerState("unsplash", 2)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.AuthOperations["login/success"])
	assert.Equal(t, uint64(1), snap.AuthOperations["login/failure"])
	assert.Equal(t, uint64(1), snap.ImageFetches[OutcomeError])
	assert.Equal(t, uint64(1), snap.ImageFetchDurationCount)
	assert.Equal(t, uint64(1), snap.LatestImageCacheHits)
	assert.Equal(t, uint64(1), snap.LatestImageCacheMisses)
	assert.Equal(t, 2, snap.CircuitBreakerStates["unsplash"])

	// Snapshot is a copy.
	snap.AuthOperations["login/success"] = 99
	assert.Equal(t, uint64(2), m.Snapshot().AuthOperations["login/success"])
}

func TestPrometheusRecorder_Counters(t *testing.T) {
	p := NewPrometheus()

	p.IncAuthOperation(OpRefresh, OutcomeFailure)
	p.IncImageFetch(OutcomeSuccess)
	p.IncLatestImageCacheHit()
	p.IncLatestImageCacheHit()

	assert.Equal(t, 1.0, testutil.ToFloat64(p.authOperations.WithLabelValues(OpRefresh, OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.imageFetches.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.latestImageCache.WithLabelValues("hit")))
}

func TestPrometheusRecorder_Handler(t *testing.T) {
	p := NewPrometheus()
	p.IncAuthOperation(OpRegister, OutcomeSuccess)
	p.ObserveHTTPRequest(http.MethodGet, "/healthz", http.StatusOK, 5*time.Millisecond)

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `tabdeck_auth_operations_total{operation="register",outcome="success"} 1`), text)
	assert.Contains(t, text, "tabdeck_http_request_duration_seconds_count")
	assert.Contains(t, text, "go_goroutines")
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoop()
	r.IncAuthOperation(OpLogout, OutcomeSuccess)
	r.IncImageFetch(OutcomeSuccess)
	r.ObserveHTTPRequest(http.MethodGet, "/", 200, time.Millisecond)
}
