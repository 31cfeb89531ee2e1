package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockHealthChecker is a mock implementation of HealthChecker for testing.
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) Ping(ctx context.Context) error {
	return m.err
}

func serveReadyz(t *testing.T, h *HealthHandler) (int, HealthResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return rec.Code, response
}

func TestHealthHandler_Healthz(t *testing.T) {
	h := NewHealthHandler(nil, nil, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got %s", response.Status)
	}
}

func TestHealthHandler_Readyz_AllHealthy(t *testing.T) {
	h := NewHealthHandler(&mockHealthChecker{}, &mockHealthChecker{}, discardLogger())

	code, response := serveReadyz(t, h)

	if code != http.StatusOK {
		t.Errorf("expected status 200, got %d", code)
	}
	if response.Checks["postgres"] != "ok" {
		t.Errorf("expected postgres check 'ok', got %s", response.Checks["postgres"])
	}
	if response.Checks["redis"] != "ok" {
		t.Errorf("expected redis check 'ok', got %s", response.Checks["redis"])
	}
}

func TestHealthHandler_Readyz_DatabaseUnhealthy(t *testing.T) {
	db := &mockHealthChecker{err: errors.New("dial tcp 10.0.0.5:5432: connection refused")}
	h := NewHealthHandler(db, &mockHealthChecker{}, discardLogger())

	code, response := serveReadyz(t, h)

	if code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", code)
	}
	if response.Status != "unhealthy" {
		t.Errorf("expected status 'unhealthy', got %s", response.Status)
	}
	// Driver errors stay in the logs.
	if response.Checks["postgres"] != "unavailable" {
		t.Errorf("unexpected postgres check: %s", response.Checks["postgres"])
	}
	if response.Checks["redis"] != "ok" {
		t.Errorf("expected redis check 'ok', got %s", response.Checks["redis"])
	}
}

func TestHealthHandler_Readyz_CacheNotConfigured(t *testing.T) {
	h := NewHealthHandler(&mockHealthChecker{}, nil, discardLogger())

	code, response := serveReadyz(t, h)

	if code != http.StatusOK {
		t.Errorf("expected status 200, got %d", code)
	}
	if response.Checks["redis"] != "not configured" {
		t.Errorf("expected 'not configured', got %s", response.Checks["redis"])
	}
}
