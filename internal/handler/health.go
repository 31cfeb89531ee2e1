package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const readinessTimeout = 5 * time.Second

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	db     HealthChecker
	cache  HealthChecker
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler.
// Pass nil for cache when Redis is not configured.
func NewHealthHandler(db, cache HealthChecker, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz reports liveness. It performs no dependency checks.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz checks every dependency and returns 200 only if all are healthy.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]string, 2)
	healthy := h.check(ctx, checks, "postgres", h.db)
	if !h.check(ctx, checks, "redis", h.cache) {
		healthy = false
	}

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Checks: checks})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Checks: checks})
}

// check records the state of one dependency. Unconfigured dependencies count as healthy.
func (h *HealthHandler) check(ctx context.Context, checks map[string]string, name string, c HealthChecker) bool {
	if c == nil {
		checks[name] = "not configured"
		return true
	}
	if err := c.Ping(ctx); err != nil {
		h.logger.Warn("readiness_check_failed", "dependency", name, "error", err)
		checks[name] = "unavailable"
		return false
	}
	checks[name] = "ok"
	return true
}
