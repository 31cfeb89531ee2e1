package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tabdeck/tabdeck/internal/auth"
	"github.com/tabdeck/tabdeck/internal/handler/dto"
	"github.com/tabdeck/tabdeck/internal/model"
)

// QuickLinksService reads and replaces a user's quick links.
type QuickLinksService interface {
	Get(ctx context.Context, userID string) (model.Document, error)
	Set(ctx context.Context, userID string, links model.Document) (model.Document, error)
}

// QuickLinksHandler handles /quicklinks. Routes must sit behind the auth middleware.
type QuickLinksHandler struct {
	service QuickLinksService
	logger  *slog.Logger
}

// NewQuickLinksHandler creates a new QuickLinksHandler.
func NewQuickLinksHandler(svc QuickLinksService, logger *slog.Logger) *QuickLinksHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuickLinksHandler{service: svc, logger: logger}
}

// Get handles GET /quicklinks.
func (h *QuickLinksHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
		return
	}

	links, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.QuickLinksResponse{Data: links, Success: true})
}

// Set handles POST /quicklinks.
func (h *QuickLinksHandler) Set(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
		return
	}

	var req dto.SetQuickLinksRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	links, err := h.service.Set(r.Context(), userID, req.Links)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.QuickLinksResponse{Data: links, Success: true})
}
