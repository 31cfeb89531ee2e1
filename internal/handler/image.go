package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tabdeck/tabdeck/internal/handler/dto"
	"github.com/tabdeck/tabdeck/internal/model"
)

// ImageService serves the most recently fetched background image.
type ImageService interface {
	LatestImage(ctx context.Context) (*model.StoredImage, error)
}

// ImageHandler handles /images.
type ImageHandler struct {
	service ImageService
	logger  *slog.Logger
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(svc ImageService, logger *slog.Logger) *ImageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageHandler{service: svc, logger: logger}
}

// Latest handles GET /images/latest.
func (h *ImageHandler) Latest(w http.ResponseWriter, r *http.Request) {
	img, err := h.service.LatestImage(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ImageResponse{Success: true, Data: img})
}
