package dto

import "github.com/tabdeck/tabdeck/internal/model"

// ImageResponse wraps a stored image.
type ImageResponse struct {
	Success bool               `json:"success"`
	Data    *model.StoredImage `json:"data"`
}

// ErrorResponse is the error envelope for every failed request.
type ErrorResponse struct {
	Failed  bool   `json:"failed"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
