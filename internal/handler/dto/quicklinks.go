package dto

import "github.com/tabdeck/tabdeck/internal/model"

// SetQuickLinksRequest replaces the caller's quick links.
// A missing links field stores null.
type SetQuickLinksRequest struct {
	Links model.Document `json:"links"`
}

// QuickLinksResponse wraps the caller's quick links.
type QuickLinksResponse struct {
	Data    model.Document `json:"data"`
	Success bool           `json:"success"`
}
