package model

import "time"

// StoredImage is a background image persisted from the photo provider.
// Rows are append-only; the newest by CreatedAt is the current image.
type StoredImage struct {
	ID               string    `json:"id"`
	ImageURL         string    `json:"imageUrl"`
	Author           Document  `json:"author"`
	DownloadLocation string    `json:"downloadLocation"`
	Location         Document  `json:"location"`
	URLs             Document  `json:"urls"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// CreateImageInput holds the provider fields for a new StoredImage.
type CreateImageInput struct {
	ImageURL         string
	Author           Document
	DownloadLocation string
	Location         Document
	URLs             Document
}

// Validate reports whether the required provider fields are present.
func (in CreateImageInput) Validate() bool {
	return in.ImageURL != "" && in.DownloadLocation != "" && !in.Author.IsNull()
}
