package unsplash

import (
	"fmt"

	"github.com/tabdeck/tabdeck/internal/model"
)

// Photo is the subset of a provider photo that gets persisted.
// Nested objects are kept as raw documents and stored untouched.
type Photo struct {
	ID       string         `json:"id"`
	URLs     model.Document `json:"urls"`
	Links    PhotoLinks     `json:"links"`
	User     model.Document `json:"user"`
	Location model.Document `json:"location"`
}

// PhotoLinks holds the photo's API links.
type PhotoLinks struct {
	DownloadLocation string `json:"download_location"`
}

type photoURLs struct {
	Full string `json:"full"`
}

// FullURL returns urls.full.
func (p *Photo) FullURL() (string, error) {
	if p.URLs.IsNull() {
		return "", nil
	}
	var urls photoURLs
	if err := p.URLs.Decode(&urls); err != nil {
		return "", fmt.Errorf("decode urls: %w", err)
	}
	return urls.Full, nil
}

// ImageInput maps the photo onto the fields of a StoredImage.
func (p *Photo) ImageInput() (model.CreateImageInput, error) {
	full, err := p.FullURL()
	if err != nil {
		return model.CreateImageInput{}, err
	}
	return model.CreateImageInput{
		ImageURL:         full,
		Author:           p.User,
		DownloadLocation: p.Links.DownloadLocation,
		Location:         p.Location,
		URLs:             p.URLs,
	}, nil
}

// RandomPhotoParams filters GET /photos/random.
type RandomPhotoParams struct {
	Query       string
	Orientation string
}
