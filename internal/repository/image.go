package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/tabdeck/tabdeck/internal/model"
)

// ErrImageNotFound is returned when no image has been stored yet.
var ErrImageNotFound = errors.New("image not found")

// CreateImage appends a StoredImage row.
func (r *Repository) CreateImage(ctx context.Context, in model.CreateImageInput) (*model.StoredImage, error) {
	query := `
		INSERT INTO unsplash_images (id, image_url, author, download_location, location, urls)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	img := &model.StoredImage{
		ID:               ulid.Make().String(),
		ImageURL:         in.ImageURL,
		Author:           in.Author,
		DownloadLocation: in.DownloadLocation,
		Location:         in.Location,
		URLs:             in.URLs,
	}

	err := r.pool.QueryRow(ctx, query,
		img.ID,
		img.ImageURL,
		img.Author,
		img.DownloadLocation,
		img.Location,
		img.URLs,
	).Scan(&img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create image: %w", err)
	}

	return img, nil
}

// GetLatestImage returns the most recently stored image.
func (r *Repository) GetLatestImage(ctx context.Context) (*model.StoredImage, error) {
	query := `
		SELECT id, image_url, author, download_location, location, urls, created_at, updated_at
		FROM unsplash_images
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var img model.StoredImage
	err := r.pool.QueryRow(ctx, query).Scan(
		&img.ID,
		&img.ImageURL,
		&img.Author,
		&img.DownloadLocation,
		&img.Location,
		&img.URLs,
		&img.CreatedAt,
		&img.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to get latest image: %w", err)
	}

	return &img, nil
}

// CountImages returns the number of stored images.
func (r *Repository) CountImages(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM unsplash_images`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return n, nil
}
