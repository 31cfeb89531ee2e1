package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tabdeck/tabdeck/internal/cache"
	"github.com/tabdeck/tabdeck/internal/metrics"
	"github.com/tabdeck/tabdeck/internal/model"
	"github.com/tabdeck/tabdeck/internal/repository"
)

const latestImageLoadTimeout = 5 * time.Second

// ImageStore reads stored images.
type ImageStore interface {
	GetLatestImage(ctx context.Context) (*model.StoredImage, error)
}

// ImageCache caches the latest image. *cache.Cache implements it.
type ImageCache interface {
	GetLatestImage(ctx context.Context) (*model.StoredImage, error)
	SetLatestImage(ctx context.Context, img *model.StoredImage, ttl time.Duration) error
}

// ImageService serves the most recent background image.
type ImageService struct {
	store   ImageStore
	cache   ImageCache
	ttl     time.Duration
	group   singleflight.Group
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewImageService creates a new ImageService. cache may be nil.
func NewImageService(store ImageStore, imageCache ImageCache, ttl time.Duration, recorder metrics.Recorder, logger *slog.Logger) *ImageService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageService{
		store:   store,
		cache:   imageCache,
		ttl:     ttl,
		metrics: recorder,
		logger:  logger.With("component", "service.image"),
	}
}

// LatestImage returns the newest stored image.
// Concurrent cache misses share a single database read.
func (s *ImageService) LatestImage(ctx context.Context) (*model.StoredImage, error) {
	if s.cache != nil {
		img, err := s.cache.GetLatestImage(ctx)
		if err == nil {
			s.metrics.IncLatestImageCacheHit()
			return img, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("latest image cache read failed", slog.String("error", err.Error()))
		}
	}
	s.metrics.IncLatestImageCacheMiss()

	v, err, _ := s.group.Do("latest", func() (any, error) {
		// Detach from the first caller so its cancellation does not fail the others.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), latestImageLoadTimeout)
		defer cancel()

		img, err := s.store.GetLatestImage(loadCtx)
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			if err := s.cache.SetLatestImage(loadCtx, img, s.ttl); err != nil {
				s.logger.Warn("latest image cache write failed", slog.String("error", err.Error()))
			}
		}
		return img, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to get latest image: %w", err)
	}

	return v.(*model.StoredImage), nil
}
