// Package fetcher periodically pulls a background image from the photo
// provider and stores it.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tabdeck/tabdeck/internal/metrics"
	"github.com/tabdeck/tabdeck/internal/model"
	"github.com/tabdeck/tabdeck/internal/unsplash"
)

const (
	// DefaultQuery is the photo search query.
	DefaultQuery = "nature landscape"
	// DefaultOrientation is the photo orientation filter.
	DefaultOrientation = "landscape"

	trackDownloadTimeout = 2 * time.Minute
)

// ErrInvalidPhoto is returned when the provider response lacks required fields.
var ErrInvalidPhoto = errors.New("provider photo missing required fields")

// PhotoSource fetches photos. *unsplash.Client implements it.
type PhotoSource interface {
	RandomPhoto(ctx context.Context, params unsplash.RandomPhotoParams) (*unsplash.Photo, error)
	TrackDownload(ctx context.Context, downloadLocation string) error
}

// ImageStore persists fetched images.
type ImageStore interface {
	CreateImage(ctx context.Context, in model.CreateImageInput) (*model.StoredImage, error)
}

// LatestImageCache holds the latest image for readers. *cache.Cache implements it.
type LatestImageCache interface {
	SetLatestImage(ctx context.Context, img *model.StoredImage, ttl time.Duration) error
	DeleteLatestImage(ctx context.Context) error
}

// JobConfig configures a Job.
type JobConfig struct {
	Source PhotoSource
	Store  ImageStore
	// Cache may be nil.
	Cache LatestImageCache
	// CacheTTL is the lifetime of the cached image. Zero uses the cache default.
	CacheTTL    time.Duration
	Query       string
	Orientation string
	// TrackAttempts bounds download report attempts. Zero means DefaultTrackAttempts.
	TrackAttempts int
	Clock         clockwork.Clock
	Recorder      metrics.Recorder
	Logger        *slog.Logger
}

// Job fetches one photo and stores it.
type Job struct {
	source   PhotoSource
	store    ImageStore
	cache    LatestImageCache
	cacheTTL time.Duration
	params   unsplash.RandomPhotoParams
	attempts int
	clock    clockwork.Clock
	metrics  metrics.Recorder
	logger   *slog.Logger
	tracking sync.WaitGroup
}

// NewJob creates a Job.
func NewJob(cfg JobConfig) *Job {
	if cfg.Query == "" {
		cfg.Query = DefaultQuery
	}
	if cfg.Orientation == "" {
		cfg.Orientation = DefaultOrientation
	}
	if cfg.TrackAttempts <= 0 {
		cfg.TrackAttempts = DefaultTrackAttempts
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Job{
		source:   cfg.Source,
		store:    cfg.Store,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		params:   unsplash.RandomPhotoParams{Query: cfg.Query, Orientation: cfg.Orientation},
		attempts: cfg.TrackAttempts,
		clock:    cfg.Clock,
		metrics:  cfg.Recorder,
		logger:   cfg.Logger.With("component", "fetcher.job"),
	}
}

// Run fetches a random photo, stores it and reports the download.
// The download report runs in the background; Wait blocks on it.
func (j *Job) Run(ctx context.Context) error {
	start := j.clock.Now()
	img, err := j.fetchAndStore(ctx)
	j.metrics.ObserveImageFetchDuration(j.clock.Since(start))

	if err != nil {
		j.metrics.IncImageFetch(outcomeFor(err))
		return err
	}
	j.metrics.IncImageFetch(metrics.OutcomeSuccess)

	j.logger.Info("image fetched",
		"image_id", img.ID,
		"duration_ms", j.clock.Since(start).Milliseconds(),
	)

	j.trackDownload(ctx, img.DownloadLocation)
	return nil
}

// Wait blocks until in-flight download reports finish.
func (j *Job) Wait() {
	j.tracking.Wait()
}

func (j *Job) fetchAndStore(ctx context.Context) (*model.StoredImage, error) {
	photo, err := j.source.RandomPhoto(ctx, j.params)
	if err != nil {
		return nil, fmt.Errorf("fetch photo: %w", err)
	}

	in, err := photo.ImageInput()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPhoto, err)
	}
	if !in.Validate() {
		return nil, fmt.Errorf("%w: photo %q", ErrInvalidPhoto, photo.ID)
	}

	img, err := j.store.CreateImage(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	j.publish(ctx, img)
	return img, nil
}

// publish makes img the cached latest image. If the write fails the entry
// is dropped so readers fall through to the database.
func (j *Job) publish(ctx context.Context, img *model.StoredImage) {
	if j.cache == nil {
		return
	}
	err := j.cache.SetLatestImage(ctx, img, j.cacheTTL)
	if err == nil {
		return
	}
	j.logger.Warn("latest image cache write failed", "error", err)
	if err := j.cache.DeleteLatestImage(ctx); err != nil {
		j.logger.Warn("latest image cache invalidation failed", "error", err)
	}
}

func (j *Job) trackDownload(ctx context.Context, location string) {
	trackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), trackDownloadTimeout)

	j.tracking.Add(1)
	go func() {
		defer j.tracking.Done()
		defer cancel()

		for attempt := 0; ; attempt++ {
			err := j.source.TrackDownload(trackCtx, location)
			if err == nil {
				return
			}
			if attempt+1 >= j.attempts || !retryable(err) {
				j.logger.Warn("download tracking failed", "error", err, "attempts", attempt+1)
				return
			}

			select {
			case <-trackCtx.Done():
				j.logger.Warn("download tracking abandoned", "error", trackCtx.Err(), "attempts", attempt+1)
				return
			case <-j.clock.After(nextRetryDelay(attempt)):
			}
		}
	}()
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, unsplash.ErrBreakerOpen):
		return metrics.OutcomeBreakerOpen
	case errors.Is(err, ErrInvalidPhoto):
		return metrics.OutcomeFailure
	default:
		return metrics.OutcomeError
	}
}
