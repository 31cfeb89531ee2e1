package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabdeck/tabdeck/internal/metrics"
	"github.com/tabdeck/tabdeck/internal/model"
	"github.com/tabdeck/tabdeck/internal/unsplash"
)

type fakeSource struct {
	mu      sync.Mutex
	calls   int
	tracked []string
	// next returns the response for call n (1-based).
	next     func(n int) (*unsplash.Photo, error)
	trackErr error
	// trackFails limits trackErr to the first n reports. Zero fails every report.
	trackFails int
}

func (f *fakeSource) RandomPhoto(_ context.Context, params unsplash.RandomPhotoParams) (*unsplash.Photo, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	return f.next(n)
}

func (f *fakeSource) TrackDownload(_ context.Context, location string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked = append(f.tracked, location)
	if f.trackFails > 0 && len(f.tracked) > f.trackFails {
		return nil
	}
	return f.trackErr
}

func (f *fakeSource) trackedLocations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tracked...)
}

type fakeStore struct {
	mu     sync.Mutex
	images []model.CreateImageInput
	err    error
}

func (f *fakeStore) CreateImage(_ context.Context, in model.CreateImageInput) (*model.StoredImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.images = append(f.images, in)
	return &model.StoredImage{
		ID:               fmt.Sprintf("img-%d", len(f.images)),
		ImageURL:         in.ImageURL,
		Author:           in.Author,
		DownloadLocation: in.DownloadLocation,
	}, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.images)
}

type fakeCache struct {
	mu      sync.Mutex
	set     []*model.StoredImage
	ttls    []time.Duration
	deletes int
	setErr  error
	delErr  error
}

func (f *fakeCache) SetLatestImage(_ context.Context, img *model.StoredImage, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set = append(f.set, img)
	f.ttls = append(f.ttls, ttl)
	return f.setErr
}

func (f *fakeCache) DeleteLatestImage(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return f.delErr
}

func validPhoto(id string) *unsplash.Photo {
	return &unsplash.Photo{
		ID:       id,
		URLs:     model.MustDocument(map[string]string{"full": "https://images.example.com/" + id}),
		Links:    unsplash.PhotoLinks{DownloadLocation: "https://api.example.com/photos/" + id + "/download"},
		User:     model.MustDocument(map[string]string{"name": "Ansel"}),
		Location: model.MustDocument(map[string]string{"city": "Yosemite"}),
	}
}

func alwaysValid(n int) (*unsplash.Photo, error) {
	return validPhoto(fmt.Sprintf("p%d", n)), nil
}

func TestJob_Run_StoresImage(t *testing.T) {
	source := &fakeSource{next: alwaysValid}
	store := &fakeStore{}
	imgCache := &fakeCache{}
	rec := metrics.NewInMemory()

	job := NewJob(JobConfig{Source: source, Store: store, Cache: imgCache, CacheTTL: 5 * time.Minute, Recorder: rec})

	require.NoError(t, job.Run(context.Background()))
	job.Wait()

	require.Equal(t, 1, store.count())
	stored := store.images[0]
	assert.Equal(t, "https://images.example.com/p1", stored.ImageURL)
	assert.Equal(t, "https://api.example.com/photos/p1/download", stored.DownloadLocation)
	assert.JSONEq(t, `{"name":"Ansel"}`, string(stored.Author.Bytes()))
	assert.JSONEq(t, `{"city":"Yosemite"}`, string(stored.Location.Bytes()))

	require.Len(t, imgCache.set, 1)
	assert.Equal(t, "img-1", imgCache.set[0].ID)
	assert.Equal(t, "https://images.example.com/p1", imgCache.set[0].ImageURL)
	assert.Equal(t, []time.Duration{5 * time.Minute}, imgCache.ttls)
	assert.Equal(t, 0, imgCache.deletes)
	assert.Equal(t, []string{"https://api.example.com/photos/p1/download"}, source.trackedLocations())

	snap := rec.Snapshot()
	assert.Equal(t, uint64(1), snap.ImageFetches[metrics.OutcomeSuccess])
	assert.Equal(t, uint64(1), snap.ImageFetchDurationCount)
}

func TestJob_Run_ProviderError(t *testing.T) {
	source := &fakeSource{next: func(int) (*unsplash.Photo, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}
	store := &fakeStore{}
	rec := metrics.NewInMemory()

	job := NewJob(JobConfig{Source: source, Store: store, Recorder: rec})

	require.Error(t, job.Run(context.Background()))
	job.Wait()

	assert.Equal(t, 0, store.count())
	assert.Empty(t, source.trackedLocations())
	assert.Equal(t, uint64(1), rec.Snapshot().ImageFetches[metrics.OutcomeError])
}

func TestJob_Run_BreakerOpen(t *testing.T) {
	source := &fakeSource{next: func(int) (*unsplash.Photo, error) {
		return nil, fmt.Errorf("random photo: %w", unsplash.ErrBreakerOpen)
	}}
	rec := metrics.NewInMemory()

	job := NewJob(JobConfig{Source: source, Store: &fakeStore{}, Recorder: rec})

	require.ErrorIs(t, job.Run(context.Background()), unsplash.ErrBreakerOpen)
	assert.Equal(t, uint64(1), rec.Snapshot().ImageFetches[metrics.OutcomeBreakerOpen])
}

func TestJob_Run_InvalidPhoto(t *testing.T) {
	source := &fakeSource{next: func(int) (*unsplash.Photo, error) {
		p := validPhoto("p1")
		p.Links.DownloadLocation = ""
		return p, nil
	}}
	store := &fakeStore{}
	rec := metrics.NewInMemory()

	job := NewJob(JobConfig{Source: source, Store: store, Recorder: rec})

	err := job.Run(context.Background())
	require.ErrorIs(t, err, ErrInvalidPhoto)
	assert.Equal(t, 0, store.count())
	assert.Equal(t, uint64(1), rec.Snapshot().ImageFetches[metrics.OutcomeFailure])
}

func TestJob_Run_StoreError(t *testing.T) {
	source := &fakeSource{next: alwaysValid}
	store := &fakeStore{err: errors.New("connection reset")}
	imgCache := &fakeCache{}

	job := NewJob(JobConfig{Source: source, Store: store, Cache: imgCache})

	require.Error(t, job.Run(context.Background()))
	job.Wait()

	assert.Empty(t, imgCache.set)
	assert.Equal(t, 0, imgCache.deletes)
	assert.Empty(t, source.trackedLocations())
}

func TestJob_Run_SideEffectFailuresAreNotFatal(t *testing.T) {
	source := &fakeSource{next: alwaysValid, trackErr: errors.New("timeout")}
	store := &fakeStore{}
	imgCache := &fakeCache{setErr: errors.New("redis down"), delErr: errors.New("redis down")}

	job := NewJob(JobConfig{Source: source, Store: store, Cache: imgCache, TrackAttempts: 1})

	require.NoError(t, job.Run(context.Background()))
	job.Wait()

	assert.Equal(t, 1, store.count())
	assert.Len(t, source.trackedLocations(), 1)
}

func TestJob_Run_FailedCacheWriteDropsEntry(t *testing.T) {
	source := &fakeSource{next: alwaysValid}
	imgCache := &fakeCache{setErr: errors.New("OOM command not allowed")}

	job := NewJob(JobConfig{Source: source, Store: &fakeStore{}, Cache: imgCache})

	require.NoError(t, job.Run(context.Background()))
	job.Wait()

	assert.Len(t, imgCache.set, 1)
	assert.Equal(t, []time.Duration{0}, imgCache.ttls)
	assert.Equal(t, 1, imgCache.deletes)
}

func TestJob_Run_RetriesDownloadTracking(t *testing.T) {
	source := &fakeSource{
		next:       alwaysValid,
		trackErr:   &unsplash.APIError{StatusCode: 503},
		trackFails: 2,
	}
	clock := clockwork.NewFakeClock()
	job := NewJob(JobConfig{Source: source, Store: &fakeStore{}, Clock: clock})

	require.NoError(t, job.Run(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 2; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Minute)
	}
	job.Wait()

	assert.Len(t, source.trackedLocations(), 3)
}

func TestJob_Run_DoesNotRetryClientErrors(t *testing.T) {
	source := &fakeSource{next: alwaysValid, trackErr: &unsplash.APIError{StatusCode: 404}}
	job := NewJob(JobConfig{Source: source, Store: &fakeStore{}, Clock: clockwork.NewFakeClock()})

	require.NoError(t, job.Run(context.Background()))
	job.Wait()

	assert.Len(t, source.trackedLocations(), 1)
}

func TestJob_Run_ForeignDownloadHostNotRetried(t *testing.T) {
	source := &fakeSource{
		next:     alwaysValid,
		trackErr: fmt.Errorf("track download: %w", unsplash.ErrUntrustedLocation),
	}

	job := NewJob(JobConfig{Source: source, Store: &fakeStore{}, Clock: clockwork.NewFakeClock(), TrackAttempts: 3})

	require.NoError(t, job.Run(context.Background()))
	job.Wait()

	assert.Len(t, source.trackedLocations(), 1)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport", errors.New("connection reset by peer"), true},
		{"server error", &unsplash.APIError{StatusCode: 502}, true},
		{"client error", &unsplash.APIError{StatusCode: 401}, false},
		{"provider throttled", &unsplash.APIError{StatusCode: 429}, false},
		{"breaker open", fmt.Errorf("track: %w", unsplash.ErrBreakerOpen), false},
		{"hourly budget", unsplash.ErrRateLimited, false},
		{"foreign download host", fmt.Errorf("track download: %w", unsplash.ErrUntrustedLocation), false},
		{"deadline", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryable(tt.err))
		})
	}
}

func TestNextRetryDelay_Jitter(t *testing.T) {
	for attempt, base := range trackRetryDelays {
		for i := 0; i < 50; i++ {
			d := nextRetryDelay(attempt)
			assert.GreaterOrEqual(t, d, time.Duration(float64(base)*(1-jitterFactor)))
			assert.LessOrEqual(t, d, time.Duration(float64(base)*(1+jitterFactor)))
		}
	}
	last := trackRetryDelays[len(trackRetryDelays)-1]
	assert.LessOrEqual(t, nextRetryDelay(99), time.Duration(float64(last)*(1+jitterFactor)))
}

func TestScheduler_FailedTickDoesNotStopLoop(t *testing.T) {
	source := &fakeSource{next: func(n int) (*unsplash.Photo, error) {
		if n == 1 {
			return nil, errors.New("dial tcp: i/o timeout")
		}
		return validPhoto(fmt.Sprintf("p%d", n)), nil
	}}
	store := &fakeStore{}
	rec := metrics.NewInMemory()
	clock := clockwork.NewFakeClock()

	job := NewJob(JobConfig{Source: source, Store: store, Clock: clock, Recorder: rec})
	sched := NewScheduler(job, 12*time.Hour, clock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	// The startup run fails and writes nothing.
	require.Eventually(t, func() bool {
		return rec.Snapshot().ImageFetches[metrics.OutcomeError] == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, store.count())

	blockCtx, blockCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer blockCancel()
	require.NoError(t, clock.BlockUntilContext(blockCtx, 1))

	clock.Advance(12 * time.Hour)

	require.Eventually(t, func() bool { return store.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_RunsImmediately(t *testing.T) {
	source := &fakeSource{next: alwaysValid}
	store := &fakeStore{}
	clock := clockwork.NewFakeClock()

	job := NewJob(JobConfig{Source: source, Store: store, Clock: clock})
	sched := NewScheduler(job, time.Hour, clock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	require.Eventually(t, func() bool { return store.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	// Nothing more until the interval passes.
	clock.Advance(59 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, store.count())

	cancel()
	require.NoError(t, <-done)
}

func TestScheduler_RecoversFromPanic(t *testing.T) {
	source := &fakeSource{next: func(n int) (*unsplash.Photo, error) {
		if n == 1 {
			panic("unexpected payload")
		}
		return validPhoto("p2"), nil
	}}
	store := &fakeStore{}
	clock := clockwork.NewFakeClock()

	job := NewJob(JobConfig{Source: source, Store: store, Clock: clock})
	sched := NewScheduler(job, time.Hour, clock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sched.Run(ctx) }()

	blockCtx, blockCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer blockCancel()
	require.NoError(t, clock.BlockUntilContext(blockCtx, 1))

	require.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()
		return source.calls == 1
	}, 2*time.Second, 5*time.Millisecond)

	clock.Advance(time.Hour)

	require.Eventually(t, func() bool { return store.count() == 1 }, 2*time.Second, 5*time.Millisecond)
}
