package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tabdeck/tabdeck/internal/model"
)

const (
	latestImageKey = "image:latest"

	// DefaultLatestImageTTL bounds how long a cached image outlives a
	// lost cache write.
	DefaultLatestImageTTL = 10 * time.Minute
)

// GetLatestImage returns the cached latest image.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetLatestImage(ctx context.Context) (*model.StoredImage, error) {
	data, err := c.client.Get(ctx, latestImageKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var img model.StoredImage
	if err := json.Unmarshal(data, &img); err != nil {
		// Corrupt entries are dropped and treated as a miss.
		_ = c.client.Del(ctx, latestImageKey).Err()
		return nil, ErrCacheMiss
	}

	return &img, nil
}

// storeLatestImageScript writes the latest image unless the cached entry
// already holds a newer one. Image IDs are ULIDs, so string order is
// creation order.
var storeLatestImageScript = redis.NewScript(`
	local cur = redis.call('GET', KEYS[1])
	if cur then
		local ok, cached = pcall(cjson.decode, cur)
		if ok and type(cached) == 'table' and type(cached.id) == 'string' and cached.id > ARGV[2] then
			return 0
		end
	end
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
	return 1
`)

// SetLatestImage caches img as the latest image. A write carrying an older
// image than the one already cached is dropped, so a reader that loaded
// from the database before a fetch cannot clobber the fetched image.
func (c *Cache) SetLatestImage(ctx context.Context, img *model.StoredImage, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultLatestImageTTL
	}

	data, err := json.Marshal(img)
	if err != nil {
		return fmt.Errorf("marshal image: %w", err)
	}

	err = storeLatestImageScript.Run(ctx, c.client,
		[]string{latestImageKey},
		data, img.ID, ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// DeleteLatestImage invalidates the cached latest image.
func (c *Cache) DeleteLatestImage(ctx context.Context) error {
	if err := c.client.Del(ctx, latestImageKey).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
