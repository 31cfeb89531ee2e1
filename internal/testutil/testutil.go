package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/tabdeck/tabdeck/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420421

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// TruncateTables empties the application tables between tests.
func TruncateTables(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, "TRUNCATE users, unsplash_images"); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates a user with sensible defaults. The hash is not a
// valid bcrypt hash; use it only where the password is never checked.
func NewTestUser(t testing.TB, username string) *model.User {
	t.Helper()
	now := time.Now().UTC()
	return &model.User{
		ID:           ulid.Make().String(),
		Username:     username,
		PasswordHash: "hash-" + username,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestImageInput creates provider fields for a StoredImage.
func NewTestImageInput(t testing.TB, tag string) model.CreateImageInput {
	t.Helper()
	return model.CreateImageInput{
		ImageURL:         "https://images.example.com/" + tag + "/full.jpg",
		Author:           model.MustDocument(map[string]string{"name": "Photographer " + tag}),
		DownloadLocation: "https://api.example.com/photos/" + tag + "/download",
		Location:         model.MustDocument(map[string]string{"city": "Reykjavik"}),
		URLs:             model.MustDocument(map[string]string{"full": "https://images.example.com/" + tag + "/full.jpg"}),
	}
}

// UniqueUsername generates a unique username for tests.
func UniqueUsername(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
