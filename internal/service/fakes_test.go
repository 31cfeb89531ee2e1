package service

import (
	"context"
	"sync"
	"time"

	"github.com/tabdeck/tabdeck/internal/cache"
	"github.com/tabdeck/tabdeck/internal/model"
	"github.com/tabdeck/tabdeck/internal/repository"
)

// memUserStore is an in-memory UserStore and QuickLinksStore with the same
// conditional-update semantics as the Postgres repository.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*model.User)}
}

func (m *memUserStore) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return repository.ErrUsernameExists
		}
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memUserStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUserStore) SetRefreshToken(_ context.Context, userID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.RefreshToken = &token
	return nil
}

func (m *memUserStore) RotateRefreshToken(_ context.Context, userID, current, next string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != current {
		return repository.ErrTokenMismatch
	}
	u.RefreshToken = &next
	return nil
}

func (m *memUserStore) ClearRefreshToken(_ context.Context, userID, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != token {
		return false, nil
	}
	u.RefreshToken = nil
	return true, nil
}

func (m *memUserStore) GetQuickLinks(_ context.Context, userID string) (model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return model.Document{}, repository.ErrUserNotFound
	}
	return u.QuickLinks, nil
}

func (m *memUserStore) SetQuickLinks(_ context.Context, userID string, links model.Document) (model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return model.Document{}, repository.ErrUserNotFound
	}
	u.QuickLinks = links
	return links, nil
}

func (m *memUserStore) storedToken(userID string) *string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		return u.RefreshToken
	}
	return nil
}

// memImageStore serves a fixed latest image and counts reads.
type memImageStore struct {
	mu    sync.Mutex
	img   *model.StoredImage
	err   error
	reads int
	delay time.Duration
}

func (m *memImageStore) GetLatestImage(ctx context.Context) (*model.StoredImage, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	if m.img == nil {
		return nil, repository.ErrImageNotFound
	}
	cp := *m.img
	return &cp, nil
}

func (m *memImageStore) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// memImageCache is an ImageCache backed by a single slot.
type memImageCache struct {
	mu   sync.Mutex
	img  *model.StoredImage
	sets int
}

func (m *memImageCache) GetLatestImage(context.Context) (*model.StoredImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.img == nil {
		return nil, cache.ErrCacheMiss
	}
	cp := *m.img
	return &cp, nil
}

func (m *memImageCache) SetLatestImage(_ context.Context, img *model.StoredImage, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *img
	m.img = &cp
	m.sets++
	return nil
}
