package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tabdeck/tabdeck/internal/model"
	"github.com/tabdeck/tabdeck/internal/repository"
)

// QuickLinksStore reads and writes the per-user quick links document.
type QuickLinksStore interface {
	GetQuickLinks(ctx context.Context, userID string) (model.Document, error)
	SetQuickLinks(ctx context.Context, userID string, links model.Document) (model.Document, error)
}

// QuickLinksService stores an opaque quick links document per user.
type QuickLinksService struct {
	store QuickLinksStore
}

// NewQuickLinksService creates a new QuickLinksService.
func NewQuickLinksService(store QuickLinksStore) *QuickLinksService {
	return &QuickLinksService{store: store}
}

// Get returns the user's quick links, or [] if never set.
func (s *QuickLinksService) Get(ctx context.Context, userID string) (model.Document, error) {
	doc, err := s.store.GetQuickLinks(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.Document{}, ErrUserNotFound
		}
		return model.Document{}, fmt.Errorf("failed to get quick links: %w", err)
	}
	return doc.OrEmptyArray(), nil
}

// Set replaces the user's quick links wholesale and returns what a
// subsequent Get will return.
func (s *QuickLinksService) Set(ctx context.Context, userID string, links model.Document) (model.Document, error) {
	stored, err := s.store.SetQuickLinks(ctx, userID, links)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.Document{}, ErrUserNotFound
		}
		return model.Document{}, fmt.Errorf("failed to set quick links: %w", err)
	}
	return stored.OrEmptyArray(), nil
}
