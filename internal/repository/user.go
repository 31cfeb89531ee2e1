package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tabdeck/tabdeck/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")
	ErrTokenMismatch  = errors.New("stored refresh token does not match")
)

const userColumns = `id, username, password_hash, refresh_token, quick_links, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.RefreshToken,
		&user.QuickLinks,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user into the database.
// CreatedAt and UpdatedAt are filled from the database clock.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return user, nil
}

// SetRefreshToken overwrites the stored refresh token (login).
func (r *Repository) SetRefreshToken(ctx context.Context, userID, token string) error {
	query := `
		UPDATE users
		SET refresh_token = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, userID, token)
	if err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// RotateRefreshToken replaces the stored token only if it still equals current.
// Returns ErrTokenMismatch when another request rotated or cleared it first.
func (r *Repository) RotateRefreshToken(ctx context.Context, userID, current, next string) error {
	query := `
		UPDATE users
		SET refresh_token = $3, updated_at = NOW()
		WHERE id = $1 AND refresh_token = $2
	`

	tag, err := r.pool.Exec(ctx, query, userID, current, next)
	if err != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenMismatch
	}

	return nil
}

// ClearRefreshToken removes the stored token if it equals token.
// Reports whether a token was cleared.
func (r *Repository) ClearRefreshToken(ctx context.Context, userID, token string) (bool, error) {
	query := `
		UPDATE users
		SET refresh_token = NULL, updated_at = NOW()
		WHERE id = $1 AND refresh_token = $2
	`

	tag, err := r.pool.Exec(ctx, query, userID, token)
	if err != nil {
		return false, fmt.Errorf("failed to clear refresh token: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetQuickLinks returns the stored quick links document.
func (r *Repository) GetQuickLinks(ctx context.Context, userID string) (model.Document, error) {
	query := `SELECT quick_links FROM users WHERE id = $1`

	var doc model.Document
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Document{}, ErrUserNotFound
		}
		return model.Document{}, fmt.Errorf("failed to get quick links: %w", err)
	}

	return doc, nil
}

// SetQuickLinks replaces the quick links document and returns the stored value.
func (r *Repository) SetQuickLinks(ctx context.Context, userID string, links model.Document) (model.Document, error) {
	query := `
		UPDATE users
		SET quick_links = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING quick_links
	`

	var stored model.Document
	if err := r.pool.QueryRow(ctx, query, userID, links).Scan(&stored); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Document{}, ErrUserNotFound
		}
		return model.Document{}, fmt.Errorf("failed to set quick links: %w", err)
	}

	return stored, nil
}
