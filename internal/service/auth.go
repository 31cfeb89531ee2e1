package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/tabdeck/tabdeck/internal/auth"
	"github.com/tabdeck/tabdeck/internal/metrics"
	"github.com/tabdeck/tabdeck/internal/model"
	"github.com/tabdeck/tabdeck/internal/repository"
)

const maxUsernameLength = 64

// UserStore is the persistence the auth service needs.
// *repository.Repository implements it.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	RotateRefreshToken(ctx context.Context, userID, current, next string) error
	ClearRefreshToken(ctx context.Context, userID, token string) (bool, error)
}

// AuthService handles registration, login and the refresh token lifecycle.
type AuthService struct {
	users   UserStore
	tokens  *auth.TokenIssuer
	hasher  *auth.PasswordHasher
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, tokens *auth.TokenIssuer, hasher *auth.PasswordHasher, recorder metrics.Recorder, logger *slog.Logger) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:   users,
		tokens:  tokens,
		hasher:  hasher,
		metrics: recorder,
		logger:  logger.With("component", "service.auth"),
	}
}

// RegisterResult is returned by Register.
type RegisterResult struct {
	Token string
	User  model.UserProfile
}

// SessionResult is returned by Login and Refresh.
type SessionResult struct {
	AccessToken  string
	RefreshToken string
	User         model.UserProfile
}

// Register creates a user and returns a short-lived access token.
func (s *AuthService) Register(ctx context.Context, username, password string) (*RegisterResult, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		s.metrics.IncAuthOperation(metrics.OpRegister, metrics.OutcomeFailure)
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			s.metrics.IncAuthOperation(metrics.OpRegister, metrics.OutcomeFailure)
			return nil, invalidField("password", "must be at most 72 bytes")
		}
		s.metrics.IncAuthOperation(metrics.OpRegister, metrics.OutcomeError)
		return nil, err
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Username:     username,
		PasswordHash: hash,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			s.metrics.IncAuthOperation(metrics.OpRegister, metrics.OutcomeFailure)
			return nil, ErrUsernameTaken
		}
		s.metrics.IncAuthOperation(metrics.OpRegister, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.IssueRegistration(user.ID, user.Username)
	if err != nil {
		s.metrics.IncAuthOperation(metrics.OpRegister, metrics.OutcomeError)
		return nil, err
	}

	s.metrics.IncAuthOperation(metrics.OpRegister, metrics.OutcomeSuccess)
	s.logger.Info("user registered", slog.String("user_id", user.ID))

	return &RegisterResult{Token: token.Token, User: user.Profile()}, nil
}

// Login verifies credentials and starts a new session, replacing any previous one.
func (s *AuthService) Login(ctx context.Context, username, password string) (*SessionResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.metrics.IncAuthOperation(metrics.OpLogin, metrics.OutcomeFailure)
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.VerifyDummy(password)
			s.metrics.IncAuthOperation(metrics.OpLogin, metrics.OutcomeFailure)
			return nil, ErrInvalidCredentials
		}
		s.metrics.IncAuthOperation(metrics.OpLogin, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.metrics.IncAuthOperation(metrics.OpLogin, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.metrics.IncAuthOperation(metrics.OpLogin, metrics.OutcomeFailure)
		return nil, ErrInvalidCredentials
	}

	session, err := s.issueSession(user)
	if err != nil {
		s.metrics.IncAuthOperation(metrics.OpLogin, metrics.OutcomeError)
		return nil, err
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, session.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncAuthOperation(metrics.OpLogin, metrics.OutcomeFailure)
			return nil, ErrInvalidCredentials
		}
		s.metrics.IncAuthOperation(metrics.OpLogin, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	s.metrics.IncAuthOperation(metrics.OpLogin, metrics.OutcomeSuccess)
	s.logger.Info("user logged in", slog.String("user_id", user.ID))

	return session, nil
}

// Refresh exchanges a valid, current refresh token for a new token pair.
// The stored token is rotated atomically, so a token can be used once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*SessionResult, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		s.metrics.IncAuthOperation(metrics.OpRefresh, metrics.OutcomeFailure)
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncAuthOperation(metrics.OpRefresh, metrics.OutcomeFailure)
			return nil, ErrUnauthorized
		}
		s.metrics.IncAuthOperation(metrics.OpRefresh, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.HasSession() || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(refreshToken)) != 1 {
		s.metrics.IncAuthOperation(metrics.OpRefresh, metrics.OutcomeFailure)
		s.logger.Warn("refresh token not current", slog.String("user_id", user.ID))
		return nil, ErrUnauthorized
	}

	session, err := s.issueSession(user)
	if err != nil {
		s.metrics.IncAuthOperation(metrics.OpRefresh, metrics.OutcomeError)
		return nil, err
	}

	if err := s.users.RotateRefreshToken(ctx, user.ID, refreshToken, session.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrTokenMismatch) {
			s.metrics.IncAuthOperation(metrics.OpRefresh, metrics.OutcomeFailure)
			s.logger.Warn("concurrent refresh lost rotation", slog.String("user_id", user.ID))
			return nil, ErrUnauthorized
		}
		s.metrics.IncAuthOperation(metrics.OpRefresh, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	s.metrics.IncAuthOperation(metrics.OpRefresh, metrics.OutcomeSuccess)
	return session, nil
}

// Logout ends the session the refresh token belongs to.
// It succeeds when there is nothing left to clear.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		s.metrics.IncAuthOperation(metrics.OpLogout, metrics.OutcomeFailure)
		return ErrUnauthorized
	}

	cleared, err := s.users.ClearRefreshToken(ctx, claims.UserID(), refreshToken)
	if err != nil {
		s.metrics.IncAuthOperation(metrics.OpLogout, metrics.OutcomeError)
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}

	s.metrics.IncAuthOperation(metrics.OpLogout, metrics.OutcomeSuccess)
	s.logger.Info("user logged out",
		slog.String("user_id", claims.UserID()),
		slog.Bool("session_cleared", cleared),
	)

	return nil
}

// Authenticate verifies an access token and returns the caller identity.
func (s *AuthService) Authenticate(_ context.Context, accessToken string) (*model.AuthContext, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		s.metrics.IncAuthOperation(metrics.OpAuthenticate, metrics.OutcomeFailure)
		return nil, ErrUnauthorized
	}

	return &model.AuthContext{
		UserID:   claims.UserID(),
		Username: claims.Username,
		TokenID:  claims.ID,
	}, nil
}

func (s *AuthService) issueSession(user *model.User) (*SessionResult, error) {
	access, err := s.tokens.IssueAccess(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &SessionResult{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		User:         user.Profile(),
	}, nil
}

func validateCredentials(username, password string) error {
	switch {
	case username == "":
		return invalidField("username", "is required")
	case utf8.RuneCountInString(username) > maxUsernameLength:
		return invalidField("username", fmt.Sprintf("must be at most %d characters", maxUsernameLength))
	case password == "":
		return invalidField("password", "is required")
	}
	return nil
}
