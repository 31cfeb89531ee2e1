package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tabdeck/tabdeck/internal/handler/dto"
	"github.com/tabdeck/tabdeck/internal/service"
)

// AuthService is the account and session logic behind /auth.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*service.RegisterResult, error)
	Login(ctx context.Context, username, password string) (*service.SessionResult, error)
	Refresh(ctx context.Context, refreshToken string) (*service.SessionResult, error)
	Logout(ctx context.Context, refreshToken string) error
}

// AuthHandler handles the /auth endpoints.
type AuthHandler struct {
	service AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		service: svc,
		logger:  logger,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RegisterResponse{
		Token: result.Token,
		User:  dto.ToUserResponse(result.User),
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(result))
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(result))
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "logged out successfully"})
}

func toSessionResponse(result *service.SessionResult) dto.SessionResponse {
	return dto.SessionResponse{
		Token:        result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         dto.ToUserResponse(result.User),
	}
}
