// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import "github.com/tabdeck/tabdeck/internal/model"

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshTokenRequest is the body of refresh and logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UserResponse is a user's public profile.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// RegisterResponse is returned by register.
type RegisterResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// SessionResponse is returned by login and refresh.
type SessionResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	User         UserResponse `json:"user"`
}

// MessageResponse carries a human readable status.
type MessageResponse struct {
	Message string `json:"message"`
}

// ToUserResponse converts a profile to its response shape.
func ToUserResponse(p model.UserProfile) UserResponse {
	return UserResponse{ID: p.ID, Username: p.Username}
}
