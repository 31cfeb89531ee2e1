// Package model defines domain entities for the application.
package model

import "time"

// User is an account that owns a session and a quick links document.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never serialize
	RefreshToken *string   `json:"-"` // Never serialize
	QuickLinks   Document  `json:"quickLinks"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasSession reports whether the user holds a stored refresh token.
func (u *User) HasSession() bool {
	return u.RefreshToken != nil && *u.RefreshToken != ""
}

// Profile returns the public view of the user.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:       u.ID,
		Username: u.Username,
	}
}

// UserProfile is the public part of a user returned by the auth endpoints.
type UserProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// AuthContext holds the authenticated identity for a request.
type AuthContext struct {
	UserID   string
	Username string
	// TokenID is the jti claim of the access token.
	TokenID string
}
