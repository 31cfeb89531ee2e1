// Package service provides business logic for the application.
package service

import "errors"

// Service errors.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
	ErrImageNotFound      = errors.New("no images found")
)

// FieldError is a validation failure on a single input field.
// It matches ErrInvalidInput with errors.Is.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap lets callers match on ErrInvalidInput.
func (e *FieldError) Unwrap() error {
	return ErrInvalidInput
}

func invalidField(field, message string) error {
	return &FieldError{Field: field, Message: message}
}
