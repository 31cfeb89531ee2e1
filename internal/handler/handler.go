// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/tabdeck/tabdeck/internal/handler/dto"
	"github.com/tabdeck/tabdeck/internal/middleware"
	"github.com/tabdeck/tabdeck/internal/service"
)

// Error codes.
const (
	CodeInvalidJSON        = "INVALID_JSON"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeUsernameTaken      = "USERNAME_TAKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeImageNotFound      = "IMAGE_NOT_FOUND"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeInternal           = "INTERNAL_ERROR"
)

// NotFound handles 404 responses.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, CodeNotFound, "resource not found")
}

// MethodNotAllowed handles 405 responses.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Failed:  true,
		Message: message,
		Code:    code,
	})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "request body too large")
		return false
	}

	writeError(w, http.StatusBadRequest, CodeInvalidJSON, "invalid request body")
	return false
}

// handleServiceError maps service errors onto HTTP responses.
// Unknown errors are logged and reported as a generic 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var fieldErr *service.FieldError

	switch {
	case errors.As(err, &fieldErr):
		writeError(w, http.StatusBadRequest, CodeInvalidInput, fieldErr.Error())
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid input")
	case errors.Is(err, service.ErrUsernameTaken):
		writeError(w, http.StatusBadRequest, CodeUsernameTaken, service.ErrUsernameTaken.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, CodeInvalidCredentials, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, service.ErrUnauthorized.Error())
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, CodeUserNotFound, service.ErrUserNotFound.Error())
	case errors.Is(err, service.ErrImageNotFound):
		writeError(w, http.StatusNotFound, CodeImageNotFound, service.ErrImageNotFound.Error())
	default:
		logger.Error("internal_error",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}
