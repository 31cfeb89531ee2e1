package middleware

import (
	"encoding/json"
	"net/http"
)

// Error codes written by middleware.
const (
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeRateLimited          = "RATE_LIMITED"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodeInternal             = "INTERNAL_ERROR"
)

// errorBody matches the API error envelope.
type errorBody struct {
	Failed  bool   `json:"failed"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Failed: true, Message: message, Code: code})
}
