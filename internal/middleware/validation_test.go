package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMaxBodySize(t *testing.T) {
	tests := []struct {
		name          string
		maxBytes      int64
		contentLength int64
		body          string
		wantStatus    int
	}{
		{
			name:          "small body allowed",
			maxBytes:      1024,
			contentLength: 10,
			body:          "small body",
			wantStatus:    http.StatusOK,
		},
		{
			name:          "content-length exceeds limit",
			maxBytes:      10,
			contentLength: 100,
			body:          "this is a much longer body that exceeds the limit",
			wantStatus:    http.StatusRequestEntityTooLarge,
		},
		{
			name:          "streamed body exceeds limit",
			maxBytes:      10,
			contentLength: -1,
			body:          "this is a much longer body that exceeds the limit",
			wantStatus:    http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := MaxBodySize(tt.maxBytes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if _, err := io.Copy(io.Discard, r.Body); err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestMaxBodySize_ErrorEnvelope(t *testing.T) {
	handler := MaxBodySize(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !body.Failed || body.Code != CodePayloadTooLarge {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestRequireJSON(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
	}{
		{"json", "application/json", `{}`, http.StatusOK},
		{"json with charset", "application/json; charset=utf-8", `{}`, http.StatusOK},
		{"missing content type", "", `{}`, http.StatusOK},
		{"empty body", "text/plain", "", http.StatusOK},
		{"form", "application/x-www-form-urlencoded", "a=b", http.StatusUnsupportedMediaType},
		{"text", "text/plain", "hello", http.StatusUnsupportedMediaType},
		{"malformed", ";;;", "hello", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
