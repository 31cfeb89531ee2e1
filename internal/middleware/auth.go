package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tabdeck/tabdeck/internal/auth"
	"github.com/tabdeck/tabdeck/internal/model"
)

// TokenAuthenticator verifies a bearer access token.
// *service.AuthService implements it.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*model.AuthContext, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger        *slog.Logger
	Authenticator TokenAuthenticator
}

// Auth returns a middleware that requires a valid access token.
// It reads "Authorization: Bearer <token>" and injects the caller
// identity into the request context.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "missing_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			authCtx, err := cfg.Authenticator.Authenticate(r.Context(), token)
			if err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "invalid_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			cfg.Logger.Debug("authentication successful",
				slog.String("user_id", authCtx.UserID),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken returns the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="tabdeck"`)
	writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid or expired token")
}
