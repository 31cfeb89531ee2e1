package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

const tokenIssuer = "tabdeck"

var (
	// ErrInvalidToken covers malformed, tampered, expired and wrong-type tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSecret indicates a signing secret was not configured.
	ErrMissingSecret = errors.New("token secret is empty")
)

// Claims is the JWT payload for both token types.
type Claims struct {
	Username string    `json:"username"`
	Type     TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenConfig holds secrets and lifetimes for issued tokens.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	RegisterTTL   time.Duration
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// IssuedToken is a signed token and its expiry.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies HS256 tokens.
// Access and refresh tokens use separate secrets.
type TokenIssuer struct {
	cfg   TokenConfig
	clock clockwork.Clock
}

// NewTokenIssuer creates a token issuer.
func NewTokenIssuer(cfg TokenConfig, clock clockwork.Clock) (*TokenIssuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, ErrMissingSecret
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenIssuer{cfg: cfg, clock: clock}, nil
}

// IssueRegistration mints the short-lived access token returned on sign-up.
func (i *TokenIssuer) IssueRegistration(userID, username string) (IssuedToken, error) {
	return i.sign(userID, username, TokenTypeAccess, i.cfg.RegisterTTL, i.cfg.AccessSecret)
}

// IssueAccess mints an access token.
func (i *TokenIssuer) IssueAccess(userID, username string) (IssuedToken, error) {
	return i.sign(userID, username, TokenTypeAccess, i.cfg.AccessTTL, i.cfg.AccessSecret)
}

// IssueRefresh mints a refresh token. Every call yields a distinct token.
func (i *TokenIssuer) IssueRefresh(userID, username string) (IssuedToken, error) {
	return i.sign(userID, username, TokenTypeRefresh, i.cfg.RefreshTTL, i.cfg.RefreshSecret)
}

// ParseAccess verifies an access token.
func (i *TokenIssuer) ParseAccess(token string) (*Claims, error) {
	return i.parse(token, TokenTypeAccess, i.cfg.AccessSecret)
}

// ParseRefresh verifies a refresh token.
func (i *TokenIssuer) ParseRefresh(token string) (*Claims, error) {
	return i.parse(token, TokenTypeRefresh, i.cfg.RefreshSecret)
}

func (i *TokenIssuer) sign(userID, username string, typ TokenType, ttl time.Duration, secret []byte) (IssuedToken, error) {
	now := i.clock.Now()
	expiresAt := now.Add(ttl)
	jti := ulid.Make().String()

	claims := Claims{
		Username: username,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    tokenIssuer,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign %s token: %w", typ, err)
	}

	return IssuedToken{Token: signed, ID: jti, ExpiresAt: expiresAt}, nil
}

func (i *TokenIssuer) parse(tokenString string, want TokenType, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Type != want || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
