package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) (*TokenIssuer, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	issuer, err := NewTokenIssuer(TokenConfig{
		AccessSecret:  []byte("access-secret-access-secret-0123"),
		RefreshSecret: []byte("refresh-secret-refresh-secret-01"),
		RegisterTTL:   2 * time.Hour,
		AccessTTL:     24 * time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
	}, clock)
	require.NoError(t, err)

	return issuer, clock
}

func TestTokenIssuer_AccessRoundTrip(t *testing.T) {
	issuer, clock := newTestIssuer(t)

	issued, err := issuer.IssueAccess("user-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(24*time.Hour), issued.ExpiresAt)

	claims, err := issuer.ParseAccess(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestTokenIssuer_RefreshTokensAreUnique(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	a, err := issuer.IssueRefresh("user-1", "alice")
	require.NoError(t, err)
	b, err := issuer.IssueRefresh("user-1", "alice")
	require.NoError(t, err)

	assert.NotEqual(t, a.Token, b.Token)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestTokenIssuer_TypesAreNotInterchangeable(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	access, err := issuer.IssueAccess("user-1", "alice")
	require.NoError(t, err)
	refresh, err := issuer.IssueRefresh("user-1", "alice")
	require.NoError(t, err)

	_, err = issuer.ParseRefresh(access.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.ParseAccess(refresh.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Expiry(t *testing.T) {
	issuer, clock := newTestIssuer(t)

	reg, err := issuer.IssueRegistration("user-1", "alice")
	require.NoError(t, err)

	_, err = issuer.ParseAccess(reg.Token)
	require.NoError(t, err)

	clock.Advance(2*time.Hour + time.Second)

	_, err = issuer.ParseAccess(reg.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsTampered(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	issued, err := issuer.IssueAccess("user-1", "alice")
	require.NoError(t, err)

	tampered := issued.Token[:len(issued.Token)-2] + "xx"
	_, err = issuer.ParseAccess(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsForeignSecret(t *testing.T) {
	issuer, clock := newTestIssuer(t)

	claims := Claims{
		Type: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("someone-else"))
	require.NoError(t, err)

	_, err = issuer.ParseAccess(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsAlgNone(t *testing.T) {
	issuer, clock := newTestIssuer(t)

	claims := Claims{
		Type: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.ParseAccess(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsGarbage(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	for _, tok := range []string{"", "abc", "a.b.c"} {
		_, err := issuer.ParseAccess(tok)
		assert.True(t, errors.Is(err, ErrInvalidToken), "token %q", tok)
	}
}

func TestNewTokenIssuer_RequiresSecrets(t *testing.T) {
	_, err := NewTokenIssuer(TokenConfig{AccessSecret: []byte("x")}, nil)
	assert.ErrorIs(t, err, ErrMissingSecret)
}
