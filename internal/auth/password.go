// Package auth provides password hashing, session tokens and request identity.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 10

// ErrPasswordTooLong indicates the password exceeds bcrypt's 72 byte input limit.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// dummyHash is compared against on unknown usernames so login latency
// does not reveal whether an account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("tabdeck-dummy-password"), DefaultBcryptCost)

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher. Costs outside bcrypt's range fall back to the default.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash creates a bcrypt hash of the password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches the stored hash.
// A malformed hash is reported as an error, a wrong password is not.
func (h *PasswordHasher) Verify(password, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare password: %w", err)
	}
}

// VerifyDummy burns the same time as a real comparison.
func (h *PasswordHasher) VerifyDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
