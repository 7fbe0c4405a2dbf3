// Package auth holds the credential and session core of the catalog: password
// hashing, bearer token issuance and validation, identity resolution and the
// authorization checks applied before mutations.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/apperr"
)

// PasswordHasher defines the minimal hashing interface.
type PasswordHasher interface {
	// Hash returns a salted one-way hash of pw.
	Hash(pw string) (string, error)
	// Verify reports whether pw matches hash. A malformed hash yields
	// apperr.ErrCorruptCredential.
	Verify(pw, hash string) (bool, error)
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.New(apperr.ErrInvalidInput, "password must be at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Verify compares in constant time with respect to the stored hash.
func (b BcryptHasher) Verify(pw, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", apperr.ErrCorruptCredential, err)
	}
}
