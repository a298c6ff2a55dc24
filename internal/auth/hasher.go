package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// SecretHasher turns plaintext secrets (transaction PIN, login password)
// into irreversible salted hashes and verifies candidates against them.
// Validation never has access to the plaintext after initial hashing.
type SecretHasher interface {
	Hash(secret string) (string, error)
	// Verify returns a nil error only when secret matches hash. The
	// comparison is constant-time.
	Verify(hash, secret string) error
}

// BcryptHasher implements SecretHasher with bcrypt.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher creates a hasher with the default bcrypt cost.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.DefaultCost}
}

// Hash implements SecretHasher.
func (h *BcryptHasher) Hash(secret string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("hashing secret: %w", err)
	}
	return string(hashed), nil
}

// Verify implements SecretHasher.
func (h *BcryptHasher) Verify(hash, secret string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
}
