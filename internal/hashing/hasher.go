package hashing

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost puts a single hash in the 100-300ms range on commodity hardware.
const DefaultCost = 12

// maxSecretBytes is the bcrypt input limit; longer secrets would be
// silently truncated by other implementations.
const maxSecretBytes = 72

var (
	ErrEmptySecret   = errors.New("secret must not be empty")
	ErrSecretTooLong = errors.New("secret exceeds 72 bytes")
)

// Hasher produces and checks self-describing bcrypt hashes. It holds no
// mutable state and is safe for concurrent use.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given bcrypt cost. Zero selects
// DefaultCost; values outside bcrypt's range are clamped.
func NewHasher(cost int) *Hasher {
	switch {
	case cost == 0:
		cost = DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns a randomly salted bcrypt hash of secret. The salt and cost
// are embedded in the output.
func (h *Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	if len(secret) > maxSecretBytes {
		return "", ErrSecretTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether secret matches storedHash. Malformed hashes and any
// other comparison error yield false. Secrets Hash would refuse never match:
// bcrypt reads only the first 72 bytes, so a longer secret sharing that
// prefix would otherwise verify.
func (h *Hasher) Verify(secret, storedHash string) bool {
	if storedHash == "" || len(secret) > maxSecretBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(secret)) == nil
}

// IsHash reports whether s looks like a bcrypt hash this package produced or
// can verify. Used to refuse plaintext values on write paths.
func IsHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
