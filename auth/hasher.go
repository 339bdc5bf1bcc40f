// Package auth handles password hashing and per-session authentication
// state for customers and administrators.
package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher builds a hasher with the default bcrypt cost.
func NewHasher() *Hasher {
	return NewHasherCost(bcrypt.DefaultCost)
}

// NewHasherCost builds a hasher with an explicit bcrypt cost.
// Tests use bcrypt.MinCost to stay fast.
func NewHasherCost(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of the plain password.
func (h *Hasher) Hash(plain string) (string, error) {
	if strings.TrimSpace(plain) == "" {
		return "", fmt.Errorf("hash: empty password")
	}
	out, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return string(out), nil
}

// Verify reports whether the plain password matches the stored hash.
func (h *Hasher) Verify(plain, hashed string) bool {
	if plain == "" || hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
