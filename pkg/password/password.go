// Package password hashes and verifies account passwords with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrTooLong is returned by Hash for passwords bcrypt would silently truncate.
var ErrTooLong = errors.New("password exceeds 72 bytes")

// maxLength is bcrypt's input limit.
const maxLength = 72

// Hasher hashes passwords at a fixed bcrypt cost. It is safe for concurrent use.
type Hasher struct {
	cost int

	// dummy is compared against when no stored hash exists, so that a
	// lookup miss costs the same as a wrong password.
	dummy []byte
}

// NewHasher creates a Hasher. A zero cost selects bcrypt.DefaultCost.
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cost)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("simpla-timing-equalizer"), cost)
	if err != nil {
		return nil, fmt.Errorf("generating dummy hash: %w", err)
	}

	return &Hasher{cost: cost, dummy: dummy}, nil
}

// Cost returns the bcrypt cost used for new hashes.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns the bcrypt hash of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	if len(plain) > maxLength {
		return "", ErrTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plain matches hash. An empty hash never matches
// but still costs one full comparison.
func (h *Hasher) Verify(plain, hash string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
