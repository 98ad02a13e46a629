// Package password provides one-way, salted password hashing with a
// tunable work factor, backed by bcrypt.
//
// Hashing is deliberately CPU-expensive to resist offline brute force.
// Callers run it on their own goroutine; nothing in this package holds
// shared state, so a slow hash never blocks other requests.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes plaintext passwords and verifies candidates against
// stored digests.
type Hasher interface {
	// Hash produces a salted digest. Output differs on every call (fresh
	// salt), but Verify is deterministic for a given digest.
	Hash(plaintext string) (string, error)

	// Verify reports whether the plaintext matches the digest. It never
	// returns an error for a mismatch, only false.
	Verify(plaintext, digest string) bool
}

// Config holds bcrypt parameters.
type Config struct {
	// Cost is the bcrypt work factor. Zero selects DefaultCost.
	Cost int
}

// Bcrypt is the bcrypt-backed Hasher.
type Bcrypt struct {
	cost int
}

var _ Hasher = (*Bcrypt)(nil)

// NewBcrypt creates a bcrypt hasher with the given work factor.
func NewBcrypt(cfg Config) (*Bcrypt, error) {
	cost := cfg.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, cost)
	}
	return &Bcrypt{cost: cost}, nil
}

// Hash generates a salted bcrypt digest of the plaintext. Inputs longer
// than 72 bytes are rejected by bcrypt; request validation enforces the
// same bound so the error does not normally surface.
func (b *Bcrypt) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(digest), nil
}

// Verify compares the plaintext against the digest in constant time.
func (b *Bcrypt) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
