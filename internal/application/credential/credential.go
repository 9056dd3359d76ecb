// Package credential hashes and checks account passwords.
package credential

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Verifier hashes plaintext secrets and compares them against stored hashes.
type Verifier struct {
	cost int
}

// NewVerifier returns a bcrypt verifier. A cost of 0 selects bcrypt.DefaultCost.
func NewVerifier(cost int) *Verifier {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Verifier{cost: cost}
}

// Hash returns the bcrypt hash of secret.
func (v *Verifier) Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), v.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Matches reports whether secret matches hash. A malformed hash is a
// mismatch, not an error.
func (v *Verifier) Matches(hash, secret string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
