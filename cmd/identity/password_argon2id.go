// Package identity password hashing (Argon2id).
//
// identity delegates the actual hashing to cmd/security/password, which is
// the single source of truth for Argon2id parameters and password policy.
package identity

import (
	"errors"
	"fmt"

	"balcao/cmd/security/password"
)

// Hasher hashes and verifies login secrets.
//
// It is the credential-verification capability consumed by the session
// subsystem: stateless, side-effect free, constant-time on the comparison.
type Hasher struct {
	cfg password.Config

	// dummy is verified against when the principal is missing or has no
	// stored hash, so lookup failures cost the same as a mismatch.
	dummy string
}

// NewHasher builds a Hasher from the password env configuration.
func NewHasher() (*Hasher, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}

	dummy, err := cfg.Hash("dummy-password-for-timing-only")
	if err != nil {
		return nil, err
	}

	return &Hasher{cfg: cfg, dummy: dummy}, nil
}

// Hash returns a PHC-style Argon2id hash of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	return h.cfg.Hash(plain)
}

// Verify checks plain against a stored PHC hash.
// A malformed hash is reported as ErrInvalidInput, never as a mismatch.
func (h *Hasher) Verify(plain, encoded string) (bool, error) {
	ok, err := h.cfg.Verify(encoded, plain)
	if err != nil {
		if errors.Is(err, password.ErrInvalidHash) {
			return false, fmt.Errorf("%w: malformed credential hash", ErrInvalidInput)
		}
		return false, err
	}
	return ok, nil
}

// VerifyDummy burns one verification against a throwaway hash.
func (h *Hasher) VerifyDummy(plain string) {
	_, _ = h.cfg.Verify(h.dummy, plain)
}
