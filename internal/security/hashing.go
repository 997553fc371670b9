package security

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies login secrets using bcrypt. Callers must not log or
// persist plaintext secrets.
type Hasher struct {
	Cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher returns a Hasher with the given bcrypt cost (4–31). Cost 12 is a
// reasonable default for interactive login.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt digest of secret, salted per call.
func (h *Hasher) Hash(secret []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(secret, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies secret against digest. Returns nil on match;
// bcrypt.ErrMismatchedHashAndPassword or a parse error otherwise.
func (h *Hasher) Compare(digest string, secret []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(digest), secret)
}

// CompareDummy runs a full-cost comparison against a fixed digest and always
// reports a mismatch. Used when the username is unknown so both failure paths
// pay for one bcrypt evaluation.
func (h *Hasher) CompareDummy(secret []byte) error {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("dummy-secret-for-unknown-users"), h.Cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, secret)
	return bcrypt.ErrMismatchedHashAndPassword
}
