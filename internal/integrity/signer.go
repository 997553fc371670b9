// Package integrity signs and verifies balance updates with HMAC-SHA256.
package integrity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"owasp-controls-demo/backend/internal/decision"
	"owasp-controls-demo/backend/internal/security"
)

// ErrEmptyKey is returned by NewSigner when no key is configured.
var ErrEmptyKey = errors.New("integrity key must not be empty")

// BalanceUpdate is the signed payload. Field order is the canonical order.
type BalanceUpdate struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
}

// Canonical returns the bytes that are signed: compact JSON with fields in declaration order.
func (u BalanceUpdate) Canonical() []byte {
	b, _ := json.Marshal(u)
	return b
}

// Signer holds the process key.
type Signer struct {
	key []byte
}

// NewSigner returns a Signer for key.
func NewSigner(key []byte) (*Signer, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Signer{key: k}, nil
}

// Sign returns the lowercase hex HMAC-SHA256 of the canonical payload.
func (s *Signer) Sign(u BalanceUpdate) string {
	return hex.EncodeToString(s.mac(u))
}

// Verify reports whether signature is the signature of u.
func (s *Signer) Verify(u BalanceUpdate, signature string) bool {
	expected := []byte(hex.EncodeToString(s.mac(u)))
	return security.ConstantTimeEqual(expected, []byte(signature))
}

// Check is Verify as a control: nil on match, decision.ErrIntegrityFailed otherwise.
func (s *Signer) Check(u BalanceUpdate, signature string) error {
	if !s.Verify(u, signature) {
		return decision.ErrIntegrityFailed
	}
	return nil
}

func (s *Signer) mac(u BalanceUpdate) []byte {
	m := hmac.New(sha256.New, s.key)
	m.Write(u.Canonical())
	return m.Sum(nil)
}
