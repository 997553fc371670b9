package security

import "time"

const testIssuer = "owasp-controls-test"

// NewTestTokenProvider returns a TokenProvider over a fresh ECDSA key pair.
// For unit tests only.
func NewTestTokenProvider() (*TokenProvider, error) {
	signer, pub, err := GenerateSigningKey()
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(signer, pub, testIssuer, testIssuer, 15*time.Minute), nil
}
