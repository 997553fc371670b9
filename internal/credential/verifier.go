// Package credential authenticates a username and secret against the identity store.
package credential

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"owasp-controls-demo/backend/internal/decision"
	"owasp-controls-demo/backend/internal/identity/domain"
	"owasp-controls-demo/backend/internal/identity/repository"
	"owasp-controls-demo/backend/internal/ratelimit"
	"owasp-controls-demo/backend/internal/security"
)

// Denials returned only by the insecure verifier. They reveal whether the username exists.
var (
	ErrUnknownUsername   = decision.Deny(decision.KindAuthentication, "username does not exist")
	ErrIncorrectPassword = decision.Deny(decision.KindAuthentication, "incorrect password")
)

// Verifier authenticates credentials. sourceKey identifies the caller for attempt counting (usually the client IP).
type Verifier interface {
	Verify(ctx context.Context, username, secret, sourceKey string) (*domain.Identity, error)
}

// SecureVerifier checks bcrypt digests and blocks a source once its attempts in a window run out.
// Unknown usernames and wrong secrets are indistinguishable to the caller.
type SecureVerifier struct {
	repo     repository.Repository
	hasher   *security.Hasher
	attempts *ratelimit.AttemptCounter
}

// NewSecureVerifier returns a SecureVerifier.
func NewSecureVerifier(repo repository.Repository, hasher *security.Hasher, attempts *ratelimit.AttemptCounter) *SecureVerifier {
	return &SecureVerifier{repo: repo, hasher: hasher, attempts: attempts}
}

// Verify implements Verifier. Each call reserves an attempt before the credential store is
// read; a source with no attempts left is rejected without reading it. Success clears the
// source's counter.
func (v *SecureVerifier) Verify(ctx context.Context, username, secret, sourceKey string) (*domain.Identity, error) {
	allowed, err := v.attempts.Acquire(ctx, sourceKey)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, decision.ErrRateLimited
	}

	identity, digest, err := v.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	if digest == "" {
		_ = v.hasher.CompareDummy([]byte(secret))
		return nil, decision.ErrInvalidCredentials
	}
	if err := v.hasher.Compare(digest, []byte(secret)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) && !errors.Is(err, bcrypt.ErrHashTooShort) {
			return nil, err
		}
		return nil, decision.ErrInvalidCredentials
	}
	if err := v.attempts.Reset(ctx, sourceKey); err != nil {
		return nil, err
	}
	return identity, nil
}

func (v *SecureVerifier) lookup(ctx context.Context, username string) (*domain.Identity, string, error) {
	identity, err := v.repo.GetByUsername(ctx, username)
	if err != nil || identity == nil {
		return nil, "", err
	}
	cred, err := v.repo.GetCredential(ctx, identity.ID, domain.SchemeBcrypt)
	if err != nil || cred == nil {
		return nil, "", err
	}
	return identity, cred.Secret, nil
}

// InsecureVerifier compares plaintext secrets, has no attempt quota and reports which check failed.
type InsecureVerifier struct {
	repo repository.Repository
}

// NewInsecureVerifier returns an InsecureVerifier.
func NewInsecureVerifier(repo repository.Repository) *InsecureVerifier {
	return &InsecureVerifier{repo: repo}
}

// Verify implements Verifier. sourceKey is ignored.
func (v *InsecureVerifier) Verify(ctx context.Context, username, secret, _ string) (*domain.Identity, error) {
	identity, err := v.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, ErrUnknownUsername
	}
	cred, err := v.repo.GetCredential(ctx, identity.ID, domain.SchemePlaintext)
	if err != nil {
		return nil, err
	}
	if cred == nil || cred.Secret != secret {
		return nil, ErrIncorrectPassword
	}
	return identity, nil
}
