package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"owasp-controls-demo/backend/internal/decision"
	identitydomain "owasp-controls-demo/backend/internal/identity/domain"
	"owasp-controls-demo/backend/internal/security"
	"owasp-controls-demo/backend/internal/session/domain"
	"owasp-controls-demo/backend/internal/session/repository"
)

// IdentityLookup resolves identity ids. Returns (nil, nil) when absent.
type IdentityLookup interface {
	GetByID(ctx context.Context, id string) (*identitydomain.Identity, error)
}

// Service creates, resolves and destroys sessions.
type Service struct {
	repo       repository.Repository
	identities IdentityLookup
	tokens     *security.TokenProvider
	nowF       func() time.Time
}

// NewService returns a session service.
func NewService(repo repository.Repository, identities IdentityLookup, tokens *security.TokenProvider) *Service {
	return &Service{repo: repo, identities: identities, tokens: tokens, nowF: time.Now}
}

// Create starts a session for an authenticated identity and returns its signed token.
func (s *Service) Create(ctx context.Context, identity *identitydomain.Identity, ipAddress string) (token string, sess *domain.Session, err error) {
	if identity == nil {
		return "", nil, decision.ErrNotAuthenticated
	}
	id := uuid.New().String()
	token, expiresAt, err := s.tokens.IssueSession(id, identity.ID, string(identity.Role))
	if err != nil {
		return "", nil, err
	}
	sess = &domain.Session{
		ID:         id,
		IdentityID: identity.ID,
		Role:       string(identity.Role),
		IPAddress:  ipAddress,
		CreatedAt:  s.nowF().UTC(),
		ExpiresAt:  expiresAt,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", nil, err
	}
	return token, sess, nil
}

// Resolve returns the identity behind token. A bad token, a missing or expired session, or a
// session whose identity no longer exists all yield decision.ErrNotAuthenticated.
func (s *Service) Resolve(ctx context.Context, token string) (*identitydomain.Identity, error) {
	if token == "" {
		return nil, decision.ErrNotAuthenticated
	}
	sessionID, identityID, err := s.tokens.ValidateSession(token)
	if err != nil {
		return nil, decision.ErrNotAuthenticated
	}
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.IdentityID != identityID || sess.Expired(s.nowF()) {
		return nil, decision.ErrNotAuthenticated
	}
	identity, err := s.identities.GetByID(ctx, sess.IdentityID)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, decision.ErrNotAuthenticated
	}
	return identity, nil
}

// Destroy ends the session named by token. Unknown or invalid tokens are a no-op.
func (s *Service) Destroy(ctx context.Context, token string) error {
	sessionID, _, err := s.tokens.ValidateSession(token)
	if err != nil {
		if errors.Is(err, security.ErrInvalidToken) {
			return nil
		}
		return err
	}
	return s.repo.Delete(ctx, sessionID)
}
