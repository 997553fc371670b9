package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"owasp-controls-demo/backend/internal/identity/domain"
	"owasp-controls-demo/backend/internal/identity/repository"
	"owasp-controls-demo/backend/internal/security"
)

// ErrInvalidRegistration is returned when username or secret is empty.
var ErrInvalidRegistration = errors.New("username and password are required")

// ErrUsernameTaken is returned when the username is already registered.
var ErrUsernameTaken = repository.ErrUsernameTaken

// Service provisions identities and their credentials.
type Service struct {
	repo   repository.Repository
	hasher *security.Hasher
	nowF   func() time.Time
}

// NewService returns an identity service.
func NewService(repo repository.Repository, hasher *security.Hasher) *Service {
	return &Service{repo: repo, hasher: hasher, nowF: time.Now}
}

// Register creates a standard identity and stores its secret under scheme.
// SchemeBcrypt stores a salted digest; SchemePlaintext stores the secret as given.
func (s *Service) Register(ctx context.Context, username, email, secret string, scheme domain.SecretScheme) (*domain.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || secret == "" {
		return nil, ErrInvalidRegistration
	}
	stored, err := s.storedSecret(secret, scheme)
	if err != nil {
		return nil, err
	}
	i := &domain.Identity{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     strings.TrimSpace(email),
		Role:      domain.RoleStandard,
		CreatedAt: s.nowF().UTC(),
	}
	if err := s.repo.Create(ctx, i); err != nil {
		return nil, err
	}
	if err := s.repo.PutCredential(ctx, &domain.Credential{IdentityID: i.ID, Scheme: scheme, Secret: stored}); err != nil {
		return nil, err
	}
	return i, nil
}

// Provision stores a fixture identity with a fixed id and registers secret under every given scheme.
// An identity that already exists is left as is and only its credentials are written.
func (s *Service) Provision(ctx context.Context, i *domain.Identity, secret string, schemes ...domain.SecretScheme) error {
	existing, err := s.repo.GetByID(ctx, i.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		if i.CreatedAt.IsZero() {
			i.CreatedAt = s.nowF().UTC()
		}
		if err := s.repo.Create(ctx, i); err != nil {
			return err
		}
	}
	for _, scheme := range schemes {
		stored, err := s.storedSecret(secret, scheme)
		if err != nil {
			return err
		}
		if err := s.repo.PutCredential(ctx, &domain.Credential{IdentityID: i.ID, Scheme: scheme, Secret: stored}); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the identity for id, or nil.
func (s *Service) Get(ctx context.Context, id string) (*domain.Identity, error) {
	return s.repo.GetByID(ctx, id)
}

// Delete removes the identity and its credentials.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) storedSecret(secret string, scheme domain.SecretScheme) (string, error) {
	switch scheme {
	case domain.SchemeBcrypt:
		return s.hasher.Hash([]byte(secret))
	case domain.SchemePlaintext:
		return secret, nil
	default:
		return "", errors.New("unknown secret scheme")
	}
}
