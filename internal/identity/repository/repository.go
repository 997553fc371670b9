package repository

import (
	"context"
	"errors"

	"owasp-controls-demo/backend/internal/identity/domain"
)

// ErrUsernameTaken is returned by Create when the username is already registered.
var ErrUsernameTaken = errors.New("username already exists")

// Repository is the identity store. Getters return (nil, nil) when nothing matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByUsername(ctx context.Context, username string) (*domain.Identity, error)
	Create(ctx context.Context, i *domain.Identity) error
	Delete(ctx context.Context, id string) error

	GetCredential(ctx context.Context, identityID string, scheme domain.SecretScheme) (*domain.Credential, error)
	PutCredential(ctx context.Context, c *domain.Credential) error
}
