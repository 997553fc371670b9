package repository

import (
	"context"
	"errors"
	"strings"

	"owasp-controls-demo/backend/internal/identity/domain"
	"owasp-controls-demo/backend/internal/kv"
	"owasp-controls-demo/backend/internal/platform/keymutex"
)

// KVRepository stores identities and credentials in a kv.Store.
//
//	identity:<id>                 -> Identity JSON
//	identity-name:<username>      -> id
//	credential:<scheme>:<id>      -> Credential JSON
type KVRepository struct {
	store kv.Store
	locks *keymutex.KeyMutex
}

// NewKVRepository returns a Repository over store.
func NewKVRepository(store kv.Store) *KVRepository {
	return &KVRepository{store: store, locks: keymutex.New()}
}

func identityKey(id string) string { return "identity:" + id }

func usernameKey(username string) string {
	return "identity-name:" + strings.ToLower(strings.TrimSpace(username))
}

func credentialKey(id string, scheme domain.SecretScheme) string {
	return "credential:" + string(scheme) + ":" + id
}

// GetByID returns the identity for id, or nil if not found.
func (r *KVRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	if id == "" {
		return nil, nil
	}
	var i domain.Identity
	if err := kv.GetJSON(ctx, r.store, identityKey(id), &i); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &i, nil
}

// GetByUsername returns the identity registered under username (case-insensitive), or nil.
func (r *KVRepository) GetByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	id, err := r.store.Get(ctx, usernameKey(username))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.GetByID(ctx, string(id))
}

// Create persists a new identity. Username uniqueness is checked under a per-username lock.
func (r *KVRepository) Create(ctx context.Context, i *domain.Identity) error {
	if err := i.Validate(); err != nil {
		return err
	}
	nameKey := usernameKey(i.Username)
	return r.locks.With(nameKey, func() error {
		if _, err := r.store.Get(ctx, nameKey); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, kv.ErrNotFound) {
			return err
		}
		if err := kv.PutJSON(ctx, r.store, identityKey(i.ID), i, 0); err != nil {
			return err
		}
		return r.store.Put(ctx, nameKey, []byte(i.ID), 0)
	})
}

// Delete removes the identity, its username index and all of its credentials.
func (r *KVRepository) Delete(ctx context.Context, id string) error {
	i, err := r.GetByID(ctx, id)
	if err != nil || i == nil {
		return err
	}
	for _, scheme := range []domain.SecretScheme{domain.SchemeBcrypt, domain.SchemePlaintext} {
		if err := r.store.Delete(ctx, credentialKey(id, scheme)); err != nil {
			return err
		}
	}
	if err := r.store.Delete(ctx, usernameKey(i.Username)); err != nil {
		return err
	}
	return r.store.Delete(ctx, identityKey(id))
}

// GetCredential returns the identity's credential under scheme, or nil.
func (r *KVRepository) GetCredential(ctx context.Context, identityID string, scheme domain.SecretScheme) (*domain.Credential, error) {
	var c domain.Credential
	if err := kv.GetJSON(ctx, r.store, credentialKey(identityID, scheme), &c); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// PutCredential stores c, replacing any credential with the same identity and scheme.
func (r *KVRepository) PutCredential(ctx context.Context, c *domain.Credential) error {
	if c.IdentityID == "" || c.Scheme == "" {
		return errors.New("credential requires identity id and scheme")
	}
	return kv.PutJSON(ctx, r.store, credentialKey(c.IdentityID, c.Scheme), c, 0)
}
