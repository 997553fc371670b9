package repository

import (
	"context"
	"errors"
	"time"

	"owasp-controls-demo/backend/internal/kv"
	"owasp-controls-demo/backend/internal/session/domain"
)

// Repository defines persistence for sessions. GetByID returns (nil, nil) when absent.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, id string) error
}

// KVRepository stores sessions in a kv.Store under "session:<id>", expiring with the session.
type KVRepository struct {
	store kv.Store
	nowF  func() time.Time
}

// NewKVRepository returns a session repository over store.
func NewKVRepository(store kv.Store) *KVRepository {
	return &KVRepository{store: store, nowF: time.Now}
}

func sessionKey(id string) string { return "session:" + id }

// GetByID returns the session for id, or nil if not found.
func (r *KVRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, nil
	}
	var s domain.Session
	if err := kv.GetJSON(ctx, r.store, sessionKey(id), &s); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Create persists s with a TTL matching its remaining lifetime. The session must have ID set.
func (r *KVRepository) Create(ctx context.Context, s *domain.Session) error {
	if s.ID == "" || s.IdentityID == "" {
		return errors.New("session requires id and identity id")
	}
	ttl := s.ExpiresAt.Sub(r.nowF())
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	return kv.PutJSON(ctx, r.store, sessionKey(s.ID), s, ttl)
}

// Delete removes the session. Deleting a missing session is not an error.
func (r *KVRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, sessionKey(id))
}
