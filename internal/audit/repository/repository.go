package repository

import (
	"context"
	"errors"
	"time"

	"owasp-controls-demo/backend/internal/audit/domain"
	"owasp-controls-demo/backend/internal/kv"
	"owasp-controls-demo/backend/internal/platform/keymutex"
)

// DefaultRetention is how long a day's audit bucket is kept.
const DefaultRetention = 30 * 24 * time.Hour

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	ListByDay(ctx context.Context, day time.Time) ([]*domain.AuditLog, error)
}

// KVRepository appends entries to one list per UTC day ("audit:2006-01-02").
type KVRepository struct {
	store     kv.Store
	locks     *keymutex.KeyMutex
	retention time.Duration
}

// NewKVRepository returns an audit repository over store. retention <= 0 uses DefaultRetention.
func NewKVRepository(store kv.Store, retention time.Duration) *KVRepository {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &KVRepository{store: store, locks: keymutex.New(), retention: retention}
}

func dayKey(t time.Time) string { return "audit:" + t.UTC().Format("2006-01-02") }

// Create appends a to the bucket of its CreatedAt day.
func (r *KVRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	if a.CreatedAt.IsZero() {
		return errors.New("audit entry requires created_at")
	}
	key := dayKey(a.CreatedAt)
	return r.locks.With(key, func() error {
		list, err := r.ListByDay(ctx, a.CreatedAt)
		if err != nil {
			return err
		}
		return kv.PutJSON(ctx, r.store, key, append(list, a), r.retention)
	})
}

// ListByDay returns the entries of the UTC day containing day, oldest first.
func (r *KVRepository) ListByDay(ctx context.Context, day time.Time) ([]*domain.AuditLog, error) {
	var list []*domain.AuditLog
	if err := kv.GetJSON(ctx, r.store, dayKey(day), &list); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return list, nil
}
