// Package account stores account balances.
package account

import (
	"context"
	"errors"
	"time"

	"owasp-controls-demo/backend/internal/kv"
	"owasp-controls-demo/backend/internal/platform/keymutex"
)

// Account is a balance owned by one identity. ID equals the owner's identity id.
type Account struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository persists accounts in a kv.Store. Mutations of one account are serialized.
type Repository struct {
	store kv.Store
	locks *keymutex.KeyMutex
	nowF  func() time.Time
}

// NewRepository returns an account repository over store.
func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store, locks: keymutex.New(), nowF: time.Now}
}

func accountKey(id string) string { return "account:" + id }

// Get returns the account for id, or nil if not found.
func (r *Repository) Get(ctx context.Context, id string) (*Account, error) {
	var a Account
	if err := kv.GetJSON(ctx, r.store, accountKey(id), &a); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// Put creates or replaces a.
func (r *Repository) Put(ctx context.Context, a *Account) error {
	if a.ID == "" {
		return errors.New("account id is required")
	}
	unlock := r.locks.Lock(a.ID)
	defer unlock()
	a.UpdatedAt = r.nowF().UTC()
	return kv.PutJSON(ctx, r.store, accountKey(a.ID), a, 0)
}

// SetBalance sets the balance of account id and returns the updated account, or nil if not found.
func (r *Repository) SetBalance(ctx context.Context, id string, balance int64) (*Account, error) {
	return r.update(ctx, id, func(a *Account) { a.Balance = balance })
}

func (r *Repository) update(ctx context.Context, id string, fn func(*Account)) (*Account, error) {
	unlock := r.locks.Lock(id)
	defer unlock()
	a, err := r.Get(ctx, id)
	if err != nil || a == nil {
		return nil, err
	}
	fn(a)
	a.UpdatedAt = r.nowF().UTC()
	if err := kv.PutJSON(ctx, r.store, accountKey(id), a, 0); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes account id. Missing accounts are not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	unlock := r.locks.Lock(id)
	defer unlock()
	return r.store.Delete(ctx, accountKey(id))
}
