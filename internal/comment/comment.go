// Package comment stores the public comment list.
package comment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"owasp-controls-demo/backend/internal/kv"
	"owasp-controls-demo/backend/internal/platform/keymutex"
	"owasp-controls-demo/backend/internal/sanitize"
)

// ErrEmpty is returned when a comment body is empty.
var ErrEmpty = errors.New("comment is required")

const listKey = "comments"

// Comment is one stored comment. Body is stored after sanitization.
type Comment struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Store appends to and lists the comment list.
type Store struct {
	kv    kv.Store
	locks *keymutex.KeyMutex
	nowF  func() time.Time
}

// NewStore returns a comment store over s.
func NewStore(s kv.Store) *Store {
	return &Store{kv: s, locks: keymutex.New(), nowF: time.Now}
}

// Add sanitizes body with san and appends it.
func (s *Store) Add(ctx context.Context, body string, san sanitize.Sanitizer) (*Comment, error) {
	if body == "" {
		return nil, ErrEmpty
	}
	c := &Comment{ID: uuid.New().String(), Body: san.Sanitize(body), CreatedAt: s.nowF().UTC()}
	err := s.locks.With(listKey, func() error {
		list, err := s.List(ctx)
		if err != nil {
			return err
		}
		return kv.PutJSON(ctx, s.kv, listKey, append(list, *c), 0)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns all comments, oldest first.
func (s *Store) List(ctx context.Context) ([]Comment, error) {
	var list []Comment
	if err := kv.GetJSON(ctx, s.kv, listKey, &list); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return []Comment{}, nil
		}
		return nil, err
	}
	return list, nil
}
