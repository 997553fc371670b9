// Package ratelimit counts login attempts per source inside a fixed window.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"owasp-controls-demo/backend/internal/kv"
	"owasp-controls-demo/backend/internal/platform/keymutex"
)

// Counter is the stored state for one source key.
type Counter struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// AttemptCounter tracks attempts per source key. Entries are created lazily on the first
// attempt, expire with the window, and are removed on Reset.
type AttemptCounter struct {
	store     kv.Store
	locks     *keymutex.KeyMutex
	threshold int
	window    time.Duration
	nowF      func() time.Time
}

// NewAttemptCounter returns a counter that blocks a source once it has used threshold attempts inside window.
func NewAttemptCounter(store kv.Store, threshold int, window time.Duration) *AttemptCounter {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &AttemptCounter{
		store:     store,
		locks:     keymutex.New(),
		threshold: threshold,
		window:    window,
		nowF:      time.Now,
	}
}

func counterKey(sourceKey string) string { return "attempts:" + sourceKey }

// Get returns the live counter for sourceKey. A missing or rolled-over counter is zero.
func (c *AttemptCounter) Get(ctx context.Context, sourceKey string) (Counter, error) {
	var cnt Counter
	if err := kv.GetJSON(ctx, c.store, counterKey(sourceKey), &cnt); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return Counter{}, nil
		}
		return Counter{}, err
	}
	if c.nowF().Sub(cnt.WindowStart) >= c.window {
		return Counter{}, nil
	}
	return cnt, nil
}

// Acquire reserves one attempt for sourceKey before the credential is checked. It reports
// false, without counting, once threshold attempts have been reserved in the current window.
// The check and the increment happen under one key lock.
func (c *AttemptCounter) Acquire(ctx context.Context, sourceKey string) (bool, error) {
	unlock := c.locks.Lock(sourceKey)
	defer unlock()

	cnt, err := c.Get(ctx, sourceKey)
	if err != nil {
		return false, err
	}
	if cnt.Count >= c.threshold {
		return false, nil
	}
	if err := c.increment(ctx, sourceKey, cnt); err != nil {
		return false, err
	}
	return true, nil
}

// increment must be called with the key lock held. A rolled-over counter starts a new window.
func (c *AttemptCounter) increment(ctx context.Context, sourceKey string, cnt Counter) error {
	now := c.nowF()
	if cnt.Count == 0 {
		cnt.WindowStart = now
	}
	cnt.Count++
	ttl := c.window - now.Sub(cnt.WindowStart)
	return kv.PutJSON(ctx, c.store, counterKey(sourceKey), cnt, ttl)
}

// Reset clears the counter for sourceKey.
func (c *AttemptCounter) Reset(ctx context.Context, sourceKey string) error {
	unlock := c.locks.Lock(sourceKey)
	defer unlock()
	return c.store.Delete(ctx, counterKey(sourceKey))
}
