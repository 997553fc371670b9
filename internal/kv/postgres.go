package kv

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresStore is a Store backed by the kv_entries table (see internal/db/migrations).
// Open the *sql.DB with db.Open, which registers the pgx driver.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a Store that persists to db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	pgGet = `SELECT value FROM kv_entries WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`
	pgPut = `INSERT INTO kv_entries (key, value, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`
	pgDelete = `DELETE FROM kv_entries WHERE key = $1`
	pgSweep  = `DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= now()`
)

// Get returns the value for key, or ErrNotFound when absent or expired.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, pgGet, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// Put upserts key.
func (s *PostgresStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires sql.NullTime
	if ttl > 0 {
		expires = sql.NullTime{Time: time.Now().UTC().Add(ttl), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, pgPut, key, value, expires)
	return err
}

// Delete removes key.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, pgDelete, key)
	return err
}

// Sweep deletes expired rows and returns how many were removed.
func (s *PostgresStore) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, pgSweep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
