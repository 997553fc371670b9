package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"owasp-controls-demo/backend/internal/config"
	"owasp-controls-demo/backend/internal/db"
	"owasp-controls-demo/backend/internal/kv"
	"owasp-controls-demo/backend/internal/logging"
	"owasp-controls-demo/backend/internal/server/httpapi"
)

const sweepInterval = time.Minute

// Store is an opened backing store.
type Store struct {
	kv.Store
	// Pinger reports connectivity; nil for the memory backend.
	Pinger httpapi.Pinger
	// Close releases the backend connection.
	Close func() error
}

// OpenStore opens the backend selected by cfg.StoreBackend. Expired entries are swept in the
// background until ctx is done (Redis expires keys itself).
func OpenStore(ctx context.Context, cfg *config.Config, log logging.Logger) (*Store, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		s := kv.NewPostgresStore(conn)
		go sweepPostgres(ctx, s, log)
		return &Store{Store: s, Pinger: conn, Close: conn.Close}, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		s := kv.NewRedisStore(client)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.PingContext(pingCtx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("open redis: %w", err)
		}
		return &Store{Store: s, Pinger: s, Close: client.Close}, nil
	default:
		s := kv.NewMemoryStore()
		go s.RunJanitor(ctx, sweepInterval)
		return &Store{Store: s, Close: func() error { return nil }}, nil
	}
}

func sweepPostgres(ctx context.Context, s *kv.PostgresStore, log logging.Logger) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				log.Warn(ctx, "kv: sweep failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debug(ctx, "kv: swept expired entries", "count", n)
			}
		}
	}
}
