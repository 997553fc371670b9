// seed provisions the demo users and accounts into the configured durable store.
// Idempotent: existing users keep their data and existing accounts keep their balance.
// The memory backend is seeded by the server at startup, so this is for postgres and redis.
package main

import (
	"context"
	"log"
	"os"

	"owasp-controls-demo/backend/internal/account"
	"owasp-controls-demo/backend/internal/app"
	"owasp-controls-demo/backend/internal/config"
	identityrepo "owasp-controls-demo/backend/internal/identity/repository"
	identityservice "owasp-controls-demo/backend/internal/identity/service"
	"owasp-controls-demo/backend/internal/logging"
	"owasp-controls-demo/backend/internal/security"
	"owasp-controls-demo/backend/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.StoreBackend == config.StoreMemory {
		log.Fatal("STORE_BACKEND is memory; the server seeds it at startup. Set STORE_BACKEND=postgres or redis")
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer store.Close()

	identities := identityservice.NewService(identityrepo.NewKVRepository(store), security.NewHasher(cfg.BcryptCost))
	if err := seed.Apply(ctx, identities, account.NewRepository(store)); err != nil {
		log.Fatalf("seed: %v", err)
	}
	for _, f := range seed.Fixtures {
		logger.Info(ctx, "seeded user", "id", f.Identity.ID, "username", f.Identity.Username, "role", f.Identity.Role)
	}
}
