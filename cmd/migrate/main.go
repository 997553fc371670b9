// migrate creates or drops the kv_entries table used by STORE_BACKEND=postgres.
//
//	go run ./cmd/migrate            # apply
//	go run ./cmd/migrate -down      # drop
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"owasp-controls-demo/backend/internal/config"
	"owasp-controls-demo/backend/internal/db/migrate"
	"owasp-controls-demo/backend/internal/logging"
)

func main() {
	down := flag.Bool("down", false, "roll back the kv_entries schema instead of applying it")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.StoreBackend != config.StorePostgres {
		log.Fatalf("STORE_BACKEND is %s; the kv_entries schema only exists for STORE_BACKEND=postgres", cfg.StoreBackend)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	direction := migrate.Up
	if *down {
		direction = migrate.Down
	}
	res, err := migrate.Run(cfg.DatabaseURL, direction)
	if err != nil {
		log.Fatalf("kv_entries %s: %v", direction, err)
	}
	logger.Info(context.Background(), "kv_entries schema migrated",
		"direction", direction, "version", res.Version, "changed", res.Changed, "dirty", res.Dirty)
}
