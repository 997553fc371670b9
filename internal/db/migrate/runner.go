// Package migrate applies the embedded kv_entries schema using golang-migrate.
package migrate

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"owasp-controls-demo/backend/internal/db"
)

// Direction names accepted by Run.
const (
	Up   = "up"
	Down = "down"
)

// Result reports the schema state after Run.
type Result struct {
	// Version is the applied migration version; 0 when no migration is applied.
	Version uint
	Dirty   bool
	// Changed is false when the schema was already at the target version.
	Changed bool
}

// Run migrates the schema at dsn in direction.
func Run(dsn, direction string) (Result, error) {
	if dsn == "" {
		return Result{}, errors.New("DATABASE_URL is not set")
	}
	if direction != Up && direction != Down {
		return Result{}, fmt.Errorf("direction must be %s or %s, got %q", Up, Down, direction)
	}

	src, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return Result{}, fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return Result{}, fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if direction == Up {
		err = m.Up()
	} else {
		err = m.Down()
	}
	res := Result{Changed: true}
	if errors.Is(err, migrate.ErrNoChange) {
		res.Changed = false
	} else if err != nil {
		return Result{}, fmt.Errorf("migrate %s: %w", direction, err)
	}

	res.Version, res.Dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return res, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("migrate version: %w", err)
	}
	return res, nil
}
