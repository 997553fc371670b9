// Package seed provisions the demo identities and accounts.
package seed

import (
	"context"
	"fmt"

	"owasp-controls-demo/backend/internal/account"
	"owasp-controls-demo/backend/internal/identity/domain"
	identityservice "owasp-controls-demo/backend/internal/identity/service"
)

// Fixture is one demo user with its secret and starting balance.
type Fixture struct {
	Identity domain.Identity
	Secret   string
	Balance  int64
}

// Fixtures are the demo users. Secrets are registered under both schemes so each user can log
// in through either variant.
var Fixtures = []Fixture{
	{Identity: domain.Identity{ID: "1", Username: "alice", Email: "alice@example.com", Role: domain.RoleStandard}, Secret: "password123", Balance: 1000},
	{Identity: domain.Identity{ID: "2", Username: "bob", Email: "bob@example.com", Role: domain.RoleStandard}, Secret: "password456", Balance: 500},
	{Identity: domain.Identity{ID: "3", Username: "admin", Email: "admin@example.com", Role: domain.RoleAdmin}, Secret: "adminpass"},
}

// Apply provisions every fixture. It is idempotent: existing identities keep their data and
// existing accounts keep their balance.
func Apply(ctx context.Context, identities *identityservice.Service, accounts *account.Repository) error {
	for _, f := range Fixtures {
		i := f.Identity
		if err := identities.Provision(ctx, &i, f.Secret, domain.SchemeBcrypt, domain.SchemePlaintext); err != nil {
			return fmt.Errorf("seed %s: %w", i.Username, err)
		}
		existing, err := accounts.Get(ctx, i.ID)
		if err != nil {
			return fmt.Errorf("seed %s account: %w", i.Username, err)
		}
		if existing != nil {
			continue
		}
		if err := accounts.Put(ctx, &account.Account{ID: i.ID, Username: i.Username, Balance: f.Balance}); err != nil {
			return fmt.Errorf("seed %s account: %w", i.Username, err)
		}
	}
	return nil
}
