package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"owasp-controls-demo/backend/internal/identity/domain"
	"owasp-controls-demo/backend/internal/kv"
)

func TestKVRepository_CreateAndGet(t *testing.T) {
	repo := NewKVRepository(kv.NewMemoryStore())
	ctx := context.Background()

	alice := &domain.Identity{ID: "1", Username: "alice", Email: "alice@example.com"}
	if err := repo.Create(ctx, alice); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if alice.Role != domain.RoleStandard {
		t.Errorf("role = %q, want default %q", alice.Role, domain.RoleStandard)
	}

	got, err := repo.GetByID(ctx, "1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Username != "alice" {
		t.Fatalf("GetByID = %+v", got)
	}
	byName, err := repo.GetByUsername(ctx, " ALICE ")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if byName == nil || byName.ID != "1" {
		t.Fatalf("GetByUsername = %+v", byName)
	}
}

func TestKVRepository_Missing(t *testing.T) {
	repo := NewKVRepository(kv.NewMemoryStore())
	ctx := context.Background()
	if i, err := repo.GetByID(ctx, "42"); i != nil || err != nil {
		t.Errorf("GetByID missing = %v, %v; want nil, nil", i, err)
	}
	if i, err := repo.GetByID(ctx, ""); i != nil || err != nil {
		t.Errorf("GetByID empty = %v, %v; want nil, nil", i, err)
	}
	if i, err := repo.GetByUsername(ctx, "nobody"); i != nil || err != nil {
		t.Errorf("GetByUsername missing = %v, %v; want nil, nil", i, err)
	}
	if c, err := repo.GetCredential(ctx, "42", domain.SchemeBcrypt); c != nil || err != nil {
		t.Errorf("GetCredential missing = %v, %v; want nil, nil", c, err)
	}
}

func TestKVRepository_Validation(t *testing.T) {
	repo := NewKVRepository(kv.NewMemoryStore())
	ctx := context.Background()
	tests := []*domain.Identity{
		{ID: "", Username: "x"},
		{ID: "1", Username: " "},
		{ID: "1", Username: "x", Role: "root"},
	}
	for _, i := range tests {
		if err := repo.Create(ctx, i); err == nil {
			t.Errorf("Create(%+v) should fail", i)
		}
	}
	if err := repo.PutCredential(ctx, &domain.Credential{Secret: "x"}); err == nil {
		t.Error("PutCredential without identity should fail")
	}
}

func TestKVRepository_UsernameTakenConcurrent(t *testing.T) {
	repo := NewKVRepository(kv.NewMemoryStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created, taken := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Create(ctx, &domain.Identity{ID: string(rune('a' + i)), Username: "bob"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrUsernameTaken):
				taken++
			default:
				t.Errorf("Create: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if created != 1 || taken != 19 {
		t.Fatalf("created = %d, taken = %d; want 1, 19", created, taken)
	}
}

func TestKVRepository_CredentialsAndDelete(t *testing.T) {
	repo := NewKVRepository(kv.NewMemoryStore())
	ctx := context.Background()
	_ = repo.Create(ctx, &domain.Identity{ID: "2", Username: "bob", Role: domain.RoleStandard})

	if err := repo.PutCredential(ctx, &domain.Credential{IdentityID: "2", Scheme: domain.SchemeBcrypt, Secret: "$2a$..."}); err != nil {
		t.Fatalf("PutCredential bcrypt: %v", err)
	}
	if err := repo.PutCredential(ctx, &domain.Credential{IdentityID: "2", Scheme: domain.SchemePlaintext, Secret: "password456"}); err != nil {
		t.Fatalf("PutCredential plaintext: %v", err)
	}
	c, err := repo.GetCredential(ctx, "2", domain.SchemePlaintext)
	if err != nil || c == nil || c.Secret != "password456" {
		t.Fatalf("GetCredential plaintext = %+v, %v", c, err)
	}

	if err := repo.Delete(ctx, "2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if i, _ := repo.GetByUsername(ctx, "bob"); i != nil {
		t.Error("username index should be removed")
	}
	if c, _ := repo.GetCredential(ctx, "2", domain.SchemeBcrypt); c != nil {
		t.Error("credentials should be removed")
	}
	if err := repo.Delete(ctx, "2"); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
	if err := repo.Create(ctx, &domain.Identity{ID: "9", Username: "bob"}); err != nil {
		t.Errorf("username should be reusable after Delete: %v", err)
	}
}
