package service

import (
	"context"
	"testing"
	"time"

	"owasp-controls-demo/backend/internal/decision"
	identitydomain "owasp-controls-demo/backend/internal/identity/domain"
	identityrepo "owasp-controls-demo/backend/internal/identity/repository"
	"owasp-controls-demo/backend/internal/kv"
	"owasp-controls-demo/backend/internal/security"
	"owasp-controls-demo/backend/internal/session/repository"
)

type fixture struct {
	svc        *Service
	identities *identityrepo.KVRepository
	sessions   *repository.KVRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := kv.NewMemoryStore()
	identities := identityrepo.NewKVRepository(store)
	sessions := repository.NewKVRepository(store)
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	if err := identities.Create(context.Background(), &identitydomain.Identity{ID: "1", Username: "alice"}); err != nil {
		t.Fatalf("Create identity: %v", err)
	}
	return &fixture{svc: NewService(sessions, identities, tokens), identities: identities, sessions: sessions}
}

func TestCreateAndResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, _ := f.identities.GetByID(ctx, "1")

	token, sess, err := f.svc.Create(ctx, alice, "10.0.0.1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if token == "" || sess.IdentityID != "1" || sess.IPAddress != "10.0.0.1" {
		t.Fatalf("Create = %q, %+v", token, sess)
	}
	got, err := f.svc.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("Resolve username = %q, want %q", got.Username, "alice")
	}
}

func TestCreate_NilIdentity(t *testing.T) {
	f := newFixture(t)
	if _, _, err := f.svc.Create(context.Background(), nil, ""); !decision.IsKind(err, decision.KindAuthentication) {
		t.Fatalf("Create(nil) = %v, want authentication denial", err)
	}
}

func TestResolve_FailsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, _ := f.identities.GetByID(ctx, "1")

	t.Run("empty token", func(t *testing.T) {
		if _, err := f.svc.Resolve(ctx, ""); !decision.IsKind(err, decision.KindAuthentication) {
			t.Fatalf("got %v, want authentication denial", err)
		}
	})
	t.Run("garbage token", func(t *testing.T) {
		if _, err := f.svc.Resolve(ctx, "not-a-jwt"); !decision.IsKind(err, decision.KindAuthentication) {
			t.Fatalf("got %v, want authentication denial", err)
		}
	})
	t.Run("session destroyed", func(t *testing.T) {
		token, _, _ := f.svc.Create(ctx, alice, "")
		if err := f.svc.Destroy(ctx, token); err != nil {
			t.Fatalf("Destroy: %v", err)
		}
		if _, err := f.svc.Resolve(ctx, token); !decision.IsKind(err, decision.KindAuthentication) {
			t.Fatalf("got %v, want authentication denial", err)
		}
	})
	t.Run("session expired", func(t *testing.T) {
		token, _, _ := f.svc.Create(ctx, alice, "")
		f.svc.nowF = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { f.svc.nowF = time.Now }()
		if _, err := f.svc.Resolve(ctx, token); !decision.IsKind(err, decision.KindAuthentication) {
			t.Fatalf("got %v, want authentication denial", err)
		}
	})
	t.Run("identity removed", func(t *testing.T) {
		token, _, _ := f.svc.Create(ctx, alice, "")
		if err := f.identities.Delete(ctx, "1"); err != nil {
			t.Fatalf("Delete identity: %v", err)
		}
		if _, err := f.svc.Resolve(ctx, token); !decision.IsKind(err, decision.KindAuthentication) {
			t.Fatalf("got %v, want authentication denial", err)
		}
	})
}

func TestDestroy_InvalidTokenIsNoop(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.Destroy(context.Background(), "garbage"); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
}
