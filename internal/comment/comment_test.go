package comment

import (
	"context"
	"sync"
	"testing"

	"owasp-controls-demo/backend/internal/kv"
	"owasp-controls-demo/backend/internal/sanitize"
)

func TestStore_AddAndList(t *testing.T) {
	s := NewStore(kv.NewMemoryStore())
	ctx := context.Background()

	list, err := s.List(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("List empty = %v, %v", list, err)
	}
	if _, err := s.Add(ctx, "<b>hi</b>", sanitize.HTMLEscape{}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add(ctx, "<b>hi</b>", sanitize.Passthrough{}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	list, _ = s.List(ctx)
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Body != "&lt;b&gt;hi&lt;/b&gt;" {
		t.Errorf("escaped body = %q", list[0].Body)
	}
	if list[1].Body != "<b>hi</b>" {
		t.Errorf("raw body = %q", list[1].Body)
	}
}

func TestStore_AddEmpty(t *testing.T) {
	s := NewStore(kv.NewMemoryStore())
	if _, err := s.Add(context.Background(), "", sanitize.Passthrough{}); err != ErrEmpty {
		t.Fatalf("Add empty = %v, want ErrEmpty", err)
	}
}

func TestStore_ConcurrentAdd(t *testing.T) {
	s := NewStore(kv.NewMemoryStore())
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Add(ctx, "x", sanitize.Passthrough{})
		}()
	}
	wg.Wait()
	list, _ := s.List(ctx)
	if len(list) != 30 {
		t.Fatalf("len = %d, want 30 (lost updates)", len(list))
	}
}
