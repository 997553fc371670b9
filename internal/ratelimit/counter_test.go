package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"owasp-controls-demo/backend/internal/kv"
)

func acquire(t *testing.T, c *AttemptCounter, key string) bool {
	t.Helper()
	ok, err := c.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	return ok
}

func TestAttemptCounter_BlocksAtThreshold(t *testing.T) {
	c := NewAttemptCounter(kv.NewMemoryStore(), 5, 15*time.Minute)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if !acquire(t, c, "10.0.0.1") {
			t.Fatalf("attempt %d refused", i)
		}
		cnt, _ := c.Get(ctx, "10.0.0.1")
		if cnt.Count != i {
			t.Fatalf("Count = %d, want %d", cnt.Count, i)
		}
	}
	if acquire(t, c, "10.0.0.1") {
		t.Fatal("6th attempt should be refused")
	}
	if cnt, _ := c.Get(ctx, "10.0.0.1"); cnt.Count != 5 {
		t.Errorf("Count = %d after refusal, want 5", cnt.Count)
	}
	if !acquire(t, c, "10.0.0.2") {
		t.Fatal("other sources must not be affected")
	}
}

func TestAttemptCounter_Reset(t *testing.T) {
	c := NewAttemptCounter(kv.NewMemoryStore(), 3, time.Minute)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		acquire(t, c, "src")
	}
	if err := c.Reset(ctx, "src"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	cnt, err := c.Get(ctx, "src")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cnt.Count != 0 {
		t.Errorf("Count after Reset = %d, want 0", cnt.Count)
	}
	if !acquire(t, c, "src") {
		t.Error("attempt refused after Reset")
	}
}

func TestAttemptCounter_WindowRollover(t *testing.T) {
	c := NewAttemptCounter(kv.NewMemoryStore(), 2, time.Minute)
	now := time.Now()
	c.nowF = func() time.Time { return now }
	ctx := context.Background()

	acquire(t, c, "src")
	acquire(t, c, "src")
	if acquire(t, c, "src") {
		t.Fatal("should be refused inside window")
	}

	now = now.Add(time.Minute)
	if !acquire(t, c, "src") {
		t.Fatal("counter should roll over after the window")
	}
	cnt, _ := c.Get(ctx, "src")
	if cnt.Count != 1 || !cnt.WindowStart.Equal(now) {
		t.Errorf("after rollover = %+v, want count 1 starting now", cnt)
	}
}

func TestAttemptCounter_WindowDoesNotSlide(t *testing.T) {
	c := NewAttemptCounter(kv.NewMemoryStore(), 10, time.Minute)
	now := time.Now()
	c.nowF = func() time.Time { return now }
	ctx := context.Background()

	acquire(t, c, "src")
	now = now.Add(40 * time.Second)
	acquire(t, c, "src")
	cnt, _ := c.Get(ctx, "src")
	if !cnt.WindowStart.Equal(now.Add(-40 * time.Second)) {
		t.Errorf("WindowStart moved to %v", cnt.WindowStart)
	}
	now = now.Add(20 * time.Second)
	if cnt, _ := c.Get(ctx, "src"); cnt.Count != 0 {
		t.Errorf("Count = %d after window from first attempt, want 0", cnt.Count)
	}
}

func TestAttemptCounter_ConcurrentAcquireHonoursThreshold(t *testing.T) {
	c := NewAttemptCounter(kv.NewMemoryStore(), 5, time.Minute)
	ctx := context.Background()

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := c.Acquire(ctx, "src")
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			if ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()
	if got := granted.Load(); got != 5 {
		t.Fatalf("granted = %d, want 5", got)
	}
	if cnt, _ := c.Get(ctx, "src"); cnt.Count != 5 {
		t.Fatalf("Count = %d, want 5", cnt.Count)
	}
}

func TestAttemptCounter_RedisTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	store := kv.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	c := NewAttemptCounter(store, 5, time.Minute)
	ctx := context.Background()

	if !acquire(t, c, "src") {
		t.Fatal("first attempt refused")
	}
	if ttl := mr.TTL(store.Prefix + "attempts:src"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("TTL = %v, want within (0, 1m]", ttl)
	}
	mr.FastForward(time.Minute)
	if cnt, _ := c.Get(ctx, "src"); cnt.Count != 0 {
		t.Errorf("Count after expiry = %d, want 0", cnt.Count)
	}
}

func TestNewAttemptCounter_Defaults(t *testing.T) {
	c := NewAttemptCounter(kv.NewMemoryStore(), 0, 0)
	if c.threshold != 5 || c.window != 15*time.Minute {
		t.Errorf("defaults = %d, %v; want 5, 15m", c.threshold, c.window)
	}
}
