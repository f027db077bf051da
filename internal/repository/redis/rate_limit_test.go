package redis

import (
	"context"
	"testing"
	"time"
)

func TestRateLimitStore_SlidingWindow(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewRateLimitStore(client, "rl")
	ctx := context.Background()

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	window := time.Minute

	for i := 0; i < 3; i++ {
		if err := store.Record(ctx, "login:10.0.0.1", base.Add(time.Duration(i)*10*time.Second), window); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}

	count, oldest, err := store.Observe(ctx, "login:10.0.0.1", window, base.Add(30*time.Second))
	if err != nil {
		t.Fatalf("Observe returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 attempts, got %d", count)
	}
	if !oldest.Equal(base) {
		t.Fatalf("expected oldest %v, got %v", base, oldest)
	}

	// At base+65s the first attempt (base) has left the window.
	count, oldest, err = store.Observe(ctx, "login:10.0.0.1", window, base.Add(65*time.Second))
	if err != nil {
		t.Fatalf("Observe returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 attempts after trim, got %d", count)
	}
	if !oldest.Equal(base.Add(10 * time.Second)) {
		t.Fatalf("unexpected oldest %v", oldest)
	}

	if ttl := server.TTL("rl:login:10.0.0.1"); ttl <= 0 || ttl > window {
		t.Fatalf("expected ttl within window, got %v", ttl)
	}
}

func TestRateLimitStore_EmptyWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewRateLimitStore(client, "")

	count, oldest, err := store.Observe(context.Background(), "nobody", time.Minute, time.Now())
	if err != nil {
		t.Fatalf("Observe returned error: %v", err)
	}
	if count != 0 || !oldest.IsZero() {
		t.Fatalf("expected empty window, got %d %v", count, oldest)
	}

	if _, _, err := store.Observe(context.Background(), "nobody", 0, time.Now()); err == nil {
		t.Fatal("expected error for zero window")
	}
}
