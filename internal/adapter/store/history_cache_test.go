package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"pixelforge/internal/domain"
)

func newTestCache(t *testing.T) (*HistoryCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewHistoryCache(client), srv
}

func TestPushAndRecentNewestFirst(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		gen := domain.Generation{ID: fmt.Sprintf("gen-%d", i), Prompt: "a cat"}
		if err := cache.Push(ctx, gen); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	items, err := cache.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].ID != "gen-2" || items[2].ID != "gen-0" {
		t.Fatalf("order = [%s %s %s], want newest first", items[0].ID, items[1].ID, items[2].ID)
	}
}

func TestPushTrimsToSize(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < defaultLimit+10; i++ {
		if err := cache.Push(ctx, domain.Generation{ID: fmt.Sprintf("gen-%d", i)}); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	items, err := cache.Recent(ctx, defaultLimit*2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(items) != defaultLimit {
		t.Fatalf("got %d items, want trimmed to %d", len(items), defaultLimit)
	}
}

func TestRecentEmptyCacheIsMiss(t *testing.T) {
	cache, _ := newTestCache(t)
	items, err := cache.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if items != nil {
		t.Fatalf("items = %v, want nil miss", items)
	}
}

func TestRecentCorruptEntryInvalidates(t *testing.T) {
	cache, srv := newTestCache(t)
	ctx := context.Background()

	if err := cache.Push(ctx, domain.Generation{ID: "ok"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, err := srv.Lpush(recentKey, "{broken"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	items, err := cache.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if items != nil {
		t.Fatalf("items = %v, want miss after corruption", items)
	}
	if srv.Exists(recentKey) {
		t.Fatal("corrupt list should have been dropped")
	}
}

func TestInvalidateDropsList(t *testing.T) {
	cache, srv := newTestCache(t)
	ctx := context.Background()

	if err := cache.Push(ctx, domain.Generation{ID: "gen-1"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if srv.Exists(recentKey) {
		t.Fatal("key still present after invalidate")
	}
}

func TestNilCacheIsNoOp(t *testing.T) {
	var cache *HistoryCache
	ctx := context.Background()
	if err := cache.Push(ctx, domain.Generation{}); err != nil {
		t.Fatalf("push on nil cache: %v", err)
	}
	items, err := cache.Recent(ctx, 5)
	if err != nil || items != nil {
		t.Fatalf("recent on nil cache = (%v, %v), want (nil, nil)", items, err)
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate on nil cache: %v", err)
	}
}
