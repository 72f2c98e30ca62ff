package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func providers(t *testing.T) map[string]TagCache {
	t.Helper()

	mem, err := NewMemCache(8)
	if err != nil {
		t.Fatalf("Could not create mem cache: %v", err)
	}

	sqlite, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Could not create sqlite cache: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rc := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { rc.Close() })

	return map[string]TagCache{
		"memory": mem,
		"sqlite": sqlite,
		"redis":  rc,
	}
}

func TestSetThenGetIsFresh(t *testing.T) {
	ctx := context.Background()
	for name, c := range providers(t) {
		t.Run(name, func(t *testing.T) {
			if err := c.Set(ctx, "randomWiki", []byte("hello"), time.Minute); err != nil {
				t.Fatalf("Set: %v", err)
			}
			entry, ok, err := c.Get(ctx, "randomWiki")
			if err != nil || !ok {
				t.Fatalf("Get: ok=%v err=%v", ok, err)
			}
			if string(entry.Value) != "hello" {
				t.Fatalf("Value is %s", entry.Value)
			}
			if entry.Stale(time.Now()) {
				t.Fatalf("Entry is stale right after set: %+v", entry)
			}
			if ttl := entry.TimeToLive(time.Now()); ttl <= 0 || ttl > time.Minute {
				t.Fatalf("TTL is %s", ttl)
			}
		})
	}
}

func TestMissingTag(t *testing.T) {
	ctx := context.Background()
	for name, c := range providers(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := c.Get(ctx, "nothing-here"); ok || err != nil {
				t.Fatalf("Get: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestExpiredEntryIsStillReturned(t *testing.T) {
	ctx := context.Background()
	for name, c := range providers(t) {
		t.Run(name, func(t *testing.T) {
			if err := c.Set(ctx, "short", []byte("old"), time.Millisecond); err != nil {
				t.Fatalf("Set: %v", err)
			}
			time.Sleep(10 * time.Millisecond)
			entry, ok, err := c.Get(ctx, "short")
			if err != nil || !ok {
				t.Fatalf("Get: ok=%v err=%v", ok, err)
			}
			if !entry.Stale(time.Now()) {
				t.Fatalf("Entry should be stale: %+v", entry)
			}
			if string(entry.Value) != "old" {
				t.Fatalf("Value is %s", entry.Value)
			}
		})
	}
}

// TestInvalidate checks the full lifecycle of an invalidated tag:
// 1. A fresh entry becomes stale once invalidated, before its ttl runs out.
// 2. The stale value is still there to be served.
// 3. Storing a new value makes the tag fresh again.
func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	for name, c := range providers(t) {
		t.Run(name, func(t *testing.T) {
			if err := c.Set(ctx, "randomWiki", []byte("v1"), time.Hour); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := c.Invalidate(ctx, "randomWiki"); err != nil {
				t.Fatalf("Invalidate: %v", err)
			}
			entry, ok, _ := c.Get(ctx, "randomWiki")
			if !ok || !entry.Invalidated || !entry.Stale(time.Now()) {
				t.Fatalf("Entry not invalidated: %+v", entry)
			}
			if string(entry.Value) != "v1" {
				t.Fatalf("Value is %s", entry.Value)
			}
			if err := c.Set(ctx, "randomWiki", []byte("v2"), time.Hour); err != nil {
				t.Fatalf("Set: %v", err)
			}
			entry, _, _ = c.Get(ctx, "randomWiki")
			if entry.Stale(time.Now()) || string(entry.Value) != "v2" {
				t.Fatalf("Entry after refresh: %+v", entry)
			}
		})
	}
}

func TestInvalidateUnknownTagDoesNotCreateIt(t *testing.T) {
	ctx := context.Background()
	for name, c := range providers(t) {
		t.Run(name, func(t *testing.T) {
			if err := c.Invalidate(ctx, "unknown"); err != nil {
				t.Fatalf("Invalidate: %v", err)
			}
			if _, ok, _ := c.Get(ctx, "unknown"); ok {
				t.Fatal("Invalidate created an entry")
			}
		})
	}
}

func TestMemCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c, _ := NewMemCache(2)
	c.Set(ctx, "a", []byte("a"), time.Minute)
	c.Set(ctx, "b", []byte("b"), time.Minute)
	c.Get(ctx, "a")
	c.Set(ctx, "c", []byte("c"), time.Minute)

	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatal("a should still be stored")
	}
}
