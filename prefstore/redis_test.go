package prefstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestOpenRedisRejectsEmptyAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisOptions{Addr: "  "}); err == nil {
		t.Fatalf("expected error for empty address")
	}
}

// Requires a reachable server; set REDIS_ADDR (e.g. localhost:6379) to run.
func TestRedisRoundTripUsesPrefix(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	prefix := fmt.Sprintf("stationconsole-test-%d:", time.Now().UnixNano())
	store, err := OpenRedis(ctx, RedisOptions{Addr: addr, KeyPrefix: prefix})
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	defer store.Close()

	raw := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() {
		raw.Del(context.Background(), prefix+"selected")
		_ = raw.Close()
	})

	if _, ok, err := store.Get(ctx, "selected"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, "selected", "5448"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, err := store.Get(ctx, "selected"); err != nil || !ok || v != "5448" {
		t.Fatalf("expected 5448, got %q ok=%v err=%v", v, ok, err)
	}
	if v, err := raw.Get(ctx, prefix+"selected").Result(); err != nil || v != "5448" {
		t.Fatalf("expected value under %q, got %q err=%v", prefix+"selected", v, err)
	}
	if err := store.Set(ctx, "", "x"); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}
