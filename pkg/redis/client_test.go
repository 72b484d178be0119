package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flintflours/storefront-backend/pkg/config"
)

func TestSetGetDelLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := NewMockCmdable()
	client := NewFromCmdable(mock)

	if err := client.Set(ctx, "flint:k", "v", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if mock.TTLs["flint:k"] != time.Minute {
		t.Fatalf("expected ttl recorded, got %v", mock.TTLs["flint:k"])
	}
	got, err := client.Get(ctx, "flint:k")
	if err != nil || got != "v" {
		t.Fatalf("unexpected get %q err=%v", got, err)
	}
	if err := client.Del(ctx, "flint:k"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "flint:k"); !IsNil(err) {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestSetNXOnlyOnce(t *testing.T) {
	ctx := context.Background()
	client := NewFromCmdable(NewMockCmdable())

	ok, err := client.SetNX(ctx, "k", "first", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "k", "second", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second SetNX to lose, ok=%v err=%v", ok, err)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	var client *Client
	if err := client.Ping(context.Background()); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on nil client should be a no-op, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "flint:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.LocalCartKey("default"); got != "flint:cart:local:default" {
		t.Fatalf("unexpected local cart key %s", got)
	}
	if got := client.IdempotencyKey("", "id"); got != "flint:idempotency:id" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatalf("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/3", PoolSize: 7, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 3 || opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
}

var _ Cmdable = (*MockCmdable)(nil)

func TestMockCmdablePing(t *testing.T) {
	if err := NewFromCmdable(NewMockCmdable()).Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
	_ = fmt.Sprint(redis.Nil)
}
