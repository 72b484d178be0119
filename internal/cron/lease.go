package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgredis "github.com/flintflours/storefront-backend/pkg/redis"
)

const defaultLeaseTTL = 30 * time.Minute

// Locker grants one worker at a time the right to run a cycle.
type Locker interface {
	TryAcquire(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLease is a SETNX lease keyed by a per-environment key. The value is a
// random token so a worker never deletes a lease another worker took over
// after expiry.
type RedisLease struct {
	store leaseStore
	key   string
	ttl   time.Duration
}

func NewRedisLease(store leaseStore, key string, ttl time.Duration) (*RedisLease, error) {
	if store == nil {
		return nil, errors.New("lease store required")
	}
	if key == "" {
		return nil, errors.New("lease key required")
	}
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &RedisLease{store: store, key: key, ttl: ttl}, nil
}

// LeaseKey names the worker lease for an environment.
func LeaseKey(env string) string {
	if env == "" {
		env = "dev"
	}
	return "flint:cron-worker:lock:" + env
}

func (l *RedisLease) TryAcquire(ctx context.Context) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		current, err := l.store.Get(ctx, l.key)
		if pkgredis.IsNil(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read lease: %w", err)
		}
		if current != token {
			return nil
		}
		if err := l.store.Del(ctx, l.key); err != nil {
			return fmt.Errorf("release lease: %w", err)
		}
		return nil
	}
	return release, true, nil
}
