package cartsync

import (
	"context"
	"fmt"
	"time"

	"github.com/flintflours/storefront-backend/pkg/redis"
)

// RedisStore keeps the local cart under a namespaced redis key, for clients
// whose state should outlive the machine they run on.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore scopes the stored cart to profile. A zero ttl keeps it forever.
func NewRedisStore(client *redis.Client, profile string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, key: client.LocalCartKey(profile), ttl: ttl}
}

func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) Load(ctx context.Context) ([]Line, error) {
	raw, err := s.client.Get(ctx, s.key)
	if redis.IsNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local cart: %w", err)
	}
	return decodeLines([]byte(raw))
}

func (s *RedisStore) Save(ctx context.Context, lines []Line) error {
	payload, err := encodeLines(lines)
	if err != nil {
		return fmt.Errorf("encode local cart: %w", err)
	}
	if err := s.client.Set(ctx, s.key, payload, s.ttl); err != nil {
		return fmt.Errorf("write local cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key); err != nil {
		return fmt.Errorf("remove local cart: %w", err)
	}
	return nil
}
