package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockCmdable is an in-memory Cmdable for tests in other packages.
type MockCmdable struct {
	mu   sync.Mutex
	Data map[string]string
	TTLs map[string]time.Duration
	// Err, when set, is returned by every command.
	Err error
}

func NewMockCmdable() *MockCmdable {
	return &MockCmdable{
		Data: make(map[string]string),
		TTLs: make(map[string]time.Duration),
	}
}

func (m *MockCmdable) Ping(context.Context) *redis.StatusCmd {
	if m.Err != nil {
		return redis.NewStatusResult("", m.Err)
	}
	return redis.NewStatusResult("PONG", nil)
}

func (m *MockCmdable) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return redis.NewStatusResult("", m.Err)
	}
	m.Data[key] = stringify(value)
	m.TTLs[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (m *MockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return redis.NewStringResult("", m.Err)
	}
	v, ok := m.Data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *MockCmdable) SetNX(_ context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return redis.NewBoolResult(false, m.Err)
	}
	if _, exists := m.Data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.Data[key] = stringify(value)
	m.TTLs[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (m *MockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return redis.NewIntResult(0, m.Err)
	}
	var n int64
	for _, key := range keys {
		if _, ok := m.Data[key]; ok {
			n++
		}
		delete(m.Data, key)
		delete(m.TTLs, key)
	}
	return redis.NewIntResult(n, nil)
}

func stringify(value any) string {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
