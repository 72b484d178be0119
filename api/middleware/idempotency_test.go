package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/flintflours/storefront-backend/pkg/errors"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key], _ = value.(string)
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key], _ = value.(string)
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func orderRequest(body, key string) *http.Request {
	req := requestWithPattern(http.MethodPost, "/api/v1/orders", "/api/v1/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestRetentionByRoute(t *testing.T) {
	g := &idempotencyGuard{ttl: time.Hour}
	tests := []struct {
		name    string
		method  string
		pattern string
		want    time.Duration
		ok      bool
	}{
		{"create order", http.MethodPost, "/api/v1/orders", 7 * time.Hour, true},
		{"verify payment", http.MethodPost, "/api/v1/orders/verify", 7 * time.Hour, true},
		{"start payment", http.MethodPost, "/api/v1/orders/{orderId}/payment", time.Hour, true},
		{"create review", http.MethodPost, "/api/v1/reviews", time.Hour, true},
		{"cart add", http.MethodPost, "/api/v1/cart", 0, false},
		{"list orders", http.MethodGet, "/api/v1/orders", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := g.retention(requestWithPattern(tt.method, "/x", tt.pattern, nil))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	called := false
	handler := Idempotency(newFakeStore(), nil, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, orderRequest(`{"addressId":"x"}`, ""))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.False(t, called)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	var calls int
	handler := Idempotency(newFakeStore(), nil, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, orderRequest(`{"a":1}`, "abc"))
	require.Equal(t, http.StatusCreated, first.Code)

	again := httptest.NewRecorder()
	handler.ServeHTTP(again, orderRequest(`{"a":1}`, "abc"))
	assert.Equal(t, http.StatusCreated, again.Code)
	assert.Equal(t, "application/json", again.Header().Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, strings.TrimSpace(again.Body.String()))
	assert.Equal(t, "true", again.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, calls)
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	handler := Idempotency(newFakeStore(), nil, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{"a":1}`, "xyz"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, orderRequest(`{"a":2}`, "xyz"))

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, resp))
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newFakeStore()
	entered := make(chan struct{})
	release := make(chan struct{})
	handler := Idempotency(store, nil, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusCreated)
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{"a":1}`, "dup"))
	}()
	<-entered

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, orderRequest(`{"a":1}`, "dup"))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, resp))

	close(release)
	<-done
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	var calls int
	handler := Idempotency(newFakeStore(), nil, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, orderRequest(`{"a":1}`, "retry"))
	assert.Equal(t, http.StatusServiceUnavailable, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, orderRequest(`{"a":1}`, "retry"))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	var calls int
	handler := Idempotency(newFakeStore(), nil, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for _, user := range []string{"user-a", "user-b"} {
		req := orderRequest(`{"a":1}`, "shared")
		req = req.WithContext(context.WithValue(req.Context(), ctxUserID, user))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)
}
