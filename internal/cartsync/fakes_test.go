package cartsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type remoteCall struct {
	Op       string
	Key      Key
	Quantity int
}

// fakeRemote mirrors the server cart contract in memory: Upsert increments,
// Update sets, Delete is idempotent.
type fakeRemote struct {
	mu       sync.Mutex
	server   map[Key]Line
	calls    []remoteCall
	inflight map[Key]int
	maxIn    map[Key]int
	fetches  int

	fetchErr error
	callErr  map[string]error

	// gate, when set, blocks every write call until a value is received.
	gate chan struct{}
	// fetchGate blocks Fetch the same way.
	fetchGate chan struct{}
	// hangOnce makes the first write call block until its context ends.
	hangOnce bool
	started  chan remoteCall
}

func newFakeRemote(lines ...Line) *fakeRemote {
	f := &fakeRemote{
		server:   make(map[Key]Line),
		inflight: make(map[Key]int),
		maxIn:    make(map[Key]int),
		callErr:  make(map[string]error),
		started:  make(chan remoteCall, 64),
	}
	for _, line := range lines {
		f.server[line.Key()] = line
	}
	return f
}

func (f *fakeRemote) Fetch(ctx context.Context) ([]Line, error) {
	f.mu.Lock()
	f.fetches++
	gate := f.fetchGate
	f.mu.Unlock()
	f.started <- remoteCall{Op: OpFetch}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return sortedLines(f.server), nil
}

func (f *fakeRemote) Upsert(ctx context.Context, key Key, quantity int) error {
	return f.write(ctx, remoteCall{Op: OpUpsert, Key: key, Quantity: quantity}, func() {
		line := f.server[key]
		line.ProductID, line.VariantID = key.ProductID, key.VariantID
		line.Quantity += quantity
		f.server[key] = line
	})
}

func (f *fakeRemote) Update(ctx context.Context, key Key, quantity int) error {
	return f.write(ctx, remoteCall{Op: OpUpdate, Key: key, Quantity: quantity}, func() {
		line := f.server[key]
		line.ProductID, line.VariantID = key.ProductID, key.VariantID
		line.Quantity = quantity
		f.server[key] = line
	})
}

func (f *fakeRemote) Delete(ctx context.Context, key Key) error {
	return f.write(ctx, remoteCall{Op: OpDelete, Key: key}, func() {
		delete(f.server, key)
	})
}

func (f *fakeRemote) write(ctx context.Context, c remoteCall, mutate func()) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.inflight[c.Key]++
	if f.inflight[c.Key] > f.maxIn[c.Key] {
		f.maxIn[c.Key] = f.inflight[c.Key]
	}
	gate := f.gate
	hang := f.hangOnce
	f.hangOnce = false
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight[c.Key]--
		f.mu.Unlock()
	}()
	f.started <- c

	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.callErr[c.Op]; err != nil {
		return err
	}
	mutate()
	return nil
}

func (f *fakeRemote) quantities() map[Key]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[Key]int, len(f.server))
	for key, line := range f.server {
		out[key] = line.Quantity
	}
	return out
}

func (f *fakeRemote) recorded() []remoteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remoteCall(nil), f.calls...)
}

func (f *fakeRemote) maxInflight(key Key) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxIn[key]
}

func (f *fakeRemote) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

// memoryStore is a LocalStore kept in memory.
type memoryStore struct {
	mu      sync.Mutex
	lines   []Line
	saved   bool
	loadErr error
}

func (s *memoryStore) Load(context.Context) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return append([]Line(nil), s.lines...), nil
}

func (s *memoryStore) Save(_ context.Context, lines []Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append([]Line(nil), lines...)
	s.saved = true
	return nil
}

func (s *memoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	return nil
}

func (s *memoryStore) stored() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.lines...)
}

// countingObserver records observer callbacks.
type countingObserver struct {
	mu        sync.Mutex
	finished  map[string]int
	failed    map[string]int
	coalesced int
	loads     []string
}

func newCountingObserver() *countingObserver {
	return &countingObserver{finished: map[string]int{}, failed: map[string]int{}}
}

func (o *countingObserver) SyncFinished(op string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished[op]++
	if err != nil {
		o.failed[op]++
	}
}

func (o *countingObserver) SyncCoalesced(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.coalesced++
}

func (o *countingObserver) LoadFinished(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loads = append(o.loads, outcome)
}

func (o *countingObserver) lastLoad() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.loads) == 0 {
		return ""
	}
	return o.loads[len(o.loads)-1]
}

func newKey() Key {
	return Key{ProductID: uuid.New(), VariantID: uuid.New()}
}

func lineFor(key Key, name string, quantity int) Line {
	return Line{
		ProductID: key.ProductID,
		VariantID: key.VariantID,
		Quantity:  quantity,
		Display: Display{
			ProductName: name,
			VariantName: "500g",
			Price:       decimal.RequireFromString("250.00"),
		},
	}
}

func display(name string) Display {
	return Display{ProductName: name, VariantName: "500g", Price: decimal.RequireFromString("250.00")}
}

func waitIdle(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Wait(ctx); err != nil {
		t.Fatalf("engine did not settle: %v", err)
	}
}

func awaitCall(t *testing.T, f *fakeRemote) remoteCall {
	t.Helper()
	select {
	case c := <-f.started:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a remote call")
	}
	return remoteCall{}
}
