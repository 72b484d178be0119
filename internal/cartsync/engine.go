package cartsync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/flintflours/storefront-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
)

// DefaultSyncTimeout bounds every server call made by the engine.
const DefaultSyncTimeout = 10 * time.Second

// Server call names reported to the Observer.
const (
	OpFetch  = "fetch"
	OpUpsert = "upsert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Load outcomes reported to the Observer.
const (
	LoadLocal         = "local"
	LoadMerged        = "merged"
	LoadFallback      = "fallback"
	LoadRefreshed     = "refreshed"
	LoadRefreshFailed = "refresh_failed"
)

// Remote is the server-persisted cart of the signed-in shopper.
type Remote interface {
	Fetch(ctx context.Context) ([]Line, error)
	// Upsert adds quantity to the line, creating it when absent.
	Upsert(ctx context.Context, key Key, quantity int) error
	// Update sets the absolute quantity. Callers never pass quantity <= 0.
	Update(ctx context.Context, key Key, quantity int) error
	// Delete is idempotent.
	Delete(ctx context.Context, key Key) error
}

// Observer receives sync activity. pkg/metrics.CartSync implements it.
type Observer interface {
	SyncFinished(op string, err error, d time.Duration)
	SyncCoalesced(op string)
	LoadFinished(outcome string)
}

type nopObserver struct{}

func (nopObserver) SyncFinished(string, error, time.Duration) {}
func (nopObserver) SyncCoalesced(string)                      {}
func (nopObserver) LoadFinished(string)                       {}

type Options struct {
	Local       LocalStore
	Logger      *logger.Logger
	Observer    Observer
	SyncTimeout time.Duration
}

type mutationKind string

const (
	mutationAdd    mutationKind = "add"
	mutationSet    mutationKind = "set"
	mutationRemove mutationKind = "remove"
	mutationClear  mutationKind = "clear"
)

type mutation struct {
	kind     mutationKind
	key      Key
	quantity int
	display  Display
}

// apply is the synchronous state transition for one mutation.
func apply(lines map[Key]Line, m mutation) {
	switch m.kind {
	case mutationAdd:
		line, ok := lines[m.key]
		if !ok {
			line = Line{ProductID: m.key.ProductID, VariantID: m.key.VariantID, Display: m.display}
		}
		line.Quantity++
		lines[m.key] = line
	case mutationSet:
		if m.quantity <= 0 {
			delete(lines, m.key)
			return
		}
		if line, ok := lines[m.key]; ok {
			line.Quantity = m.quantity
			lines[m.key] = line
		}
	case mutationRemove:
		delete(lines, m.key)
	case mutationClear:
		for key := range lines {
			delete(lines, key)
		}
	}
}

type task struct {
	dirty bool
	err   error
	done  chan struct{}
}

// Engine keeps one shopper's cart consistent between memory, local storage
// and, once signed in, the server cart. Mutations update memory and local
// storage synchronously; server calls run in per-key background tasks with at
// most one outstanding call per key.
type Engine struct {
	local   LocalStore
	logg    *logger.Logger
	obs     Observer
	timeout time.Duration
	loads   singleflight.Group

	mu       sync.Mutex
	lines    map[Key]Line
	identity string
	remote   Remote
	gen      uint64
	// known holds server quantities as last confirmed by a fetch or a call.
	known map[Key]int
	// stale keys had a failed call; their server state is unknown.
	stale map[Key]struct{}
	tasks map[Key]*task

	loading bool
	replay  []mutation
	held    map[Key]struct{}

	pending int
	idle    chan struct{}
}

func New(opts Options) (*Engine, error) {
	if opts.Local == nil {
		return nil, errors.New("cartsync: local store is required")
	}
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	timeout := opts.SyncTimeout
	if timeout <= 0 {
		timeout = DefaultSyncTimeout
	}
	idle := make(chan struct{})
	close(idle)
	return &Engine{
		local:   opts.Local,
		logg:    opts.Logger,
		obs:     obs,
		timeout: timeout,
		lines:   make(map[Key]Line),
		known:   make(map[Key]int),
		stale:   make(map[Key]struct{}),
		tasks:   make(map[Key]*task),
		idle:    idle,
	}, nil
}

// Identity returns the signed-in user, or "" when anonymous.
func (e *Engine) Identity() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identity
}

// SignIn establishes an authenticated identity and merges the current cart
// with the server cart. Only an anonymous cart is carried into the merge;
// switching from one signed-in identity to another starts from an empty cart.
func (e *Engine) SignIn(ctx context.Context, identity string, remote Remote) {
	e.mu.Lock()
	switching := e.identity != "" && e.identity != identity
	e.resetSessionLocked()
	if switching {
		e.lines = make(map[Key]Line)
		if err := e.local.Clear(ctx); err != nil {
			e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "clear local cart on identity switch failed")
		}
	}
	e.identity = identity
	e.remote = remote
	e.mu.Unlock()

	e.Load(ctx)
}

// SignOut forgets the identity and wipes memory and local storage. The server
// cart is left untouched for the next sign-in.
func (e *Engine) SignOut(ctx context.Context) {
	e.mu.Lock()
	e.resetSessionLocked()
	e.identity = ""
	e.remote = nil
	e.lines = make(map[Key]Line)
	e.mu.Unlock()

	if err := e.local.Clear(ctx); err != nil {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "clear local cart on sign-out failed")
	}
}

// resetSessionLocked detaches running tasks from the engine state. Tasks of a
// previous generation finish their call but discard the result.
func (e *Engine) resetSessionLocked() {
	e.gen++
	e.known = make(map[Key]int)
	e.stale = make(map[Key]struct{})
	e.tasks = make(map[Key]*task)
	e.loading = false
	e.replay = nil
	e.held = nil
}

// Load hydrates the cart from local storage and, when signed in, merges it
// with the server cart and pushes the difference. Overlapping calls for the
// same identity join the running load.
func (e *Engine) Load(ctx context.Context) {
	e.mu.Lock()
	gen := e.gen
	e.mu.Unlock()

	ch := e.loads.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		e.load(context.WithoutCancel(ctx), gen, false)
		return nil, nil
	})
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

// Refresh replaces the cart with the server cart. Anonymous carts are left alone.
func (e *Engine) Refresh(ctx context.Context) {
	e.mu.Lock()
	gen := e.gen
	signedIn := e.remote != nil
	e.mu.Unlock()
	if !signedIn {
		return
	}

	ch := e.loads.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		e.load(context.WithoutCancel(ctx), gen, true)
		return nil, nil
	})
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

func (e *Engine) load(ctx context.Context, gen uint64, refresh bool) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	snapshot := make(map[Key]Line, len(e.lines))
	for key, line := range e.lines {
		snapshot[key] = line
	}
	remote := e.remote
	e.loading = true
	e.replay = nil
	e.held = make(map[Key]struct{})
	e.mu.Unlock()

	var base map[Key]Line
	if refresh {
		base = snapshot
	} else {
		base = e.readLocal(ctx)
		for key, line := range snapshot {
			base[key] = line
		}
	}

	var (
		server   []Line
		fetchErr error
	)
	if remote != nil {
		server, fetchErr = e.fetch(ctx, remote)
	}

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}

	var outcome string
	push := make(map[Key]struct{})
	switch {
	case remote == nil:
		outcome = LoadLocal
	case fetchErr != nil:
		if refresh {
			outcome = LoadRefreshFailed
		} else {
			outcome = LoadFallback
		}
		for key := range base {
			e.stale[key] = struct{}{}
		}
		e.logg.Warn(e.logg.WithField(ctx, "error", fetchErr.Error()), "fetch server cart failed; keeping local cart")
	default:
		e.known = make(map[Key]int, len(server))
		e.stale = make(map[Key]struct{})
		for _, line := range server {
			if line.Quantity > 0 {
				e.known[line.Key()] = line.Quantity
			}
		}
		if refresh {
			outcome = LoadRefreshed
			base = linesToMap(server)
		} else {
			outcome = LoadMerged
			base = linesToMap(Merge(server, sortedLines(base)))
			for _, change := range Delta(server, sortedLines(base)) {
				push[change.Key] = struct{}{}
			}
		}
	}

	for _, m := range e.replay {
		apply(base, m)
	}
	e.lines = base
	for key := range e.held {
		push[key] = struct{}{}
	}
	// lines removed by replayed mutations still exist server-side
	for key := range e.known {
		if _, ok := base[key]; !ok {
			push[key] = struct{}{}
		}
	}
	e.loading = false
	e.replay = nil
	e.held = nil
	e.saveLocked(ctx)

	waits := make([]*task, 0, len(push))
	for key := range push {
		if t := e.dispatchLocked(key, "load"); t != nil {
			waits = append(waits, t)
		}
	}
	e.mu.Unlock()

	for _, t := range waits {
		<-t.done
	}
	e.obs.LoadFinished(outcome)
}

// readLocal never fails: unreadable or corrupt data is logged and treated as
// an empty cart.
func (e *Engine) readLocal(ctx context.Context) map[Key]Line {
	lines, err := e.local.Load(ctx)
	if err != nil {
		msg := "read local cart failed"
		if errors.Is(err, ErrCorruptLocalCart) {
			msg = "local cart is corrupt; starting empty"
		}
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), msg)
		return make(map[Key]Line)
	}
	return linesToMap(lines)
}

// AddLine increments the line, inserting it with quantity 1 when absent.
func (e *Engine) AddLine(productID, variantID uuid.UUID, display Display) {
	e.mutate(mutation{kind: mutationAdd, key: Key{ProductID: productID, VariantID: variantID}, display: display})
}

// SetQuantity sets an absolute quantity; quantity <= 0 removes the line.
// Setting a quantity on a line that is not in the cart does nothing.
func (e *Engine) SetQuantity(productID, variantID uuid.UUID, quantity int) {
	kind := mutationSet
	if quantity <= 0 {
		kind = mutationRemove
	}
	e.mutate(mutation{kind: kind, key: Key{ProductID: productID, VariantID: variantID}, quantity: quantity})
}

// RemoveLine deletes the line. Removing an absent line is a no-op.
func (e *Engine) RemoveLine(productID, variantID uuid.UUID) {
	e.mutate(mutation{kind: mutationRemove, key: Key{ProductID: productID, VariantID: variantID}})
}

func (e *Engine) mutate(m mutation) {
	ctx := context.Background()
	e.mu.Lock()
	defer e.mu.Unlock()

	_, existed := e.lines[m.key]
	apply(e.lines, m)
	_, exists := e.lines[m.key]
	if !existed && !exists {
		return
	}

	e.saveLocked(ctx)
	if e.loading {
		e.replay = append(e.replay, m)
		e.held[m.key] = struct{}{}
		return
	}
	e.dispatchLocked(m.key, string(m.kind))
}

// Clear empties the cart in memory and local storage and, when signed in,
// deletes every server line one by one. The server cart is re-fetched first so
// lines added from another device are deleted too. Failed deletes are logged
// together.
func (e *Engine) Clear(ctx context.Context) {
	e.mu.Lock()
	keys := make(map[Key]struct{}, len(e.lines)+len(e.known))
	for key := range e.lines {
		keys[key] = struct{}{}
	}
	for key := range e.known {
		keys[key] = struct{}{}
	}
	for key := range e.stale {
		keys[key] = struct{}{}
	}
	apply(e.lines, mutation{kind: mutationClear})
	if err := e.local.Clear(ctx); err != nil {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "clear local cart failed")
	}
	if e.loading {
		e.replay = append(e.replay, mutation{kind: mutationClear})
		for key := range keys {
			e.held[key] = struct{}{}
		}
		e.mu.Unlock()
		return
	}
	if remote := e.remote; remote != nil {
		gen := e.gen
		e.mu.Unlock()
		server, err := e.fetch(ctx, remote)
		e.mu.Lock()
		if gen != e.gen {
			e.mu.Unlock()
			return
		}
		if err != nil {
			e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "fetch server cart before clear failed; deleting known lines only")
		}
		for _, line := range server {
			key := line.Key()
			if _, ok := e.known[key]; !ok && line.Quantity > 0 {
				e.known[key] = line.Quantity
			}
			keys[key] = struct{}{}
		}
		if e.loading {
			for key := range keys {
				e.held[key] = struct{}{}
			}
			e.mu.Unlock()
			return
		}
	}
	waits := make([]*task, 0, len(keys))
	for key := range keys {
		if t := e.dispatchLocked(key, string(mutationClear)); t != nil {
			waits = append(waits, t)
		}
	}
	e.mu.Unlock()

	var errs error
	for _, t := range waits {
		select {
		case <-t.done:
			errs = multierr.Append(errs, t.err)
		case <-ctx.Done():
			errs = multierr.Append(errs, ctx.Err())
		}
	}
	if errs != nil {
		fields := map[string]any{
			"failed": len(multierr.Errors(errs)),
			"error":  errs.Error(),
		}
		e.logg.Warn(e.logg.WithFields(ctx, fields), "server cart only partially cleared")
	}
}

// QuantityOf returns 0 for absent lines.
func (e *Engine) QuantityOf(productID, variantID uuid.UUID) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lines[Key{ProductID: productID, VariantID: variantID}].Quantity
}

func (e *Engine) TotalItemCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, line := range e.lines {
		total += line.Quantity
	}
	return total
}

// Lines returns a copy of the cart ordered by product and variant name.
func (e *Engine) Lines() []Line {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sortedLines(e.lines)
}

// Wait blocks until every dispatched sync task has finished.
func (e *Engine) Wait(ctx context.Context) error {
	e.mu.Lock()
	idle := e.idle
	e.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) saveLocked(ctx context.Context) {
	if err := e.local.Save(ctx, sortedLines(e.lines)); err != nil {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "save local cart failed")
	}
}

// dispatchLocked starts a sync task for key, or folds the request into the
// task already running for it. Anonymous carts are never synced.
func (e *Engine) dispatchLocked(key Key, reason string) *task {
	if e.remote == nil {
		return nil
	}
	if t, ok := e.tasks[key]; ok {
		t.dirty = true
		e.obs.SyncCoalesced(reason)
		return t
	}
	t := &task{done: make(chan struct{})}
	e.tasks[key] = t
	if e.pending == 0 {
		e.idle = make(chan struct{})
	}
	e.pending++
	go e.run(key, t, e.gen, e.remote)
	return t
}

func (e *Engine) run(key Key, t *task, gen uint64, remote Remote) {
	ctx := e.logg.WithFields(context.Background(), map[string]any{
		"product_id": key.ProductID.String(),
		"variant_id": key.VariantID.String(),
	})
	defer e.finish(key, t)

	for {
		e.mu.Lock()
		if gen != e.gen {
			e.mu.Unlock()
			return
		}
		t.dirty = false
		op, quantity := e.planLocked(key)
		e.mu.Unlock()
		if op == "" {
			return
		}

		err := e.call(ctx, remote, op, key, quantity)

		e.mu.Lock()
		if gen != e.gen {
			e.mu.Unlock()
			return
		}
		t.err = err
		if err != nil {
			e.stale[key] = struct{}{}
			e.logg.Warn(e.logg.WithFields(ctx, map[string]any{"op": op, "error": err.Error()}), "cart sync failed")
		} else {
			delete(e.stale, key)
			if op == OpDelete {
				delete(e.known, key)
			} else {
				e.known[key] = quantity
			}
		}
		again := t.dirty
		e.mu.Unlock()
		if !again {
			return
		}
	}
}

// planLocked picks the single call that converges key from what the server is
// known to hold to the current line.
func (e *Engine) planLocked(key Key) (string, int) {
	line, present := e.lines[key]
	serverQty, onServer := e.known[key]
	_, uncertain := e.stale[key]

	switch {
	case !present && (onServer || uncertain):
		return OpDelete, 0
	case !present:
		return "", 0
	case uncertain:
		return OpUpdate, line.Quantity
	case !onServer:
		return OpUpsert, line.Quantity
	case serverQty != line.Quantity:
		return OpUpdate, line.Quantity
	}
	return "", 0
}

func (e *Engine) fetch(parent context.Context, remote Remote) ([]Line, error) {
	ctx, cancel := context.WithTimeout(parent, e.timeout)
	defer cancel()
	start := time.Now()
	lines, err := remote.Fetch(ctx)
	e.obs.SyncFinished(OpFetch, err, time.Since(start))
	return lines, err
}

func (e *Engine) call(parent context.Context, remote Remote, op string, key Key, quantity int) error {
	ctx, cancel := context.WithTimeout(parent, e.timeout)
	defer cancel()

	start := time.Now()
	var err error
	switch op {
	case OpUpsert:
		err = remote.Upsert(ctx, key, quantity)
	case OpUpdate:
		err = remote.Update(ctx, key, quantity)
	case OpDelete:
		err = remote.Delete(ctx, key)
	default:
		err = fmt.Errorf("unknown sync op %q", op)
	}
	e.obs.SyncFinished(op, err, time.Since(start))
	return err
}

func (e *Engine) finish(key Key, t *task) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tasks[key] == t {
		delete(e.tasks, key)
	}
	close(t.done)
	e.pending--
	if e.pending == 0 {
		close(e.idle)
	}
}
