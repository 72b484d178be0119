package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flintflours/storefront-backend/api/responses"
	pkgerrors "github.com/flintflours/storefront-backend/pkg/errors"
	"github.com/flintflours/storefront-backend/pkg/logger"
	pkgredis "github.com/flintflours/storefront-backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	fallbackIdempotencyTTL = 24 * time.Hour
	pendingIdempotencyTTL  = 2 * time.Minute
)

// extendedRetention multiplies the TTL for order writes.
const extendedRetention = 7

// idempotentRoutes lists "METHOD chi-pattern" keys. A true value marks routes
// whose replies are retained for extendedRetention times the base TTL.
var idempotentRoutes = map[string]bool{
	"POST /api/v1/addresses":                false,
	"POST /api/v1/reviews":                  false,
	"POST /api/v1/orders/{orderId}/payment": false,
	"POST /api/v1/orders":                   true,
	"POST /api/v1/orders/verify":            true,
}

type storedReply struct {
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
	ttl   time.Duration
}

// Idempotency replays the stored reply for a repeated Idempotency-Key on the
// routes in idempotentRoutes. It must run after Auth so keys are scoped to the
// shopper. While the first request is running a duplicate gets CONFLICT; a
// reused key with a different body gets IDEMPOTENCY_ERROR. 5xx replies are not
// stored so the client may retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger, ttl time.Duration) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = fallbackIdempotencyTTL
	}
	g := &idempotencyGuard{store: store, logg: logg, ttl: ttl}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			retention, ok := g.retention(r)
			if !ok || g.store == nil {
				next.ServeHTTP(w, r)
				return
			}
			g.serve(w, r, next, retention)
		})
	}
}

func (g *idempotencyGuard) retention(r *http.Request) (time.Duration, bool) {
	extended, ok := idempotentRoutes[r.Method+" "+routePattern(r)]
	if !ok {
		return 0, false
	}
	if extended {
		return g.ttl * extendedRetention, true
	}
	return g.ttl, true
}

func (g *idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler, retention time.Duration) {
	ctx := r.Context()
	clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if clientKey == "" {
		g.fail(ctx, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyHeader+" header required"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		g.fail(ctx, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	sum := sha256.Sum256(body)
	fingerprint := hex.EncodeToString(sum[:])
	key := g.store.IdempotencyKey(UserIDFromContext(ctx)+"|"+r.Method+"|"+r.URL.Path, clientKey)

	raw, err := g.store.Get(ctx, key)
	switch {
	case err == nil:
		g.replay(ctx, w, raw, fingerprint)
		return
	case !pkgredis.IsNil(err):
		g.fail(ctx, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key"))
		return
	}

	marker, _ := json.Marshal(storedReply{Pending: true, Fingerprint: fingerprint})
	reserved, err := g.store.SetNX(ctx, key, string(marker), pendingIdempotencyTTL)
	if err != nil {
		g.fail(ctx, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
		return
	}
	if !reserved {
		g.fail(ctx, w, errInFlight())
		return
	}

	capture := &replyCapture{ResponseWriter: w, status: http.StatusOK}
	next.ServeHTTP(capture, r)

	// the reply is already on the wire; store it even if the client went away
	bg := context.WithoutCancel(ctx)
	if capture.status >= http.StatusInternalServerError {
		if err := g.store.Del(bg, key); err != nil {
			g.logError(ctx, "release idempotency key", err)
		}
		return
	}
	payload, err := json.Marshal(storedReply{
		Status:      capture.status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
		Fingerprint: fingerprint,
	})
	if err != nil {
		g.logError(ctx, "encode idempotent reply", err)
		return
	}
	if err := g.store.Set(bg, key, string(payload), retention); err != nil {
		g.logError(ctx, "store idempotent reply", err)
	}
}

func (g *idempotencyGuard) replay(ctx context.Context, w http.ResponseWriter, raw, fingerprint string) {
	var reply storedReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		g.fail(ctx, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotent reply"))
		return
	}
	if reply.Fingerprint != fingerprint {
		g.fail(ctx, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request body"))
		return
	}
	if reply.Pending {
		g.fail(ctx, w, errInFlight())
		return
	}
	if reply.ContentType != "" {
		w.Header().Set("Content-Type", reply.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(reply.Status)
	_, _ = w.Write(reply.Body)
}

func (g *idempotencyGuard) fail(ctx context.Context, w http.ResponseWriter, err error) {
	responses.WriteError(ctx, g.logg, w, err)
}

func (g *idempotencyGuard) logError(ctx context.Context, msg string, err error) {
	if g.logg != nil {
		g.logg.Error(ctx, msg, err)
	}
}

func errInFlight() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "a request with this idempotency key is still in progress")
}

// routePattern prefers the matched chi pattern so path params collapse.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

type replyCapture struct {
	http.ResponseWriter
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func (c *replyCapture) WriteHeader(code int) {
	if !c.wroteHeader {
		c.status = code
		c.wroteHeader = true
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *replyCapture) Write(b []byte) (int, error) {
	c.wroteHeader = true
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
