package cartsync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/flintflours/storefront-backend/pkg/types"
	"github.com/google/uuid"
)

// cartAPI is a minimal in-memory stand-in for the storefront cart endpoints.
type cartAPI struct {
	mu     sync.Mutex
	token  string
	lines  map[Key]Line
	hits   map[string]int
	failOn string
}

func newCartAPI(token string) *cartAPI {
	return &cartAPI{token: token, lines: map[Key]Line{}, hits: map[string]int{}}
}

func (a *cartAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hits[r.Method]++

	if r.URL.Path != cartPath {
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+a.token {
		writeEnvelope(w, http.StatusUnauthorized, types.ErrorEnvelope{Error: types.APIError{Code: "UNAUTHORIZED", Message: "authentication required"}})
		return
	}
	if a.failOn == r.Method {
		writeEnvelope(w, http.StatusServiceUnavailable, types.ErrorEnvelope{Error: types.APIError{Code: "DEPENDENCY_ERROR", Message: "dependency unavailable"}})
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeEnvelope(w, http.StatusOK, types.SuccessEnvelope{Data: CartItems{Items: sortedLines(a.lines)}})
	case http.MethodPost, http.MethodPut:
		var req LineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeEnvelope(w, http.StatusBadRequest, types.ErrorEnvelope{Error: types.APIError{Code: "VALIDATION_ERROR", Message: err.Error()}})
			return
		}
		key := Key{ProductID: uuid.MustParse(req.ProductID), VariantID: uuid.MustParse(req.VariantID)}
		line := a.lines[key]
		line.ProductID, line.VariantID = key.ProductID, key.VariantID
		if r.Method == http.MethodPost {
			line.Quantity += req.Quantity
		} else {
			line.Quantity = req.Quantity
		}
		a.lines[key] = line
		writeEnvelope(w, http.StatusOK, types.SuccessEnvelope{Data: map[string]bool{"success": true}})
	case http.MethodDelete:
		key := Key{
			ProductID: uuid.MustParse(r.URL.Query().Get("productId")),
			VariantID: uuid.MustParse(r.URL.Query().Get("variantId")),
		}
		delete(a.lines, key)
		writeEnvelope(w, http.StatusOK, types.SuccessEnvelope{Data: map[string]bool{"success": true}})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (a *cartAPI) quantities() map[Key]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := map[Key]int{}
	for k, l := range a.lines {
		out[k] = l.Quantity
	}
	return out
}

func writeEnvelope(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func wantAPIQuantities(t *testing.T, api *cartAPI, want map[Key]int) {
	t.Helper()
	if got := api.quantities(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected server cart %v, got %v", want, got)
	}
}

func TestHTTPRemoteOperations(t *testing.T) {
	api := newCartAPI("tok")
	srv := httptest.NewServer(api)
	defer srv.Close()

	ctx := context.Background()
	remote := NewHTTPRemote(srv.URL+"/", "tok", WithRemoteHTTPClient(srv.Client()))
	k := newKey()

	for _, qty := range []int{2, 1} {
		if err := remote.Upsert(ctx, k, qty); err != nil {
			t.Fatalf("upsert %d: %v", qty, err)
		}
	}
	wantAPIQuantities(t, api, map[Key]int{k: 3})

	if err := remote.Update(ctx, k, 7); err != nil {
		t.Fatalf("update: %v", err)
	}
	lines, err := remote.Fetch(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 7 {
		t.Fatalf("expected one line with quantity 7, got %+v", lines)
	}

	for i := 0; i < 2; i++ {
		if err := remote.Delete(ctx, k); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}
	wantAPIQuantities(t, api, map[Key]int{})
}

func TestHTTPRemoteDecodesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(newCartAPI("tok"))
	defer srv.Close()

	remote := NewHTTPRemote(srv.URL, "wrong")
	_, err := remote.Fetch(context.Background())

	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected *RemoteError, got %v", err)
	}
	if remoteErr.Status != http.StatusUnauthorized || remoteErr.Code != "UNAUTHORIZED" {
		t.Fatalf("expected 401 UNAUTHORIZED, got %d %s", remoteErr.Status, remoteErr.Code)
	}
}

func TestEngineOverHTTP(t *testing.T) {
	api := newCartAPI("tok")
	srv := httptest.NewServer(api)
	defer srv.Close()

	existing := newKey()
	api.lines[existing] = lineFor(existing, "Atta", 2)

	ctx := context.Background()
	store := NewFileStore(t.TempDir() + "/cart.json")
	anonymous := newKey()
	if err := store.Save(ctx, []Line{lineFor(anonymous, "Besan", 1)}); err != nil {
		t.Fatalf("seed local cart: %v", err)
	}

	e, err := New(Options{Local: store})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.SignIn(ctx, "user-1", NewHTTPRemote(srv.URL, "tok"))

	wantAPIQuantities(t, api, map[Key]int{existing: 2, anonymous: 1})

	e.AddLine(existing.ProductID, existing.VariantID, display("Atta"))
	e.SetQuantity(anonymous.ProductID, anonymous.VariantID, 0)
	waitIdle(t, e)
	wantAPIQuantities(t, api, map[Key]int{existing: 3})

	api.mu.Lock()
	api.failOn = http.MethodPut
	api.mu.Unlock()
	e.SetQuantity(existing.ProductID, existing.VariantID, 9)
	waitIdle(t, e)
	wantQuantity(t, e, existing, 9)
	wantAPIQuantities(t, api, map[Key]int{existing: 3})

	e.Refresh(ctx)
	wantQuantity(t, e, existing, 3)

	e.Clear(ctx)
	wantAPIQuantities(t, api, map[Key]int{})
	if got := e.TotalItemCount(); got != 0 {
		t.Fatalf("expected empty cart, got %d items", got)
	}
}
