package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/flintflours/storefront-backend/api/middleware"
	"github.com/flintflours/storefront-backend/internal/address"
	cartsvc "github.com/flintflours/storefront-backend/internal/cart"
	"github.com/flintflours/storefront-backend/internal/orders"
	productsvc "github.com/flintflours/storefront-backend/internal/products"
	"github.com/flintflours/storefront-backend/internal/reviews"
	"github.com/flintflours/storefront-backend/pkg/auth"
	"github.com/flintflours/storefront-backend/pkg/db/models"
	pkgerrors "github.com/flintflours/storefront-backend/pkg/errors"
	"github.com/flintflours/storefront-backend/pkg/logger"
	"github.com/flintflours/storefront-backend/pkg/pagination"
	"github.com/flintflours/storefront-backend/pkg/types"
)

var errNotStubbed = errors.New("not stubbed")

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func asUser(ctx context.Context, id uuid.UUID) context.Context {
	return middleware.WithIdentity(ctx, auth.Identity{UserID: id, Email: "asha.rao@example.com", Role: "authenticated"})
}

func withURLParam(ctx context.Context, key, value string) context.Context {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, rc)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var env types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env.Error
}

type stubProducts struct {
	filters productsvc.ListFilters
	list    []productsvc.ProductDTO
	bySlug  map[string]productsvc.ProductDTO
}

func (s *stubProducts) List(_ context.Context, f productsvc.ListFilters) ([]productsvc.ProductDTO, error) {
	s.filters = f
	return s.list, nil
}

func (s *stubProducts) GetBySlug(_ context.Context, slug string) (*productsvc.ProductDTO, error) {
	p, ok := s.bySlug[slug]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &p, nil
}

func (s *stubProducts) GetVariant(context.Context, uuid.UUID, uuid.UUID) (*models.ProductVariant, error) {
	return nil, errNotStubbed
}

type stubCart struct {
	lines   map[uuid.UUID][]cartsvc.LineDTO
	added   []cartsvc.LineInput
	set     []cartsvc.LineInput
	removed [][2]uuid.UUID
	addErr  error
}

func (s *stubCart) List(_ context.Context, userID uuid.UUID) ([]cartsvc.LineDTO, error) {
	return s.lines[userID], nil
}

func (s *stubCart) Add(_ context.Context, _ uuid.UUID, in cartsvc.LineInput) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.added = append(s.added, in)
	return nil
}

func (s *stubCart) SetQuantity(_ context.Context, _ uuid.UUID, in cartsvc.LineInput) error {
	s.set = append(s.set, in)
	return nil
}

func (s *stubCart) Remove(_ context.Context, _ uuid.UUID, productID, variantID uuid.UUID) error {
	s.removed = append(s.removed, [2]uuid.UUID{productID, variantID})
	return nil
}

func (s *stubCart) Clear(context.Context, uuid.UUID) error { return nil }

type stubAddresses struct {
	created address.Input
	updated uuid.UUID
}

func (s *stubAddresses) List(context.Context, uuid.UUID) ([]address.DTO, error) { return nil, nil }

func (s *stubAddresses) Get(context.Context, uuid.UUID, uuid.UUID) (*address.DTO, error) {
	return nil, errNotStubbed
}

func (s *stubAddresses) Create(_ context.Context, _ uuid.UUID, in address.Input) (*address.DTO, error) {
	s.created = in
	return &address.DTO{ID: uuid.New(), Line1: in.Line1, Pincode: in.Pincode}, nil
}

func (s *stubAddresses) Update(_ context.Context, _ uuid.UUID, id uuid.UUID, in address.Input) (*address.DTO, error) {
	s.updated = id
	return &address.DTO{ID: id, Line1: in.Line1}, nil
}

type stubOrders struct {
	created  orders.CreateInput
	verified orders.VerifyInput
	params   pagination.Params
	started  uuid.UUID
	getErr   error
}

func (s *stubOrders) Create(_ context.Context, _ uuid.UUID, in orders.CreateInput) (*orders.OrderDTO, error) {
	s.created = in
	return &orders.OrderDTO{ID: uuid.New(), Items: []orders.ItemDTO{}}, nil
}

func (s *stubOrders) StartPayment(_ context.Context, _ uuid.UUID, orderID uuid.UUID) (*orders.PaymentSession, error) {
	s.started = orderID
	return &orders.PaymentSession{OrderID: orderID, GatewayOrderID: "order_gw1", Amount: 50000, Currency: "INR", KeyID: "rzp_test"}, nil
}

func (s *stubOrders) VerifyPayment(_ context.Context, _ uuid.UUID, in orders.VerifyInput) (*orders.VerifyResult, error) {
	s.verified = in
	return &orders.VerifyResult{OrderID: in.OrderID}, nil
}

func (s *stubOrders) List(_ context.Context, _ uuid.UUID, p pagination.Params) (*orders.OrderList, error) {
	s.params = p
	return &orders.OrderList{Orders: []orders.OrderDTO{}}, nil
}

func (s *stubOrders) Get(_ context.Context, _ uuid.UUID, id uuid.UUID) (*orders.OrderDTO, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &orders.OrderDTO{ID: id, Items: []orders.ItemDTO{}}, nil
}

type stubReviews struct {
	upsert    reviews.UpsertInput
	productID uuid.UUID
	params    pagination.Params
	top       int
}

func (s *stubReviews) Upsert(_ context.Context, _ uuid.UUID, in reviews.UpsertInput) (*reviews.ReviewDTO, error) {
	s.upsert = in
	return &reviews.ReviewDTO{ID: uuid.New(), Rating: in.Rating, Author: in.ReviewerName}, nil
}

func (s *stubReviews) ListByProduct(_ context.Context, productID uuid.UUID, p pagination.Params) (*reviews.ProductReviews, error) {
	s.productID, s.params = productID, p
	return &reviews.ProductReviews{Reviews: []reviews.ReviewDTO{}}, nil
}

func (s *stubReviews) Top(_ context.Context, n int) ([]reviews.ReviewDTO, error) {
	s.top = n
	return []reviews.ReviewDTO{}, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }
