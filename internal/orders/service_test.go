package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/flintflours/storefront-backend/internal/cart"
	"github.com/flintflours/storefront-backend/pkg/db"
	"github.com/flintflours/storefront-backend/pkg/db/dbtest"
	"github.com/flintflours/storefront-backend/pkg/db/models"
	"github.com/flintflours/storefront-backend/pkg/enums"
	pkgerrors "github.com/flintflours/storefront-backend/pkg/errors"
	"github.com/flintflours/storefront-backend/pkg/logger"
	"github.com/flintflours/storefront-backend/pkg/pagination"
	"github.com/flintflours/storefront-backend/pkg/payments"
	"github.com/flintflours/storefront-backend/pkg/pricing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type stubGateway struct {
	mu       sync.Mutex
	requests []payments.CreateOrderRequest
	err      error
	next     int
}

func (g *stubGateway) KeyID() string    { return "key_test" }
func (g *stubGateway) Currency() string { return "INR" }

func (g *stubGateway) CreateOrder(_ context.Context, req payments.CreateOrderRequest) (*payments.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.requests = append(g.requests, req)
	g.next++
	return &payments.GatewayOrder{
		ID:       fmt.Sprintf("order_gw_%d", g.next),
		Amount:   pricing.MinorUnits(req.Amount),
		Currency: "INR",
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (g *stubGateway) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	return payments.VerifySignature(testSecret, gatewayOrderID, paymentID, signature)
}

type fixture struct {
	svc     Service
	conn    *gorm.DB
	gateway *stubGateway
	carts   cart.Service
	user    uuid.UUID
	address uuid.UUID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	gw := &stubGateway{}
	cartRepo := cart.NewRepository(conn)
	svc, err := NewService(NewRepository(conn), db.Wrap(conn), gw, cartRepo, logger.Nop())
	require.NoError(t, err)

	carts, err := cart.NewService(cartRepo, stubVariants{})
	require.NoError(t, err)

	user := uuid.New()
	addr := models.Address{UserID: user, Line1: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001", Phone: "9876543210"}
	require.NoError(t, conn.Create(&addr).Error)
	return fixture{svc: svc, conn: conn, gateway: gw, carts: carts, user: user, address: addr.ID}
}

type stubVariants struct{}

func (stubVariants) GetVariant(context.Context, uuid.UUID, uuid.UUID) (*models.ProductVariant, error) {
	return &models.ProductVariant{}, nil
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func stockOf(t *testing.T, conn *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var v models.ProductVariant
	require.NoError(t, conn.First(&v, "id = ?", id).Error)
	return v.Stock
}

func TestNewServiceRequiresDeps(t *testing.T) {
	t.Parallel()
	_, err := NewService(nil, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestCreatePricesFromLiveVariants(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	p1, v1 := dbtest.SeedVariant(t, fx.conn, "atta", "250.00", "10", 10)
	p2, v2 := dbtest.SeedVariant(t, fx.conn, "besan", "99.99", "0", 5)

	order, err := fx.svc.Create(ctx, fx.user, CreateInput{
		AddressID: fx.address,
		Items: []ItemInput{
			{ProductID: p1.ID, VariantID: v1.ID, Quantity: 1},
			{ProductID: p2.ID, VariantID: v2.ID, Quantity: 2},
			{ProductID: p1.ID, VariantID: v1.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PaymentStatusPending, order.Status)
	assert.Equal(t, enums.FulfillmentStatusPlaced, order.OrderStatus)
	assert.Equal(t, "649.98", order.Total.StringFixed(2))
	require.Len(t, order.Items, 2)
	require.NotNil(t, order.Address)
	assert.Equal(t, "411001", order.Address.Pincode)

	byVariant := map[uuid.UUID]ItemDTO{}
	for _, item := range order.Items {
		byVariant[*item.VariantID] = item
	}
	assert.Equal(t, 2, byVariant[v1.ID].Quantity)
	assert.Equal(t, "225.00", byVariant[v1.ID].PriceAtOrder.StringFixed(2))
	assert.Equal(t, "Atta", byVariant[v1.ID].ProductName)
	assert.Equal(t, "1 kg", byVariant[v2.ID].VariantName)

	assert.Equal(t, 10, stockOf(t, fx.conn, v1.ID), "stock is untouched until payment")
}

func TestCreateRejections(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	p, v := dbtest.SeedVariant(t, fx.conn, "ragi", "140.00", "0", 2)
	other, _ := dbtest.SeedVariant(t, fx.conn, "jowar", "90.00", "0", 2)
	_, inactive := dbtest.SeedVariant(t, fx.conn, "maida", "60.00", "0", 9)
	require.NoError(t, fx.conn.Model(&models.ProductVariant{}).Where("id = ?", inactive.ID).Update("is_active", false).Error)

	line := func(pid, vid uuid.UUID, qty int) CreateInput {
		return CreateInput{AddressID: fx.address, Items: []ItemInput{{ProductID: pid, VariantID: vid, Quantity: qty}}}
	}

	_, err := fx.svc.Create(ctx, uuid.Nil, line(p.ID, v.ID, 1))
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = fx.svc.Create(ctx, fx.user, CreateInput{AddressID: fx.address})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = fx.svc.Create(ctx, fx.user, line(p.ID, v.ID, 0))
	requireCode(t, err, pkgerrors.CodeValidation)

	stranger := line(p.ID, v.ID, 1)
	_, err = fx.svc.Create(ctx, uuid.New(), stranger)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = fx.svc.Create(ctx, fx.user, line(other.ID, v.ID, 1))
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = fx.svc.Create(ctx, fx.user, line(inactive.ProductID, inactive.ID, 1))
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = fx.svc.Create(ctx, fx.user, line(p.ID, v.ID, 3))
	requireCode(t, err, pkgerrors.CodeStateConflict)

	var count int64
	require.NoError(t, fx.conn.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count, "failed checkouts leave no orders behind")
}

func TestPaymentFlow(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	p, v := dbtest.SeedVariant(t, fx.conn, "atta", "250.00", "0", 3)
	require.NoError(t, fx.carts.Add(ctx, fx.user, cart.LineInput{ProductID: p.ID, VariantID: v.ID, Quantity: 5}))

	order, err := fx.svc.Create(ctx, fx.user, CreateInput{
		AddressID: fx.address,
		Items:     []ItemInput{{ProductID: p.ID, VariantID: v.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	session, err := fx.svc.StartPayment(ctx, fx.user, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), session.Amount)
	assert.Equal(t, "INR", session.Currency)
	assert.Equal(t, "key_test", session.KeyID)
	require.Len(t, fx.gateway.requests, 1)
	assert.Equal(t, order.ID.String(), fx.gateway.requests[0].Receipt)

	_, err = fx.svc.StartPayment(ctx, uuid.New(), order.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	bad := VerifyInput{OrderID: order.ID, GatewayOrderID: session.GatewayOrderID, PaymentID: "pay_1", Signature: "deadbeef"}
	_, err = fx.svc.VerifyPayment(ctx, fx.user, bad)
	requireCode(t, err, pkgerrors.CodePayment)

	mismatch := VerifyInput{OrderID: order.ID, GatewayOrderID: "order_other", PaymentID: "pay_1",
		Signature: payments.Sign(testSecret, "order_other", "pay_1")}
	_, err = fx.svc.VerifyPayment(ctx, fx.user, mismatch)
	requireCode(t, err, pkgerrors.CodePayment)

	good := VerifyInput{OrderID: order.ID, GatewayOrderID: session.GatewayOrderID, PaymentID: "pay_1",
		Signature: payments.Sign(testSecret, session.GatewayOrderID, "pay_1")}
	result, err := fx.svc.VerifyPayment(ctx, fx.user, good)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, result.Status)

	assert.Equal(t, 1, stockOf(t, fx.conn, v.ID))
	lines, err := fx.carts.List(ctx, fx.user)
	require.NoError(t, err)
	assert.Empty(t, lines, "cart cleared after payment")

	paid, err := fx.svc.Get(ctx, fx.user, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, paid.Status)

	_, err = fx.svc.VerifyPayment(ctx, fx.user, good)
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Equal(t, 1, stockOf(t, fx.conn, v.ID), "replayed verification does not decrement twice")

	_, err = fx.svc.StartPayment(ctx, fx.user, order.ID)
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestVerifyFloorsStockAtZero(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	p, v := dbtest.SeedVariant(t, fx.conn, "sooji", "60.00", "0", 4)

	order, err := fx.svc.Create(ctx, fx.user, CreateInput{
		AddressID: fx.address,
		Items:     []ItemInput{{ProductID: p.ID, VariantID: v.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	require.NoError(t, fx.conn.Model(&models.ProductVariant{}).Where("id = ?", v.ID).Update("stock", 1).Error)

	session, err := fx.svc.StartPayment(ctx, fx.user, order.ID)
	require.NoError(t, err)
	_, err = fx.svc.VerifyPayment(ctx, fx.user, VerifyInput{
		OrderID: order.ID, GatewayOrderID: session.GatewayOrderID, PaymentID: "pay_9",
		Signature: payments.Sign(testSecret, session.GatewayOrderID, "pay_9"),
	})
	require.NoError(t, err)
	assert.Zero(t, stockOf(t, fx.conn, v.ID))
}

func TestPaymentWithoutGateway(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), db.Wrap(conn), nil, cart.NewRepository(conn), nil)
	require.NoError(t, err)

	_, err = svc.StartPayment(context.Background(), uuid.New(), uuid.New())
	requireCode(t, err, pkgerrors.CodeDependency)
	_, err = svc.VerifyPayment(context.Background(), uuid.New(), VerifyInput{})
	requireCode(t, err, pkgerrors.CodeDependency)
}

func TestStartPaymentSurfacesGatewayErrors(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	p, v := dbtest.SeedVariant(t, fx.conn, "atta", "250.00", "0", 3)
	order, err := fx.svc.Create(ctx, fx.user, CreateInput{
		AddressID: fx.address,
		Items:     []ItemInput{{ProductID: p.ID, VariantID: v.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	fx.gateway.err = pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("timeout"), "gateway order request failed")
	_, err = fx.svc.StartPayment(ctx, fx.user, order.ID)
	requireCode(t, err, pkgerrors.CodeDependency)

	got, err := fx.svc.Get(ctx, fx.user, order.ID)
	require.NoError(t, err)
	assert.Nil(t, got.GatewayOrderID)
}

func TestListPaginates(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	p, v := dbtest.SeedVariant(t, fx.conn, "atta", "100.00", "0", 50)
	for i := 0; i < 3; i++ {
		_, err := fx.svc.Create(ctx, fx.user, CreateInput{
			AddressID: fx.address,
			Items:     []ItemInput{{ProductID: p.ID, VariantID: v.ID, Quantity: i + 1}},
		})
		require.NoError(t, err)
	}

	page, err := fx.svc.List(ctx, fx.user, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 2)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	for _, o := range page.Orders {
		require.Len(t, o.Items, 1)
	}

	last, err := fx.svc.List(ctx, fx.user, pagination.Params{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, last.Orders, 1)

	empty, err := fx.svc.List(ctx, uuid.New(), pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, empty.Orders)
	assert.Equal(t, defaultPageSize, empty.Pagination.Limit)
}
