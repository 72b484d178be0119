package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/flintflours/storefront-backend/pkg/db"
	"github.com/flintflours/storefront-backend/pkg/db/models"
	"github.com/flintflours/storefront-backend/pkg/enums"
	pkgerrors "github.com/flintflours/storefront-backend/pkg/errors"
	"github.com/flintflours/storefront-backend/pkg/logger"
	"github.com/flintflours/storefront-backend/pkg/pagination"
	"github.com/flintflours/storefront-backend/pkg/payments"
	"github.com/flintflours/storefront-backend/pkg/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
	maxOrderItems   = 50
)

// Service covers checkout, payment and order history for one shopper.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*OrderDTO, error)
	StartPayment(ctx context.Context, userID, orderID uuid.UUID) (*PaymentSession, error)
	VerifyPayment(ctx context.Context, userID uuid.UUID, input VerifyInput) (*VerifyResult, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	gateway Gateway
	cart    CartClearer
	logg    *logger.Logger
}

// NewService wires the order service. gateway may be nil when payments are
// not configured; StartPayment and VerifyPayment then fail with DEPENDENCY_ERROR.
func NewService(repo Repository, tx txRunner, gateway Gateway, cart CartClearer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cart == nil {
		return nil, fmt.Errorf("cart clearer required")
	}
	return &service{repo: repo, tx: tx, gateway: gateway, cart: cart, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "addressId is required")
	}
	items, err := collapseItems(input.Items)
	if err != nil {
		return nil, err
	}

	var created models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindAddress(ctx, userID, input.AddressID); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeValidation, "address not found").
					WithDetails(map[string]string{"addressId": "does not belong to user"})
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
		}

		ids := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.VariantID)
		}
		variants, err := repo.FindVariants(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variants")
		}
		byID := make(map[uuid.UUID]models.ProductVariant, len(variants))
		for _, v := range variants {
			byID[v.ID] = v
		}

		order := models.Order{
			UserID:      userID,
			Status:      enums.PaymentStatusPending,
			OrderStatus: enums.FulfillmentStatusPlaced,
			AddressID:   &input.AddressID,
		}
		total := decimal.Zero
		for _, item := range items {
			v, ok := byID[item.VariantID]
			if !ok || v.ProductID != item.ProductID || !v.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, "variant unavailable").
					WithDetails(map[string]string{"variantId": item.VariantID.String()})
			}
			if v.Stock < item.Quantity {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
					WithDetails(map[string]any{
						"variantId": item.VariantID.String(),
						"available": v.Stock,
						"requested": item.Quantity,
					})
			}
			unit := v.FinalPrice()
			total = total.Add(pricing.LineTotal(unit, item.Quantity))
			variantID := v.ID
			order.Items = append(order.Items, models.OrderItem{
				ProductID:    v.ProductID,
				VariantID:    &variantID,
				Quantity:     item.Quantity,
				PriceAtOrder: unit,
			})
		}
		order.Total = total.Round(2)

		if err := repo.CreateOrder(ctx, &order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, "order.created", map[string]any{
		"order_id": created.ID.String(),
		"total":    created.Total.StringFixed(2),
		"items":    len(created.Items),
	})
	return s.Get(ctx, userID, created.ID)
}

// collapseItems merges duplicate variants and validates quantities.
func collapseItems(in []ItemInput) ([]ItemInput, error) {
	if len(in) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if len(in) > maxOrderItems {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "order may contain at most %d items", maxOrderItems)
	}
	index := make(map[uuid.UUID]int, len(in))
	out := make([]ItemInput, 0, len(in))
	for _, item := range in {
		if item.ProductID == uuid.Nil || item.VariantID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId and variantId are required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if i, ok := index[item.VariantID]; ok {
			if out[i].ProductID != item.ProductID {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant listed under two products")
			}
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.VariantID] = len(out)
		out = append(out, item)
	}
	return out, nil
}

func (s *service) StartPayment(ctx context.Context, userID, orderID uuid.UUID) (*PaymentSession, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	order, err := s.load(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending payment").
			WithDetails(map[string]any{"status": order.Status})
	}

	gatewayOrder, err := s.gateway.CreateOrder(ctx, payments.CreateOrderRequest{
		Amount:  order.Total,
		Receipt: order.ID.String(),
		Notes: map[string]string{
			"order_id": order.ID.String(),
			"user_id":  userID.String(),
		},
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetGatewayOrderID(ctx, order.ID, gatewayOrder.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link gateway order")
	}

	currency := gatewayOrder.Currency
	if currency == "" {
		currency = s.gateway.Currency()
	}
	return &PaymentSession{
		OrderID:        order.ID,
		GatewayOrderID: gatewayOrder.ID,
		Amount:         gatewayOrder.Amount,
		Currency:       currency,
		KeyID:          s.gateway.KeyID(),
	}, nil
}

func (s *service) VerifyPayment(ctx context.Context, userID uuid.UUID, input VerifyInput) (*VerifyResult, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	input.GatewayOrderID = strings.TrimSpace(input.GatewayOrderID)
	input.PaymentID = strings.TrimSpace(input.PaymentID)
	input.Signature = strings.TrimSpace(input.Signature)
	if input.OrderID == uuid.Nil || input.GatewayOrderID == "" || input.PaymentID == "" || input.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing payment verification fields")
	}

	order, err := s.load(ctx, userID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.GatewayOrderID == nil || *order.GatewayOrderID != input.GatewayOrderID {
		return nil, pkgerrors.New(pkgerrors.CodePayment, "gateway order id mismatch")
	}
	if !s.gateway.VerifySignature(input.GatewayOrderID, input.PaymentID, input.Signature) {
		s.warn(ctx, "payment.signature_invalid", map[string]any{"order_id": order.ID.String()})
		return nil, pkgerrors.New(pkgerrors.CodePayment, "invalid payment signature")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updated, err := repo.MarkPaid(ctx, order.ID, input.PaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
		}
		if updated == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending payment")
		}
		for _, item := range order.Items {
			if item.VariantID == nil {
				continue
			}
			if err := repo.DecrementStock(ctx, *item.VariantID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
			}
		}
		if err := s.cart.ClearTx(ctx, tx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, "order.paid", map[string]any{
		"order_id":   order.ID.String(),
		"payment_id": input.PaymentID,
	})
	return &VerifyResult{OrderID: order.ID, Status: enums.PaymentStatusPaid}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	params = params.Normalize(defaultPageSize, maxPageSize)
	orders, total, err := s.repo.ListForUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	rows, err := s.repo.ItemDetails(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order items")
	}
	byOrder := make(map[uuid.UUID][]ItemRow, len(orders))
	for _, row := range rows {
		byOrder[row.OrderID] = append(byOrder[row.OrderID], row)
	}

	out := &OrderList{
		Orders:     make([]OrderDTO, 0, len(orders)),
		Pagination: pagination.NewPage(params, total),
	}
	for _, o := range orders {
		out.Orders = append(out.Orders, toOrderDTO(o, byOrder[o.ID]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ItemDetails(ctx, []uuid.UUID{order.ID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order items")
	}
	dto := toOrderDTO(*order, rows)
	return &dto, nil
}

func (s *service) load(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindForUser(ctx, userID, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func (s *service) info(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

func (s *service) warn(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), msg)
}
