package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/flintflours/storefront-backend/api/responses"
	"github.com/flintflours/storefront-backend/api/validators"
	"github.com/flintflours/storefront-backend/internal/orders"
	"github.com/flintflours/storefront-backend/pkg/logger"
	"github.com/flintflours/storefront-backend/pkg/pagination"
)

type orderItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	VariantID string `json:"variantId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

type createOrderRequest struct {
	AddressID string             `json:"addressId" validate:"required,uuid"`
	Items     []orderItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

func (c createOrderRequest) input() orders.CreateInput {
	in := orders.CreateInput{
		AddressID: uuid.MustParse(c.AddressID),
		Items:     make([]orders.ItemInput, 0, len(c.Items)),
	}
	for _, item := range c.Items {
		in.Items = append(in.Items, orders.ItemInput{
			ProductID: uuid.MustParse(item.ProductID),
			VariantID: uuid.MustParse(item.VariantID),
			Quantity:  item.Quantity,
		})
	}
	return in
}

type verifyPaymentRequest struct {
	OrderID        string `json:"orderId" validate:"required,uuid"`
	GatewayOrderID string `json:"gatewayOrderId" validate:"required,max=64"`
	PaymentID      string `json:"paymentId" validate:"required,max=64"`
	Signature      string `json:"signature" validate:"required,max=128"`
}

// OrderCreate places a pending order from the submitted lines.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Create(r.Context(), userID, payload.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, order)
	}
}

func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParseQueryInt(r, "page", 1, 1, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), userID, pagination.Params{Page: page, Limit: limit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := urlUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderStartPayment opens a gateway order for a pending order.
func OrderStartPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := urlUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.StartPayment(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// OrderVerifyPayment checks the gateway signature and marks the order paid.
func OrderVerifyPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.VerifyPayment(r.Context(), userID, orders.VerifyInput{
			OrderID:        uuid.MustParse(payload.OrderID),
			GatewayOrderID: payload.GatewayOrderID,
			PaymentID:      payload.PaymentID,
			Signature:      payload.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
