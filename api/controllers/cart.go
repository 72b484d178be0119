package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/flintflours/storefront-backend/api/middleware"
	"github.com/flintflours/storefront-backend/api/responses"
	"github.com/flintflours/storefront-backend/api/validators"
	cartsvc "github.com/flintflours/storefront-backend/internal/cart"
	"github.com/flintflours/storefront-backend/pkg/logger"
)

type cartLineRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	VariantID string `json:"variantId" validate:"required,uuid"`
	Quantity  int    `json:"quantity"`
}

type cartAddRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	VariantID string `json:"variantId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

type cartItemsResponse struct {
	Items []cartsvc.LineDTO `json:"items"`
}

// CartFetch returns the caller's server cart. Anonymous callers get an
// empty list.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		writeCart(w, r, svc, logg, middleware.UserUUIDFromContext(r.Context()))
	}
}

// CartAdd increments a line by the requested quantity.
func CartAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := cartsvc.LineInput{
			ProductID: uuid.MustParse(payload.ProductID),
			VariantID: uuid.MustParse(payload.VariantID),
			Quantity:  payload.Quantity,
		}
		if err := svc.Add(r.Context(), userID, input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, r, svc, logg, userID)
	}
}

// CartSet writes an absolute quantity. Zero or less removes the line.
func CartSet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := cartsvc.LineInput{
			ProductID: uuid.MustParse(payload.ProductID),
			VariantID: uuid.MustParse(payload.VariantID),
			Quantity:  payload.Quantity,
		}
		if err := svc.SetQuantity(r.Context(), userID, input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, r, svc, logg, userID)
	}
}

func CartRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		q := r.URL.Query()
		productID, err := validators.ParseUUID(q.Get("productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := validators.ParseUUID(q.Get("variantId"), "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Remove(r.Context(), userID, productID, variantID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"success": true})
	}
}

func writeCart(w http.ResponseWriter, r *http.Request, svc cartsvc.Service, logg *logger.Logger, userID uuid.UUID) {
	items, err := svc.List(r.Context(), userID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	if items == nil {
		items = []cartsvc.LineDTO{}
	}
	responses.WriteSuccess(w, cartItemsResponse{Items: items})
}
