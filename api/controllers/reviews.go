package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/flintflours/storefront-backend/api/middleware"
	"github.com/flintflours/storefront-backend/api/responses"
	"github.com/flintflours/storefront-backend/api/validators"
	"github.com/flintflours/storefront-backend/internal/reviews"
	pkgerrors "github.com/flintflours/storefront-backend/pkg/errors"
	"github.com/flintflours/storefront-backend/pkg/logger"
	"github.com/flintflours/storefront-backend/pkg/pagination"
)

type reviewRequest struct {
	OrderID string `json:"orderId" validate:"required,uuid"`
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// ReviewList serves either a product's reviews (?productId=) or the newest
// reviews across the store (?top=).
func ReviewList(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("reviews"))
			return
		}

		q := r.URL.Query()
		if raw := strings.TrimSpace(q.Get("productId")); raw != "" {
			productID, err := validators.ParseUUID(raw, "productId")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			page, err := validators.ParseQueryInt(r, "page", 1, 1, 10000)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 20)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			result, err := svc.ListByProduct(r.Context(), productID, pagination.Params{Page: page, Limit: limit})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, result)
			return
		}

		if strings.TrimSpace(q.Get("top")) == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "productId or top is required"))
			return
		}
		n, err := validators.ParseQueryInt(r, "top", 0, 1, 10)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		top, err := svc.Top(r.Context(), n)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"reviews": top})
	}
}

func ReviewUpsert(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("reviews"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload reviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		review, err := svc.Upsert(r.Context(), userID, reviews.UpsertInput{
			OrderID:      uuid.MustParse(payload.OrderID),
			Rating:       payload.Rating,
			Comment:      payload.Comment,
			ReviewerName: reviewerName(middleware.EmailFromContext(r.Context())),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, review)
	}
}

// reviewerName shows the local part of the shopper's email. The service
// falls back to a generic author when it is empty.
func reviewerName(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return local
}
