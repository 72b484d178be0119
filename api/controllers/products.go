package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/flintflours/storefront-backend/api/responses"
	"github.com/flintflours/storefront-backend/api/validators"
	productsvc "github.com/flintflours/storefront-backend/internal/products"
	pkgerrors "github.com/flintflours/storefront-backend/pkg/errors"
	"github.com/flintflours/storefront-backend/pkg/logger"
)

const maxSearchLength = 100

// ProductList serves the public catalog browse endpoint.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		q := r.URL.Query()
		filters := productsvc.ListFilters{
			SubBrand: strings.TrimSpace(q.Get("subBrand")),
			Category: strings.TrimSpace(q.Get("category")),
			Search:   validators.SanitizeString(q.Get("search"), maxSearchLength),
			Featured: validators.ParseOptionalBool(r, "featured"),
			Limit:    limit,
		}

		products, err := svc.List(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": products})
	}
}

func ProductDetail(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}

		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "slug is required"))
			return
		}

		product, err := svc.GetBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
