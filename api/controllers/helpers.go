package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/flintflours/storefront-backend/api/middleware"
	"github.com/flintflours/storefront-backend/api/validators"
	pkgerrors "github.com/flintflours/storefront-backend/pkg/errors"
)

func requireUser(r *http.Request) (uuid.UUID, error) {
	id := middleware.UserUUIDFromContext(r.Context())
	if id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, nil
}

func urlUUID(r *http.Request, name string) (uuid.UUID, error) {
	return validators.ParseUUID(chi.URLParam(r, name), name)
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
