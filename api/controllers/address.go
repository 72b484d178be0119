package controllers

import (
	"net/http"

	"github.com/flintflours/storefront-backend/api/responses"
	"github.com/flintflours/storefront-backend/api/validators"
	"github.com/flintflours/storefront-backend/internal/address"
	"github.com/flintflours/storefront-backend/pkg/logger"
)

type addressRequest struct {
	Label   *string `json:"label,omitempty" validate:"omitempty,max=50"`
	Line1   string  `json:"line1" validate:"required,max=200"`
	City    string  `json:"city" validate:"required,max=100"`
	State   string  `json:"state" validate:"required,max=100"`
	Pincode string  `json:"pincode" validate:"required,pincode"`
	Phone   string  `json:"phone" validate:"required,phone"`
}

func (a addressRequest) input() address.Input {
	return address.Input{
		Label:   a.Label,
		Line1:   a.Line1,
		City:    a.City,
		State:   a.State,
		Pincode: a.Pincode,
		Phone:   a.Phone,
	}
}

func AddressList(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("address"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		addresses, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if addresses == nil {
			addresses = []address.DTO{}
		}
		responses.WriteSuccess(w, map[string]any{"addresses": addresses})
	}
}

func AddressCreate(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("address"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), userID, payload.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, created)
	}
}

func AddressUpdate(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("address"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		addressID, err := urlUUID(r, "addressId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.Update(r.Context(), userID, addressID, payload.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}
