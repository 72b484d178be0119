package address

import (
	"time"

	"github.com/flintflours/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
)

type DTO struct {
	ID        uuid.UUID `json:"id"`
	Label     *string   `json:"label,omitempty"`
	Line1     string    `json:"line1"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Pincode   string    `json:"pincode"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

func toDTO(a models.Address) DTO {
	return DTO{
		ID:        a.ID,
		Label:     a.Label,
		Line1:     a.Line1,
		City:      a.City,
		State:     a.State,
		Pincode:   a.Pincode,
		Phone:     a.Phone,
		CreatedAt: a.CreatedAt,
	}
}
