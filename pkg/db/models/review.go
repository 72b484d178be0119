package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/flintflours/storefront-backend/pkg/db/types"
)

// Review is one rating per (user, order) covering every product in the order.
type Review struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID         `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uq_reviews_user_order"`
	OrderID      *uuid.UUID        `gorm:"column:order_id;type:uuid;uniqueIndex:uq_reviews_user_order"`
	ProductIDs   dbtypes.UUIDArray `gorm:"column:product_ids;type:uuid[]"`
	Rating       int               `gorm:"column:rating;not null"`
	Comment      *string           `gorm:"column:comment"`
	ReviewerName *string           `gorm:"column:reviewer_name"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
