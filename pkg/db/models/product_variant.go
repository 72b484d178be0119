package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/flintflours/storefront-backend/pkg/pricing"
)

// ProductVariant is the priced and stocked entity a cart line points at.
type ProductVariant struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Name            string          `gorm:"column:name;not null"`
	Slug            string          `gorm:"column:slug;not null"`
	Description     *string         `gorm:"column:description"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0"`
	Stock           int             `gorm:"column:stock;not null;default:0"`
	GSTPercent      decimal.Decimal `gorm:"column:gst_percent;type:numeric(5,2);not null;default:0"`
	EANCode         *string         `gorm:"column:ean_code"`
	ShelfLifeDays   *int            `gorm:"column:shelf_life_days"`
	IsActive        bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// FinalPrice is the discounted unit price charged at checkout.
func (v ProductVariant) FinalPrice() decimal.Decimal {
	return pricing.FinalPrice(v.Price, v.DiscountPercent)
}
