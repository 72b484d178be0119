package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/flintflours/storefront-backend/pkg/enums"
)

// Order is a placed order and its payment state.
type Order struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	Status           enums.PaymentStatus     `gorm:"column:status;not null;default:'pending'"`
	OrderStatus      enums.FulfillmentStatus `gorm:"column:order_status;not null;default:'placed'"`
	Total            decimal.Decimal         `gorm:"column:total;type:numeric(12,2);not null"`
	GatewayOrderID   *string                 `gorm:"column:gateway_order_id"`
	GatewayPaymentID *string                 `gorm:"column:gateway_payment_id"`
	AddressID        *uuid.UUID              `gorm:"column:address_id;type:uuid"`
	Address          *Address                `gorm:"foreignKey:AddressID"`
	Items            []OrderItem             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem snapshots the unit price charged for one variant.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID    *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	Quantity     int             `gorm:"column:quantity;not null"`
	PriceAtOrder decimal.Decimal `gorm:"column:price_at_order;type:numeric(10,2);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
