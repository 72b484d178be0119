package orders

import (
	"time"

	"github.com/flintflours/storefront-backend/pkg/db/models"
	"github.com/flintflours/storefront-backend/pkg/enums"
	"github.com/flintflours/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemInput is one requested line of a new order.
type ItemInput struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
	Quantity  int
}

// CreateInput carries a checkout request.
type CreateInput struct {
	AddressID uuid.UUID
	Items     []ItemInput
}

// VerifyInput carries the gateway callback fields posted by the client.
type VerifyInput struct {
	OrderID        uuid.UUID
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

// PaymentSession is what the client needs to open the gateway checkout.
type PaymentSession struct {
	OrderID        uuid.UUID `json:"orderId"`
	GatewayOrderID string    `json:"gatewayOrderId"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	KeyID          string    `json:"keyId"`
}

type VerifyResult struct {
	OrderID uuid.UUID           `json:"orderId"`
	Status  enums.PaymentStatus `json:"status"`
}

type AddressSummary struct {
	Line1   string `json:"line1"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Phone   string `json:"phone"`
}

type ItemDTO struct {
	ProductID    uuid.UUID       `json:"productId"`
	VariantID    *uuid.UUID      `json:"variantId,omitempty"`
	Quantity     int             `json:"quantity"`
	PriceAtOrder decimal.Decimal `json:"priceAtOrder"`
	ProductName  string          `json:"productName,omitempty"`
	ProductSlug  string          `json:"productSlug,omitempty"`
	VariantName  string          `json:"variantName,omitempty"`
	ImageURL     string          `json:"imageUrl,omitempty"`
}

type OrderDTO struct {
	ID             uuid.UUID               `json:"id"`
	Status         enums.PaymentStatus     `json:"status"`
	OrderStatus    enums.FulfillmentStatus `json:"orderStatus"`
	Total          decimal.Decimal         `json:"total"`
	GatewayOrderID *string                 `json:"gatewayOrderId,omitempty"`
	Address        *AddressSummary         `json:"address,omitempty"`
	Items          []ItemDTO               `json:"items"`
	CreatedAt      time.Time               `json:"createdAt"`
}

type OrderList struct {
	Orders     []OrderDTO      `json:"orders"`
	Pagination pagination.Page `json:"pagination"`
}

func toOrderDTO(o models.Order, items []ItemRow) OrderDTO {
	dto := OrderDTO{
		ID:             o.ID,
		Status:         o.Status,
		OrderStatus:    o.OrderStatus,
		Total:          o.Total,
		GatewayOrderID: o.GatewayOrderID,
		Items:          make([]ItemDTO, 0, len(items)),
		CreatedAt:      o.CreatedAt,
	}
	if o.Address != nil {
		dto.Address = &AddressSummary{
			Line1:   o.Address.Line1,
			City:    o.Address.City,
			State:   o.Address.State,
			Pincode: o.Address.Pincode,
			Phone:   o.Address.Phone,
		}
	}
	for _, row := range items {
		item := ItemDTO{
			ProductID:    row.ProductID,
			VariantID:    row.VariantID,
			Quantity:     row.Quantity,
			PriceAtOrder: row.PriceAtOrder,
			ProductName:  deref(row.ProductName),
			ProductSlug:  deref(row.ProductSlug),
			VariantName:  deref(row.VariantName),
		}
		if len(row.ImageURLs) > 0 {
			item.ImageURL = row.ImageURLs[0]
		}
		dto.Items = append(dto.Items, item)
	}
	return dto
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
