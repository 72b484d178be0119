package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineDTO is the wire shape of one cart line.
type LineDTO struct {
	ProductID       uuid.UUID       `json:"productId"`
	VariantID       uuid.UUID       `json:"variantId"`
	Quantity        int             `json:"quantity"`
	ProductName     string          `json:"productName"`
	ProductSlug     string          `json:"productSlug"`
	VariantName     string          `json:"variantName"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	ImageURL        string          `json:"imageUrl,omitempty"`
	Stock           int             `json:"stock"`
	IsActive        bool            `json:"isActive"`
}

// LineInput identifies a line and the quantity to apply.
type LineInput struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
	Quantity  int
}

func toLineDTO(row LineRow) LineDTO {
	image := ""
	if len(row.ImageURLs) > 0 {
		image = row.ImageURLs[0]
	}
	return LineDTO{
		ProductID:       row.ProductID,
		VariantID:       row.VariantID,
		Quantity:        row.Quantity,
		ProductName:     row.ProductName,
		ProductSlug:     row.ProductSlug,
		VariantName:     row.VariantName,
		Price:           row.Price,
		DiscountPercent: row.DiscountPercent,
		ImageURL:        image,
		Stock:           row.Stock,
		IsActive:        row.IsActive,
	}
}
