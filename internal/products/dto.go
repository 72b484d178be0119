package product

import (
	"github.com/flintflours/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductDTO is the public catalog shape.
type ProductDTO struct {
	ID            uuid.UUID    `json:"id"`
	SubBrand      string       `json:"subBrand"`
	Name          string       `json:"name"`
	Slug          string       `json:"slug"`
	Category      string       `json:"category"`
	HSNCode       *string      `json:"hsnCode,omitempty"`
	ImageURLs     []string     `json:"imageUrls"`
	IsFeatured    bool         `json:"isFeatured"`
	FeaturedOrder *int         `json:"featuredOrder,omitempty"`
	Variants      []VariantDTO `json:"variants"`
}

// VariantDTO is a purchasable variant with its derived sale price.
type VariantDTO struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	Description     *string         `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	FinalPrice      decimal.Decimal `json:"finalPrice"`
	Stock           int             `json:"stock"`
	InStock         bool            `json:"inStock"`
	GSTPercent      decimal.Decimal `json:"gstPercent"`
}

func toProductDTO(p models.Product) ProductDTO {
	images := []string(p.ImageURLs)
	if images == nil {
		images = []string{}
	}
	variants := make([]VariantDTO, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, toVariantDTO(v))
	}
	return ProductDTO{
		ID:            p.ID,
		SubBrand:      p.SubBrand,
		Name:          p.Name,
		Slug:          p.Slug,
		Category:      p.Category,
		HSNCode:       p.HSNCode,
		ImageURLs:     images,
		IsFeatured:    p.IsFeatured,
		FeaturedOrder: p.FeaturedOrder,
		Variants:      variants,
	}
}

func toVariantDTO(v models.ProductVariant) VariantDTO {
	return VariantDTO{
		ID:              v.ID,
		Name:            v.Name,
		Slug:            v.Slug,
		Description:     v.Description,
		Price:           v.Price,
		DiscountPercent: v.DiscountPercent,
		FinalPrice:      v.FinalPrice(),
		Stock:           v.Stock,
		InStock:         v.Stock > 0,
		GSTPercent:      v.GSTPercent,
	}
}
