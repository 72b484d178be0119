package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Product is a catalog listing; the purchasable unit is its variants.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubBrand      string           `gorm:"column:sub_brand;not null"`
	Name          string           `gorm:"column:name;not null"`
	Slug          string           `gorm:"column:slug;not null;uniqueIndex"`
	Category      string           `gorm:"column:category;not null"`
	HSNCode       *string          `gorm:"column:hsn_code"`
	ImageURLs     pq.StringArray   `gorm:"column:image_urls;type:text[]"`
	IsActive      bool             `gorm:"column:is_active;not null;default:true"`
	IsFeatured    bool             `gorm:"column:is_featured;not null;default:false"`
	FeaturedOrder *int             `gorm:"column:featured_order"`
	Variants      []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PrimaryImage returns the first image url or "".
func (p Product) PrimaryImage() string {
	if len(p.ImageURLs) == 0 {
		return ""
	}
	return p.ImageURLs[0]
}
