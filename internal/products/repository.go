package product

import (
	"context"
	"strings"

	"github.com/flintflours/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const activeVariantExists = `EXISTS (
  SELECT 1 FROM product_variants v
  WHERE v.product_id = products.id AND v.is_active = ?
)`

// Repository reads the catalog.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func preloadActiveVariants(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true).Order("price ASC")
}

// List returns active products that have at least one active variant.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]models.Product, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Preload("Variants", preloadActiveVariants).
		Where("is_active = ?", true).
		Where(activeVariantExists, true)

	if v := strings.TrimSpace(filters.SubBrand); v != "" {
		q = q.Where("sub_brand = ?", v)
	}
	if v := strings.TrimSpace(filters.Category); v != "" {
		q = q.Where("category = ?", v)
	}
	if v := strings.TrimSpace(filters.Search); v != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(v))+"%")
	}
	if filters.Featured != nil {
		q = q.Where("is_featured = ?", *filters.Featured)
	}

	var products []models.Product
	err := q.
		Order("CASE WHEN featured_order IS NULL THEN 1 ELSE 0 END").
		Order("featured_order ASC").
		Order("name ASC").
		Limit(filters.Limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// FindBySlug loads one active product with its active variants.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", preloadActiveVariants).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindVariant loads a variant only when it belongs to productID.
func (r *Repository) FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error) {
	var v models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ?", variantID, productID).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
