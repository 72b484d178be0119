package cart

import (
	"context"
	"time"

	"github.com/flintflours/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const listLinesSQL = `
SELECT
  ci.product_id,
  ci.variant_id,
  ci.quantity,
  p.name AS product_name,
  p.slug AS product_slug,
  p.image_urls,
  v.name AS variant_name,
  v.price,
  v.discount_percent,
  v.stock,
  v.is_active
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
JOIN product_variants v ON v.id = ci.variant_id
WHERE ci.user_id = ?
ORDER BY ci.created_at DESC, ci.id DESC
`

// LineRow is a cart item joined with its product and variant.
type LineRow struct {
	ProductID       uuid.UUID
	VariantID       uuid.UUID
	Quantity        int
	ProductName     string
	ProductSlug     string
	ImageURLs       pq.StringArray
	VariantName     string
	Price           decimal.Decimal
	DiscountPercent decimal.Decimal
	Stock           int
	IsActive        bool
}

var lineConflict = []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "variant_id"}}

// Repository persists server-side cart lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// List returns the user's lines, newest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]LineRow, error) {
	var rows []LineRow
	if err := r.db.WithContext(ctx).Raw(listLinesSQL, userID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Increment adds item.Quantity to the line in one statement, inserting it when absent.
func (r *Repository) Increment(ctx context.Context, item models.CartItem) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: lineConflict,
		DoUpdates: clause.Set{
			{Column: clause.Column{Name: "quantity"}, Value: gorm.Expr("cart_items.quantity + excluded.quantity")},
			{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
		},
	}).Create(&item).Error
}

// Set stores an absolute quantity, inserting the line when absent.
func (r *Repository) Set(ctx context.Context, item models.CartItem) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   lineConflict,
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
	}).Create(&item).Error
}

// Delete removes one line; a missing line is not an error.
func (r *Repository) Delete(ctx context.Context, userID, productID, variantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND variant_id = ?", userID, productID, variantID).
		Delete(&models.CartItem{}).Error
}

func (r *Repository) DeleteAll(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}

// ClearTx empties the user's cart inside an existing transaction.
func (r *Repository) ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	return r.WithTx(tx).DeleteAll(ctx, userID)
}

// PruneBefore deletes lines nobody has touched since cutoff.
func (r *Repository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}
