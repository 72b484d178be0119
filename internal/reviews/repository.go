package reviews

import (
	"context"

	"github.com/flintflours/storefront-backend/internal/repo"
	"github.com/flintflours/storefront-backend/pkg/db"
	"github.com/flintflours/storefront-backend/pkg/db/models"
	"github.com/flintflours/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Summary aggregates every review touching a product.
type Summary struct {
	Total     int64
	AvgRating float64
}

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// OrderProductIDs returns the distinct products of an order owned by userID.
// found is false when the order does not exist for the user.
func (r *Repository) OrderProductIDs(ctx context.Context, userID, orderID uuid.UUID) (ids []uuid.UUID, found bool, err error) {
	var order models.Order
	err = r.DB(ctx).Select("id").Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	err = r.DB(ctx).Model(&models.OrderItem{}).
		Where("order_id = ?", orderID).
		Distinct().
		Pluck("product_id", &ids).Error
	return ids, true, err
}

// Upsert stores one review per (user, order), replacing an earlier one.
func (r *Repository) Upsert(ctx context.Context, review *models.Review) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "product_ids", "reviewer_name", "updated_at"}),
	}).Create(review).Error
}

func (r *Repository) FindByOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.DB(ctx).Where("user_id = ? AND order_id = ?", userID, orderID).First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// forProduct scopes a query to reviews whose product_ids contain productID.
func (r *Repository) forProduct(productID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if q.Dialector.Name() == "postgres" {
			return q.Where("product_ids @> ARRAY[?]::uuid[]", productID.String())
		}
		return q.Where("product_ids LIKE ?", "%"+productID.String()+"%")
	}
}

func (r *Repository) Summarize(ctx context.Context, productID uuid.UUID) (Summary, error) {
	var out Summary
	err := r.DB(ctx).Model(&models.Review{}).
		Scopes(r.forProduct(productID)).
		Select("COUNT(*) AS total, COALESCE(AVG(rating), 0) AS avg_rating").
		Scan(&out).Error
	return out, err
}

// ListByProduct returns one page of a product's reviews, newest first.
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.Review, error) {
	var rows []models.Review
	err := r.DB(ctx).
		Scopes(r.forProduct(productID), repo.Paginate(params)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// Latest returns the n newest reviews across all products.
func (r *Repository) Latest(ctx context.Context, n int) ([]models.Review, error) {
	var rows []models.Review
	err := r.DB(ctx).Order("created_at DESC").Order("id DESC").Limit(n).Find(&rows).Error
	return rows, err
}
