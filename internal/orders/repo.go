package orders

import (
	"context"
	"time"

	"github.com/flintflours/storefront-backend/pkg/db/models"
	"github.com/flintflours/storefront-backend/pkg/enums"
	"github.com/flintflours/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const itemDetailsSQL = `
SELECT
  oi.order_id,
  oi.product_id,
  oi.variant_id,
  oi.quantity,
  oi.price_at_order,
  p.name AS product_name,
  p.slug AS product_slug,
  p.image_urls,
  v.name AS variant_name
FROM order_items oi
LEFT JOIN products p ON p.id = oi.product_id
LEFT JOIN product_variants v ON v.id = oi.variant_id
WHERE oi.order_id IN ?
ORDER BY oi.created_at ASC, oi.id ASC
`

// ItemRow is an order item joined with catalog names for display.
type ItemRow struct {
	OrderID      uuid.UUID
	ProductID    uuid.UUID
	VariantID    *uuid.UUID
	Quantity     int
	PriceAtOrder decimal.Decimal
	ProductName  *string
	ProductSlug  *string
	ImageURLs    pq.StringArray
	VariantName  *string
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder inserts the order and its items.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Address").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListForUser returns one page of orders, newest first, plus the total count.
func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Address").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repository) ItemDetails(ctx context.Context, orderIDs []uuid.UUID) ([]ItemRow, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var rows []ItemRow
	if err := r.db.WithContext(ctx).Raw(itemDetailsSQL, orderIDs).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	var addr models.Address
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", addressID, userID).First(&addr).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

func (r *repository) FindVariants(ctx context.Context, variantIDs []uuid.UUID) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := r.db.WithContext(ctx).Where("id IN ?", variantIDs).Find(&variants).Error
	return variants, err
}

func (r *repository) SetGatewayOrderID(ctx context.Context, orderID uuid.UUID, gatewayOrderID string) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("gateway_order_id", gatewayOrderID).Error
}

// MarkPaid moves a pending order to paid and reports the affected row count;
// zero means the order was no longer pending.
func (r *repository) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":             enums.PaymentStatusPaid,
			"gateway_payment_id": paymentID,
		})
	return res.RowsAffected, res.Error
}

// DecrementStock subtracts quantity, flooring stock at zero.
func (r *repository) DecrementStock(ctx context.Context, variantID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Update("stock", gorm.Expr("CASE WHEN stock > ? THEN stock - ? ELSE 0 END", quantity, quantity)).Error
}

// CancelPendingBefore cancels unpaid orders created before cutoff. Orders that
// already carry a gateway payment id are left for manual review.
func (r *repository) CancelPendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("status = ? AND created_at < ? AND gateway_payment_id IS NULL", enums.PaymentStatusPending, cutoff).
		Update("status", enums.PaymentStatusCancelled)
	return res.RowsAffected, res.Error
}
