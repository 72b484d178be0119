package orders

import (
	"context"
	"time"

	"github.com/flintflours/storefront-backend/pkg/db/models"
	"github.com/flintflours/storefront-backend/pkg/pagination"
	"github.com/flintflours/storefront-backend/pkg/payments"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, int64, error)
	ItemDetails(ctx context.Context, orderIDs []uuid.UUID) ([]ItemRow, error)
	FindAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error)
	FindVariants(ctx context.Context, variantIDs []uuid.UUID) ([]models.ProductVariant, error)
	SetGatewayOrderID(ctx context.Context, orderID uuid.UUID, gatewayOrderID string) error
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID string) (int64, error)
	DecrementStock(ctx context.Context, variantID uuid.UUID, quantity int) error
	CancelPendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Gateway is the payment gateway surface used for checkout.
type Gateway interface {
	KeyID() string
	Currency() string
	CreateOrder(ctx context.Context, req payments.CreateOrderRequest) (*payments.GatewayOrder, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}

// CartClearer empties a user's server cart within the payment transaction.
type CartClearer interface {
	ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}
