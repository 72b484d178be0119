package cart

import (
	"context"

	"github.com/flintflours/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	List(ctx context.Context, userID uuid.UUID) ([]LineRow, error)
	Increment(ctx context.Context, item models.CartItem) error
	Set(ctx context.Context, item models.CartItem) error
	Delete(ctx context.Context, userID, productID, variantID uuid.UUID) error
	DeleteAll(ctx context.Context, userID uuid.UUID) error
}

type variantLoader interface {
	GetVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error)
}
