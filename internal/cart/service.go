package cart

import (
	"context"
	"fmt"

	"github.com/flintflours/storefront-backend/pkg/db/models"
	pkgerrors "github.com/flintflours/storefront-backend/pkg/errors"
	"github.com/google/uuid"
)

// Service is the server side of the shopper cart. Every operation is scoped
// to one user; concurrent writers to the same line resolve last-write-wins.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]LineDTO, error)
	Add(ctx context.Context, userID uuid.UUID, input LineInput) error
	SetQuantity(ctx context.Context, userID uuid.UUID, input LineInput) error
	Remove(ctx context.Context, userID, productID, variantID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     CartRepository
	variants variantLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, variants variantLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if variants == nil {
		return nil, fmt.Errorf("variant loader required")
	}
	return &service{repo: repo, variants: variants}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]LineDTO, error) {
	if userID == uuid.Nil {
		return []LineDTO{}, nil
	}
	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart")
	}
	out := make([]LineDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toLineDTO(row))
	}
	return out, nil
}

// Add increments the line by input.Quantity, creating it when absent.
func (s *service) Add(ctx context.Context, userID uuid.UUID, input LineInput) error {
	if input.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if err := s.checkLine(ctx, userID, input); err != nil {
		return err
	}
	item := models.CartItem{UserID: userID, ProductID: input.ProductID, VariantID: input.VariantID, Quantity: input.Quantity}
	if err := s.repo.Increment(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart line")
	}
	return nil
}

// SetQuantity stores an absolute quantity; quantity <= 0 removes the line.
func (s *service) SetQuantity(ctx context.Context, userID uuid.UUID, input LineInput) error {
	if input.Quantity <= 0 {
		return s.Remove(ctx, userID, input.ProductID, input.VariantID)
	}
	if err := s.checkLine(ctx, userID, input); err != nil {
		return err
	}
	item := models.CartItem{UserID: userID, ProductID: input.ProductID, VariantID: input.VariantID, Quantity: input.Quantity}
	if err := s.repo.Set(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
	}
	return nil
}

// Remove is idempotent.
func (s *service) Remove(ctx context.Context, userID, productID, variantID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if productID == uuid.Nil || variantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "productId and variantId are required")
	}
	if err := s.repo.Delete(ctx, userID, productID, variantID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := s.repo.DeleteAll(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

func (s *service) checkLine(ctx context.Context, userID uuid.UUID, input LineInput) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.ProductID == uuid.Nil || input.VariantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "productId and variantId are required")
	}
	_, err := s.variants.GetVariant(ctx, input.ProductID, input.VariantID)
	return err
}
