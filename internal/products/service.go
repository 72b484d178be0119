package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/flintflours/storefront-backend/pkg/db"
	"github.com/flintflours/storefront-backend/pkg/db/models"
	pkgerrors "github.com/flintflours/storefront-backend/pkg/errors"
	"github.com/flintflours/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service exposes catalog reads.
type Service interface {
	List(ctx context.Context, filters ListFilters) ([]ProductDTO, error)
	GetBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	GetVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error)
}

type service struct {
	repo *Repository
}

// NewService builds the catalog service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, filters ListFilters) ([]ProductDTO, error) {
	filters.Limit = pagination.Bounds(filters.Limit, defaultListLimit, maxListLimit)
	products, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, toProductDTO(p))
	}
	return out, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	p, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	dto := toProductDTO(*p)
	return &dto, nil
}

// GetVariant returns the variant when it exists and belongs to the product.
func (s *service) GetVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error) {
	v, err := s.repo.FindVariant(ctx, productID, variantID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found for product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
	}
	return v, nil
}
