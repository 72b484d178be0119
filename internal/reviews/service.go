package reviews

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/flintflours/storefront-backend/pkg/db/models"
	dbtypes "github.com/flintflours/storefront-backend/pkg/db/types"
	pkgerrors "github.com/flintflours/storefront-backend/pkg/errors"
	"github.com/flintflours/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 4
	maxPageSize     = 20
	maxTop          = 10
	maxCommentLen   = 2000
	fallbackAuthor  = "Customer"
)

type Service interface {
	Upsert(ctx context.Context, userID uuid.UUID, input UpsertInput) (*ReviewDTO, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ProductReviews, error)
	Top(ctx context.Context, n int) ([]ReviewDTO, error)
}

type UpsertInput struct {
	OrderID      uuid.UUID
	Rating       int
	Comment      string
	ReviewerName string
}

type ReviewDTO struct {
	ID         uuid.UUID   `json:"id"`
	Rating     int         `json:"rating"`
	Comment    *string     `json:"comment"`
	Author     string      `json:"author"`
	OrderID    *uuid.UUID  `json:"orderId,omitempty"`
	ProductIDs []uuid.UUID `json:"productIds,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

type ProductReviews struct {
	Reviews    []ReviewDTO     `json:"reviews"`
	Pagination pagination.Page `json:"pagination"`
	AvgRating  float64         `json:"avgRating"`
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	return &service{repo: repo}, nil
}

// Upsert records the shopper's rating for every product in one of their orders.
func (s *service) Upsert(ctx context.Context, userID uuid.UUID, input UpsertInput) (*ReviewDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(input.Comment)
	if len(comment) > maxCommentLen {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "comment must be at most %d characters", maxCommentLen)
	}

	productIDs, found, err := s.repo.OrderProductIDs(ctx, userID, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order items")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if len(productIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}

	name := strings.TrimSpace(input.ReviewerName)
	if name == "" {
		name = fallbackAuthor
	}
	orderID := input.OrderID
	review := models.Review{
		UserID:       userID,
		OrderID:      &orderID,
		ProductIDs:   dbtypes.NewUUIDArray(productIDs...),
		Rating:       input.Rating,
		ReviewerName: &name,
	}
	if comment != "" {
		review.Comment = &comment
	}
	if err := s.repo.Upsert(ctx, &review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save review")
	}

	stored, err := s.repo.FindByOrder(ctx, userID, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload review")
	}
	dto := toDTO(*stored, true)
	return &dto, nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ProductReviews, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	params = params.Normalize(defaultPageSize, maxPageSize)

	summary, err := s.repo.Summarize(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summarize reviews")
	}
	rows, err := s.repo.ListByProduct(ctx, productID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}

	out := &ProductReviews{
		Reviews:    make([]ReviewDTO, 0, len(rows)),
		Pagination: pagination.NewPage(params, summary.Total),
		AvgRating:  math.Round(summary.AvgRating*100) / 100,
	}
	for _, row := range rows {
		out.Reviews = append(out.Reviews, toDTO(row, false))
	}
	return out, nil
}

func (s *service) Top(ctx context.Context, n int) ([]ReviewDTO, error) {
	if n <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "top must be positive")
	}
	if n > maxTop {
		n = maxTop
	}
	rows, err := s.repo.Latest(ctx, n)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list latest reviews")
	}
	out := make([]ReviewDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row, false))
	}
	return out, nil
}

func toDTO(r models.Review, withRefs bool) ReviewDTO {
	author := fallbackAuthor
	if r.ReviewerName != nil && strings.TrimSpace(*r.ReviewerName) != "" {
		author = *r.ReviewerName
	}
	dto := ReviewDTO{
		ID:        r.ID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		Author:    author,
		CreatedAt: r.CreatedAt,
	}
	if withRefs {
		dto.OrderID = r.OrderID
		dto.ProductIDs = []uuid.UUID(r.ProductIDs)
	}
	return dto
}
