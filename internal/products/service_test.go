package product

import (
	"context"
	"testing"

	"github.com/flintflours/storefront-backend/pkg/db/dbtest"
	"github.com/flintflours/storefront-backend/pkg/db/models"
	pkgerrors "github.com/flintflours/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	DB *gorm.DB
}

func newTestService(t *testing.T) (Service, fixture) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, fixture{DB: conn}
}

func mustDecimal(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	require.NoError(t, err)
	return d
}

func TestListFiltersAndOrdering(t *testing.T) {
	svc, fx := newTestService(t)
	ctx := context.Background()

	atta, _ := dbtest.SeedVariant(t, fx.DB, "atta", "100.00", "0", 5)
	ragi, _ := dbtest.SeedVariant(t, fx.DB, "ragi", "120.00", "10", 5)
	hidden, _ := dbtest.SeedVariant(t, fx.DB, "hidden", "90.00", "0", 5)
	require.NoError(t, fx.DB.Model(&models.Product{}).Where("id = ?", hidden.ID).Update("is_active", false).Error)
	order := 1
	require.NoError(t, fx.DB.Model(&models.Product{}).Where("id = ?", ragi.ID).
		Updates(map[string]any{"is_featured": true, "featured_order": order, "category": "millet"}).Error)

	all, err := svc.List(ctx, ListFilters{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ragi.ID, all[0].ID, "featured products first")
	assert.Equal(t, atta.ID, all[1].ID)
	assert.True(t, all[0].Variants[0].FinalPrice.Equal(mustDecimal(t, "108")))

	featured := true
	onlyFeatured, err := svc.List(ctx, ListFilters{Featured: &featured})
	require.NoError(t, err)
	require.Len(t, onlyFeatured, 1)

	byCategory, err := svc.List(ctx, ListFilters{Category: "flour"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "atta", byCategory[0].Slug)

	bySearch, err := svc.List(ctx, ListFilters{Search: "RAG"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, "ragi", bySearch[0].Slug)

	limited, err := svc.List(ctx, ListFilters{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestListSkipsProductsWithoutActiveVariants(t *testing.T) {
	svc, fx := newTestService(t)
	_, variant := dbtest.SeedVariant(t, fx.DB, "besan", "80.00", "0", 3)
	require.NoError(t, fx.DB.Model(&models.ProductVariant{}).Where("id = ?", variant.ID).Update("is_active", false).Error)

	products, err := svc.List(context.Background(), ListFilters{})
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestGetBySlug(t *testing.T) {
	svc, fx := newTestService(t)
	p, v := dbtest.SeedVariant(t, fx.DB, "jowar", "60.00", "0", 0)

	dto, err := svc.GetBySlug(context.Background(), "jowar")
	require.NoError(t, err)
	assert.Equal(t, p.ID, dto.ID)
	require.Len(t, dto.Variants, 1)
	assert.Equal(t, v.ID, dto.Variants[0].ID)
	assert.False(t, dto.Variants[0].InStock)
	assert.Equal(t, []string{"https://cdn.flintflours.in/jowar.jpg"}, dto.ImageURLs)

	_, err = svc.GetBySlug(context.Background(), "missing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.GetBySlug(context.Background(), "  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetVariantRequiresMatchingProduct(t *testing.T) {
	svc, fx := newTestService(t)
	p, v := dbtest.SeedVariant(t, fx.DB, "bajra", "70.00", "0", 2)
	other, _ := dbtest.SeedVariant(t, fx.DB, "other", "70.00", "0", 2)

	got, err := svc.GetVariant(context.Background(), p.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)

	_, err = svc.GetVariant(context.Background(), other.ID, v.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.GetVariant(context.Background(), p.ID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
