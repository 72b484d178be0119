// Package dbtest opens throwaway SQLite databases shaped like the Postgres schema.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/flintflours/storefront-backend/pkg/db/models"
)

var schema = []string{
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  sub_brand TEXT NOT NULL,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  category TEXT NOT NULL,
  hsn_code TEXT,
  image_urls TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  is_featured INTEGER NOT NULL DEFAULT 0,
  featured_order INTEGER,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id),
  name TEXT NOT NULL,
  slug TEXT NOT NULL,
  description TEXT,
  price NUMERIC NOT NULL,
  discount_percent NUMERIC NOT NULL DEFAULT 0,
  stock INTEGER NOT NULL DEFAULT 0,
  gst_percent NUMERIC NOT NULL DEFAULT 0,
  ean_code TEXT,
  shelf_life_days INTEGER,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT uq_cart_items_line UNIQUE (user_id, product_id, variant_id)
);`,
	`CREATE TABLE addresses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  label TEXT,
  line1 TEXT NOT NULL,
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  pincode TEXT NOT NULL,
  phone TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  order_status TEXT NOT NULL DEFAULT 'placed',
  total NUMERIC NOT NULL,
  gateway_order_id TEXT,
  gateway_payment_id TEXT,
  address_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  quantity INTEGER NOT NULL,
  price_at_order NUMERIC NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE reviews (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  order_id TEXT,
  product_ids TEXT,
  rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
  comment TEXT,
  reviewer_name TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT uq_reviews_user_order UNIQUE (user_id, order_id)
);`,
}

// Open returns a private in-memory database with every storefront table.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// SeedVariant inserts an active product with one variant and returns both.
func SeedVariant(t testing.TB, conn *gorm.DB, slug string, price string, discount string, stock int) (models.Product, models.ProductVariant) {
	t.Helper()

	product := models.Product{
		SubBrand:  "Flint Flours",
		Name:      strings.ToUpper(slug[:1]) + slug[1:],
		Slug:      slug,
		Category:  "flour",
		ImageURLs: []string{"https://cdn.flintflours.in/" + slug + ".jpg"},
		IsActive:  true,
	}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variant := models.ProductVariant{
		ProductID:       product.ID,
		Name:            "1 kg",
		Slug:            slug + "-1kg",
		Price:           decimal.RequireFromString(price),
		DiscountPercent: decimal.RequireFromString(discount),
		Stock:           stock,
		IsActive:        true,
	}
	if err := conn.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return product, variant
}
