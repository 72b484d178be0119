package cartsync

import (
	"sort"

	"github.com/flintflours/storefront-backend/pkg/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Key identifies a cart line. No two lines in a cart share a key.
type Key struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
}

func (k Key) String() string {
	return k.ProductID.String() + ":" + k.VariantID.String()
}

// Display carries the snapshot fields used to render a line. They are not
// authoritative for pricing; checkout re-derives prices from the variant.
type Display struct {
	ProductName     string          `json:"productName"`
	ProductSlug     string          `json:"productSlug"`
	VariantName     string          `json:"variantName"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	ImageURL        string          `json:"imageUrl,omitempty"`
}

// Line is one entry in a cart. Stock and IsActive are only set when the line
// came from the server.
type Line struct {
	ProductID uuid.UUID `json:"productId"`
	VariantID uuid.UUID `json:"variantId"`
	Quantity  int       `json:"quantity"`
	Display
	Stock    *int  `json:"stock,omitempty"`
	IsActive *bool `json:"isActive,omitempty"`
}

func (l Line) Key() Key {
	return Key{ProductID: l.ProductID, VariantID: l.VariantID}
}

// UnitPrice is the discounted price of one unit.
func (l Line) UnitPrice() decimal.Decimal {
	return pricing.FinalPrice(l.Price, l.DiscountPercent)
}

// Unavailable flags lines the server reported as inactive or short on stock.
func (l Line) Unavailable() bool {
	if l.IsActive != nil && !*l.IsActive {
		return true
	}
	return l.Stock != nil && *l.Stock < l.Quantity
}

func linesToMap(lines []Line) map[Key]Line {
	out := make(map[Key]Line, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		out[line.Key()] = line
	}
	return out
}

func sortedLines(m map[Key]Line) []Line {
	out := make([]Line, 0, len(m))
	for _, line := range m {
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		if a.VariantName != b.VariantName {
			return a.VariantName < b.VariantName
		}
		return a.Key().String() < b.Key().String()
	})
	return out
}
