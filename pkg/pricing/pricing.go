// Package pricing derives sale prices from list price and discount.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// FinalPrice applies discountPercent to price and rounds to paise.
// Discounts outside [0, 100] are clamped.
func FinalPrice(price, discountPercent decimal.Decimal) decimal.Decimal {
	if discountPercent.IsNegative() {
		discountPercent = decimal.Zero
	}
	if discountPercent.GreaterThan(hundred) {
		discountPercent = hundred
	}
	off := price.Mul(discountPercent).Div(hundred)
	return price.Sub(off).Round(2)
}

// LineTotal is the unit price times quantity.
func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// MinorUnits converts an amount to the smallest currency unit (paise).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
