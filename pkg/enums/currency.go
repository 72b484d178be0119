package enums

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 code the payment gateway accepts for orders.
type Currency string

const (
	CurrencyINR Currency = "INR"
)

var validCurrencies = []Currency{
	CurrencyINR,
}

func (c Currency) String() string {
	return string(c)
}

func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency accepts codes case-insensitively.
func ParseCurrency(value string) (Currency, error) {
	normalized := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("unsupported currency %q", value)
}
