// Package money holds the exact-decimal helpers shared by every balance
// and limit check. All monetary values use shopspring/decimal, never
// float64, and comparisons go through Cmp-based methods so that
// representations with different scales (1, 1.0, 1.00) compare equal.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FromString parses an exact decimal amount. Scientific notation is
// accepted by the underlying parser; empty input is rejected.
func FromString(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount must not be empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// IsPositive reports v > 0.
func IsPositive(v decimal.Decimal) bool {
	return v.Sign() > 0
}
