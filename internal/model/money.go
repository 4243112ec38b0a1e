package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMoney converts a platform decimal string ("99.90") to a Decimal.
// Nuvemshop returns prices as strings in major units; empty or malformed
// values are treated as zero since the platform omits unset prices.
// Examples: "99.00" → 99, "1234.5" → 1234.5, "" → 0
func ParseMoney(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseNullMoney is ParseMoney for optional fields such as promotional_price
// and cost, where absence must stay distinguishable from zero.
func ParseNullMoney(s *string) decimal.NullDecimal {
	if s == nil || strings.TrimSpace(*s) == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*s))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// FormatMoney renders an amount with two fraction digits, the format the
// platform accepts on writes.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
