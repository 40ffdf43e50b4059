package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied amount into a decimal rounded half-up
// to two places.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Signs, empty
// strings and values that round to zero are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ToCents returns the amount in minor units, rounding half-up.
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromCents converts minor units back to a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Float is the lossy conversion used once amounts leave the store boundary
// and enter ratio arithmetic.
func Float(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
