// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents so running sums are exact. The store
// keeps REAL columns; conversion in both directions goes through
// shopspring/decimal and rounds to two places.
package core

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// MaxAmount bounds a single income or expense, in currency units. Cents up to
// this value are exact in a REAL column, and a running sum of 90,000 maximal
// rows still fits in int64.
const MaxAmount = 1_000_000_000_000

// MaxAmountCents is MaxAmount in cents.
const MaxAmountCents = MaxAmount * 100

var maxAmount = decimal.NewFromInt(MaxAmount)

// ParseAmount converts a user-entered decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero to whole cents. An empty string is zero. Negative values
// and malformed input are rejected.
//
// Amounts above MaxAmount are rejected with ErrInvalidAmount.
//
// Examples:
//   ParseAmount("12.34")  -> 1234 cents
//   ParseAmount("12,345") -> 1235 cents
//   ParseAmount("")       -> 0 cents
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	if d.GreaterThan(maxAmount) {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d), nil
}

// MoneyFromDecimal rounds d to whole cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Shift(2).Round(0).IntPart()}
}

// MoneyFromFloat converts a stored REAL value to Money.
func MoneyFromFloat(f float64) Money {
	return MoneyFromDecimal(decimal.NewFromFloat(f))
}

// Decimal returns the exact decimal value of m.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns m as float64 for REAL columns and spreadsheet cells.
// Use cents for calculations.
func (m Money) Float() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// String renders m with two decimals and a dot separator, e.g. "1234.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Format renders m for display with thousands grouping and a currency label
// prefix, e.g. "RM1,234.50" or "-RM40.00".
func (m Money) Format(label string) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	f, _ := decimal.New(cents, -2).Float64()
	return sign + label + humanize.FormatFloat("#,###.##", f)
}
