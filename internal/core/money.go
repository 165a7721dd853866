// Package core provides money parsing and handling utilities.
//
// Amounts live in the log as text; they only become numbers when a total is
// computed, and then as fixed-point decimals so that sums of cents stay exact.
package core

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "EUR"

// ParseAmount converts the amount text of a record to a decimal. Only plain
// decimal notation with a dot separator is numeric; surrounding spaces are
// ignored.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34
//	ParseAmount("-3")    -> -3
//	ParseAmount("12,34") -> ErrInvalidAmount
//	ParseAmount("abc")   -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// FormatMoney renders an amount in the given currency, e.g. "€15.50".
// Unknown currency codes fall back to "15.50 XYZ".
func FormatMoney(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	factor := decimal.New(1, int32(cur.Fraction))
	minor := amount.Mul(factor).Round(0).IntPart()
	return money.New(minor, currency).Display()
}
