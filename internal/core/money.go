// Package core provides the budget domain: users, transactions, money
// parsing and the summaries computed over them.
//
// This file contains helpers for parsing monetary amounts from user input.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// maxAmountInput bounds the textual length of an amount.
	maxAmountInput = 32
	// MaxAmountScale is the most fractional digits an amount may carry.
	MaxAmountScale = 8
	// maxAmountExponent matches MaxAmount.
	maxAmountExponent = 12
)

// MaxAmount is the largest absolute amount accepted for a transaction or budget.
var MaxAmount = decimal.New(1, 12)

// ParseAmount converts a JSON number to a signed amount.
//
// Unlike budgets, transaction amounts may be zero or negative (refunds reduce
// the total spent). Amounts beyond MaxAmount or with more than MaxAmountScale
// fractional digits are rejected so every stored value renders as a finite
// JSON number.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("-5")    -> -5, nil
//	ParseAmount("1e400") -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxAmountInput {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	// The exponent is bounded first; comparisons rescale to the smaller exponent.
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -(maxAmountInput+MaxAmountScale) {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.Abs().GreaterThan(MaxAmount) || !d.Equal(d.Truncate(MaxAmountScale)) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Float renders an amount for JSON responses.
func Float(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
