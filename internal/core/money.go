// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts as they appear
// in spoken or typed Italian text.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to an exact decimal value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and a
// dangling separator left over by speech transcription ("12." or "12,").
// Signs, thousands separators and anything that is not a digit are rejected.
//
// Examples:
//   ParseAmount("12.50") -> 12.5, nil
//   ParseAmount("12,5")  -> 12.5, nil
//   ParseAmount("40")    -> 40, nil
//   ParseAmount("40.")   -> 40, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatEuros formats an amount the Italian way (e.g. "€12,50").
func FormatEuros(d decimal.Decimal) string {
	return "€" + strings.Replace(d.StringFixed(2), ".", ",", 1)
}
