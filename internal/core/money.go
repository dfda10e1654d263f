// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// and rendering cents in the Indian grouping used by the reports.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes every formatted amount.
const CurrencySymbol = "₹"

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a decimal string to Money with half-up rounding on cents.
//
// Both dot (12.34) and comma (12,34) are accepted as decimal separator.
// Signs, zero and non numeric input are rejected with ErrInvalidAmount,
// values above MaxAmount with ErrAmountTooLarge.
//
// Examples:
//
//	ParseAmount("50000")  -> Money{Cents: 5000000}
//	ParseAmount("12,345") -> Money{Cents: 1235}
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal rounds a currency-unit decimal to cents.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Mul(hundred).Round(0)
	if cents.Sign() <= 0 {
		return Money{}, ErrInvalidAmount
	}
	if cents.GreaterThan(decimal.NewFromInt(MaxAmount.Cents)) {
		return Money{}, ErrAmountTooLarge
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the amount in currency units for charting and spreadsheets.
// Use cents for calculations.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) Format() string {
	return FormatINR(m.Cents)
}

func (m Money) String() string { return m.Format() }

// FormatINR renders cents with Indian digit grouping: the last three digits
// of the whole part form one group, the rest are grouped in pairs.
//
//	FormatINR(1234567890) -> "₹1,23,45,678.90"
//	FormatINR(-50)        -> "-₹0.50"
func FormatINR(cents int64) string {
	neg := cents < 0
	u := uint64(cents)
	if neg {
		u = uint64(-(cents + 1)) + 1
	}
	whole := strconv.FormatUint(u/100, 10)
	frac := u % 100

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(CurrencySymbol)
	b.WriteString(groupIndian(whole))
	b.WriteByte('.')
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatUint(frac, 10))
	return b.String()
}

func groupIndian(whole string) string {
	if len(whole) <= 3 {
		return whole
	}
	head, last3 := whole[:len(whole)-3], whole[len(whole)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + last3
}
