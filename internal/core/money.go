// Package core provides the ledger domain types and money handling.
//
// Amounts are shopspring decimals. They encode as JSON strings ("-200")
// so no precision is lost, and decode from either strings or numbers.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount parses user-entered amounts in either Brazilian
// ("1.389,66", "R$ -6,85") or plain ("1389.66") notation.
//
// When both separators appear, the rightmost one is the decimal mark. A
// lone comma is always decimal. A lone dot is decimal unless it groups
// exactly three digits more than once ("1.234.567").
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return decimal.Zero, ErrInvalidAmount
		}
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Round2 rounds half away from zero to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatBRL renders an amount as "R$ 1.389,66" (negative as "-R$ 6,85").
func FormatBRL(d decimal.Decimal) string {
	neg := d.IsNegative()
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	out := "R$ " + grouped.String() + "," + frac
	if neg {
		return "-" + out
	}
	return out
}

// Sum adds amounts, returning zero for an empty list.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
