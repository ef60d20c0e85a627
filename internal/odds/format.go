// Package odds turns raw bookmaker prices into validated market quotes.
package odds

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// ParseOdds converts a bookmaker price into decimal odds. It accepts decimal
// ("2.50"), fractional ("6/4") and American ("+150", "-200") notation.
// The result is always greater than 1.
func ParseOdds(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, invalid(raw, "empty price")
	}

	var (
		d   decimal.Decimal
		err error
	)
	switch {
	case strings.Contains(s, "/"):
		d, err = fractionalToDecimal(raw, s)
	case s[0] == '+' || s[0] == '-':
		d, err = americanToDecimal(raw, s)
	default:
		d, err = decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, invalid(raw, "not a number")
		}
	}
	if err != nil {
		return decimal.Zero, err
	}

	if d.LessThanOrEqual(one) {
		return decimal.Zero, invalid(raw, "decimal odds must exceed 1.0")
	}
	return d, nil
}

// fractional 6/4 -> 1 + 6/4 = 2.5
func fractionalToDecimal(raw, s string) (decimal.Decimal, error) {
	parts := strings.SplitN(s, "/", 2)
	num, err := decimal.NewFromString(strings.TrimSpace(parts[0]))
	if err != nil {
		return decimal.Zero, invalid(raw, "bad fractional numerator")
	}
	den, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return decimal.Zero, invalid(raw, "bad fractional denominator")
	}
	if !den.IsPositive() || num.IsNegative() {
		return decimal.Zero, invalid(raw, "fractional parts must be positive")
	}
	return one.Add(num.Div(den)), nil
}

// American +150 -> 2.50, -200 -> 1.50
func americanToDecimal(raw, s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return decimal.Zero, invalid(raw, "not a number")
	}
	if v.Abs().LessThan(hundred) {
		return decimal.Zero, invalid(raw, "american odds must be at least 100 in magnitude")
	}
	if v.IsPositive() {
		return one.Add(v.Div(hundred)), nil
	}
	return one.Add(hundred.Div(v.Abs())), nil
}
