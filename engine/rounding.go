/*
rounding.go - Merchant rounding rules for money and pure weights

PURPOSE:
  Pure functions, no I/O, deterministic. The business only trades in discrete
  weight and price increments; any drift must resolve through the documented
  bucket boundaries, never through generic floating rounding. The boundaries
  are deliberately asymmetric and must be reproduced exactly.

RULES:
  FormatMoney:      fractional amounts climb to the next rupee first, then the
                    last digit snaps to the nearest ten (0..5 down, 6..9 up).
  FormatPureGold:   pure gold is reported to the nearest 0.010 g; the truncated
                    micro digit rounds up only from 8.
  FormatPureSilver: three-bucket discretization of the fractional gram:
                    0.000-0.399 -> .0, 0.400-0.898 -> .5, 0.899+ -> next gram.
*/
package engine

import (
	"github.com/shopspring/decimal"
)

var (
	dTen        = decimal.NewFromInt(10)
	dSix        = decimal.NewFromInt(6)
	dEight      = decimal.NewFromInt(8)
	dOne        = decimal.NewFromInt(1)
	dHalf       = decimal.RequireFromString("0.5")
	dTenMg      = decimal.RequireFromString("0.010")
	dSilverUp   = decimal.RequireFromString("0.899")
	dSilverHalf = decimal.RequireFromString("0.399")
)

// FormatMoney snaps a non-negative amount to the merchant's ten-rupee grid.
// Any fractional part first rounds up to the next whole rupee, then the last
// digit rounds down for 0..5 and up for 6..9. Negative inputs are invalid and
// returned unchanged.
func FormatMoney(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return amount
	}
	v := amount
	if !v.Equal(v.Truncate(0)) {
		v = v.Ceil()
	}
	last := v.Mod(dTen)
	if last.GreaterThanOrEqual(dSix) {
		return v.Sub(last).Add(dTen)
	}
	return v.Sub(last)
}

// FormatPureGold reports a pure gold weight to the nearest 0.010 g. The value
// is truncated to three decimals; a truncated third digit of 8 or 9 carries
// up, anything lower is dropped.
func FormatPureGold(pureWeight decimal.Decimal) decimal.Decimal {
	t := pureWeight.Truncate(3)
	third := t.Shift(3).Mod(dTen) // third decimal digit
	base := t.Sub(third.Shift(-3))
	if third.GreaterThanOrEqual(dEight) {
		base = base.Add(dTenMg)
	}
	return base
}

// FormatPureSilver discretizes a pure silver weight to half-gram steps using
// the three-bucket rule. The buckets apply to the magnitude; the sign is
// restored afterwards (rupu silver-return can go net negative).
func FormatPureSilver(pureWeight decimal.Decimal) decimal.Decimal {
	neg := pureWeight.IsNegative()
	v := pureWeight.Abs()
	whole := v.Floor()
	frac := v.Sub(whole)

	switch {
	case frac.GreaterThanOrEqual(dSilverUp):
		v = whole.Add(dOne)
	case frac.GreaterThan(dSilverHalf):
		v = whole.Add(dHalf)
	default:
		v = whole
	}
	if neg {
		return v.Neg()
	}
	return v
}
