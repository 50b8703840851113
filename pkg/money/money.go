package money

import (
	"fmt"
	"math"
)

// All monetary amounts in the engine are held as int64 cents. Conversion to
// and from decimal happens only at the JSON boundary.

// FromFloat converts a decimal amount to cents, rounding half away from zero.
func FromFloat(f float64) int64 {
	return int64(math.Round(f * 100))
}

// ToFloat converts cents to a decimal amount.
func ToFloat(c int64) float64 {
	return float64(c) / 100
}

// ApplyPercent returns pct percent of amount, rounded half away from zero.
func ApplyPercent(amount int64, pct float64) int64 {
	return int64(math.Round(float64(amount) * pct / 100))
}

// ApplyRate returns amount * rate, rounded half away from zero. Rate is a
// fraction (0.15 for 15%), used for tax application.
func ApplyRate(amount int64, rate float64) int64 {
	return int64(math.Round(float64(amount) * rate))
}

// ExtractInclusiveTax returns the tax portion embedded in amount when the
// given fractional rate is already included in it.
func ExtractInclusiveTax(amount int64, rate float64) int64 {
	if rate <= 0 {
		return 0
	}
	net := int64(math.Round(float64(amount) / (1 + rate)))
	return amount - net
}

// RoundToDenomination rounds amount to the nearest multiple of denom cents
// and returns the rounded amount together with the signed adjustment
// (rounded - amount). A denom <= 0 leaves the amount untouched.
func RoundToDenomination(amount, denom int64) (rounded, delta int64) {
	if denom <= 0 {
		return amount, 0
	}
	rounded = int64(math.Round(float64(amount)/float64(denom))) * denom
	return rounded, rounded - amount
}

// Format renders cents as a plain two-decimal string, e.g. 1002 -> "10.02".
func Format(c int64) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
