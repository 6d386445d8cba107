package calculator

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds to two decimal places, half away from zero.
// Non-finite input yields 0.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Percent returns (a-b)/b*100 rounded to two places, or 0 when b <= 0.
func Percent(a, b float64) float64 {
	if b <= 0 {
		return 0
	}
	return Round2((a - b) / b * 100)
}
