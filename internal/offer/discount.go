package offer

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ComputeDiscount returns the percentage saved on reference when paying
// current, rounded half away from zero and clamped to [0,100]. Absent,
// negative or inconsistent prices yield 0.
func ComputeDiscount(current, reference decimal.NullDecimal) int {
	if !current.Valid || !reference.Valid {
		return 0
	}
	if current.Decimal.IsNegative() || reference.Decimal.LessThanOrEqual(current.Decimal) {
		return 0
	}

	pct := reference.Decimal.Sub(current.Decimal).
		Div(reference.Decimal).
		Mul(hundred).
		Round(0).
		IntPart()

	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}
