package calc

import "github.com/shopspring/decimal"

// Round2 rounds a money amount to kopeks. Amounts are rounded when they
// are recorded (allocations, advances, totals), never inside the daily
// penalty walk.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// IsPositive reports a strictly positive amount.
func IsPositive(d decimal.Decimal) bool {
	return d.Sign() > 0
}

// MaxZero clamps a negative amount to zero.
func MaxZero(d decimal.Decimal) decimal.Decimal {
	if d.Sign() < 0 {
		return decimal.Zero
	}
	return d
}

// MinAmount returns the smaller of two amounts.
func MinAmount(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
