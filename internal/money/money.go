// Package money converts between decimal amounts and integer minor units at a
// configured currency precision.
package money

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var ErrOutOfRange = errors.New("amount out of minor-unit range")

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// ToMinor returns amount * 10^precision rounded to zero decimals.
func ToMinor(amount decimal.Decimal, precision int32) (int64, error) {
	scaled := amount.Shift(normalize(precision)).Round(0)
	if scaled.GreaterThan(maxMinor) || scaled.LessThan(minMinor) {
		return 0, ErrOutOfRange
	}
	return scaled.IntPart(), nil
}

func FromMinor(minor int64, precision int32) decimal.Decimal {
	return decimal.New(minor, -normalize(precision))
}

func Round(amount decimal.Decimal, precision int32) decimal.Decimal {
	return amount.Round(normalize(precision))
}

func Floor(amount decimal.Decimal, precision int32) decimal.Decimal {
	return amount.RoundFloor(normalize(precision))
}

func Format(amount decimal.Decimal, precision int32) string {
	return amount.StringFixed(normalize(precision))
}

func normalize(precision int32) int32 {
	if precision < 0 {
		return 0
	}
	return precision
}
