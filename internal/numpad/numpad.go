// Package numpad turns keypad and keyboard symbols into amounts for the active
// payment mode. All arithmetic happens on integer minor units.
package numpad

import (
	"math"

	"github.com/shopspring/decimal"

	"kasirinaja/checkout/internal/domain"
	"kasirinaja/checkout/internal/money"
)

type Op int

const (
	OpDigit Op = iota
	OpBackspace
	OpToggleSign
	OpForcePositive
	OpForceNegative
)

type Key struct {
	Op    Op
	Digit int64
}

func Digit(d int64) Key { return Key{Op: OpDigit, Digit: d} }

var (
	Backspace     = Key{Op: OpBackspace}
	ToggleSign    = Key{Op: OpToggleSign}
	ForcePositive = Key{Op: OpForcePositive}
	ForceNegative = Key{Op: OpForceNegative}
)

func ParseKey(symbol string) (Key, bool) {
	switch symbol {
	case "Delete", "delete", "Backspace":
		return Backspace, true
	case "+/-":
		return ToggleSign, true
	case "+":
		return ForcePositive, true
	case "-":
		return ForceNegative, true
	}
	if len(symbol) == 1 && symbol[0] >= '0' && symbol[0] <= '9' {
		return Digit(int64(symbol[0] - '0')), true
	}
	return Key{}, false
}

// Apply returns the accumulator after one key press. Digits extend the
// magnitude, so -5 followed by 3 is -53.
func Apply(minor int64, key Key) (int64, error) {
	switch key.Op {
	case OpDigit:
		if key.Digit < 0 || key.Digit > 9 {
			return minor, domain.ErrUnrecognizedKey
		}
		if minor >= 0 {
			if minor > (math.MaxInt64-key.Digit)/10 {
				return minor, domain.ErrAmountOverflow
			}
			return minor*10 + key.Digit, nil
		}
		if minor < (math.MinInt64+key.Digit)/10 {
			return minor, domain.ErrAmountOverflow
		}
		return minor*10 - key.Digit, nil
	case OpBackspace:
		return minor / 10, nil
	case OpToggleSign:
		if minor == math.MinInt64 {
			return minor, domain.ErrAmountOverflow
		}
		return -minor, nil
	case OpForcePositive:
		if minor < 0 {
			return Apply(minor, ToggleSign)
		}
		return minor, nil
	case OpForceNegative:
		if minor > 0 {
			return -minor, nil
		}
		return minor, nil
	}
	return minor, domain.ErrUnrecognizedKey
}

// Handle applies symbol to the active mode's amount and returns the new
// amount. The accumulator is rebuilt from the amount on every call so edits
// made elsewhere are always picked up. A nil mode yields ErrNoModeSelected.
func Handle(symbol string, active *domain.PaymentMode, precision int32) (decimal.Decimal, error) {
	if active == nil {
		return decimal.Zero, domain.ErrNoModeSelected
	}
	key, ok := ParseKey(symbol)
	if !ok {
		return active.Amount, domain.ErrUnrecognizedKey
	}
	minor, err := money.ToMinor(active.Amount, precision)
	if err != nil {
		return active.Amount, domain.ErrAmountOverflow
	}
	next, err := Apply(minor, key)
	if err != nil {
		return active.Amount, err
	}
	return money.FromMinor(next, precision), nil
}
