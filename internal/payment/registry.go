// Package payment holds the payment modes of a checkout session and enforces
// that at most one of them is selected for keypad entry.
package payment

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"kasirinaja/checkout/internal/domain"
	"kasirinaja/checkout/internal/money"
)

var ErrInvalidMode = errors.New("invalid mode of payment")

type Registry struct {
	modes  []domain.PaymentMode
	index  map[string]int
	active string
	paid   decimal.Decimal
}

// NewRegistry builds the modes in display order with amounts rounded to
// precision. Two payments whose names sanitize to the same id are rejected.
func NewRegistry(payments []domain.InvoicePayment, precision int32) (*Registry, error) {
	r := &Registry{
		modes: make([]domain.PaymentMode, 0, len(payments)),
		index: make(map[string]int, len(payments)),
	}
	for _, p := range payments {
		id := SanitizeModeID(p.ModeOfPayment)
		if id == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMode, p.ModeOfPayment)
		}
		if _, exists := r.index[id]; exists {
			return nil, fmt.Errorf("%w: duplicate %q", ErrInvalidMode, p.ModeOfPayment)
		}
		r.index[id] = len(r.modes)
		r.modes = append(r.modes, domain.PaymentMode{
			ID:          id,
			DisplayName: p.ModeOfPayment,
			Kind:        p.Type,
			Amount:      money.Round(p.Amount, precision),
			IsDefault:   p.Default,
		})
	}
	r.recompute()
	return r, nil
}

// Select toggles id. Selecting the active mode clears the selection; any other
// mode becomes the only active one and, when its amount is zero, is filled
// with whatever is still owed. filled reports whether that happened.
func (r *Registry) Select(id string, effectiveGrandTotal decimal.Decimal) (filled bool, err error) {
	i, ok := r.index[id]
	if !ok {
		return false, domain.ErrUnknownMode
	}
	if r.active == id {
		r.active = ""
		return false, nil
	}
	r.active = id
	return r.fillIfEmpty(i, effectiveGrandTotal), nil
}

// Cycle moves the selection to the next mode in display order, wrapping
// around. It does nothing when fewer than two modes exist or nothing is
// selected.
func (r *Registry) Cycle(effectiveGrandTotal decimal.Decimal) (moved bool, filled bool) {
	if len(r.modes) < 2 || r.active == "" {
		return false, false
	}
	next := (r.index[r.active] + 1) % len(r.modes)
	r.active = r.modes[next].ID
	return true, r.fillIfEmpty(next, effectiveGrandTotal)
}

func (r *Registry) DeselectAll() {
	r.active = ""
}

// SetAmount overwrites the amount of id rounded to precision and returns the
// new paid amount.
func (r *Registry) SetAmount(id string, value decimal.Decimal, precision int32) (decimal.Decimal, error) {
	i, ok := r.index[id]
	if !ok {
		return r.paid, domain.ErrUnknownMode
	}
	r.modes[i].Amount = money.Round(value, precision)
	r.recompute()
	return r.paid, nil
}

func (r *Registry) fillIfEmpty(i int, effectiveGrandTotal decimal.Decimal) bool {
	if !r.modes[i].Amount.IsZero() {
		return false
	}
	owed := effectiveGrandTotal.Sub(r.paid)
	if owed.IsNegative() {
		owed = decimal.Zero
	}
	r.modes[i].Amount = owed
	r.recompute()
	return true
}

func (r *Registry) recompute() {
	paid := decimal.Zero
	for _, m := range r.modes {
		paid = paid.Add(m.Amount)
	}
	r.paid = paid
}

func (r *Registry) PaidAmount() decimal.Decimal {
	return r.paid
}

func (r *Registry) ActiveID() string {
	return r.active
}

func (r *Registry) Active() (domain.PaymentMode, bool) {
	if r.active == "" {
		return domain.PaymentMode{}, false
	}
	return r.modes[r.index[r.active]], true
}

func (r *Registry) Mode(id string) (domain.PaymentMode, bool) {
	i, ok := r.index[id]
	if !ok {
		return domain.PaymentMode{}, false
	}
	return r.modes[i], true
}

func (r *Registry) DefaultMode() (domain.PaymentMode, bool) {
	for _, m := range r.modes {
		if m.IsDefault {
			return m, true
		}
	}
	return domain.PaymentMode{}, false
}

func (r *Registry) Modes() []domain.PaymentMode {
	return append([]domain.PaymentMode(nil), r.modes...)
}

// SanitizeModeID derives the lookup key of a mode of payment name, e.g.
// "Credit Card (Visa)" becomes "credit_card_visa".
func SanitizeModeID(name string) string {
	var b strings.Builder
	prevSpace := false
	for _, c := range name {
		switch {
		case c == ' ':
			if !prevSpace {
				b.WriteRune('_')
			}
			prevSpace = true
			continue
		case unicode.IsLetter(c) || unicode.IsNumber(c) || c == '_' || c == '-':
			b.WriteRune(c)
		}
		prevSpace = false
	}
	id := strings.TrimLeftFunc(b.String(), func(c rune) bool {
		return c != '_' && !unicode.IsLetter(c)
	})
	return strings.ToLower(id)
}
