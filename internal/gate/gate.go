// Package gate decides whether an order may be handed to the order store for
// finalization.
package gate

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kasirinaja/checkout/internal/domain"
)

var fullDiscount = decimal.NewFromInt(100)

type Request struct {
	ItemCount          int
	PaidAmount         decimal.Decimal
	DiscountPercentage decimal.Decimal
	Values             map[string]string
}

type rule func(req Request, partialPaymentAllowed bool) *domain.Rejection

// Gate runs its rules in order and reports the first failure.
type Gate struct {
	fields []domain.InvoiceField
	rules  []rule
}

func New(fields []domain.InvoiceField) *Gate {
	g := &Gate{fields: append([]domain.InvoiceField(nil), fields...)}
	g.rules = []rule{emptyOrder, noPayment}
	for _, field := range g.fields {
		if field.Required {
			g.rules = append(g.rules, requiredField(field))
		}
	}
	return g
}

func (g *Gate) Fields() []domain.InvoiceField {
	return append([]domain.InvoiceField(nil), g.fields...)
}

// CanSubmit returns nil when the order may be finalized, or a *domain.Rejection.
func (g *Gate) CanSubmit(req Request, partialPaymentAllowed bool) error {
	for _, check := range g.rules {
		if rejection := check(req, partialPaymentAllowed); rejection != nil {
			return rejection
		}
	}
	return nil
}

func emptyOrder(req Request, _ bool) *domain.Rejection {
	if req.ItemCount == 0 {
		return domain.ErrEmptyOrder
	}
	return nil
}

func noPayment(req Request, partialPaymentAllowed bool) *domain.Rejection {
	if req.PaidAmount.IsZero() && !req.DiscountPercentage.Equal(fullDiscount) && !partialPaymentAllowed {
		return domain.ErrNoPayment
	}
	return nil
}

func requiredField(field domain.InvoiceField) rule {
	return func(req Request, _ bool) *domain.Rejection {
		if strings.TrimSpace(req.Values[field.Fieldname]) != "" {
			return nil
		}
		label := field.Label
		if label == "" {
			label = field.Fieldname
		}
		return &domain.Rejection{
			Kind:    domain.RejectMissingRequiredField,
			Field:   field.Fieldname,
			Message: fmt.Sprintf("%s is required", label),
		}
	}
}
