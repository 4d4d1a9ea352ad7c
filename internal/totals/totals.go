// Package totals derives the remaining or change amount shown to the cashier.
package totals

import (
	"github.com/shopspring/decimal"

	"kasirinaja/checkout/internal/domain"
	"kasirinaja/checkout/internal/money"
)

const (
	LabelRemaining = "Remaining Amount"
	LabelChange    = "Change Amount"
)

// Aggregate is any order document that can report its totals. POS and Sales
// invoices are reconciled through the same call.
type Aggregate interface {
	InvoiceTotals() domain.InvoiceTotals
}

type Result struct {
	GrandTotal  decimal.Decimal `json:"grand_total"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	Remaining   decimal.Decimal `json:"remaining"`
	Change      decimal.Decimal `json:"change"`
	HasChange   bool            `json:"has_change"`
	Label       string          `json:"label"`
	Value       decimal.Decimal `json:"value"`
	Outstanding bool            `json:"outstanding"`
	Currency    string          `json:"currency"`
}

func Reconcile(source Aggregate) Result {
	return Recompute(source.InvoiceTotals())
}

// Recompute compares the paid amount against the effective grand total. The
// label flips to change only once the customer has paid more than owed; an
// exactly settled invoice reads "Remaining Amount" with a zero value.
func Recompute(t domain.InvoiceTotals) Result {
	grand := money.Round(t.EffectiveGrandTotal(), t.Precision)
	paid := money.Round(t.PaidAmount, t.Precision)
	remaining := grand.Sub(paid)

	result := Result{
		GrandTotal:  grand,
		PaidAmount:  paid,
		Remaining:   remaining,
		Label:       LabelRemaining,
		Value:       remaining,
		Outstanding: remaining.IsPositive(),
		Currency:    t.Currency,
	}
	if !remaining.IsPositive() {
		result.Change = remaining.Neg()
		result.HasChange = true
	}
	if remaining.IsNegative() {
		result.Label = LabelChange
		result.Value = result.Change
	}
	return result
}
