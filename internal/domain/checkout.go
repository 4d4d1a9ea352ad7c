package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvoiceKindPOS   = "POS Invoice"
	InvoiceKindSales = "Sales Invoice"
)

const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSubmitted = "submitted"
)

const (
	PaymentKindCash    = "Cash"
	PaymentKindBank    = "Bank"
	PaymentKindPhone   = "Phone"
	PaymentKindGeneral = "General"
)

// PaymentMode is one payment channel of a checkout session. Whether it is the
// active mode is tracked by the registry that owns it.
type PaymentMode struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	IsDefault   bool            `json:"is_default"`
}

// InvoiceTotals is the slice of the order document the reconciler works on.
type InvoiceTotals struct {
	GrandTotal         decimal.Decimal `json:"grand_total"`
	RoundedTotal       decimal.Decimal `json:"rounded_total"`
	PaidAmount         decimal.Decimal `json:"paid_amount"`
	Currency           string          `json:"currency"`
	Precision          int32           `json:"precision"`
	RoundingEnabled    bool            `json:"rounding_enabled"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

func (t InvoiceTotals) EffectiveGrandTotal() decimal.Decimal {
	if t.RoundingEnabled {
		return t.RoundedTotal
	}
	return t.GrandTotal
}

type LoyaltyAccount struct {
	CustomerID       string          `json:"customer_id"`
	Program          string          `json:"program"`
	PointsAvailable  int64           `json:"points_available"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	RedeemedAmount   decimal.Decimal `json:"redeemed_amount"`
	RedeemedPoints   int64           `json:"redeemed_points"`
}

type LoyaltyRedemption struct {
	Enabled bool            `json:"redeem_loyalty_points"`
	Amount  decimal.Decimal `json:"loyalty_amount"`
	Points  int64           `json:"loyalty_points"`
}

type InvoiceItem struct {
	ItemCode string          `json:"item_code"`
	Qty      decimal.Decimal `json:"qty"`
	Amount   decimal.Decimal `json:"amount"`
}

type InvoicePayment struct {
	ModeOfPayment string          `json:"mode_of_payment"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Default       bool            `json:"default"`
	Revision      int64           `json:"revision"`
}

// Invoice is the order document as seen by a payment session. Both POS and
// Sales invoices share this shape and are told apart by Kind.
type Invoice struct {
	ID                 string            `json:"id"`
	Kind               string            `json:"kind"`
	StoreID            string            `json:"store_id"`
	CustomerID         string            `json:"customer_id"`
	Currency           string            `json:"currency"`
	Items              []InvoiceItem     `json:"items"`
	Payments           []InvoicePayment  `json:"payments"`
	GrandTotal         decimal.Decimal   `json:"grand_total"`
	RoundedTotal       decimal.Decimal   `json:"rounded_total"`
	PaidAmount         decimal.Decimal   `json:"paid_amount"`
	DiscountPercentage decimal.Decimal   `json:"discount_percentage"`
	LoyaltyProgram     string            `json:"loyalty_program,omitempty"`
	Loyalty            LoyaltyRedemption `json:"loyalty"`
	Fields             map[string]string `json:"fields,omitempty"`
	Status             string            `json:"status"`
	FinalizeActionID   string            `json:"finalize_action_id,omitempty"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func (inv Invoice) Clone() Invoice {
	out := inv
	out.Items = append([]InvoiceItem(nil), inv.Items...)
	out.Payments = append([]InvoicePayment(nil), inv.Payments...)
	if inv.Fields != nil {
		out.Fields = make(map[string]string, len(inv.Fields))
		for k, v := range inv.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// InvoiceField is a supplemental field the cashier must or may fill before
// the order is finalized.
type InvoiceField struct {
	Fieldname    string `json:"fieldname"`
	Label        string `json:"label"`
	Fieldtype    string `json:"fieldtype"`
	Required     bool   `json:"reqd"`
	DefaultValue string `json:"default_value,omitempty"`
}

type GatewayCallback struct {
	InvoiceID      string          `json:"invoice_id"`
	Success        bool            `json:"success"`
	Amount         decimal.Decimal `json:"amount"`
	FailureMessage string          `json:"failure_message,omitempty"`
}
