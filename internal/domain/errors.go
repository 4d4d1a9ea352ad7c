package domain

import "errors"

type RejectionKind string

const (
	RejectNoModeSelected       RejectionKind = "no_mode_selected"
	RejectUnrecognizedKey      RejectionKind = "unrecognized_key"
	RejectAmountOverflow       RejectionKind = "amount_overflow"
	RejectUnknownMode          RejectionKind = "unknown_mode"
	RejectRedemptionExceedsCap RejectionKind = "redemption_exceeds_cap"
	RejectRedemptionReadOnly   RejectionKind = "redemption_read_only"
	RejectEmptyOrder           RejectionKind = "empty_order"
	RejectNoPayment            RejectionKind = "no_payment"
	RejectMissingRequiredField RejectionKind = "missing_required_field"
)

// Rejection is an expected, recoverable refusal of a checkout operation.
// errors.Is matches any two rejections of the same kind.
type Rejection struct {
	Kind    RejectionKind `json:"kind"`
	Field   string        `json:"field,omitempty"`
	Message string        `json:"message"`
}

var (
	ErrNoModeSelected       = &Rejection{Kind: RejectNoModeSelected, Message: "Select a Payment Method."}
	ErrUnrecognizedKey      = &Rejection{Kind: RejectUnrecognizedKey, Message: "unrecognized key"}
	ErrAmountOverflow       = &Rejection{Kind: RejectAmountOverflow, Message: "amount is too large"}
	ErrUnknownMode          = &Rejection{Kind: RejectUnknownMode, Message: "unknown mode of payment"}
	ErrRedemptionExceedsCap = &Rejection{Kind: RejectRedemptionExceedsCap}
	ErrRedemptionReadOnly   = &Rejection{Kind: RejectRedemptionReadOnly, Message: "You don't have enough points to redeem."}
	ErrEmptyOrder           = &Rejection{Kind: RejectEmptyOrder, Message: "You cannot submit empty order."}
	ErrNoPayment            = &Rejection{Kind: RejectNoPayment, Message: "You cannot submit the order without payment."}
	ErrMissingRequiredField = &Rejection{Kind: RejectMissingRequiredField}
)

func (r *Rejection) Error() string {
	if r.Message != "" {
		return r.Message
	}
	if r.Field != "" {
		return string(r.Kind) + ": " + r.Field
	}
	return string(r.Kind)
}

func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Kind == r.Kind
}

func AsRejection(err error) (*Rejection, bool) {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return rejection, true
	}
	return nil, false
}
