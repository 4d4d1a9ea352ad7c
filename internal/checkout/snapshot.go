package checkout

import "kasirinaja/checkout/internal/money"

type FieldView struct {
	Fieldname string `json:"fieldname"`
	Label     string `json:"label"`
	Fieldtype string `json:"fieldtype"`
	Required  bool   `json:"reqd"`
	Value     string `json:"value"`
}

type LoyaltyView struct {
	Program         string `json:"program,omitempty"`
	PointsAvailable int64  `json:"points_available"`
	MaxRedeemable   string `json:"max_redeemable"`
	RedeemedAmount  string `json:"redeemed_amount"`
	RedeemedPoints  int64  `json:"redeemed_points"`
	ReadOnly        bool   `json:"read_only"`
	Description     string `json:"description"`
}

type Snapshot struct {
	SessionID     string      `json:"session_id"`
	InvoiceID     string      `json:"invoice_id"`
	InvoiceKind   string      `json:"invoice_kind"`
	Status        string      `json:"status"`
	ActiveMode    string      `json:"active_mode,omitempty"`
	Modes         []ModeView  `json:"modes"`
	Totals        TotalsView  `json:"totals"`
	HasChange     bool        `json:"has_change"`
	Loyalty       LoyaltyView `json:"loyalty"`
	Fields        []FieldView `json:"fields,omitempty"`
	Visible       bool        `json:"visible"`
	Closed        bool        `json:"closed"`
	PendingSubmit bool        `json:"pending_submit"`
}

// Snapshot is a read-only view of the session for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.settings.CurrentSettings()
	result := s.reconcileLocked(settings)
	active := s.registry.ActiveID()

	modes := s.registry.Modes()
	views := make([]ModeView, 0, len(modes))
	for _, mode := range modes {
		views = append(views, modeView(mode, mode.ID == active, settings.Precision))
	}

	values := s.fieldValuesLocked()
	fields := make([]FieldView, 0, len(values))
	for _, field := range s.gate.Fields() {
		fields = append(fields, FieldView{
			Fieldname: field.Fieldname,
			Label:     field.Label,
			Fieldtype: field.Fieldtype,
			Required:  field.Required,
			Value:     values[field.Fieldname],
		})
	}

	account := s.loyalty.Account()
	return Snapshot{
		SessionID:   s.id,
		InvoiceID:   s.invoiceID,
		InvoiceKind: s.invoice.Kind,
		Status:      s.invoice.Status,
		ActiveMode:  active,
		Modes:       views,
		Totals:      totalsView(result, settings.Precision),
		HasChange:   result.HasChange,
		Loyalty: LoyaltyView{
			Program:         account.Program,
			PointsAvailable: account.PointsAvailable,
			MaxRedeemable:   money.Format(s.loyalty.MaxRedeemable(settings.Precision), settings.Precision),
			RedeemedAmount:  money.Format(account.RedeemedAmount, settings.Precision),
			RedeemedPoints:  account.RedeemedPoints,
			ReadOnly:        s.loyalty.ReadOnly(),
			Description:     s.loyalty.Description(settings.Precision),
		},
		Fields:        fields,
		Visible:       s.visible,
		Closed:        s.closed,
		PendingSubmit: s.pendingSubmit,
	}
}
