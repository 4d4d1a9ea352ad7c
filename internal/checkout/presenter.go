package checkout

import (
	"log"
	"sync"

	"kasirinaja/checkout/internal/domain"
	"kasirinaja/checkout/internal/money"
	"kasirinaja/checkout/internal/totals"
)

const (
	IndicatorGreen  = "green"
	IndicatorYellow = "yellow"
	IndicatorOrange = "orange"
	IndicatorRed    = "red"
)

const (
	SoundError  = "error"
	SoundSubmit = "submit"
)

type Alert struct {
	Message   string `json:"message"`
	Indicator string `json:"indicator"`
	Sound     string `json:"sound,omitempty"`
}

type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ModeView is a payment mode as the cashier sees it. Amount is empty for an
// unselected mode holding zero.
type ModeView struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Selected    bool   `json:"selected"`
	IsDefault   bool   `json:"is_default"`
}

type TotalsView struct {
	GrandTotal string `json:"grand_total"`
	PaidAmount string `json:"paid_amount"`
	Label      string `json:"label"`
	Value      string `json:"value"`
	Currency   string `json:"currency"`
}

// Presenter receives everything a payment session wants shown. Calls are made
// with the session lock held and must not call back into the session.
type Presenter interface {
	ShowTotals(view TotalsView)
	ShowAlert(alert Alert)
	ShowNotice(notice Notice)
	FocusField(fieldname string)
}

// Recorder keeps presenter output until it is drained. The HTTP layer uses
// it to return alerts alongside each response.
type Recorder struct {
	mu      sync.Mutex
	totals  *TotalsView
	alerts  []Alert
	notices []Notice
	focus   string
}

type Feedback struct {
	Totals  *TotalsView `json:"totals,omitempty"`
	Alerts  []Alert     `json:"alerts,omitempty"`
	Notices []Notice    `json:"notices,omitempty"`
	Focus   string      `json:"focus,omitempty"`
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) ShowTotals(view TotalsView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totals = &view
}

func (r *Recorder) ShowAlert(alert Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
}

func (r *Recorder) ShowNotice(notice Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
}

func (r *Recorder) FocusField(fieldname string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focus = fieldname
}

// Drain returns what was shown since the previous Drain and resets it.
func (r *Recorder) Drain() Feedback {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := Feedback{Totals: r.totals, Alerts: r.alerts, Notices: r.notices, Focus: r.focus}
	r.totals = nil
	r.alerts = nil
	r.notices = nil
	r.focus = ""
	return out
}

// LogPresenter writes presenter output to the standard logger.
type LogPresenter struct{}

func (LogPresenter) ShowTotals(view TotalsView) {
	log.Printf("[checkout] totals %s=%s paid=%s %s", view.Label, view.Value, view.PaidAmount, view.Currency)
}

func (LogPresenter) ShowAlert(alert Alert) {
	log.Printf("[checkout] alert (%s): %s", alert.Indicator, alert.Message)
}

func (LogPresenter) ShowNotice(notice Notice) {
	log.Printf("[checkout] %s: %s", notice.Title, notice.Message)
}

func (LogPresenter) FocusField(fieldname string) {
	log.Printf("[checkout] focus field=%s", fieldname)
}

func totalsView(result totals.Result, precision int32) TotalsView {
	return TotalsView{
		GrandTotal: money.Format(result.GrandTotal, precision),
		PaidAmount: money.Format(result.PaidAmount, precision),
		Label:      result.Label,
		Value:      money.Format(result.Value, precision),
		Currency:   result.Currency,
	}
}

func modeView(mode domain.PaymentMode, selected bool, precision int32) ModeView {
	view := ModeView{
		ID:          mode.ID,
		DisplayName: mode.DisplayName,
		Kind:        mode.Kind,
		Selected:    selected,
		IsDefault:   mode.IsDefault,
	}
	if selected || !mode.Amount.IsZero() {
		view.Amount = money.Format(mode.Amount, precision)
	}
	return view
}
