// Package checkout runs payment sessions: one cashier working one invoice on
// the payment screen. A Session owns the mode registry, loyalty calculator and
// submission gate of its invoice and serializes every event applied to them.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kasirinaja/checkout/internal/config"
	"kasirinaja/checkout/internal/domain"
	"kasirinaja/checkout/internal/events"
	"kasirinaja/checkout/internal/gate"
	"kasirinaja/checkout/internal/loyalty"
	"kasirinaja/checkout/internal/money"
	"kasirinaja/checkout/internal/numpad"
	"kasirinaja/checkout/internal/payment"
	"kasirinaja/checkout/internal/totals"
	"kasirinaja/checkout/internal/xid"
)

var (
	ErrSessionNotFound  = errors.New("payment session not found")
	ErrSessionClosed    = errors.New("payment session closed")
	ErrInvoiceSubmitted = errors.New("invoice already submitted")
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrUnknownField     = errors.New("unknown invoice field")
)

const sessionIDPrefix = "pay"

const defaultPersistTimeout = 5 * time.Second

// OrderStore is the order document provider a session reads from and writes
// back to.
type OrderStore interface {
	GetInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error)
	SavePaymentAmount(ctx context.Context, invoiceID string, modeOfPayment string, amount decimal.Decimal) (domain.InvoicePayment, error)
	SaveLoyaltyRedemption(ctx context.Context, invoiceID string, redemption domain.LoyaltyRedemption) error
	SaveInvoiceFields(ctx context.Context, invoiceID string, values map[string]string) error
	FinalizeInvoice(ctx context.Context, invoiceID string, actionID string) (*domain.Invoice, error)
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
}

type LoyaltySource interface {
	Account(ctx context.Context, customerID string) (domain.LoyaltyAccount, error)
}

type invalidator interface {
	Invalidate(ctx context.Context, customerID string)
}

type KeyEvent struct {
	Key  string `json:"key"`
	Ctrl bool   `json:"ctrl,omitempty"`
	Meta bool   `json:"meta,omitempty"`
}

type Options struct {
	Store            OrderStore
	Loyalty          LoyaltySource
	Settings         config.SettingsProvider
	Presenter        Presenter
	Dispatcher       *events.Dispatcher
	InvoiceFields    []domain.InvoiceField
	FocusDefaultMode bool
	PersistTimeout   time.Duration
}

type Session struct {
	id             string
	invoiceID      string
	storeID        string
	store          OrderStore
	loyaltySource  LoyaltySource
	settings       config.SettingsProvider
	presenter      Presenter
	persistTimeout time.Duration

	mu            sync.Mutex
	idle          *sync.Cond
	inflight      int
	revisions     map[string]int64
	invoice       domain.Invoice
	registry      *payment.Registry
	loyalty       *loyalty.Calculator
	gate          *gate.Gate
	visible       bool
	closed        bool
	submitting    bool
	pendingSubmit bool
	unsubscribe   []func()
}

// Open loads the invoice and starts a visible payment session for it. The
// session listens on opts.Dispatcher until it is closed.
func Open(ctx context.Context, invoiceID string, opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, errors.New("checkout: order store is required")
	}
	if opts.Settings == nil {
		return nil, errors.New("checkout: settings provider is required")
	}
	if opts.Presenter == nil {
		opts.Presenter = LogPresenter{}
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}

	inv, err := opts.Store.GetInvoice(ctx, strings.TrimSpace(invoiceID))
	if err != nil {
		return nil, err
	}
	if inv.Status == domain.InvoiceStatusSubmitted {
		return nil, fmt.Errorf("%w: %s", ErrInvoiceSubmitted, inv.ID)
	}
	registry, err := payment.NewRegistry(inv.Payments, opts.Settings.CurrentSettings().Precision)
	if err != nil {
		return nil, err
	}

	account := domain.LoyaltyAccount{CustomerID: inv.CustomerID, Program: inv.LoyaltyProgram}
	if opts.Loyalty != nil && inv.CustomerID != "" {
		fetched, err := opts.Loyalty.Account(ctx, inv.CustomerID)
		if err != nil {
			log.Printf("[checkout] WARN: loyalty lookup failed customer=%s: %v", inv.CustomerID, err)
		} else {
			account = fetched
		}
	}
	account.RedeemedAmount = inv.Loyalty.Amount
	account.RedeemedPoints = inv.Loyalty.Points

	s := &Session{
		id:             xid.New(sessionIDPrefix),
		invoiceID:      inv.ID,
		storeID:        inv.StoreID,
		store:          opts.Store,
		loyaltySource:  opts.Loyalty,
		settings:       opts.Settings,
		presenter:      opts.Presenter,
		persistTimeout: opts.PersistTimeout,
		revisions:      make(map[string]int64, len(inv.Payments)),
		invoice:        inv.Clone(),
		registry:       registry,
		loyalty:        loyalty.NewCalculator(account),
		gate:           gate.New(opts.InvoiceFields),
		visible:        true,
	}
	s.idle = sync.NewCond(&s.mu)
	for _, p := range inv.Payments {
		s.revisions[payment.SanitizeModeID(p.ModeOfPayment)] = p.Revision
	}

	if opts.Dispatcher != nil {
		s.unsubscribe = append(s.unsubscribe,
			opts.Dispatcher.Subscribe(events.KindClick, s.onClick),
			opts.Dispatcher.Subscribe(events.KindKeyDown, s.onKeyDown),
		)
	}

	s.mu.Lock()
	settings := s.settings.CurrentSettings()
	if opts.FocusDefaultMode {
		if mode, ok := s.registry.DefaultMode(); ok {
			if err := s.selectLocked(mode.ID, settings); err != nil {
				log.Printf("[checkout] WARN: default mode focus failed invoice=%s: %v", s.invoiceID, err)
			}
		}
	}
	s.presentTotalsLocked(settings)
	s.mu.Unlock()

	s.logAudit(ctx, AuditSessionOpen, "session="+s.id)
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) InvoiceID() string {
	return s.invoiceID
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SetVisible shows or hides the payment panel. Submission shortcuts only work
// while it is visible.
func (s *Session) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = visible
}

// PressKey applies an on-screen keypad button to the selected mode. Pressing
// a key with nothing selected warns the cashier.
func (s *Session) PressKey(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	err := s.applyKeyLocked(symbol)
	if errors.Is(err, domain.ErrNoModeSelected) {
		s.presenter.ShowAlert(Alert{Message: domain.ErrNoModeSelected.Message, Indicator: IndicatorYellow})
	}
	return err
}

// HandleKey is the physical keyboard surface. Ctrl or Meta with Enter submits,
// Tab moves to the next mode and anything else edits the selected mode.
func (s *Session) HandleKey(ctx context.Context, ev KeyEvent) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}

	switch {
	case ev.Key == "Enter" && (ev.Ctrl || ev.Meta):
		ready := s.visible && s.registry.ActiveID() != ""
		s.mu.Unlock()
		if !ready {
			return nil
		}
		_, err := s.Submit(ctx)
		return err
	case ev.Key == "Tab":
		defer s.mu.Unlock()
		if !s.visible {
			return nil
		}
		if s.submitting {
			return ErrSubmitInProgress
		}
		s.cycleLocked(s.settings.CurrentSettings())
		return nil
	}

	defer s.mu.Unlock()
	if s.submitting {
		return ErrSubmitInProgress
	}
	if s.registry.ActiveID() == "" {
		return nil
	}
	return s.applyKeyLocked(ev.Key)
}

// SelectMode toggles id. A newly selected mode with no amount is filled with
// the outstanding amount.
func (s *Session) SelectMode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	settings := s.settings.CurrentSettings()
	if err := s.selectLocked(id, settings); err != nil {
		return err
	}
	s.presentTotalsLocked(settings)
	return nil
}

func (s *Session) DeselectAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.registry.DeselectAll()
	return nil
}

// SetModeAmount is a manual entry into a mode's amount field.
func (s *Session) SetModeAmount(id string, value decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	return s.setAmountLocked(id, value, s.settings.CurrentSettings())
}

// QuickAmount replaces the selected mode's amount with a suggested value.
func (s *Session) QuickAmount(value decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	active := s.registry.ActiveID()
	if active == "" {
		s.presenter.ShowAlert(Alert{Message: domain.ErrNoModeSelected.Message, Indicator: IndicatorYellow})
		return domain.ErrNoModeSelected
	}
	return s.setAmountLocked(active, value, s.settings.CurrentSettings())
}

// SetRedeemedAmount records how much of the customer's loyalty balance is
// used. An amount over the cap is refused and clears the redemption.
func (s *Session) SetRedeemedAmount(ctx context.Context, value decimal.Decimal) error {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	settings := s.settings.CurrentSettings()
	err := s.loyalty.SetRedeemedAmount(value, settings.Precision)
	if errors.Is(err, domain.ErrRedemptionReadOnly) {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		s.presenter.ShowAlert(Alert{Message: err.Error(), Indicator: IndicatorRed, Sound: SoundSubmit})
	}

	redemption := s.loyalty.Redemption()
	s.invoice.Loyalty = redemption
	invoiceID := s.invoiceID
	s.spawnLocked(func(ctx context.Context) {
		if err := s.store.SaveLoyaltyRedemption(ctx, invoiceID, redemption); err != nil {
			log.Printf("[checkout] WARN: failed to save loyalty redemption invoice=%s: %v", invoiceID, err)
		}
	})
	s.presentTotalsLocked(settings)
	s.mu.Unlock()

	if err == nil {
		s.logAudit(ctx, AuditLoyaltyRedeem, fmt.Sprintf("amount=%s,points=%d", redemption.Amount, redemption.Points))
	}
	return err
}

// RefreshLoyalty fetches the customer's account again. The cap of the next
// redemption follows the fresh points balance.
func (s *Session) RefreshLoyalty(ctx context.Context) error {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	customerID := s.invoice.CustomerID
	s.mu.Unlock()

	if s.loyaltySource == nil || customerID == "" {
		return nil
	}
	if inv, ok := s.loyaltySource.(invalidator); ok {
		inv.Invalidate(ctx, customerID)
	}
	account, err := s.loyaltySource.Account(ctx, customerID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.loyalty.UpdateAccount(account)
	s.presentTotalsLocked(s.settings.CurrentSettings())
	return nil
}

// ApplyExternalTotals takes new totals from the order document, e.g. after a
// discount, and reconciles against them.
func (s *Session) ApplyExternalTotals(grandTotal, roundedTotal, discountPercentage decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.invoice.GrandTotal = grandTotal
	s.invoice.RoundedTotal = roundedTotal
	s.invoice.DiscountPercentage = discountPercentage
	s.presentTotalsLocked(s.settings.CurrentSettings())
	return nil
}

// ApplyExternalPayment mirrors an amount the order document already holds,
// so it is not written back.
func (s *Session) ApplyExternalPayment(modeOfPayment string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	settings := s.settings.CurrentSettings()
	if _, err := s.registry.SetAmount(payment.SanitizeModeID(modeOfPayment), amount, settings.Precision); err != nil {
		return err
	}
	s.presentTotalsLocked(settings)
	return nil
}

// UpdateFields stores supplemental invoice fields. When a submission was held
// back for a missing field it is attempted again, and the finalized invoice is
// returned if it goes through.
func (s *Session) UpdateFields(ctx context.Context, values map[string]string) (*domain.Invoice, error) {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	known := make(map[string]bool)
	for _, field := range s.gate.Fields() {
		known[field.Fieldname] = true
	}
	s.mu.Unlock()

	clean := make(map[string]string, len(values))
	for name, value := range values {
		if !known[name] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		clean[name] = strings.TrimSpace(value)
	}
	if err := s.store.SaveInvoiceFields(ctx, s.invoiceID, clean); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.invoice.Fields == nil {
		s.invoice.Fields = make(map[string]string, len(clean))
	}
	for name, value := range clean {
		s.invoice.Fields[name] = value
	}
	s.presenter.ShowNotice(Notice{Title: "Additional Information", Message: "Additional Information updated successfully."})
	retry := s.pendingSubmit && !s.closed
	s.mu.Unlock()

	if !retry {
		return nil, nil
	}
	return s.Submit(ctx)
}

// Submit runs the submission gate and finalizes the invoice when it passes.
// Pending amount writes are flushed first. A finalized session is closed.
func (s *Session) Submit(ctx context.Context) (*domain.Invoice, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	settings := s.settings.CurrentSettings()
	if err := s.gate.CanSubmit(s.gateRequestLocked(), settings.AllowPartialPayment); err != nil {
		s.rejectLocked(err)
		s.mu.Unlock()
		return nil, err
	}
	s.submitting = true
	s.pendingSubmit = false
	s.mu.Unlock()

	s.Flush()

	// Completed writes may have replaced amounts since the first check.
	s.mu.Lock()
	if s.closed {
		s.submitting = false
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if err := s.gate.CanSubmit(s.gateRequestLocked(), settings.AllowPartialPayment); err != nil {
		s.submitting = false
		s.rejectLocked(err)
		s.mu.Unlock()
		return nil, err
	}
	paid := s.registry.PaidAmount()
	s.mu.Unlock()

	actionID := uuid.NewString()
	finalized, err := s.store.FinalizeInvoice(ctx, s.invoiceID, actionID)

	s.mu.Lock()
	s.submitting = false
	if err != nil {
		s.mu.Unlock()
		log.Printf("[checkout] WARN: finalize failed invoice=%s action=%s: %v", s.invoiceID, actionID, err)
		return nil, err
	}
	s.invoice = finalized.Clone()
	s.teardownLocked()
	s.mu.Unlock()

	s.logAudit(ctx, AuditSubmit, fmt.Sprintf("action=%s,paid=%s", actionID, paid))
	return finalized, nil
}

// HandleGatewayCallback reacts to a payment gateway result for this invoice.
// A successful payment covering the total submits the invoice.
func (s *Session) HandleGatewayCallback(ctx context.Context, cb domain.GatewayCallback) (*domain.Invoice, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	settings := s.settings.CurrentSettings()
	result := s.reconcileLocked(settings)
	amount := fmt.Sprintf("%s %s", result.Currency, money.Format(cb.Amount, settings.Precision))

	if !cb.Success {
		if cb.FailureMessage != "" {
			s.presenter.ShowNotice(Notice{Title: "Payment Failed", Message: cb.FailureMessage})
		}
		s.mu.Unlock()
		s.logAudit(ctx, AuditPaymentCallback, "success=false,message="+cb.FailureMessage)
		return nil, nil
	}

	covers := cb.Amount.GreaterThanOrEqual(result.GrandTotal)
	message := fmt.Sprintf("Payment of %s received successfully.", amount)
	if !covers {
		message = fmt.Sprintf("Payment of %s received successfully. Waiting for other requests to complete...", amount)
	}
	s.presenter.ShowNotice(Notice{Title: "Payment Received", Message: message})
	s.mu.Unlock()

	s.logAudit(ctx, AuditPaymentCallback, fmt.Sprintf("success=true,amount=%s", cb.Amount))
	if !covers {
		return nil, nil
	}
	return s.Submit(ctx)
}

// Flush blocks until every background write started so far has completed.
func (s *Session) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.inflight > 0 {
		s.idle.Wait()
	}
}

// Close detaches the session from its listeners and waits for pending writes.
// Writes completing after Close leave the session untouched.
func (s *Session) Close() {
	s.mu.Lock()
	s.teardownLocked()
	s.mu.Unlock()
	s.Flush()
}

func (s *Session) teardownLocked() {
	s.closed = true
	s.visible = false
	for _, unsubscribe := range s.unsubscribe {
		unsubscribe()
	}
	s.unsubscribe = nil
}

// editableLocked reports whether the payment may still change. Amounts are
// frozen from the moment a submission passes the gate.
func (s *Session) editableLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.submitting {
		return ErrSubmitInProgress
	}
	return nil
}

func (s *Session) onClick(_ context.Context, ev events.Event) {
	if ev.Target == events.TargetModeOfPayment || ev.Target == events.TargetNumpad {
		return
	}
	if err := s.DeselectAll(); err != nil && !errors.Is(err, ErrSessionClosed) {
		log.Printf("[checkout] WARN: outside click failed session=%s: %v", s.id, err)
	}
}

func (s *Session) onKeyDown(ctx context.Context, ev events.Event) {
	err := s.HandleKey(ctx, KeyEvent{Key: ev.Key, Ctrl: ev.Ctrl, Meta: ev.Meta})
	if err == nil || errors.Is(err, ErrSessionClosed) || errors.Is(err, ErrSubmitInProgress) {
		return
	}
	if _, ok := domain.AsRejection(err); ok {
		return
	}
	log.Printf("[checkout] WARN: keydown failed session=%s key=%s: %v", s.id, ev.Key, err)
}

func (s *Session) applyKeyLocked(symbol string) error {
	settings := s.settings.CurrentSettings()
	var active *domain.PaymentMode
	if mode, ok := s.registry.Active(); ok {
		active = &mode
	}
	amount, err := numpad.Handle(symbol, active, settings.Precision)
	if err != nil {
		return err
	}
	return s.setAmountLocked(active.ID, amount, settings)
}

func (s *Session) selectLocked(id string, settings config.Settings) error {
	owed := s.reconcileLocked(settings).GrandTotal
	filled, err := s.registry.Select(id, owed)
	if err != nil {
		return err
	}
	if filled {
		mode, _ := s.registry.Mode(id)
		s.persistAmountLocked(mode)
	}
	return nil
}

func (s *Session) cycleLocked(settings config.Settings) {
	moved, filled := s.registry.Cycle(s.reconcileLocked(settings).GrandTotal)
	if !moved {
		return
	}
	if filled {
		mode, _ := s.registry.Active()
		s.persistAmountLocked(mode)
		s.presentTotalsLocked(settings)
	}
}

func (s *Session) setAmountLocked(id string, value decimal.Decimal, settings config.Settings) error {
	if _, err := s.registry.SetAmount(id, value, settings.Precision); err != nil {
		return err
	}
	mode, _ := s.registry.Mode(id)
	s.persistAmountLocked(mode)
	s.presentTotalsLocked(settings)
	return nil
}

// persistAmountLocked writes one mode's amount in the background. Whatever
// the store answers replaces the local amount without touching the selection.
// Answers are applied in the order the store committed them.
func (s *Session) persistAmountLocked(mode domain.PaymentMode) {
	invoiceID := s.invoiceID
	s.spawnLocked(func(ctx context.Context) {
		stored, err := s.store.SavePaymentAmount(ctx, invoiceID, mode.DisplayName, mode.Amount)
		if err != nil {
			log.Printf("[checkout] WARN: failed to save payment amount invoice=%s mode=%s: %v", invoiceID, mode.DisplayName, err)
			return
		}
		s.applyStoredAmount(mode.ID, stored)
	})
}

// applyStoredAmount copies a stored payment into the registry unless a later
// revision of the same row was applied already.
func (s *Session) applyStoredAmount(id string, stored domain.InvoicePayment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if stored.Revision != 0 && stored.Revision <= s.revisions[id] {
		return
	}
	settings := s.settings.CurrentSettings()
	if _, err := s.registry.SetAmount(id, stored.Amount, settings.Precision); err != nil {
		return
	}
	s.revisions[id] = stored.Revision
	s.presentTotalsLocked(settings)
}

func (s *Session) spawnLocked(work func(ctx context.Context)) {
	s.inflight++
	go func() {
		defer s.finishBackground()
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()
		work(ctx)
	}()
}

func (s *Session) finishBackground() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		s.idle.Broadcast()
	}
}

func (s *Session) reconcileLocked(settings config.Settings) totals.Result {
	s.invoice.PaidAmount = s.registry.PaidAmount()
	return totals.Reconcile(invoiceAggregate{invoice: &s.invoice, settings: settings})
}

func (s *Session) presentTotalsLocked(settings config.Settings) {
	s.presenter.ShowTotals(totalsView(s.reconcileLocked(settings), settings.Precision))
}

func (s *Session) gateRequestLocked() gate.Request {
	return gate.Request{
		ItemCount:          len(s.invoice.Items),
		PaidAmount:         s.registry.PaidAmount(),
		DiscountPercentage: s.invoice.DiscountPercentage,
		Values:             s.fieldValuesLocked(),
	}
}

func (s *Session) rejectLocked(err error) {
	rejection, ok := domain.AsRejection(err)
	if !ok {
		return
	}
	if rejection.Kind == domain.RejectMissingRequiredField {
		s.pendingSubmit = true
		s.presenter.ShowAlert(Alert{Message: rejection.Message, Indicator: IndicatorOrange})
		s.presenter.FocusField(rejection.Field)
		return
	}
	s.presenter.ShowAlert(Alert{Message: rejection.Message, Indicator: IndicatorOrange, Sound: SoundError})
}

// fieldValuesLocked is the value of every configured field, falling back to
// its default when the invoice has none.
func (s *Session) fieldValuesLocked() map[string]string {
	fields := s.gate.Fields()
	values := make(map[string]string, len(fields))
	for _, field := range fields {
		value, ok := s.invoice.Fields[field.Fieldname]
		if !ok {
			value = field.DefaultValue
		}
		values[field.Fieldname] = value
	}
	return values
}

// invoiceAggregate reports the session's invoice totals under the current
// settings. POS and Sales invoices go through it alike.
type invoiceAggregate struct {
	invoice  *domain.Invoice
	settings config.Settings
}

func (a invoiceAggregate) InvoiceTotals() domain.InvoiceTotals {
	currency := a.invoice.Currency
	if currency == "" {
		currency = a.settings.Currency
	}
	return domain.InvoiceTotals{
		GrandTotal:         a.invoice.GrandTotal,
		RoundedTotal:       a.invoice.RoundedTotal,
		PaidAmount:         a.invoice.PaidAmount,
		Currency:           currency,
		Precision:          a.settings.Precision,
		RoundingEnabled:    a.settings.RoundingEnabled,
		DiscountPercentage: a.invoice.DiscountPercentage,
	}
}
