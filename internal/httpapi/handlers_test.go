package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"kasirinaja/checkout/internal/cache"
	"kasirinaja/checkout/internal/checkout"
	"kasirinaja/checkout/internal/config"
	"kasirinaja/checkout/internal/domain"
	"kasirinaja/checkout/internal/loyalty"
	"kasirinaja/checkout/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real checkout Manager so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	manager := checkout.NewManager(checkout.ManagerConfig{
		Store:    repo,
		Loyalty:  loyalty.NewDirectory(repo, cache.NoopLoyaltyCache{}, time.Minute),
		Settings: config.Settings{Currency: "IDR", Precision: 2, RoundingEnabled: true},
	})
	t.Cleanup(manager.CloseAll)
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(manager, repo, auth, "*", "main-store")
}

// mustHashPassword generates a bcrypt hash of the given password or fails the test.
func mustHashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

type sessionBody struct {
	Session  checkout.Snapshot `json:"session"`
	Feedback checkout.Feedback `json:"feedback"`
	Invoice  *domain.Invoice   `json:"invoice"`
	Error    string            `json:"error"`
	Kind     string            `json:"kind"`
}

func doJSON(t *testing.T, api *API, method string, path string, token string, payload any) (*httptest.ResponseRecorder, sessionBody) {
	t.Helper()

	var reader *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	var body sessionBody
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func openSession(t *testing.T, api *API, token string, invoiceID string) sessionBody {
	t.Helper()
	rec, body := doJSON(t, api, http.MethodPost, "/api/v1/payment-sessions", token, map[string]string{
		"invoice_id":  invoiceID,
		"terminal_id": "terminal-a1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open session expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	return body
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_Success(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "admin123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Fatalf("expected access_token in response, got %v", body)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandlePaymentSessions_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	rec, _ := doJSON(t, api, http.MethodPost, "/api/v1/payment-sessions", "", map[string]string{"invoice_id": "POS-INV-0001"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandlePaymentSessions_OpenUnknownInvoice(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	rec, _ := doJSON(t, api, http.MethodPost, "/api/v1/payment-sessions", token, map[string]string{"invoice_id": "POS-INV-404"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec, _ = doJSON(t, api, http.MethodPost, "/api/v1/payment-sessions", token, map[string]string{"invoice_id": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing invoice, got %d", rec.Code)
	}
}

func TestHandlePaymentSessions_CashCheckout(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	opened := openSession(t, api, token, "POS-INV-0001")
	if opened.Session.Totals.GrandTotal != "46500.00" {
		t.Fatalf("expected rounded grand total 46500.00, got %q", opened.Session.Totals.GrandTotal)
	}
	base := "/api/v1/payment-sessions/" + opened.Session.SessionID

	rec, body := doJSON(t, api, http.MethodPost, base+"/modes/cash/amount", token, map[string]string{"amount": "50000"})
	if rec.Code != http.StatusOK {
		t.Fatalf("amount expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if body.Session.Totals.Label != "Change Amount" || body.Session.Totals.Value != "3500.00" {
		t.Fatalf("expected change 3500.00, got %+v", body.Session.Totals)
	}

	rec, body = doJSON(t, api, http.MethodPost, base+"/modes/cash/select", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("select expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if body.Session.ActiveMode != "cash" {
		t.Fatalf("expected cash active, got %q", body.Session.ActiveMode)
	}
	if body.Session.Modes[0].Amount != "50000.00" {
		t.Fatalf("expected entered cash amount to be kept, got %q", body.Session.Modes[0].Amount)
	}

	rec, body = doJSON(t, api, http.MethodPost, base+"/submit", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if body.Invoice == nil || body.Invoice.Status != domain.InvoiceStatusSubmitted {
		t.Fatalf("expected submitted invoice, got %+v", body.Invoice)
	}
	if !body.Session.Closed {
		t.Fatalf("expected session closed after submit")
	}

	rec, _ = doJSON(t, api, http.MethodGet, base, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected finished session to be gone, got %d", rec.Code)
	}
}

func TestHandlePaymentSessions_SubmitWithoutPaymentIsRejected(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	opened := openSession(t, api, token, "POS-INV-0001")
	rec, body := doJSON(t, api, http.MethodPost, "/api/v1/payment-sessions/"+opened.Session.SessionID+"/submit", token, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if body.Kind != string(domain.RejectNoPayment) {
		t.Fatalf("expected no_payment kind, got %q", body.Kind)
	}
	if len(body.Feedback.Alerts) != 1 || body.Feedback.Alerts[0].Indicator != checkout.IndicatorOrange {
		t.Fatalf("expected one orange alert, got %+v", body.Feedback.Alerts)
	}
	if body.Session.Closed {
		t.Fatalf("rejected submit must keep the session open")
	}
}

func TestHandlePaymentSessions_NumpadWithoutMode(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	opened := openSession(t, api, token, "POS-INV-0001")
	rec, body := doJSON(t, api, http.MethodPost, "/api/v1/payment-sessions/"+opened.Session.SessionID+"/numpad", token, map[string]string{"key": "5"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if body.Kind != string(domain.RejectNoModeSelected) {
		t.Fatalf("expected no_mode_selected, got %q", body.Kind)
	}
	if len(body.Feedback.Alerts) == 0 || body.Feedback.Alerts[0].Message != "Select a Payment Method." {
		t.Fatalf("expected select payment method alert, got %+v", body.Feedback.Alerts)
	}
}

func TestHandlePaymentSessions_LoyaltyOverCap(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	opened := openSession(t, api, token, "POS-INV-0001")
	if opened.Session.Loyalty.MaxRedeemable != "15000.00" {
		t.Fatalf("expected max redeemable 15000.00, got %q", opened.Session.Loyalty.MaxRedeemable)
	}
	base := "/api/v1/payment-sessions/" + opened.Session.SessionID

	rec, body := doJSON(t, api, http.MethodPost, base+"/loyalty", token, map[string]string{"amount": "20000"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if body.Kind != string(domain.RejectRedemptionExceedsCap) {
		t.Fatalf("expected redemption_exceeds_cap, got %q", body.Kind)
	}

	rec, body = doJSON(t, api, http.MethodPost, base+"/loyalty", token, map[string]string{"amount": "5000"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if body.Session.Loyalty.RedeemedPoints != 500 {
		t.Fatalf("expected 500 redeemed points, got %d", body.Session.Loyalty.RedeemedPoints)
	}
}

func TestHandlePaymentSessions_UnknownField(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	opened := openSession(t, api, token, "POS-INV-0001")
	rec, _ := doJSON(t, api, http.MethodPost, "/api/v1/payment-sessions/"+opened.Session.SessionID+"/fields", token, map[string]any{
		"values": map[string]string{"no_such_field": "x"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandlePaymentSessions_OutsideClickDeselects(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	opened := openSession(t, api, token, "POS-INV-0001")
	base := "/api/v1/payment-sessions/" + opened.Session.SessionID
	if rec, _ := doJSON(t, api, http.MethodPost, base+"/modes/qris/select", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("select expected 200, got %d", rec.Code)
	}

	rec, body := doJSON(t, api, http.MethodPost, base+"/events", token, map[string]string{"kind": "click", "target": "item-cart"})
	if rec.Code != http.StatusOK {
		t.Fatalf("event expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if body.Session.ActiveMode != "" {
		t.Fatalf("expected no active mode after outside click, got %q", body.Session.ActiveMode)
	}
}

func TestHandlePaymentCallback(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	opened := openSession(t, api, token, "POS-INV-0001")
	if rec, _ := doJSON(t, api, http.MethodPost, "/api/v1/payment-sessions/"+opened.Session.SessionID+"/modes/qris/select", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("select expected 200, got %d", rec.Code)
	}

	rec, body := doJSON(t, api, http.MethodPost, "/api/v1/payment-callbacks", token, map[string]any{
		"invoice_id": "POS-INV-0001",
		"success":    true,
		"amount":     "46500",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("callback expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if body.Invoice == nil || body.Invoice.Status != domain.InvoiceStatusSubmitted {
		t.Fatalf("expected submitted invoice, got %+v", body.Invoice)
	}
	if len(body.Feedback.Notices) == 0 || body.Feedback.Notices[0].Title != "Payment Received" {
		t.Fatalf("expected payment received notice, got %+v", body.Feedback.Notices)
	}

	rec, _ = doJSON(t, api, http.MethodPost, "/api/v1/payment-callbacks", token, map[string]any{
		"invoice_id": "POS-INV-0001",
		"success":    true,
		"amount":     "46500",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 once the session is finished, got %d", rec.Code)
	}
}

func TestHandleAuditLogs_AdminOnly(t *testing.T) {
	api := newTestAPI(t)
	cashier := loginAs(t, api, "cashier", "cashier123")
	openSession(t, api, cashier, "POS-INV-0001")

	rec, _ := doJSON(t, api, http.MethodGet, "/api/v1/audit-logs", cashier, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier, got %d", rec.Code)
	}

	admin := loginAsAdmin(t, api)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}

	var payload struct {
		Logs []domain.AuditLog `json:"logs"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode audit logs: %v", err)
	}
	found := false
	for _, entry := range payload.Logs {
		if entry.Action == checkout.AuditSessionOpen && entry.ActorUsername == "cashier" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected session open audit entry by cashier, got %+v", payload.Logs)
	}

	rec, _ = doJSON(t, api, http.MethodGet, "/api/v1/audit-logs?date=19-10-2026", admin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %d", rec.Code)
	}
}

func TestHandleCashiers(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/cashiers", bytes.NewReader([]byte(`{"username":"kasir02","password":"rahasia1"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+admin)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/cashiers", bytes.NewReader([]byte(`{"username":"KASIR02","password":"rahasia2"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+admin)
	res = httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d", res.Code)
	}

	token := loginAs(t, api, "kasir02", "rahasia1")
	if token == "" {
		t.Fatalf("expected new cashier to sign in")
	}
}

// TestMustHashPassword verifies that the test helper produces valid bcrypt hashes
// (used to confirm test infrastructure is sound).
func TestMustHashPassword(t *testing.T) {
	hash := mustHashPassword(t, "secret")
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")); err != nil {
		t.Fatalf("hash verification failed: %v", err)
	}
}
