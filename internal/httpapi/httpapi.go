package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"kasirinaja/checkout/internal/checkout"
	"kasirinaja/checkout/internal/domain"
	"kasirinaja/checkout/internal/events"
	"kasirinaja/checkout/internal/payment"
	"kasirinaja/checkout/internal/store"
)

type AuditLogReader interface {
	ListAuditLogs(ctx context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
}

type API struct {
	checkout       *checkout.Manager
	auditLogs      AuditLogReader
	auth           *AuthManager
	allowedOrigin  string
	defaultStoreID string
	loginLimiter   *attemptLimiter
}

func New(manager *checkout.Manager, auditLogs AuditLogReader, auth *AuthManager, allowedOrigin string, defaultStoreID string) *API {
	if defaultStoreID == "" {
		defaultStoreID = "main-store"
	}
	return &API{
		checkout:       manager,
		auditLogs:      auditLogs,
		auth:           auth,
		allowedOrigin:  allowedOrigin,
		defaultStoreID: defaultStoreID,
		loginLimiter:   newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)

	mux.HandleFunc("/api/v1/payment-sessions", a.requireAuth(a.handleOpenSession, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/payment-sessions/", a.requireAuth(a.handleSessionActions, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/payment-callbacks", a.requireAuth(a.handlePaymentCallback, domain.RoleCashier, domain.RoleAdmin))

	mux.HandleFunc("/api/v1/audit-logs", a.requireAuth(a.handleAuditLogs, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/users/cashiers", a.requireAuth(a.handleCashiers, domain.RoleAdmin))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(checkout.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type openSessionRequest struct {
	InvoiceID  string `json:"invoice_id"`
	TerminalID string `json:"terminal_id"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type keyRequest struct {
	Key string `json:"key"`
}

type totalsRequest struct {
	GrandTotal         decimal.Decimal `json:"grand_total"`
	RoundedTotal       decimal.Decimal `json:"rounded_total"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

type externalPaymentRequest struct {
	ModeOfPayment string          `json:"mode_of_payment"`
	Amount        decimal.Decimal `json:"amount"`
}

type fieldsRequest struct {
	Values map[string]string `json:"values"`
}

type visibilityRequest struct {
	Visible bool `json:"visible"`
}

type sessionResponse struct {
	Session  checkout.Snapshot `json:"session"`
	Feedback checkout.Feedback `json:"feedback"`
	Invoice  *domain.Invoice   `json:"invoice,omitempty"`
}

func (a *API) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req openSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, recorder, err := a.checkout.Open(r.Context(), req.TerminalID, req.InvoiceID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Session: session.Snapshot(), Feedback: recorder.Drain()})
}

func (a *API) handleSessionActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/payment-sessions/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeError(w, http.StatusBadRequest, errors.New("invalid payment session path"))
		return
	}

	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("payment session id required"))
		return
	}
	sessionID, action, _ := strings.Cut(tail, "/")

	session, recorder, err := a.checkout.Get(sessionID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	if action == "" {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{Session: session.Snapshot(), Feedback: recorder.Drain()})
		return
	}
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	ctx := r.Context()
	var finalized *domain.Invoice

	switch {
	case action == "numpad":
		var req keyRequest
		if err = decodeJSON(r, &req); err == nil {
			err = session.PressKey(req.Key)
		}
	case action == "keyboard":
		var req checkout.KeyEvent
		if err = decodeJSON(r, &req); err == nil {
			err = session.HandleKey(ctx, req)
		}
	case action == "events":
		var req events.Event
		if err = decodeJSON(r, &req); err == nil {
			_, err = a.checkout.Dispatch(ctx, sessionID, req)
		}
	case strings.HasPrefix(action, "modes/"):
		err = handleModeAction(r, session, strings.TrimPrefix(action, "modes/"))
	case action == "quick-amount":
		var req amountRequest
		if err = decodeJSON(r, &req); err == nil {
			err = session.QuickAmount(req.Amount)
		}
	case action == "deselect":
		err = session.DeselectAll()
	case action == "payments":
		var req externalPaymentRequest
		if err = decodeJSON(r, &req); err == nil {
			err = session.ApplyExternalPayment(req.ModeOfPayment, req.Amount)
		}
	case action == "loyalty":
		var req amountRequest
		if err = decodeJSON(r, &req); err == nil {
			err = session.SetRedeemedAmount(ctx, req.Amount)
		}
	case action == "loyalty/refresh":
		err = session.RefreshLoyalty(ctx)
	case action == "totals":
		var req totalsRequest
		if err = decodeJSON(r, &req); err == nil {
			err = session.ApplyExternalTotals(req.GrandTotal, req.RoundedTotal, req.DiscountPercentage)
		}
	case action == "fields":
		var req fieldsRequest
		if err = decodeJSON(r, &req); err == nil {
			finalized, err = session.UpdateFields(ctx, req.Values)
		}
	case action == "visibility":
		var req visibilityRequest
		if err = decodeJSON(r, &req); err == nil {
			session.SetVisible(req.Visible)
		}
	case action == "submit":
		finalized, err = session.Submit(ctx)
	case action == "close":
		err = a.checkout.Close(sessionID)
	default:
		writeError(w, http.StatusBadRequest, errors.New("unknown payment session action"))
		return
	}

	resp := sessionResponse{Session: session.Snapshot(), Feedback: recorder.Drain(), Invoice: finalized}
	if err != nil {
		writeSessionError(w, err, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleModeAction serves modes/{mode}/select and modes/{mode}/amount.
func handleModeAction(r *http.Request, session *checkout.Session, tail string) error {
	modeID, verb, ok := strings.Cut(tail, "/")
	if !ok || modeID == "" {
		return store.ErrInvalidInput
	}
	switch verb {
	case "select":
		return session.SelectMode(modeID)
	case "amount":
		var req amountRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		return session.SetModeAmount(modeID, req.Amount)
	}
	return store.ErrInvalidInput
}

func (a *API) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.GatewayCallback
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, recorder, finalized, err := a.checkout.HandleCallback(r.Context(), req)
	if session == nil {
		writeError(w, statusFor(err), err)
		return
	}
	resp := sessionResponse{Session: session.Snapshot(), Feedback: recorder.Drain(), Invoice: finalized}
	if err != nil {
		writeSessionError(w, err, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	storeID := strings.TrimSpace(r.URL.Query().Get("store_id"))
	if storeID == "" {
		storeID = a.defaultStoreID
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)

	var from time.Time
	if date == "" {
		from = time.Now().UTC().Add(-24 * time.Hour)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("date must be YYYY-MM-DD"))
			return
		}
		from = parsed.UTC()
	}

	logs, err := a.auditLogs.ListAuditLogs(r.Context(), storeID, from, from.Add(24*time.Hour), limit)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (a *API) handleCashiers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cashiers := a.auth.ListCashiers(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{"cashiers": cashiers})
	case http.MethodPost:
		var req domain.CashierCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		cashier, err := a.auth.CreateCashier(r.Context(), req)
		if errors.Is(err, ErrUsernameTaken) || errors.Is(err, store.ErrInvalidInput) {
			writeError(w, http.StatusConflict, ErrUsernameTaken)
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{"cashier": cashier})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

// statusFor maps checkout and store errors onto HTTP status codes.
func statusFor(err error) int {
	if _, ok := domain.AsRejection(err); ok {
		return http.StatusUnprocessableEntity
	}
	switch {
	case errors.Is(err, checkout.ErrSessionNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrSessionClosed),
		errors.Is(err, checkout.ErrInvoiceSubmitted),
		errors.Is(err, checkout.ErrSubmitInProgress),
		errors.Is(err, store.ErrFinalized):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, checkout.ErrUnknownField),
		errors.Is(err, payment.ErrInvalidMode):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeSessionError reports err together with the session state, so the
// client can render the alerts a rejection produced.
func writeSessionError(w http.ResponseWriter, err error, resp sessionResponse) {
	status := statusFor(err)
	body := map[string]any{
		"session":  resp.Session,
		"feedback": resp.Feedback,
	}
	if rejection, ok := domain.AsRejection(err); ok {
		body["error"] = rejection.Error()
		body["kind"] = rejection.Kind
		if rejection.Field != "" {
			body["field"] = rejection.Field
		}
		writeJSON(w, status, body)
		return
	}
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	body["error"] = msg
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx responses carry a generic message so internal details stay in the log.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
