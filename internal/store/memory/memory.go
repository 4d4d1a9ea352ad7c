package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"kasirinaja/checkout/internal/domain"
	"kasirinaja/checkout/internal/store"
	"kasirinaja/checkout/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	invoicesByID    map[string]*domain.Invoice
	loyaltyAccounts map[string]domain.LoyaltyAccount
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		invoicesByID:    make(map[string]*domain.Invoice),
		loyaltyAccounts: make(map[string]domain.LoyaltyAccount),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables, falling back to dev defaults with a warning.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store with demo invoices, a loyalty member and the dev
// users, for running the server without a database.
func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()

	s.PutLoyaltyAccount(domain.LoyaltyAccount{
		CustomerID:       "CUST-0001",
		Program:          "Kasirinaja Member",
		PointsAvailable:  1500,
		ConversionFactor: decimal.NewFromInt(10),
	})

	s.PutInvoice(domain.Invoice{
		ID:         "POS-INV-0001",
		Kind:       domain.InvoiceKindPOS,
		StoreID:    "main-store",
		CustomerID: "CUST-0001",
		Currency:   "IDR",
		Items: []domain.InvoiceItem{
			{ItemCode: "SKU-MIE-01", Qty: decimal.NewFromInt(2), Amount: decimal.NewFromInt(7000)},
			{ItemCode: "SKU-TELUR-01", Qty: decimal.NewFromInt(1), Amount: decimal.NewFromInt(26500)},
			{ItemCode: "SKU-KOPI-01", Qty: decimal.NewFromInt(5), Amount: decimal.NewFromInt(13000)},
		},
		Payments: []domain.InvoicePayment{
			{ModeOfPayment: "Cash", Type: domain.PaymentKindCash, Default: true},
			{ModeOfPayment: "Debit Card", Type: domain.PaymentKindBank},
			{ModeOfPayment: "QRIS", Type: domain.PaymentKindPhone},
		},
		GrandTotal:     decimal.RequireFromString("46500.40"),
		RoundedTotal:   decimal.NewFromInt(46500),
		LoyaltyProgram: "Kasirinaja Member",
		Status:         domain.InvoiceStatusDraft,
	})

	s.PutInvoice(domain.Invoice{
		ID:       "SINV-0001",
		Kind:     domain.InvoiceKindSales,
		StoreID:  "main-store",
		Currency: "IDR",
		Items: []domain.InvoiceItem{
			{ItemCode: "SKU-SUSU-01", Qty: decimal.NewFromInt(3), Amount: decimal.NewFromInt(56700)},
		},
		Payments: []domain.InvoicePayment{
			{ModeOfPayment: "Cash", Type: domain.PaymentKindCash, Default: true},
			{ModeOfPayment: "Bank Transfer", Type: domain.PaymentKindBank},
		},
		GrandTotal:   decimal.NewFromInt(56700),
		RoundedTotal: decimal.NewFromInt(56700),
		Status:       domain.InvoiceStatusDraft,
	})

	return s
}

// PutInvoice inserts or replaces an invoice, recomputing its paid amount.
func (s *Store) PutInvoice(inv domain.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := inv.Clone()
	if stored.Status == "" {
		stored.Status = domain.InvoiceStatusDraft
	}
	stored.PaidAmount = sumPayments(stored.Payments)
	stored.UpdatedAt = time.Now().UTC()
	s.invoicesByID[stored.ID] = &stored
}

func (s *Store) PutLoyaltyAccount(account domain.LoyaltyAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loyaltyAccounts[account.CustomerID] = account
}

func (s *Store) GetInvoice(_ context.Context, invoiceID string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoicesByID[invoiceID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cloned := inv.Clone()
	return &cloned, nil
}

func (s *Store) SavePaymentAmount(_ context.Context, invoiceID string, modeOfPayment string, amount decimal.Decimal) (domain.InvoicePayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.draftInvoice(invoiceID)
	if err != nil {
		return domain.InvoicePayment{}, err
	}
	for i := range inv.Payments {
		if inv.Payments[i].ModeOfPayment == modeOfPayment {
			inv.Payments[i].Amount = amount
			inv.Payments[i].Revision++
			inv.PaidAmount = sumPayments(inv.Payments)
			inv.UpdatedAt = time.Now().UTC()
			return inv.Payments[i], nil
		}
	}
	return domain.InvoicePayment{}, fmt.Errorf("%w: mode of payment %q not on invoice %s", store.ErrInvalidInput, modeOfPayment, invoiceID)
}

func (s *Store) SaveLoyaltyRedemption(_ context.Context, invoiceID string, redemption domain.LoyaltyRedemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.draftInvoice(invoiceID)
	if err != nil {
		return err
	}
	inv.Loyalty = redemption
	inv.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) SaveInvoiceFields(_ context.Context, invoiceID string, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.draftInvoice(invoiceID)
	if err != nil {
		return err
	}
	if inv.Fields == nil {
		inv.Fields = make(map[string]string, len(values))
	}
	for k, v := range values {
		inv.Fields[k] = v
	}
	inv.UpdatedAt = time.Now().UTC()
	return nil
}

// FinalizeInvoice submits the invoice once. Repeating the same action id
// returns the submitted invoice; a different one fails with ErrFinalized.
func (s *Store) FinalizeInvoice(_ context.Context, invoiceID string, actionID string) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(actionID) == "" {
		return nil, store.ErrInvalidInput
	}
	inv, ok := s.invoicesByID[invoiceID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if inv.Status == domain.InvoiceStatusSubmitted {
		if inv.FinalizeActionID == actionID {
			cloned := inv.Clone()
			return &cloned, nil
		}
		return nil, store.ErrFinalized
	}
	inv.Status = domain.InvoiceStatusSubmitted
	inv.FinalizeActionID = actionID
	inv.UpdatedAt = time.Now().UTC()
	cloned := inv.Clone()
	return &cloned, nil
}

func (s *Store) GetLoyaltyAccount(_ context.Context, customerID string) (*domain.LoyaltyAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.loyaltyAccounts[customerID]
	if !ok {
		return &domain.LoyaltyAccount{CustomerID: customerID, ConversionFactor: decimal.Zero}, nil
	}
	return &account, nil
}

func (s *Store) draftInvoice(invoiceID string) (*domain.Invoice, error) {
	inv, ok := s.invoicesByID[invoiceID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if inv.Status == domain.InvoiceStatusSubmitted {
		return nil, store.ErrFinalized
	}
	return inv, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if storeID != "" && entry.StoreID != storeID {
			continue
		}
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func sumPayments(payments []domain.InvoicePayment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
