package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"kasirinaja/checkout/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrFinalized    = errors.New("invoice already submitted")
)

// Repository is the order document provider plus the bookkeeping the
// checkout service needs around it.
type Repository interface {
	GetInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error)
	SavePaymentAmount(ctx context.Context, invoiceID string, modeOfPayment string, amount decimal.Decimal) (domain.InvoicePayment, error)
	SaveLoyaltyRedemption(ctx context.Context, invoiceID string, redemption domain.LoyaltyRedemption) error
	SaveInvoiceFields(ctx context.Context, invoiceID string, values map[string]string) error
	FinalizeInvoice(ctx context.Context, invoiceID string, actionID string) (*domain.Invoice, error)

	GetLoyaltyAccount(ctx context.Context, customerID string) (*domain.LoyaltyAccount, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
