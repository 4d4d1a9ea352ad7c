package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"kasirinaja/checkout/internal/domain"
	"kasirinaja/checkout/internal/store"
	"kasirinaja/checkout/internal/xid"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables the checkout service reads and writes when
// they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

func (s *Store) GetInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	var inv domain.Invoice
	var fieldsRaw []byte
	var actionID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, store_id, customer_id, currency,
			grand_total, rounded_total, paid_amount, discount_percentage,
			loyalty_program, redeem_loyalty_points, loyalty_amount, loyalty_points,
			fields, status, finalize_action_id, updated_at
		FROM invoices
		WHERE id = $1
	`, invoiceID).Scan(
		&inv.ID, &inv.Kind, &inv.StoreID, &inv.CustomerID, &inv.Currency,
		&inv.GrandTotal, &inv.RoundedTotal, &inv.PaidAmount, &inv.DiscountPercentage,
		&inv.LoyaltyProgram, &inv.Loyalty.Enabled, &inv.Loyalty.Amount, &inv.Loyalty.Points,
		&fieldsRaw, &inv.Status, &actionID, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	inv.FinalizeActionID = actionID.String
	inv.UpdatedAt = inv.UpdatedAt.UTC()
	if len(fieldsRaw) > 0 {
		if err := json.Unmarshal(fieldsRaw, &inv.Fields); err != nil {
			return nil, fmt.Errorf("decode invoice fields: %w", err)
		}
	}

	if inv.Items, err = s.listInvoiceItems(ctx, invoiceID); err != nil {
		return nil, err
	}
	if inv.Payments, err = s.listInvoicePayments(ctx, invoiceID); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Store) listInvoiceItems(ctx context.Context, invoiceID string) ([]domain.InvoiceItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_code, qty, amount
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY idx
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.InvoiceItem, 0, 8)
	for rows.Next() {
		var item domain.InvoiceItem
		if err := rows.Scan(&item.ItemCode, &item.Qty, &item.Amount); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) listInvoicePayments(ctx context.Context, invoiceID string) ([]domain.InvoicePayment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mode_of_payment, type, amount, is_default, revision
		FROM invoice_payments
		WHERE invoice_id = $1
		ORDER BY idx
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.InvoicePayment, 0, 4)
	for rows.Next() {
		var p domain.InvoicePayment
		if err := rows.Scan(&p.ModeOfPayment, &p.Type, &p.Amount, &p.Default, &p.Revision); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *Store) SavePaymentAmount(ctx context.Context, invoiceID string, modeOfPayment string, amount decimal.Decimal) (domain.InvoicePayment, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return domain.InvoicePayment{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockDraftInvoice(ctx, tx, invoiceID); err != nil {
		return domain.InvoicePayment{}, err
	}

	var stored domain.InvoicePayment
	err = tx.QueryRowContext(ctx, `
		UPDATE invoice_payments
		SET amount = $3, revision = revision + 1
		WHERE invoice_id = $1 AND mode_of_payment = $2
		RETURNING mode_of_payment, type, amount, is_default, revision
	`, invoiceID, modeOfPayment, amount).Scan(&stored.ModeOfPayment, &stored.Type, &stored.Amount, &stored.Default, &stored.Revision)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.InvoicePayment{}, fmt.Errorf("%w: mode of payment %q not on invoice %s", store.ErrInvalidInput, modeOfPayment, invoiceID)
		}
		return domain.InvoicePayment{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE invoices
		SET paid_amount = (SELECT COALESCE(SUM(amount), 0) FROM invoice_payments WHERE invoice_id = $1),
			updated_at = now()
		WHERE id = $1
	`, invoiceID); err != nil {
		return domain.InvoicePayment{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.InvoicePayment{}, err
	}
	return stored, nil
}

func (s *Store) SaveLoyaltyRedemption(ctx context.Context, invoiceID string, redemption domain.LoyaltyRedemption) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockDraftInvoice(ctx, tx, invoiceID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE invoices
		SET redeem_loyalty_points = $2, loyalty_amount = $3, loyalty_points = $4, updated_at = now()
		WHERE id = $1
	`, invoiceID, redemption.Enabled, redemption.Amount, redemption.Points); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) SaveInvoiceFields(ctx context.Context, invoiceID string, values map[string]string) error {
	payload, err := json.Marshal(values)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockDraftInvoice(ctx, tx, invoiceID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE invoices
		SET fields = fields || $2::jsonb, updated_at = now()
		WHERE id = $1
	`, invoiceID, string(payload)); err != nil {
		return err
	}
	return tx.Commit()
}

// FinalizeInvoice flips a draft invoice to submitted under actionID. Replaying
// the same action id is a no-op that returns the invoice.
func (s *Store) FinalizeInvoice(ctx context.Context, invoiceID string, actionID string) (*domain.Invoice, error) {
	if strings.TrimSpace(actionID) == "" {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE invoices
		SET status = $3, finalize_action_id = $2, updated_at = now()
		WHERE id = $1 AND status = $4
	`, invoiceID, actionID, domain.InvoiceStatusSubmitted, domain.InvoiceStatusDraft)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	inv, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if affected == 0 && inv.FinalizeActionID != actionID {
		return nil, store.ErrFinalized
	}
	return inv, nil
}

func (s *Store) GetLoyaltyAccount(ctx context.Context, customerID string) (*domain.LoyaltyAccount, error) {
	account := domain.LoyaltyAccount{CustomerID: customerID}
	err := s.db.QueryRowContext(ctx, `
		SELECT program, points_available, conversion_factor
		FROM loyalty_accounts
		WHERE customer_id = $1
	`, customerID).Scan(&account.Program, &account.PointsAvailable, &account.ConversionFactor)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return &account, nil
}

func lockDraftInvoice(ctx context.Context, tx *sql.Tx, invoiceID string) error {
	var status string
	err := tx.QueryRowContext(ctx, `SELECT status FROM invoices WHERE id = $1 FOR UPDATE`, invoiceID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	if status == domain.InvoiceStatusSubmitted {
		return store.ErrFinalized
	}
	return nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, store_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.StoreID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE store_id = $1
			AND created_at >= $2
			AND created_at < $3
		ORDER BY created_at DESC
		LIMIT $4
	`, storeID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.StoreID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
