// Package postgres provides the PostgreSQL LedgerStore.
//
// Expected schema (migrations are managed outside this service):
//
//	invoices(id text primary key, invoice_number text, kind text,
//	    issue_date timestamptz, due_date timestamptz,
//	    counterparty jsonb, line_items jsonb, currency text,
//	    subtotal numeric, tax_amount numeric, total numeric, status text,
//	    remote_id text, sync_state text, last_synced_at timestamptz,
//	    sync_errors jsonb, version int, created_at timestamptz)
//	    + unique index on invoice_number where status <> 'cancelled'
//	payments(id text primary key, payment_number text, kind text,
//	    amount numeric, currency text, counterparty jsonb, status text,
//	    paid_at timestamptz, remote_id text, sync_state text,
//	    last_synced_at timestamptz, sync_errors jsonb, version int,
//	    created_at timestamptz)
//	    + unique index on payment_number where status <> 'cancelled'
//	transactions(id text primary key, kind text, amount numeric,
//	    currency text, category text, occurred_at timestamptz, status text,
//	    document_id text, document_kind text, created_at timestamptz)
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/dimesagro/finance-sync-go/internal/domain"
	"github.com/dimesagro/finance-sync-go/internal/port"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Store is a PostgreSQL-backed ledger store.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open *sql.DB (lib/pq driver).
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// ---------------------------------------------------------------
// Invoices
// ---------------------------------------------------------------

func (s *Store) SaveInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	counterparty, err := json.Marshal(inv.Counterparty)
	if err != nil {
		return nil, &domain.ErrStorage{Op: "save invoice", Err: err}
	}
	lineItems, err := json.Marshal(inv.LineItems)
	if err != nil {
		return nil, &domain.ErrStorage{Op: "save invoice", Err: err}
	}
	syncErrors, err := json.Marshal(inv.Sync.Errors)
	if err != nil {
		return nil, &domain.ErrStorage{Op: "save invoice", Err: err}
	}

	saved := *inv
	saved.LineItems = append([]domain.LineItem(nil), inv.LineItems...)

	if inv.Version == 0 {
		const insert = `INSERT INTO invoices
			(id, invoice_number, kind, issue_date, due_date, counterparty, line_items,
			 currency, subtotal, tax_amount, total, status,
			 remote_id, sync_state, last_synced_at, sync_errors, version, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,1,$17)`

		createdAt := inv.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		_, err = s.db.ExecContext(ctx, insert,
			inv.ID, inv.InvoiceNumber, inv.Kind, inv.IssueDate, inv.DueDate,
			counterparty, lineItems, inv.Currency,
			inv.Subtotal, inv.TaxAmount, inv.Total, inv.Status,
			inv.Sync.RemoteID, inv.Sync.State, inv.Sync.LastSyncedAt, syncErrors, createdAt)
		if err != nil {
			return nil, s.writeError("invoice", "invoice_number", inv.InvoiceNumber, err)
		}
		saved.Version = 1
		saved.CreatedAt = createdAt
		return &saved, nil
	}

	const update = `UPDATE invoices SET
		invoice_number=$2, kind=$3, issue_date=$4, due_date=$5, counterparty=$6,
		line_items=$7, currency=$8, subtotal=$9, tax_amount=$10, total=$11, status=$12,
		remote_id=$13, sync_state=$14, last_synced_at=$15, sync_errors=$16,
		version=version+1
		WHERE id=$1 AND version=$17`

	res, err := s.db.ExecContext(ctx, update,
		inv.ID, inv.InvoiceNumber, inv.Kind, inv.IssueDate, inv.DueDate, counterparty,
		lineItems, inv.Currency, inv.Subtotal, inv.TaxAmount, inv.Total, inv.Status,
		inv.Sync.RemoteID, inv.Sync.State, inv.Sync.LastSyncedAt, syncErrors,
		inv.Version)
	if err != nil {
		return nil, s.writeError("invoice", "invoice_number", inv.InvoiceNumber, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, s.staleOrMissing(ctx, "invoices", "invoice", inv.ID)
	}
	saved.Version = inv.Version + 1
	return &saved, nil
}

func (s *Store) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	const query = selectInvoices + ` WHERE id=$1`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, &domain.ErrStorage{Op: "get invoice", Err: err}
	}
	defer rows.Close()

	invs, err := scanInvoices(rows)
	if err != nil {
		return nil, &domain.ErrStorage{Op: "get invoice", Err: err}
	}
	if len(invs) == 0 {
		return nil, &domain.ErrNotFound{Resource: "invoice", ID: id}
	}
	return &invs[0], nil
}

func (s *Store) ListUnsyncedInvoices(ctx context.Context) ([]domain.Invoice, error) {
	const query = selectInvoices + ` WHERE sync_state IS DISTINCT FROM 'synced'`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.ErrStorage{Op: "list unsynced invoices", Err: err}
	}
	defer rows.Close()
	return scanInvoices(rows)
}

func (s *Store) ListInvoicesInRange(ctx context.Context, start, end *time.Time) ([]domain.Invoice, error) {
	const query = selectInvoices + `
		WHERE ($1::timestamptz IS NULL OR issue_date >= $1)
		  AND ($2::timestamptz IS NULL OR issue_date <= $2)`

	rows, err := s.db.QueryContext(ctx, query, nullTime(start), nullTime(end))
	if err != nil {
		return nil, &domain.ErrStorage{Op: "list invoices in range", Err: err}
	}
	defer rows.Close()
	return scanInvoices(rows)
}

func (s *Store) CountInvoicesBySyncState(ctx context.Context) (domain.SyncStats, error) {
	const query = `SELECT
		COUNT(*) FILTER (WHERE sync_state = 'synced'),
		COUNT(*) FILTER (WHERE sync_state IS DISTINCT FROM 'synced')
		FROM invoices`

	var stats domain.SyncStats
	if err := s.db.QueryRowContext(ctx, query).Scan(&stats.Synced, &stats.Pending); err != nil {
		return domain.SyncStats{}, &domain.ErrStorage{Op: "count invoices", Err: err}
	}
	return stats, nil
}

const selectInvoices = `SELECT id, invoice_number, kind, issue_date, due_date,
	counterparty, line_items, currency, subtotal, tax_amount, total, status,
	remote_id, sync_state, last_synced_at, sync_errors, version, created_at
	FROM invoices`

func scanInvoices(rows *sql.Rows) ([]domain.Invoice, error) {
	var out []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		var counterparty, lineItems, syncErrors []byte
		var lastSyncedAt sql.NullTime

		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.Kind, &inv.IssueDate,
			&inv.DueDate, &counterparty, &lineItems, &inv.Currency,
			&inv.Subtotal, &inv.TaxAmount, &inv.Total, &inv.Status,
			&inv.Sync.RemoteID, &inv.Sync.State, &lastSyncedAt, &syncErrors,
			&inv.Version, &inv.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(counterparty, &inv.Counterparty); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(lineItems, &inv.LineItems); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(syncErrors, &inv.Sync.Errors); err != nil {
			return nil, err
		}
		if lastSyncedAt.Valid {
			at := lastSyncedAt.Time
			inv.Sync.LastSyncedAt = &at
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------
// Payments
// ---------------------------------------------------------------

func (s *Store) SavePayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	counterparty, err := json.Marshal(p.Counterparty)
	if err != nil {
		return nil, &domain.ErrStorage{Op: "save payment", Err: err}
	}
	syncErrors, err := json.Marshal(p.Sync.Errors)
	if err != nil {
		return nil, &domain.ErrStorage{Op: "save payment", Err: err}
	}

	saved := *p

	if p.Version == 0 {
		const insert = `INSERT INTO payments
			(id, payment_number, kind, amount, currency, counterparty, status, paid_at,
			 remote_id, sync_state, last_synced_at, sync_errors, version, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,1,$13)`

		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		_, err = s.db.ExecContext(ctx, insert,
			p.ID, p.PaymentNumber, p.Kind, p.Amount, p.Currency, counterparty,
			p.Status, p.PaidAt, p.Sync.RemoteID, p.Sync.State, p.Sync.LastSyncedAt,
			syncErrors, createdAt)
		if err != nil {
			return nil, s.writeError("payment", "payment_number", p.PaymentNumber, err)
		}
		saved.Version = 1
		saved.CreatedAt = createdAt
		return &saved, nil
	}

	const update = `UPDATE payments SET
		payment_number=$2, kind=$3, amount=$4, currency=$5, counterparty=$6,
		status=$7, paid_at=$8, remote_id=$9, sync_state=$10, last_synced_at=$11,
		sync_errors=$12, version=version+1
		WHERE id=$1 AND version=$13`

	res, err := s.db.ExecContext(ctx, update,
		p.ID, p.PaymentNumber, p.Kind, p.Amount, p.Currency, counterparty,
		p.Status, p.PaidAt, p.Sync.RemoteID, p.Sync.State, p.Sync.LastSyncedAt,
		syncErrors, p.Version)
	if err != nil {
		return nil, s.writeError("payment", "payment_number", p.PaymentNumber, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, s.staleOrMissing(ctx, "payments", "payment", p.ID)
	}
	saved.Version = p.Version + 1
	return &saved, nil
}

func (s *Store) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	const query = selectPayments + ` WHERE id=$1`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, &domain.ErrStorage{Op: "get payment", Err: err}
	}
	defer rows.Close()

	ps, err := scanPayments(rows)
	if err != nil {
		return nil, &domain.ErrStorage{Op: "get payment", Err: err}
	}
	if len(ps) == 0 {
		return nil, &domain.ErrNotFound{Resource: "payment", ID: id}
	}
	return &ps[0], nil
}

func (s *Store) ListUnsyncedPayments(ctx context.Context) ([]domain.Payment, error) {
	const query = selectPayments + ` WHERE sync_state IS DISTINCT FROM 'synced'`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.ErrStorage{Op: "list unsynced payments", Err: err}
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (s *Store) ListPaymentsInRange(ctx context.Context, start, end *time.Time) ([]domain.Payment, error) {
	const query = selectPayments + `
		WHERE ($1::timestamptz IS NULL OR paid_at >= $1)
		  AND ($2::timestamptz IS NULL OR paid_at <= $2)`

	rows, err := s.db.QueryContext(ctx, query, nullTime(start), nullTime(end))
	if err != nil {
		return nil, &domain.ErrStorage{Op: "list payments in range", Err: err}
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (s *Store) CountPaymentsBySyncState(ctx context.Context) (domain.SyncStats, error) {
	const query = `SELECT
		COUNT(*) FILTER (WHERE sync_state = 'synced'),
		COUNT(*) FILTER (WHERE sync_state IS DISTINCT FROM 'synced')
		FROM payments`

	var stats domain.SyncStats
	if err := s.db.QueryRowContext(ctx, query).Scan(&stats.Synced, &stats.Pending); err != nil {
		return domain.SyncStats{}, &domain.ErrStorage{Op: "count payments", Err: err}
	}
	return stats, nil
}

const selectPayments = `SELECT id, payment_number, kind, amount, currency,
	counterparty, status, paid_at, remote_id, sync_state, last_synced_at,
	sync_errors, version, created_at
	FROM payments`

func scanPayments(rows *sql.Rows) ([]domain.Payment, error) {
	var out []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var counterparty, syncErrors []byte
		var lastSyncedAt sql.NullTime

		if err := rows.Scan(&p.ID, &p.PaymentNumber, &p.Kind, &p.Amount, &p.Currency,
			&counterparty, &p.Status, &p.PaidAt, &p.Sync.RemoteID, &p.Sync.State,
			&lastSyncedAt, &syncErrors, &p.Version, &p.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(counterparty, &p.Counterparty); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(syncErrors, &p.Sync.Errors); err != nil {
			return nil, err
		}
		if lastSyncedAt.Valid {
			at := lastSyncedAt.Time
			p.Sync.LastSyncedAt = &at
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------

func (s *Store) SaveTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	const insert = `INSERT INTO transactions
		(id, kind, amount, currency, category, occurred_at, status, document_id, document_kind, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
		kind=EXCLUDED.kind, amount=EXCLUDED.amount, currency=EXCLUDED.currency,
		category=EXCLUDED.category, occurred_at=EXCLUDED.occurred_at,
		status=EXCLUDED.status, document_id=EXCLUDED.document_id,
		document_kind=EXCLUDED.document_kind`

	saved := *tx
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, insert,
		saved.ID, saved.Kind, saved.Amount, saved.Currency, saved.Category,
		saved.OccurredAt, saved.Status, saved.DocumentID, saved.DocumentKind, saved.CreatedAt)
	if err != nil {
		return nil, &domain.ErrStorage{Op: "save transaction", Err: err}
	}
	return &saved, nil
}

func (s *Store) ListTransactionsInRange(ctx context.Context, start, end *time.Time) ([]domain.Transaction, error) {
	const query = `SELECT id, kind, amount, currency, category, occurred_at,
		status, document_id, document_kind, created_at
		FROM transactions
		WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
		  AND ($2::timestamptz IS NULL OR occurred_at <= $2)`

	rows, err := s.db.QueryContext(ctx, query, nullTime(start), nullTime(end))
	if err != nil {
		return nil, &domain.ErrStorage{Op: "list transactions", Err: err}
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(&tx.ID, &tx.Kind, &tx.Amount, &tx.Currency, &tx.Category,
			&tx.OccurredAt, &tx.Status, &tx.DocumentID, &tx.DocumentKind, &tx.CreatedAt); err != nil {
			return nil, &domain.ErrStorage{Op: "list transactions", Err: err}
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.ErrStorage{Op: "list transactions", Err: err}
	}
	return out, nil
}

// ---------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// writeError maps a pq unique violation to ErrDuplicate, everything else to
// ErrStorage.
func (s *Store) writeError(resource, field, value string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return &domain.ErrDuplicate{Field: field, Value: value}
	}
	return &domain.ErrStorage{Op: "save " + resource, Err: err}
}

// staleOrMissing distinguishes a version conflict from a missing row after an
// UPDATE touched nothing.
func (s *Store) staleOrMissing(ctx context.Context, table, resource, id string) error {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM ` + table + ` WHERE id=$1)`
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return &domain.ErrStorage{Op: "save " + resource, Err: err}
	}
	if exists {
		return &domain.ErrConflict{Resource: resource, ID: id}
	}
	return &domain.ErrNotFound{Resource: resource, ID: id}
}

// Compile-time check: Store implements the ledger store port.
var _ port.LedgerStore = (*Store)(nil)
