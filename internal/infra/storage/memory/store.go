// Package memory provides an in-memory LedgerStore used by tests and
// single-node development setups.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dimesagro/finance-sync-go/internal/domain"
	"github.com/dimesagro/finance-sync-go/internal/port"
)

// Store is a mutex-guarded in-memory ledger store. Records are deep-copied
// on the way in and out so callers can never alias internal state.
type Store struct {
	mu           sync.RWMutex
	invoices     map[string]domain.Invoice
	payments     map[string]domain.Payment
	transactions map[string]domain.Transaction
}

// NewStore creates an empty in-memory ledger store.
func NewStore() *Store {
	return &Store{
		invoices:     make(map[string]domain.Invoice),
		payments:     make(map[string]domain.Payment),
		transactions: make(map[string]domain.Transaction),
	}
}

// ---------------------------------------------------------------
// Invoices
// ---------------------------------------------------------------

// SaveInvoice inserts or updates an invoice. A duplicate invoice number on a
// non-cancelled record is rejected; an update with a stale Version yields
// ErrConflict.
func (s *Store) SaveInvoice(_ context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.invoices {
		if other.ID != inv.ID && other.InvoiceNumber == inv.InvoiceNumber && other.Status != domain.InvoiceCancelled {
			return nil, &domain.ErrDuplicate{Field: "invoice_number", Value: inv.InvoiceNumber}
		}
	}

	saved := cloneInvoice(*inv)
	if stored, ok := s.invoices[inv.ID]; ok {
		if stored.Version != inv.Version {
			return nil, &domain.ErrConflict{Resource: "invoice", ID: inv.ID}
		}
		saved.Version = stored.Version + 1
	} else {
		saved.Version = 1
		if saved.CreatedAt.IsZero() {
			saved.CreatedAt = time.Now()
		}
	}
	s.invoices[saved.ID] = saved

	out := cloneInvoice(saved)
	return &out, nil
}

func (s *Store) GetInvoice(_ context.Context, id string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "invoice", ID: id}
	}
	out := cloneInvoice(inv)
	return &out, nil
}

func (s *Store) ListUnsyncedInvoices(_ context.Context) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Invoice
	for _, inv := range s.invoices {
		if !inv.Sync.Synced() {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, nil
}

func (s *Store) ListInvoicesInRange(_ context.Context, start, end *time.Time) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Invoice
	for _, inv := range s.invoices {
		if inRange(inv.IssueDate, start, end) {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, nil
}

func (s *Store) CountInvoicesBySyncState(_ context.Context) (domain.SyncStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats domain.SyncStats
	for _, inv := range s.invoices {
		if inv.Sync.Synced() {
			stats.Synced++
		} else {
			stats.Pending++
		}
	}
	return stats, nil
}

// ---------------------------------------------------------------
// Payments
// ---------------------------------------------------------------

func (s *Store) SavePayment(_ context.Context, p *domain.Payment) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.payments {
		if other.ID != p.ID && other.PaymentNumber == p.PaymentNumber && other.Status != domain.PaymentCancelled {
			return nil, &domain.ErrDuplicate{Field: "payment_number", Value: p.PaymentNumber}
		}
	}

	saved := clonePayment(*p)
	if stored, ok := s.payments[p.ID]; ok {
		if stored.Version != p.Version {
			return nil, &domain.ErrConflict{Resource: "payment", ID: p.ID}
		}
		saved.Version = stored.Version + 1
	} else {
		saved.Version = 1
		if saved.CreatedAt.IsZero() {
			saved.CreatedAt = time.Now()
		}
	}
	s.payments[saved.ID] = saved

	out := clonePayment(saved)
	return &out, nil
}

func (s *Store) GetPayment(_ context.Context, id string) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "payment", ID: id}
	}
	out := clonePayment(p)
	return &out, nil
}

func (s *Store) ListUnsyncedPayments(_ context.Context) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Payment
	for _, p := range s.payments {
		if !p.Sync.Synced() {
			out = append(out, clonePayment(p))
		}
	}
	return out, nil
}

func (s *Store) ListPaymentsInRange(_ context.Context, start, end *time.Time) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Payment
	for _, p := range s.payments {
		if inRange(p.PaidAt, start, end) {
			out = append(out, clonePayment(p))
		}
	}
	return out, nil
}

func (s *Store) CountPaymentsBySyncState(_ context.Context) (domain.SyncStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats domain.SyncStats
	for _, p := range s.payments {
		if p.Sync.Synced() {
			stats.Synced++
		} else {
			stats.Pending++
		}
	}
	return stats, nil
}

// ---------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------

func (s *Store) SaveTransaction(_ context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *tx
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now()
	}
	s.transactions[saved.ID] = saved

	out := saved
	return &out, nil
}

func (s *Store) ListTransactionsInRange(_ context.Context, start, end *time.Time) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for _, tx := range s.transactions {
		if inRange(tx.OccurredAt, start, end) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------

// inRange checks an inclusive, optionally unbounded date range.
func inRange(t time.Time, start, end *time.Time) bool {
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && t.After(*end) {
		return false
	}
	return true
}

func cloneInvoice(inv domain.Invoice) domain.Invoice {
	out := inv
	out.LineItems = append([]domain.LineItem(nil), inv.LineItems...)
	out.Sync = cloneSync(inv.Sync)
	return out
}

func clonePayment(p domain.Payment) domain.Payment {
	out := p
	out.Sync = cloneSync(p.Sync)
	return out
}

func cloneSync(rs domain.RemoteSync) domain.RemoteSync {
	out := rs
	out.Errors = append([]domain.SyncError(nil), rs.Errors...)
	if rs.LastSyncedAt != nil {
		at := *rs.LastSyncedAt
		out.LastSyncedAt = &at
	}
	return out
}

// Compile-time check: Store implements the ledger store port.
var _ port.LedgerStore = (*Store)(nil)
