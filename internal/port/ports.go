// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/dimesagro/finance-sync-go/internal/domain"
)

// LedgerStore is the persistence boundary for the local ledger. It
// exclusively owns persisted state; services hold transient copies.
//
// Save methods recompute nothing themselves — callers must validate and
// derive totals first — but they do enforce uniqueness and the optimistic
// version check (a stale Version yields *domain.ErrConflict).
type LedgerStore interface {
	// Invoices
	SaveInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	ListUnsyncedInvoices(ctx context.Context) ([]domain.Invoice, error)
	ListInvoicesInRange(ctx context.Context, start, end *time.Time) ([]domain.Invoice, error)
	CountInvoicesBySyncState(ctx context.Context) (domain.SyncStats, error)

	// Payments
	SavePayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)
	ListUnsyncedPayments(ctx context.Context) ([]domain.Payment, error)
	ListPaymentsInRange(ctx context.Context, start, end *time.Time) ([]domain.Payment, error)
	CountPaymentsBySyncState(ctx context.Context) (domain.SyncStats, error)

	// Transactions
	SaveTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	ListTransactionsInRange(ctx context.Context, start, end *time.Time) ([]domain.Transaction, error)
}

// RemoteLedger pushes local records to the external accounting/ERP system
// and probes its availability.
type RemoteLedger interface {
	SendInvoice(ctx context.Context, inv *domain.Invoice) (*domain.RemoteAck, error)
	SendPayment(ctx context.Context, p *domain.Payment) (*domain.RemoteAck, error)
	SystemStatus(ctx context.Context) (bool, error)
}

// EventPublisher emits ledger lifecycle events (e.g. record synced) to a
// message broker. Publishing is best-effort from the sync path's view.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
	Close() error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
