package service

import (
	"context"
	"time"

	"github.com/dimesagro/finance-sync-go/internal/domain"
	"github.com/dimesagro/finance-sync-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var ledgerTracer = otel.Tracer("service/ledger")

// LedgerService creates validated ledger records. Derived totals are
// recomputed here, synchronously, discarding any caller-supplied figures.
type LedgerService struct {
	store        port.LedgerStore
	baseCurrency string
	logger       *zap.Logger
}

// NewLedgerService creates the ledger write service.
func NewLedgerService(store port.LedgerStore, baseCurrency string, logger *zap.Logger) *LedgerService {
	return &LedgerService{store: store, baseCurrency: baseCurrency, logger: logger}
}

// CreateTransaction validates and persists a generic ledger entry.
func (l *LedgerService) CreateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateTransaction")
	defer span.End()

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.Currency == "" {
		tx.Currency = l.baseCurrency
	}
	if tx.OccurredAt.IsZero() {
		tx.OccurredAt = time.Now()
	}
	if tx.Status == "" {
		tx.Status = domain.TransactionPending
	}

	if err := tx.Validate(); err != nil {
		return nil, err
	}

	saved, err := l.store.SaveTransaction(ctx, tx)
	if err != nil {
		l.logger.Error("failed to save transaction", zap.String("transaction_id", tx.ID), zap.Error(err))
		return nil, err
	}
	return saved, nil
}

// CreateInvoice validates an invoice, recomputes its derived totals and
// persists it with a fresh sync envelope.
func (l *LedgerService) CreateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateInvoice")
	defer span.End()

	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.Currency == "" {
		inv.Currency = l.baseCurrency
	}
	if inv.IssueDate.IsZero() {
		inv.IssueDate = time.Now()
	}
	if inv.Status == "" {
		inv.Status = domain.InvoiceDraft
	}
	inv.Sync = domain.RemoteSync{Errors: []domain.SyncError{}}
	inv.Version = 0

	if err := inv.Validate(); err != nil {
		return nil, err
	}
	inv.ComputeTotals()

	saved, err := l.store.SaveInvoice(ctx, inv)
	if err != nil {
		l.logger.Error("failed to save invoice",
			zap.String("invoice_number", inv.InvoiceNumber), zap.Error(err))
		return nil, err
	}

	l.logger.Info("invoice created",
		zap.String("invoice_id", saved.ID),
		zap.String("invoice_number", saved.InvoiceNumber),
		zap.String("total", saved.Total.String()))
	return saved, nil
}

// CreatePayment validates and persists a payment with a fresh sync envelope.
func (l *LedgerService) CreatePayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreatePayment")
	defer span.End()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Currency == "" {
		p.Currency = l.baseCurrency
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now()
	}
	if p.Status == "" {
		p.Status = domain.PaymentPending
	}
	p.Sync = domain.RemoteSync{Errors: []domain.SyncError{}}
	p.Version = 0

	if err := p.Validate(); err != nil {
		return nil, err
	}

	saved, err := l.store.SavePayment(ctx, p)
	if err != nil {
		l.logger.Error("failed to save payment",
			zap.String("payment_number", p.PaymentNumber), zap.Error(err))
		return nil, err
	}

	l.logger.Info("payment created",
		zap.String("payment_id", saved.ID),
		zap.String("payment_number", saved.PaymentNumber))
	return saved, nil
}
