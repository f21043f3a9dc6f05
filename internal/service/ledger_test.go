package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimesagro/finance-sync-go/internal/domain"
	"github.com/dimesagro/finance-sync-go/internal/infra/storage/memory"
	"github.com/dimesagro/finance-sync-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func newLedgerService(store *memory.Store) *service.LedgerService {
	return service.NewLedgerService(store, "EUR", zap.NewNop())
}

func TestCreateInvoice_DefaultsAndTotals(t *testing.T) {
	store := memory.NewStore()
	svc := newLedgerService(store)

	inv := &domain.Invoice{
		InvoiceNumber: "INV-001",
		Kind:          domain.InvoiceSales,
		LineItems: []domain.LineItem{
			{Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(500), TaxRate: decimal.NewFromInt(18)},
		},
		// Caller-supplied figures and sync state must be discarded.
		Total: decimal.NewFromInt(1),
		Sync:  domain.RemoteSync{RemoteID: "forged", State: domain.SyncStateSynced},
	}

	saved, err := svc.CreateInvoice(context.Background(), inv)
	if err != nil {
		t.Fatalf("expected create, got %v", err)
	}

	if saved.ID == "" {
		t.Error("expected generated id")
	}
	if saved.Currency != "EUR" {
		t.Errorf("expected base currency default, got %s", saved.Currency)
	}
	if saved.Status != domain.InvoiceDraft {
		t.Errorf("expected draft default, got %s", saved.Status)
	}
	if !saved.Subtotal.Equal(decimal.NewFromInt(1000)) ||
		!saved.TaxAmount.Equal(decimal.NewFromInt(180)) ||
		!saved.Total.Equal(decimal.NewFromInt(1180)) {
		t.Errorf("expected recomputed totals 1000/180/1180, got %s/%s/%s",
			saved.Subtotal, saved.TaxAmount, saved.Total)
	}
	if saved.Sync.Synced() || saved.Sync.RemoteID != "" {
		t.Error("new invoice must start with a fresh sync envelope")
	}
}

func TestCreateInvoice_Invalid(t *testing.T) {
	svc := newLedgerService(memory.NewStore())

	_, err := svc.CreateInvoice(context.Background(), &domain.Invoice{Kind: domain.InvoiceSales})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error for missing number, got %v", err)
	}
}

func TestCreateInvoice_DuplicateNumber(t *testing.T) {
	store := memory.NewStore()
	svc := newLedgerService(store)
	ctx := context.Background()

	mk := func() *domain.Invoice {
		return &domain.Invoice{InvoiceNumber: "INV-001", Kind: domain.InvoiceSales}
	}
	if _, err := svc.CreateInvoice(ctx, mk()); err != nil {
		t.Fatalf("expected first create, got %v", err)
	}

	_, err := svc.CreateInvoice(ctx, mk())
	var duplicate *domain.ErrDuplicate
	if !errors.As(err, &duplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestCreatePayment_Defaults(t *testing.T) {
	store := memory.NewStore()
	svc := newLedgerService(store)

	p := &domain.Payment{
		PaymentNumber: "PAY-001",
		Kind:          domain.PaymentInbound,
		Amount:        decimal.NewFromInt(250),
	}

	saved, err := svc.CreatePayment(context.Background(), p)
	if err != nil {
		t.Fatalf("expected create, got %v", err)
	}
	if saved.Status != domain.PaymentPending {
		t.Errorf("expected pending default, got %s", saved.Status)
	}
	if saved.PaidAt.IsZero() {
		t.Error("expected paid-at default")
	}
	if saved.Currency != "EUR" {
		t.Errorf("expected base currency default, got %s", saved.Currency)
	}
}

func TestCreateTransaction(t *testing.T) {
	store := memory.NewStore()
	svc := newLedgerService(store)
	ctx := context.Background()

	tx := &domain.Transaction{
		Kind:   domain.TransactionExpense,
		Amount: decimal.NewFromInt(75),
	}
	saved, err := svc.CreateTransaction(ctx, tx)
	if err != nil {
		t.Fatalf("expected create, got %v", err)
	}
	if saved.ID == "" || saved.OccurredAt.IsZero() {
		t.Error("expected id and occurred-at defaults")
	}

	_, err = svc.CreateTransaction(ctx, &domain.Transaction{
		Kind:   "donation",
		Amount: decimal.NewFromInt(10),
	})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error for unknown kind, got %v", err)
	}
}

func TestCreateTransaction_BackdatedKeepsTimestamp(t *testing.T) {
	svc := newLedgerService(memory.NewStore())

	at := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	saved, err := svc.CreateTransaction(context.Background(), &domain.Transaction{
		Kind:       domain.TransactionIncome,
		Amount:     decimal.NewFromInt(10),
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("expected create, got %v", err)
	}
	if !saved.OccurredAt.Equal(at) {
		t.Errorf("expected back-dated timestamp preserved, got %s", saved.OccurredAt)
	}
}
