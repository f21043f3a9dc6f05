package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimesagro/finance-sync-go/internal/domain"
	"github.com/dimesagro/finance-sync-go/internal/infra/storage/memory"

	"github.com/shopspring/decimal"
)

func newInvoice(id, number string, issued time.Time) *domain.Invoice {
	return &domain.Invoice{
		ID:            id,
		InvoiceNumber: number,
		Kind:          domain.InvoiceSales,
		Status:        domain.InvoicePending,
		IssueDate:     issued,
		LineItems: []domain.LineItem{
			{Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
		},
	}
}

func TestSaveInvoice_AssignsVersion(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	saved, err := store.SaveInvoice(ctx, newInvoice("inv-1", "INV-001", time.Now()))
	if err != nil {
		t.Fatalf("expected save, got %v", err)
	}
	if saved.Version != 1 {
		t.Errorf("expected version 1 on insert, got %d", saved.Version)
	}

	saved.Status = domain.InvoicePaid
	updated, err := store.SaveInvoice(ctx, saved)
	if err != nil {
		t.Fatalf("expected update, got %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("expected version 2 after update, got %d", updated.Version)
	}
}

func TestSaveInvoice_StaleVersionConflicts(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	first, err := store.SaveInvoice(ctx, newInvoice("inv-1", "INV-001", time.Now()))
	if err != nil {
		t.Fatalf("expected save, got %v", err)
	}

	// Two readers hold version 1; only the first write may land.
	stale := *first
	if _, err := store.SaveInvoice(ctx, first); err != nil {
		t.Fatalf("expected first write to land, got %v", err)
	}

	_, err = store.SaveInvoice(ctx, &stale)
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}
}

func TestSaveInvoice_DuplicateNumber(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	if _, err := store.SaveInvoice(ctx, newInvoice("inv-1", "INV-001", time.Now())); err != nil {
		t.Fatalf("expected save, got %v", err)
	}

	_, err := store.SaveInvoice(ctx, newInvoice("inv-2", "INV-001", time.Now()))
	var duplicate *domain.ErrDuplicate
	if !errors.As(err, &duplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestSaveInvoice_CancelledNumberReusable(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	cancelled := newInvoice("inv-1", "INV-001", time.Now())
	cancelled.Status = domain.InvoiceCancelled
	if _, err := store.SaveInvoice(ctx, cancelled); err != nil {
		t.Fatalf("expected save, got %v", err)
	}

	if _, err := store.SaveInvoice(ctx, newInvoice("inv-2", "INV-001", time.Now())); err != nil {
		t.Fatalf("expected number reuse after cancellation, got %v", err)
	}
}

func TestGetInvoice_NotFound(t *testing.T) {
	store := memory.NewStore()

	_, err := store.GetInvoice(context.Background(), "missing")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListUnsyncedInvoices(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	pending, _ := store.SaveInvoice(ctx, newInvoice("inv-1", "INV-001", time.Now()))

	synced := newInvoice("inv-2", "INV-002", time.Now())
	synced.Sync.MarkSynced("erp-2", time.Now())
	if _, err := store.SaveInvoice(ctx, synced); err != nil {
		t.Fatalf("expected save, got %v", err)
	}

	unsynced, err := store.ListUnsyncedInvoices(ctx)
	if err != nil {
		t.Fatalf("expected list, got %v", err)
	}
	if len(unsynced) != 1 || unsynced[0].ID != pending.ID {
		t.Errorf("expected only inv-1 pending, got %+v", unsynced)
	}

	stats, err := store.CountInvoicesBySyncState(ctx)
	if err != nil {
		t.Fatalf("expected stats, got %v", err)
	}
	if stats.Synced != 1 || stats.Pending != 1 {
		t.Errorf("expected 1 synced / 1 pending, got %+v", stats)
	}
}

func TestListInvoicesInRange(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	for i, d := range []time.Time{jan, feb, mar} {
		inv := newInvoice(string(rune('a'+i)), "INV-00"+string(rune('1'+i)), d)
		if _, err := store.SaveInvoice(ctx, inv); err != nil {
			t.Fatalf("expected save, got %v", err)
		}
	}

	// Boundaries are inclusive.
	out, err := store.ListInvoicesInRange(ctx, &jan, &feb)
	if err != nil {
		t.Fatalf("expected list, got %v", err)
	}
	if len(out) != 2 {
		t.Errorf("expected 2 invoices in [jan, feb], got %d", len(out))
	}

	// Nil bounds are unbounded.
	out, err = store.ListInvoicesInRange(ctx, nil, nil)
	if err != nil {
		t.Fatalf("expected list, got %v", err)
	}
	if len(out) != 3 {
		t.Errorf("expected all 3 invoices, got %d", len(out))
	}

	out, err = store.ListInvoicesInRange(ctx, &mar, nil)
	if err != nil {
		t.Fatalf("expected list, got %v", err)
	}
	if len(out) != 1 {
		t.Errorf("expected 1 invoice from mar onward, got %d", len(out))
	}
}

func TestStore_ReturnsClones(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	saved, err := store.SaveInvoice(ctx, newInvoice("inv-1", "INV-001", time.Now()))
	if err != nil {
		t.Fatalf("expected save, got %v", err)
	}

	// Mutating the returned copy must not reach persisted state.
	saved.LineItems[0].UnitPrice = decimal.NewFromInt(999)
	saved.Sync.RecordFailure("HTTP_500", "tampered", time.Now())

	fresh, err := store.GetInvoice(ctx, "inv-1")
	if err != nil {
		t.Fatalf("expected get, got %v", err)
	}
	if !fresh.LineItems[0].UnitPrice.Equal(decimal.NewFromInt(100)) {
		t.Error("line item mutation leaked into the store")
	}
	if len(fresh.Sync.Errors) != 0 {
		t.Error("sync trail mutation leaked into the store")
	}
}

func TestSavePayment_VersionAndDuplicate(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	p := &domain.Payment{
		ID:            "pay-1",
		PaymentNumber: "PAY-001",
		Kind:          domain.PaymentInbound,
		Amount:        decimal.NewFromInt(250),
		Status:        domain.PaymentCompleted,
		PaidAt:        time.Now(),
	}
	saved, err := store.SavePayment(ctx, p)
	if err != nil {
		t.Fatalf("expected save, got %v", err)
	}
	if saved.Version != 1 {
		t.Errorf("expected version 1, got %d", saved.Version)
	}

	dup := *p
	dup.ID = "pay-2"
	dup.Version = 0
	_, err = store.SavePayment(ctx, &dup)
	var duplicate *domain.ErrDuplicate
	if !errors.As(err, &duplicate) {
		t.Fatalf("expected duplicate payment number, got %v", err)
	}
}

func TestListTransactionsInRange(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)

	for i, d := range []time.Time{jan, feb} {
		tx := &domain.Transaction{
			ID:         string(rune('a' + i)),
			Kind:       domain.TransactionIncome,
			Amount:     decimal.NewFromInt(100),
			Status:     domain.TransactionCompleted,
			OccurredAt: d,
		}
		if _, err := store.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("expected save, got %v", err)
		}
	}

	out, err := store.ListTransactionsInRange(ctx, &feb, nil)
	if err != nil {
		t.Fatalf("expected list, got %v", err)
	}
	if len(out) != 1 {
		t.Errorf("expected 1 transaction from feb onward, got %d", len(out))
	}
}
