package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dimesagro/finance-sync-go/internal/domain"
	"github.com/dimesagro/finance-sync-go/internal/events"
	"github.com/dimesagro/finance-sync-go/internal/infra/cache"
	"github.com/dimesagro/finance-sync-go/internal/infra/observability"
	"github.com/dimesagro/finance-sync-go/internal/infra/storage/memory"
	"github.com/dimesagro/finance-sync-go/internal/port"
	"github.com/dimesagro/finance-sync-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// mockRemote is a hand-written RemoteLedger double. Records listed in fail
// are rejected with the mapped error; everything else is acknowledged.
type mockRemote struct {
	mu          sync.Mutex
	fail        map[string]error
	sent        []string
	available   bool
	statusErr   error
	statusCalls int
}

func (m *mockRemote) SendInvoice(_ context.Context, inv *domain.Invoice) (*domain.RemoteAck, error) {
	return m.send(inv.ID)
}

func (m *mockRemote) SendPayment(_ context.Context, p *domain.Payment) (*domain.RemoteAck, error) {
	return m.send(p.ID)
}

func (m *mockRemote) send(id string) (*domain.RemoteAck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.fail[id]; ok {
		return nil, err
	}
	m.sent = append(m.sent, id)
	return &domain.RemoteAck{ID: "erp-" + id, Status: "accepted"}, nil
}

func (m *mockRemote) SystemStatus(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	return m.available, m.statusErr
}

type mockPublisher struct {
	mu     sync.Mutex
	events []events.RecordSynced
}

func (m *mockPublisher) Publish(_ context.Context, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := event.(events.RecordSynced); ok {
		m.events = append(m.events, e)
	}
	return nil
}

func (m *mockPublisher) Close() error { return nil }

// failingStore wraps a real store and injects a SaveInvoice failure.
type failingStore struct {
	port.LedgerStore
	saveInvoiceErr error
}

func (f *failingStore) SaveInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	if f.saveInvoiceErr != nil {
		return nil, f.saveInvoiceErr
	}
	return f.LedgerStore.SaveInvoice(ctx, inv)
}

func newSyncService(store port.LedgerStore, remote *mockRemote, publisher port.EventPublisher) *service.SyncService {
	return service.NewSyncService(
		store, remote, publisher,
		cache.New[domain.RemoteStatus](time.Minute),
		service.SyncOptions{MaxConcurrency: 4},
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func seedInvoice(t *testing.T, store port.LedgerStore, id, number string) *domain.Invoice {
	t.Helper()
	inv := &domain.Invoice{
		ID:            id,
		InvoiceNumber: number,
		Kind:          domain.InvoiceSales,
		Status:        domain.InvoicePending,
		IssueDate:     time.Now(),
		LineItems: []domain.LineItem{
			{Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(500), TaxRate: decimal.NewFromInt(18)},
		},
	}
	inv.ComputeTotals()
	saved, err := store.SaveInvoice(context.Background(), inv)
	if err != nil {
		t.Fatalf("failed to seed invoice: %v", err)
	}
	return saved
}

func seedPayment(t *testing.T, store port.LedgerStore, id, number string) *domain.Payment {
	t.Helper()
	p := &domain.Payment{
		ID:            id,
		PaymentNumber: number,
		Kind:          domain.PaymentInbound,
		Amount:        decimal.NewFromInt(250),
		Status:        domain.PaymentCompleted,
		PaidAt:        time.Now(),
	}
	saved, err := store.SavePayment(context.Background(), p)
	if err != nil {
		t.Fatalf("failed to seed payment: %v", err)
	}
	return saved
}

func TestSyncInvoice_Success(t *testing.T) {
	store := memory.NewStore()
	remote := &mockRemote{}
	publisher := &mockPublisher{}
	svc := newSyncService(store, remote, publisher)

	inv := seedInvoice(t, store, "inv-1", "INV-001")

	ack, err := svc.SyncInvoice(context.Background(), inv)
	if err != nil {
		t.Fatalf("expected sync to succeed, got %v", err)
	}
	if ack.ID != "erp-inv-1" {
		t.Errorf("expected remote id erp-inv-1, got %s", ack.ID)
	}

	stored, err := store.GetInvoice(context.Background(), "inv-1")
	if err != nil {
		t.Fatalf("expected invoice, got %v", err)
	}
	if !stored.Sync.Synced() {
		t.Error("expected persisted invoice to be marked synced")
	}
	if stored.Sync.RemoteID != "erp-inv-1" {
		t.Errorf("expected remote id recorded, got %s", stored.Sync.RemoteID)
	}
	if !stored.Total.Equal(decimal.NewFromInt(1180)) {
		t.Errorf("expected totals recomputed before the write, got %s", stored.Total)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(publisher.events))
	}
	if publisher.events[0].Kind != service.KindInvoice || publisher.events[0].RecordID != "inv-1" {
		t.Errorf("unexpected event: %+v", publisher.events[0])
	}
}

func TestSyncInvoice_FailureAppendsTrailAndResignals(t *testing.T) {
	store := memory.NewStore()
	remote := &mockRemote{fail: map[string]error{
		"inv-1": &domain.ErrExternalSync{Code: "HTTP_422", Message: "missing tax id"},
	}}
	svc := newSyncService(store, remote, nil)

	inv := seedInvoice(t, store, "inv-1", "INV-001")

	_, err := svc.SyncInvoice(context.Background(), inv)
	var external *domain.ErrExternalSync
	if !errors.As(err, &external) {
		t.Fatalf("expected the remote error re-signalled, got %v", err)
	}

	stored, err := store.GetInvoice(context.Background(), "inv-1")
	if err != nil {
		t.Fatalf("expected invoice, got %v", err)
	}
	if stored.Sync.Synced() {
		t.Error("failed invoice must stay eligible for the next pass")
	}
	if len(stored.Sync.Errors) != 1 {
		t.Fatalf("expected exactly 1 trail entry, got %d", len(stored.Sync.Errors))
	}
	if stored.Sync.Errors[0].Code != "HTTP_422" {
		t.Errorf("expected code HTTP_422, got %s", stored.Sync.Errors[0].Code)
	}
}

func TestSyncInvoice_PersistFailureAfterRemoteSuccess(t *testing.T) {
	base := memory.NewStore()
	inv := seedInvoice(t, base, "inv-1", "INV-001")

	store := &failingStore{
		LedgerStore:    base,
		saveInvoiceErr: &domain.ErrStorage{Op: "save_invoice", Err: errors.New("disk full")},
	}
	remote := &mockRemote{}
	svc := newSyncService(store, remote, nil)

	_, err := svc.SyncInvoice(context.Background(), inv)
	var storage *domain.ErrStorage
	if !errors.As(err, &storage) {
		t.Fatalf("expected storage error surfaced, got %v", err)
	}

	// The record was accepted remotely but never marked locally; the next
	// pass will resend it under the same idempotency key.
	stored, _ := base.GetInvoice(context.Background(), "inv-1")
	if stored.Sync.Synced() {
		t.Error("invoice must not read as synced when the outcome was lost")
	}
}

func TestSyncPending_PartialFailureIsolated(t *testing.T) {
	store := memory.NewStore()
	remote := &mockRemote{fail: map[string]error{
		"inv-3": &domain.ErrExternalSync{Code: "HTTP_500", Message: "internal error"},
	}}
	svc := newSyncService(store, remote, nil)

	for i := 1; i <= 5; i++ {
		seedInvoice(t, store, fmt.Sprintf("inv-%d", i), fmt.Sprintf("INV-%03d", i))
	}

	result, err := svc.SyncPending(context.Background(), service.KindInvoice)
	if err != nil {
		t.Fatalf("a record failure must not fail the batch, got %v", err)
	}
	if result.Total != 5 || result.Success != 4 || result.Failed != 1 {
		t.Fatalf("expected tally 5/4/1, got %+v", result)
	}

	failed, _ := store.GetInvoice(context.Background(), "inv-3")
	if failed.Sync.Synced() {
		t.Error("failed record must not be marked synced")
	}
	if len(failed.Sync.Errors) != 1 {
		t.Errorf("expected exactly 1 trail entry on the failed record, got %d", len(failed.Sync.Errors))
	}

	for _, id := range []string{"inv-1", "inv-2", "inv-4", "inv-5"} {
		inv, _ := store.GetInvoice(context.Background(), id)
		if !inv.Sync.Synced() {
			t.Errorf("expected %s synced despite sibling failure", id)
		}
	}
}

func TestSyncPending_RetryThenIdle(t *testing.T) {
	store := memory.NewStore()
	remote := &mockRemote{fail: map[string]error{
		"inv-2": &domain.ErrTimeout{Operation: "erp send"},
	}}
	svc := newSyncService(store, remote, nil)

	seedInvoice(t, store, "inv-1", "INV-001")
	seedInvoice(t, store, "inv-2", "INV-002")

	first, err := svc.SyncPending(context.Background(), service.KindInvoice)
	if err != nil {
		t.Fatalf("expected first pass, got %v", err)
	}
	if first.Success != 1 || first.Failed != 1 {
		t.Fatalf("expected 1/1 on first pass, got %+v", first)
	}

	// Remote recovers; only the failed record is retried.
	remote.mu.Lock()
	remote.fail = nil
	remote.mu.Unlock()

	second, err := svc.SyncPending(context.Background(), service.KindInvoice)
	if err != nil {
		t.Fatalf("expected second pass, got %v", err)
	}
	if second.Total != 1 || second.Success != 1 {
		t.Fatalf("expected retry of the single failed record, got %+v", second)
	}

	recovered, _ := store.GetInvoice(context.Background(), "inv-2")
	if !recovered.Sync.Synced() {
		t.Error("expected recovered record marked synced")
	}
	if len(recovered.Sync.Errors) != 1 {
		t.Errorf("trail must survive the later success, got %d entries", len(recovered.Sync.Errors))
	}

	third, err := svc.SyncPending(context.Background(), service.KindInvoice)
	if err != nil {
		t.Fatalf("expected third pass, got %v", err)
	}
	if third.Total != 0 || third.Success != 0 || third.Failed != 0 {
		t.Errorf("expected empty pass once everything is synced, got %+v", third)
	}
}

func TestSyncPending_UnknownKind(t *testing.T) {
	svc := newSyncService(memory.NewStore(), &mockRemote{}, nil)

	_, err := svc.SyncPending(context.Background(), "widgets")
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSyncAll(t *testing.T) {
	store := memory.NewStore()
	remote := &mockRemote{}
	svc := newSyncService(store, remote, nil)

	seedInvoice(t, store, "inv-1", "INV-001")
	seedPayment(t, store, "pay-1", "PAY-001")
	seedPayment(t, store, "pay-2", "PAY-002")

	report, err := svc.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("expected full sync, got %v", err)
	}
	if report.Invoices.Success != 1 {
		t.Errorf("expected 1 invoice synced, got %+v", report.Invoices)
	}
	if report.Payments.Success != 2 {
		t.Errorf("expected 2 payments synced, got %+v", report.Payments)
	}
}

func TestRemoteStatus_ProbeCached(t *testing.T) {
	store := memory.NewStore()
	remote := &mockRemote{available: true}
	svc := newSyncService(store, remote, nil)

	seedInvoice(t, store, "inv-1", "INV-001")

	status, err := svc.RemoteStatus(context.Background())
	if err != nil {
		t.Fatalf("expected status, got %v", err)
	}
	if !status.Available {
		t.Error("expected remote reported available")
	}
	if status.Invoices.Pending != 1 {
		t.Errorf("expected 1 pending invoice, got %+v", status.Invoices)
	}

	if _, err := svc.RemoteStatus(context.Background()); err != nil {
		t.Fatalf("expected cached status, got %v", err)
	}
	if remote.statusCalls != 1 {
		t.Errorf("expected exactly 1 probe within the TTL, got %d", remote.statusCalls)
	}
}
