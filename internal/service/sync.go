// Package service provides the business logic layer (use cases): remote
// ledger synchronization and financial reporting over the local ledger.
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dimesagro/finance-sync-go/internal/domain"
	"github.com/dimesagro/finance-sync-go/internal/events"
	"github.com/dimesagro/finance-sync-go/internal/infra/observability"
	"github.com/dimesagro/finance-sync-go/internal/infra/resilience"
	"github.com/dimesagro/finance-sync-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var syncTracer = otel.Tracer("service/sync")

// Record kinds accepted by SyncPending.
const (
	KindInvoice = "invoice"
	KindPayment = "payment"
)

const remoteStatusCacheKey = "remote_status"

// SyncOptions configures the sync coordinator. Passed in explicitly at
// construction; the coordinator never reads ambient environment state.
type SyncOptions struct {
	// MaxConcurrency caps how many records are pushed at once in one pass.
	MaxConcurrency int
	// RecordTimeout bounds a single record's remote call + persist. Zero
	// disables the per-record deadline.
	RecordTimeout time.Duration
}

// SyncService reconciles local invoices and payments against the remote
// ledger. One record's failure never aborts the batch; every failure is
// appended to that record's audit trail and the record stays eligible for
// the next pass.
type SyncService struct {
	store       port.LedgerStore
	remote      port.RemoteLedger
	publisher   port.EventPublisher // optional, nil disables events
	statusCache port.Cache[domain.RemoteStatus]
	bulkhead    *resilience.Bulkhead
	opts        SyncOptions
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewSyncService creates the sync coordinator with all dependencies injected.
func NewSyncService(
	store port.LedgerStore,
	remote port.RemoteLedger,
	publisher port.EventPublisher,
	statusCache port.Cache[domain.RemoteStatus],
	opts SyncOptions,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *SyncService {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	return &SyncService{
		store:       store,
		remote:      remote,
		publisher:   publisher,
		statusCache: statusCache,
		bulkhead:    resilience.NewBulkhead(opts.MaxConcurrency),
		opts:        opts,
		metrics:     metrics,
		logger:      logger,
	}
}

// SyncInvoice pushes one invoice to the remote ledger. On success the record
// is marked synced and persisted; on failure one entry is appended to its
// error trail, the record is persisted in its prior state, and the error is
// re-signalled to the caller.
func (s *SyncService) SyncInvoice(ctx context.Context, inv *domain.Invoice) (*domain.RemoteAck, error) {
	ctx, span := syncTracer.Start(ctx, "SyncService.SyncInvoice")
	defer span.End()
	span.SetAttributes(attribute.String("invoice.id", inv.ID))

	ctx, cancel := s.recordContext(ctx)
	defer cancel()

	// Derived totals are recomputed before every persisted write; the copy
	// pushed remotely and the copy written back carry the same figures.
	inv.ComputeTotals()

	ack, err := s.remote.SendInvoice(ctx, inv)
	now := time.Now()

	if err != nil {
		s.metrics.IncrRemoteError("send_invoice")
		s.metrics.IncrSyncRecord(KindInvoice, "failed")
		inv.Sync.RecordFailure(domain.SyncFailureCode(err), err.Error(), now)
		// The record context may already be expired; the audit trail write
		// must still land.
		if _, saveErr := s.store.SaveInvoice(context.WithoutCancel(ctx), inv); saveErr != nil {
			s.logger.Error("failed to persist invoice sync failure",
				zap.String("invoice_id", inv.ID), zap.Error(saveErr))
		}
		s.logger.Warn("invoice sync failed",
			zap.String("invoice_id", inv.ID),
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Error(err))
		return nil, err
	}

	inv.Sync.MarkSynced(ack.ID, now)
	saved, saveErr := s.store.SaveInvoice(ctx, inv)
	if saveErr != nil {
		// Remote accepted but the outcome could not be saved locally. The
		// idempotency key makes the next pass's resend safe.
		s.metrics.IncrSyncRecord(KindInvoice, "failed")
		s.logger.Error("failed to persist synced invoice",
			zap.String("invoice_id", inv.ID), zap.Error(saveErr))
		return nil, saveErr
	}
	*inv = *saved

	s.metrics.IncrSyncRecord(KindInvoice, "success")
	s.publishSynced(ctx, KindInvoice, inv.ID, ack.ID, now)
	s.logger.Info("invoice synced",
		zap.String("invoice_id", inv.ID),
		zap.String("remote_id", ack.ID))
	return ack, nil
}

// SyncPayment pushes one payment to the remote ledger. Same semantics as
// SyncInvoice.
func (s *SyncService) SyncPayment(ctx context.Context, p *domain.Payment) (*domain.RemoteAck, error) {
	ctx, span := syncTracer.Start(ctx, "SyncService.SyncPayment")
	defer span.End()
	span.SetAttributes(attribute.String("payment.id", p.ID))

	ctx, cancel := s.recordContext(ctx)
	defer cancel()

	ack, err := s.remote.SendPayment(ctx, p)
	now := time.Now()

	if err != nil {
		s.metrics.IncrRemoteError("send_payment")
		s.metrics.IncrSyncRecord(KindPayment, "failed")
		p.Sync.RecordFailure(domain.SyncFailureCode(err), err.Error(), now)
		if _, saveErr := s.store.SavePayment(context.WithoutCancel(ctx), p); saveErr != nil {
			s.logger.Error("failed to persist payment sync failure",
				zap.String("payment_id", p.ID), zap.Error(saveErr))
		}
		s.logger.Warn("payment sync failed",
			zap.String("payment_id", p.ID),
			zap.String("payment_number", p.PaymentNumber),
			zap.Error(err))
		return nil, err
	}

	p.Sync.MarkSynced(ack.ID, now)
	saved, saveErr := s.store.SavePayment(ctx, p)
	if saveErr != nil {
		s.metrics.IncrSyncRecord(KindPayment, "failed")
		s.logger.Error("failed to persist synced payment",
			zap.String("payment_id", p.ID), zap.Error(saveErr))
		return nil, saveErr
	}
	*p = *saved

	s.metrics.IncrSyncRecord(KindPayment, "success")
	s.publishSynced(ctx, KindPayment, p.ID, ack.ID, now)
	s.logger.Info("payment synced",
		zap.String("payment_id", p.ID),
		zap.String("remote_id", ack.ID))
	return ack, nil
}

// SyncPending pushes every not-yet-synced record of the given kind. Records
// are processed concurrently under the bulkhead cap; each attempt is fully
// isolated from its siblings. The tally is finalized only after every
// attempt has resolved.
func (s *SyncService) SyncPending(ctx context.Context, kind string) (domain.BatchResult, error) {
	ctx, span := syncTracer.Start(ctx, "SyncService.SyncPending")
	defer span.End()
	span.SetAttributes(attribute.String("record.kind", kind))

	start := time.Now()
	defer func() { s.metrics.RecordBatchDuration(kind, time.Since(start)) }()

	switch kind {
	case KindInvoice:
		invoices, err := s.store.ListUnsyncedInvoices(ctx)
		if err != nil {
			return domain.BatchResult{}, err
		}
		return s.runBatch(ctx, len(invoices), func(ctx context.Context, i int) error {
			_, err := s.SyncInvoice(ctx, &invoices[i])
			return err
		}), nil

	case KindPayment:
		payments, err := s.store.ListUnsyncedPayments(ctx)
		if err != nil {
			return domain.BatchResult{}, err
		}
		return s.runBatch(ctx, len(payments), func(ctx context.Context, i int) error {
			_, err := s.SyncPayment(ctx, &payments[i])
			return err
		}), nil
	}

	return domain.BatchResult{}, &domain.ErrValidation{Field: "kind", Message: "must be invoice or payment"}
}

// SyncAll runs a pending-record pass over invoices and payments.
func (s *SyncService) SyncAll(ctx context.Context) (domain.SyncReport, error) {
	ctx, span := syncTracer.Start(ctx, "SyncService.SyncAll")
	defer span.End()

	var report domain.SyncReport
	var errs []error

	invoices, err := s.SyncPending(ctx, KindInvoice)
	if err != nil {
		errs = append(errs, err)
	}
	report.Invoices = invoices

	payments, err := s.SyncPending(ctx, KindPayment)
	if err != nil {
		errs = append(errs, err)
	}
	report.Payments = payments

	return report, errors.Join(errs...)
}

// RemoteStatus combines the remote availability probe with local sync
// statistics. Read-only; the probe result is cached briefly.
func (s *SyncService) RemoteStatus(ctx context.Context) (*domain.RemoteStatus, error) {
	ctx, span := syncTracer.Start(ctx, "SyncService.RemoteStatus")
	defer span.End()

	if cached, ok := s.statusCache.Get(remoteStatusCacheKey); ok {
		s.metrics.IncrCacheHit("remote_status")
		return &cached, nil
	}
	s.metrics.IncrCacheMiss("remote_status")

	var status domain.RemoteStatus

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		available, err := s.remote.SystemStatus(gCtx)
		if err != nil {
			return err
		}
		status.Available = available
		return nil
	})
	g.Go(func() error {
		stats, err := s.store.CountInvoicesBySyncState(gCtx)
		if err != nil {
			return err
		}
		status.Invoices = stats
		return nil
	})
	g.Go(func() error {
		stats, err := s.store.CountPaymentsBySyncState(gCtx)
		if err != nil {
			return err
		}
		status.Payments = stats
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.statusCache.Set(remoteStatusCacheKey, status)
	return &status, nil
}

// runBatch executes n isolated attempts under the bulkhead cap and tallies
// the outcome. Every attempt resolves before the tally is returned.
func (s *SyncService) runBatch(ctx context.Context, n int, attempt func(ctx context.Context, i int) error) domain.BatchResult {
	var wg sync.WaitGroup
	var success, failed atomic.Int64

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			if err := s.bulkhead.Acquire(ctx); err != nil {
				failed.Add(1)
				return
			}
			defer s.bulkhead.Release()

			if err := attempt(ctx, i); err != nil {
				failed.Add(1)
				return
			}
			success.Add(1)
		}(i)
	}
	wg.Wait()

	return domain.BatchResult{
		Total:   n,
		Success: int(success.Load()),
		Failed:  int(failed.Load()),
	}
}

func (s *SyncService) recordContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.RecordTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opts.RecordTimeout)
}

// publishSynced emits a RecordSynced event. Best-effort: a broker failure is
// logged and never fails the sync.
func (s *SyncService) publishSynced(ctx context.Context, kind, recordID, remoteID string, at time.Time) {
	if s.publisher == nil {
		return
	}
	event := events.RecordSynced{Kind: kind, RecordID: recordID, RemoteID: remoteID, SyncedAt: at}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish sync event",
			zap.String("kind", kind),
			zap.String("record_id", recordID),
			zap.Error(err))
	}
}
