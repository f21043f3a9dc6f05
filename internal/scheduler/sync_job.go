package scheduler

import (
	"context"
	"time"

	"github.com/dimesagro/finance-sync-go/internal/service"

	"go.uber.org/zap"
)

// SyncJob runs a full sync pass over invoices and payments. Registered only
// when auto-sync is enabled in the configuration.
type SyncJob struct {
	sync    *service.SyncService
	timeout time.Duration
	logger  *zap.Logger
}

// NewSyncJob creates the periodic sync job. The timeout bounds one full
// pass; a batch that outlives it is abandoned mid-flight and picked up
// again on the next tick.
func NewSyncJob(sync *service.SyncService, timeout time.Duration, logger *zap.Logger) *SyncJob {
	return &SyncJob{sync: sync, timeout: timeout, logger: logger}
}

// Name returns the job name.
func (j *SyncJob) Name() string { return "ledger_sync" }

// Run executes one sync pass.
func (j *SyncJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	report, err := j.sync.SyncAll(ctx)
	if err != nil {
		return err
	}

	j.logger.Info("scheduled sync completed",
		zap.Int("invoices_total", report.Invoices.Total),
		zap.Int("invoices_failed", report.Invoices.Failed),
		zap.Int("payments_total", report.Payments.Total),
		zap.Int("payments_failed", report.Payments.Failed))
	return nil
}
