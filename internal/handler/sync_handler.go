package handler

import (
	"net/http"

	"github.com/dimesagro/finance-sync-go/internal/infra/observability"
	"github.com/dimesagro/finance-sync-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// POST /v1/sync — run a full sync pass over invoices and payments.
// Partial failures are reported inside the tally, not as an HTTP error.
func syncAllHandler(svc *service.SyncService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.SyncAll(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, report)
	}
}

// POST /v1/sync/{kind} — sync pending records of one kind.
func syncPendingHandler(svc *service.SyncService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := chi.URLParam(r, "kind")

		result, err := svc.SyncPending(r.Context(), kind)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, result)
	}
}

// GET /v1/sync/status — remote availability plus local sync statistics.
func syncStatusHandler(svc *service.SyncService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := svc.RemoteStatus(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, status)
	}
}

// GET /v1/metrics/sync — cumulative sync counters.
func syncMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, metrics.GetSyncSnapshot())
	}
}
