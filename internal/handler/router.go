package handler

import (
	"net/http"

	"github.com/dimesagro/finance-sync-go/internal/infra/observability"
	"github.com/dimesagro/finance-sync-go/internal/port"
	"github.com/dimesagro/finance-sync-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter creates the HTTP router for the ledger core's operational
// surface. The wider platform (animal records, sales, users) lives in other
// services; only sync, reporting and ledger-write endpoints are exposed here.
func NewRouter(
	syncSvc *service.SyncService,
	reportSvc *service.ReportingService,
	ledgerSvc *service.LedgerService,
	store port.LedgerStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		// Sync coordinator
		r.Post("/sync", syncAllHandler(syncSvc, logger))
		r.Post("/sync/{kind}", syncPendingHandler(syncSvc, logger))
		r.Get("/sync/status", syncStatusHandler(syncSvc, logger))
		r.Get("/metrics/sync", syncMetricsHandler(metrics))

		// Reporting engine
		r.Get("/reports/summary", financialSummaryHandler(reportSvc, logger))
		r.Get("/reports/cashflow", cashFlowHandler(reportSvc, logger))

		// Ledger writes and per-record reads
		r.Post("/transactions", createTransactionHandler(ledgerSvc, logger))
		r.Post("/invoices", createInvoiceHandler(ledgerSvc, logger))
		r.Post("/payments", createPaymentHandler(ledgerSvc, logger))
		r.Get("/invoices/{invoiceId}", getInvoiceHandler(store, logger))
		r.Get("/payments/{paymentId}", getPaymentHandler(store, logger))
	})

	return r
}

// healthzHandler reports process liveness. Remote ledger reachability is
// deliberately excluded: an ERP outage must not mark this service down.
func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
