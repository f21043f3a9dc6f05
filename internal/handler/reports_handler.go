package handler

import (
	"net/http"

	"github.com/dimesagro/finance-sync-go/internal/domain"
	"github.com/dimesagro/finance-sync-go/internal/service"

	"go.uber.org/zap"
)

// GET /v1/reports/summary?start=&end=
func financialSummaryHandler(svc *service.ReportingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, end, err := parseDateRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		summary, err := svc.FinancialSummary(r.Context(), start, end)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, summary)
	}
}

// GET /v1/reports/cashflow?start=&end=&granularity=monthly
func cashFlowHandler(svc *service.ReportingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, end, err := parseDateRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		granularity, err := domain.ParseGranularity(r.URL.Query().Get("granularity"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		buckets, err := svc.CashFlow(r.Context(), start, end, granularity)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, buckets)
	}
}
