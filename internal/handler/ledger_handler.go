package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dimesagro/finance-sync-go/internal/domain"
	"github.com/dimesagro/finance-sync-go/internal/port"
	"github.com/dimesagro/finance-sync-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// POST /v1/transactions
func createTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tx domain.Transaction
		if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		saved, err := svc.CreateTransaction(r.Context(), &tx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusCreated, saved)
	}
}

// POST /v1/invoices
func createInvoiceHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var inv domain.Invoice
		if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		saved, err := svc.CreateInvoice(r.Context(), &inv)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusCreated, saved)
	}
}

// POST /v1/payments
func createPaymentHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p domain.Payment
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		saved, err := svc.CreatePayment(r.Context(), &p)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusCreated, saved)
	}
}

// GET /v1/invoices/{invoiceId} — includes the sync envelope, so callers can
// inspect a record's error trail after a failed batch.
func getInvoiceHandler(store port.LedgerStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, err := store.GetInvoice(r.Context(), chi.URLParam(r, "invoiceId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, inv)
	}
}

// GET /v1/payments/{paymentId}
func getPaymentHandler(store port.LedgerStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := store.GetPayment(r.Context(), chi.URLParam(r, "paymentId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, p)
	}
}
