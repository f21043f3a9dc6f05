package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	TransactionIncome   TransactionKind = "income"
	TransactionExpense  TransactionKind = "expense"
	TransactionTransfer TransactionKind = "transfer"
)

// TransactionStatus is the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionCancelled TransactionStatus = "cancelled"
)

// DocumentKind tags the document a transaction references.
type DocumentKind string

const (
	DocumentInvoice DocumentKind = "invoice"
	DocumentPayment DocumentKind = "payment"
)

// Transaction is a generic ledger entry. A transaction may reference at most
// one related document (an invoice or a payment), tagged by DocumentKind.
type Transaction struct {
	ID           string            `json:"id"`
	Kind         TransactionKind   `json:"kind"`
	Amount       decimal.Decimal   `json:"amount"`
	Currency     string            `json:"currency"`
	Category     string            `json:"category,omitempty"`
	OccurredAt   time.Time         `json:"occurred_at"`
	Status       TransactionStatus `json:"status"`
	DocumentID   string            `json:"document_id,omitempty"`
	DocumentKind DocumentKind      `json:"document_kind,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Validate checks field rules before persistence.
func (t *Transaction) Validate() error {
	switch t.Kind {
	case TransactionIncome, TransactionExpense, TransactionTransfer:
	default:
		return &ErrValidation{Field: "kind", Message: "must be income, expense or transfer"}
	}
	if !t.Amount.IsPositive() {
		return &ErrValidation{Field: "amount", Message: "must be positive"}
	}
	switch t.Status {
	case TransactionPending, TransactionCompleted, TransactionCancelled:
	default:
		return &ErrValidation{Field: "status", Message: "unknown status"}
	}
	// Document reference must be consistently tagged: both set or both empty.
	if t.DocumentID != "" || t.DocumentKind != "" {
		if t.DocumentID == "" || (t.DocumentKind != DocumentInvoice && t.DocumentKind != DocumentPayment) {
			return &ErrValidation{Field: "document", Message: "related document requires both id and a valid kind"}
		}
	}
	return nil
}
