package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentKind is the direction of a payment.
type PaymentKind string

const (
	PaymentInbound  PaymentKind = "inbound"
	PaymentOutbound PaymentKind = "outbound"
)

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Payment records money moving in or out against the ledger. It carries the
// same remote-sync envelope as an invoice but has no line items.
type Payment struct {
	ID            string          `json:"id"`
	PaymentNumber string          `json:"payment_number"`
	Kind          PaymentKind     `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Counterparty  Counterparty    `json:"counterparty"`
	Status        PaymentStatus   `json:"status"`
	PaidAt        time.Time       `json:"paid_at"`
	Sync          RemoteSync      `json:"remote_sync"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks field rules before persistence.
func (p *Payment) Validate() error {
	if p.PaymentNumber == "" {
		return &ErrValidation{Field: "payment_number", Message: "required"}
	}
	switch p.Kind {
	case PaymentInbound, PaymentOutbound:
	default:
		return &ErrValidation{Field: "kind", Message: "must be inbound or outbound"}
	}
	if !p.Amount.IsPositive() {
		return &ErrValidation{Field: "amount", Message: "must be positive"}
	}
	switch p.Status {
	case PaymentPending, PaymentCompleted, PaymentCancelled:
	default:
		return &ErrValidation{Field: "status", Message: "unknown status"}
	}
	return nil
}
