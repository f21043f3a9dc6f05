package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceKind distinguishes money owed to us from money we owe.
type InvoiceKind string

const (
	InvoiceSales    InvoiceKind = "sales"
	InvoicePurchase InvoiceKind = "purchase"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// Counterparty identifies the other side of an invoice or payment.
type Counterparty struct {
	Name  string `json:"name"`
	TaxID string `json:"tax_id,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// LineItem is one billed position on an invoice.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"` // percent, e.g. 18 for 18%
}

// Net returns quantity × unit price for this line.
func (li LineItem) Net() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// Tax returns the tax amount for this line.
func (li LineItem) Tax() decimal.Decimal {
	return li.Net().Mul(li.TaxRate).Div(decimal.NewFromInt(100))
}

// Invoice is a commercial document in the local ledger.
//
// Subtotal, TaxAmount and Total are derived values: they are recomputed from
// the line items immediately before every persisted write and never taken
// from the caller.
type Invoice struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	Kind          InvoiceKind     `json:"kind"`
	IssueDate     time.Time       `json:"issue_date"`
	DueDate       time.Time       `json:"due_date"`
	Counterparty  Counterparty    `json:"counterparty"`
	LineItems     []LineItem      `json:"line_items"`
	Currency      string          `json:"currency"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
	Status        InvoiceStatus   `json:"status"`
	Sync          RemoteSync      `json:"remote_sync"`

	// Version guards against two overlapping sync passes writing back the
	// same record; the store rejects a save whose version is stale.
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// ComputeTotals recomputes the derived monetary fields from the line items,
// discarding whatever values the struct carried.
func (inv *Invoice) ComputeTotals() {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, li := range inv.LineItems {
		subtotal = subtotal.Add(li.Net())
		tax = tax.Add(li.Tax())
	}
	inv.Subtotal = subtotal
	inv.TaxAmount = tax
	inv.Total = subtotal.Add(tax)
}

// Validate checks field rules before persistence. Due date is deliberately
// not checked against the issue date: back-dated corrections are allowed.
func (inv *Invoice) Validate() error {
	if inv.InvoiceNumber == "" {
		return &ErrValidation{Field: "invoice_number", Message: "required"}
	}
	switch inv.Kind {
	case InvoiceSales, InvoicePurchase:
	default:
		return &ErrValidation{Field: "kind", Message: "must be sales or purchase"}
	}
	switch inv.Status {
	case InvoiceDraft, InvoicePending, InvoicePaid, InvoiceCancelled:
	default:
		return &ErrValidation{Field: "status", Message: "unknown status"}
	}
	for i, li := range inv.LineItems {
		if li.Quantity.IsNegative() {
			return &ErrValidation{Field: "line_items", Message: fmt.Sprintf("negative quantity on item %d", i)}
		}
		if li.UnitPrice.IsNegative() {
			return &ErrValidation{Field: "line_items", Message: fmt.Sprintf("negative unit price on item %d", i)}
		}
	}
	return nil
}
