package domain

import "github.com/shopspring/decimal"

// Granularity selects the cash-flow bucketing period.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// ParseGranularity validates a caller-supplied granularity string.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case GranularityDaily, GranularityWeekly, GranularityMonthly:
		return Granularity(s), nil
	}
	return "", &ErrValidation{Field: "granularity", Message: "must be daily, weekly or monthly"}
}

// StatusAggregate is a count and exact-decimal sum for one status group.
type StatusAggregate struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// FinancialSummary is a point-in-time aggregate over the local ledger.
// Status groups with no records are absent from the maps, not zero-filled.
type FinancialSummary struct {
	Income   decimal.Decimal                   `json:"income"`
	Expenses decimal.Decimal                   `json:"expenses"`
	Balance  decimal.Decimal                   `json:"balance"`
	Invoices map[InvoiceStatus]StatusAggregate `json:"invoices"`
	Payments map[PaymentStatus]StatusAggregate `json:"payments"`
}

// CashFlowBucket is one period's folded income/expense pair. Periods with
// activity on only one side still appear, with the other side at zero.
type CashFlowBucket struct {
	Period  string          `json:"period"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}
