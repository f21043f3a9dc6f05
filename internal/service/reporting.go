package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dimesagro/finance-sync-go/internal/domain"
	"github.com/dimesagro/finance-sync-go/internal/infra/observability"
	"github.com/dimesagro/finance-sync-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var reportTracer = otel.Tracer("service/reporting")

// ReportingService aggregates the local ledger into point-in-time and
// time-bucketed figures. It reads only from the store and never touches the
// remote ledger, so reports stay available during an ERP outage.
//
// All monetary aggregation is exact decimal arithmetic; a recomputation from
// the raw records reproduces every figure bit-for-bit.
type ReportingService struct {
	store   port.LedgerStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewReportingService creates the reporting engine.
func NewReportingService(store port.LedgerStore, metrics *observability.Metrics, logger *zap.Logger) *ReportingService {
	return &ReportingService{store: store, metrics: metrics, logger: logger}
}

// FinancialSummary aggregates transactions, invoices and payments over an
// inclusive, optionally unbounded date range. Status groups with no records
// are absent from the maps — callers must handle missing keys.
func (r *ReportingService) FinancialSummary(ctx context.Context, start, end *time.Time) (*domain.FinancialSummary, error) {
	ctx, span := reportTracer.Start(ctx, "ReportingService.FinancialSummary")
	defer span.End()

	begin := time.Now()
	defer func() { r.metrics.RecordRequestDuration("financial_summary", time.Since(begin)) }()

	transactions, err := r.store.ListTransactionsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	invoices, err := r.store.ListInvoicesInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	payments, err := r.store.ListPaymentsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	summary := &domain.FinancialSummary{
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
		Invoices: make(map[domain.InvoiceStatus]domain.StatusAggregate),
		Payments: make(map[domain.PaymentStatus]domain.StatusAggregate),
	}

	for _, tx := range transactions {
		switch tx.Kind {
		case domain.TransactionIncome:
			summary.Income = summary.Income.Add(tx.Amount)
		case domain.TransactionExpense:
			summary.Expenses = summary.Expenses.Add(tx.Amount)
		}
	}
	summary.Balance = summary.Income.Sub(summary.Expenses)

	for _, inv := range invoices {
		agg := summary.Invoices[inv.Status]
		agg.Count++
		agg.Total = agg.Total.Add(inv.Total)
		summary.Invoices[inv.Status] = agg
	}
	for _, p := range payments {
		agg := summary.Payments[p.Status]
		agg.Count++
		agg.Total = agg.Total.Add(p.Amount)
		summary.Payments[p.Status] = agg
	}

	return summary, nil
}

// CashFlow buckets transactions by period and folds income/expense pairs
// into per-period balances. Buckets are ordered by period; a period with
// activity on only one side still appears, with the other side at zero.
func (r *ReportingService) CashFlow(ctx context.Context, start, end *time.Time, granularity domain.Granularity) ([]domain.CashFlowBucket, error) {
	ctx, span := reportTracer.Start(ctx, "ReportingService.CashFlow")
	defer span.End()

	begin := time.Now()
	defer func() { r.metrics.RecordRequestDuration("cash_flow", time.Since(begin)) }()

	transactions, err := r.store.ListTransactionsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	type flows struct {
		income  decimal.Decimal
		expense decimal.Decimal
	}
	byPeriod := make(map[string]flows)

	for _, tx := range transactions {
		// Transfers have no income/expense side and do not affect cash flow.
		if tx.Kind != domain.TransactionIncome && tx.Kind != domain.TransactionExpense {
			continue
		}
		key := periodKey(tx.OccurredAt, granularity)
		f := byPeriod[key]
		if tx.Kind == domain.TransactionIncome {
			f.income = f.income.Add(tx.Amount)
		} else {
			f.expense = f.expense.Add(tx.Amount)
		}
		byPeriod[key] = f
	}

	periods := make([]string, 0, len(byPeriod))
	for p := range byPeriod {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	buckets := make([]domain.CashFlowBucket, 0, len(periods))
	for _, p := range periods {
		f := byPeriod[p]
		buckets = append(buckets, domain.CashFlowBucket{
			Period:  p,
			Income:  f.income,
			Expense: f.expense,
			Balance: f.income.Sub(f.expense),
		})
	}
	return buckets, nil
}

// periodKey derives the bucket key from a timestamp. All three formats sort
// lexicographically in chronological order.
func periodKey(t time.Time, g domain.Granularity) string {
	switch g {
	case domain.GranularityDaily:
		return t.Format("2006-01-02")
	case domain.GranularityWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	default:
		return t.Format("2006-01")
	}
}
