package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gvozdik97/finance-bot/internal/core"
	"github.com/gvozdik97/finance-bot/internal/storage"
)

// MonthSummary aggregates one calendar month of a user's ledger.
type MonthSummary struct {
	Year          int
	Month         time.Month
	Income        core.Money
	Expense       core.Money
	Margin        core.Money
	MarginPercent float64
	Categories    []storage.CategorySpend
}

// MonthSummary returns the aggregate for a calendar month. Results are
// cached briefly; mutations invalidate the affected month.
func (e *LedgerEngine) MonthSummary(ctx context.Context, userID int64, year int, month time.Month) (MonthSummary, error) {
	key := summaryKey(userID, year, month)
	if cached, ok := e.summaries.Get(key); ok {
		if e.metrics != nil {
			e.metrics.CacheHits.Inc()
		}
		return cached, nil
	}
	if e.metrics != nil {
		e.metrics.CacheMisses.Inc()
	}

	loc := e.now().Location()
	from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 1, 0).Add(-time.Second)

	q := e.repo.Queries()
	income, expense, err := q.SumByKind(ctx, userID, from, to)
	if err != nil {
		return MonthSummary{}, fmt.Errorf("sum by kind: %w", err)
	}
	categories, err := q.ExpensesByCategory(ctx, userID, from, to)
	if err != nil {
		return MonthSummary{}, fmt.Errorf("expenses by category: %w", err)
	}

	summary := MonthSummary{
		Year:       year,
		Month:      month,
		Income:     income,
		Expense:    expense,
		Margin:     core.Money{Cents: income.Cents - expense.Cents},
		Categories: categories,
	}
	if income.Cents > 0 {
		summary.MarginPercent = float64(summary.Margin.Cents) / float64(income.Cents) * 100
	}

	e.summaries.Set(key, summary)
	return summary, nil
}

// invalidateSummary drops the cached summary of the month a mutation
// touched. The current month is dropped as well; for fresh transactions the
// two keys coincide, for older rows both affected summaries go stale.
func (e *LedgerEngine) invalidateSummary(userID int64, at time.Time) {
	e.summaries.Delete(summaryKey(userID, at.Year(), at.Month()))
	now := e.now()
	e.summaries.Delete(summaryKey(userID, now.Year(), now.Month()))
}

func summaryKey(userID int64, year int, month time.Month) string {
	return fmt.Sprintf("%d/%04d-%02d", userID, year, int(month))
}
