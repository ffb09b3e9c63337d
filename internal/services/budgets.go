package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gvozdik97/finance-bot/internal/core"
	"github.com/gvozdik97/finance-bot/internal/storage"
)

// BudgetLimiter owns per-category monthly caps. It evaluates spending
// against the live transaction log; it never blocks an expense, it only
// reports the verdict for the caller to surface.
type BudgetLimiter struct {
	q   *storage.Queries
	now func() time.Time
}

func NewBudgetLimiter(q *storage.Queries, now func() time.Time) *BudgetLimiter {
	if now == nil {
		now = time.Now
	}
	return &BudgetLimiter{q: q, now: now}
}

// BudgetStatus is the verdict attached to a recorded expense.
type BudgetStatus struct {
	HasLimit       bool
	Cap            core.Money
	SpentThisMonth core.Money
	Exceeded       bool
	Overspend      core.Money
	PercentUsed    float64
}

// SetLimit creates or overwrites the monthly cap for a category.
func (b *BudgetLimiter) SetLimit(ctx context.Context, limit core.BudgetLimit) error {
	if err := limit.Validate(); err != nil {
		return err
	}
	if err := b.q.UpsertBudgetLimit(ctx, limit); err != nil {
		return fmt.Errorf("upsert budget limit: %w", err)
	}
	return nil
}

// RemoveLimit deletes the cap for a category.
func (b *BudgetLimiter) RemoveLimit(ctx context.Context, userID int64, category string) error {
	affected, err := b.q.DeleteBudgetLimit(ctx, userID, category)
	if err != nil {
		return fmt.Errorf("delete budget limit: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Limits returns every configured cap for the user.
func (b *BudgetLimiter) Limits(ctx context.Context, userID int64) ([]core.BudgetLimit, error) {
	limits, err := b.q.ListBudgetLimits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budget limits: %w", err)
	}
	return limits, nil
}

// CheckAfterSpend evaluates a category against its cap over the current
// calendar month, [first-of-month 00:00, now] local time. Called inside the
// expense transaction, so the just-recorded expense is part of the
// aggregate.
func (b *BudgetLimiter) CheckAfterSpend(ctx context.Context, userID int64, category string) (BudgetStatus, error) {
	limit, found, err := b.q.GetBudgetLimit(ctx, userID, category)
	if err != nil {
		return BudgetStatus{}, fmt.Errorf("get budget limit: %w", err)
	}
	if !found {
		return BudgetStatus{}, nil
	}

	now := b.now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	spent, err := b.q.SumCategoryExpenses(ctx, userID, category, from, now)
	if err != nil {
		return BudgetStatus{}, fmt.Errorf("sum category expenses: %w", err)
	}

	status := BudgetStatus{
		HasLimit:       true,
		Cap:            limit,
		SpentThisMonth: spent,
		Exceeded:       spent.Cents > limit.Cents,
	}
	if status.Exceeded {
		status.Overspend = core.Money{Cents: spent.Cents - limit.Cents}
	}
	if limit.Cents > 0 {
		status.PercentUsed = float64(spent.Cents) / float64(limit.Cents) * 100
	}
	return status, nil
}
