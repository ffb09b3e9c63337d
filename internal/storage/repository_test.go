package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gvozdik97/finance-bot/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestAdjustEnvelopeUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	q := repo.Queries()

	// First adjust creates the row.
	balance, err := q.AdjustEnvelope(ctx, 1, core.EnvelopeReserve, core.Money{Cents: 500})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if balance.Cents != 500 {
		t.Fatalf("balance = %d, want 500", balance.Cents)
	}

	// Second adjust accumulates, including negative deltas.
	balance, err = q.AdjustEnvelope(ctx, 1, core.EnvelopeReserve, core.Money{Cents: -200})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if balance.Cents != 300 {
		t.Fatalf("balance = %d, want 300", balance.Cents)
	}

	// Other users and envelopes are untouched.
	other, err := q.GetEnvelopeBalance(ctx, 2, core.EnvelopeReserve)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if other.Cents != 0 {
		t.Fatalf("foreign balance = %d, want 0", other.Cents)
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	q := repo.Queries()

	created := time.Now().Truncate(time.Second)
	id, err := q.InsertTransaction(ctx, core.Transaction{
		UserID:      1,
		Kind:        core.Expense,
		Amount:      core.Money{Cents: 1250},
		Category:    "food",
		Description: "lunch",
		CreatedAt:   created,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := q.GetTransaction(ctx, 1, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount.Cents != 1250 || got.Category != "food" || got.Kind != core.Expense {
		t.Fatalf("got = %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, created)
	}

	// Owner scoping: another user cannot see the row.
	if _, err := q.GetTransaction(ctx, 2, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign get: %v, want ErrNotFound", err)
	}

	n, err := q.UpdateTransaction(ctx, 1, id, core.Money{Cents: 2000}, "food", "dinner")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if n != 1 {
		t.Fatalf("update rows = %d", n)
	}
	got, err = q.GetTransaction(ctx, 1, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Amount.Cents != 2000 || got.Description != "dinner" {
		t.Fatalf("after update = %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatal("update must not touch created_at")
	}

	n, err = q.DeleteTransaction(ctx, 1, id)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 1 {
		t.Fatalf("delete rows = %d", n)
	}
	n, err = q.DeleteTransaction(ctx, 1, id)
	if err != nil || n != 0 {
		t.Fatalf("second delete rows = %d, err = %v", n, err)
	}
}

func TestSumByKindAndCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	q := repo.Queries()

	now := time.Now()
	insert := func(kind core.TransactionKind, cents int64, category string) {
		t.Helper()
		_, err := q.InsertTransaction(ctx, core.Transaction{
			UserID:    1,
			Kind:      kind,
			Amount:    core.Money{Cents: cents},
			Category:  category,
			CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	insert(core.Income, 100000, "salary")
	insert(core.Expense, 25000, "food")
	insert(core.Expense, 5000, "food")
	insert(core.Expense, 10000, "transport")

	from := now.Add(-time.Hour)
	to := now.Add(time.Hour)

	income, expense, err := q.SumByKind(ctx, 1, from, to)
	if err != nil {
		t.Fatalf("sum by kind: %v", err)
	}
	if income.Cents != 100000 || expense.Cents != 40000 {
		t.Fatalf("income/expense = %d/%d", income.Cents, expense.Cents)
	}

	spent, err := q.SumCategoryExpenses(ctx, 1, "food", from, to)
	if err != nil {
		t.Fatalf("sum category: %v", err)
	}
	if spent.Cents != 30000 {
		t.Fatalf("food spend = %d", spent.Cents)
	}

	byCategory, err := q.ExpensesByCategory(ctx, 1, from, to)
	if err != nil {
		t.Fatalf("by category: %v", err)
	}
	if len(byCategory) != 2 {
		t.Fatalf("categories = %+v", byCategory)
	}
	if byCategory[0].Category != "food" || byCategory[0].Spent.Cents != 30000 {
		t.Fatalf("top category = %+v", byCategory[0])
	}
}

func TestBudgetLimitQueries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	q := repo.Queries()

	limit := core.BudgetLimit{UserID: 1, Category: "food", Cap: core.Money{Cents: 50000}}
	if err := q.UpsertBudgetLimit(ctx, limit); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Upsert overwrites.
	limit.Cap.Cents = 60000
	if err := q.UpsertBudgetLimit(ctx, limit); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	capAmount, found, err := q.GetBudgetLimit(ctx, 1, "food")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found || capAmount.Cents != 60000 {
		t.Fatalf("cap = %+v found = %v", capAmount, found)
	}

	_, found, err = q.GetBudgetLimit(ctx, 1, "transport")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("unexpected limit for transport")
	}

	n, err := q.DeleteBudgetLimit(ctx, 1, "food")
	if err != nil || n != 1 {
		t.Fatalf("delete rows = %d, err = %v", n, err)
	}
}

func TestDebtQueries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	q := repo.Queries()

	now := time.Now().Truncate(time.Second)
	big, err := q.InsertDebt(ctx, core.Debt{
		UserID:        1,
		Creditor:      "Bank",
		InitialAmount: core.Money{Cents: 500000},
		CurrentAmount: core.Money{Cents: 500000},
		Status:        core.DebtActive,
		CreatedAt:     now,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	small, err := q.InsertDebt(ctx, core.Debt{
		UserID:        1,
		Creditor:      "Friend",
		InitialAmount: core.Money{Cents: 10000},
		CurrentAmount: core.Money{Cents: 10000},
		DueDate:       now.AddDate(0, 1, 0),
		Status:        core.DebtActive,
		CreatedAt:     now,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := q.GetDebt(ctx, 1, small)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Creditor != "Friend" || got.CurrentAmount.Cents != 10000 {
		t.Fatalf("got = %+v", got)
	}
	// Owner scoping: another user cannot see the row.
	if _, err := q.GetDebt(ctx, 2, small); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign get: %v, want ErrNotFound", err)
	}

	active, err := q.ListActiveDebts(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("active = %d", len(active))
	}
	if active[0].ID != small || active[1].ID != big {
		t.Fatal("not ordered by outstanding ascending")
	}
	if active[0].DueDate.IsZero() {
		t.Fatal("due date lost")
	}
	if !active[1].DueDate.IsZero() {
		t.Fatal("open-ended debt should have zero due date")
	}

	if err := q.UpdateDebtAmount(ctx, 1, big, core.Money{}, core.DebtPaid); err != nil {
		t.Fatalf("update amount: %v", err)
	}
	active, err = q.ListActiveDebts(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != small {
		t.Fatalf("active after payoff = %+v", active)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := repo.WithTx(ctx, func(q *Queries) error {
		if _, err := q.AdjustEnvelope(ctx, 1, core.EnvelopeSpendable, core.Money{Cents: 1000}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v", err)
	}

	balance, err := repo.Queries().GetEnvelopeBalance(ctx, 1, core.EnvelopeSpendable)
	if err != nil {
		t.Fatal(err)
	}
	if balance.Cents != 0 {
		t.Fatalf("balance = %d after rollback, want 0", balance.Cents)
	}
}
