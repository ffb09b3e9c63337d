package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gvozdik97/finance-bot/internal/core"
	"github.com/gvozdik97/finance-bot/internal/storage"
)

// TransactionLog owns the mutable record of income and expense events. It is
// pure bookkeeping: the envelope deltas a mutation implies are computed and
// applied by the engine, in the same storage transaction.
type TransactionLog struct {
	q   *storage.Queries
	now func() time.Time
}

func NewTransactionLog(q *storage.Queries, now func() time.Time) *TransactionLog {
	if now == nil {
		now = time.Now
	}
	return &TransactionLog{q: q, now: now}
}

// Append records a new transaction and returns it with ID and timestamp set.
func (l *TransactionLog) Append(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.CreatedAt = l.now()
	id, err := l.q.InsertTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	t.ID = id
	return t, nil
}

// Get loads a transaction scoped to its owner. A transaction that does not
// exist, or belongs to another user, is ErrNotFound.
func (l *TransactionLog) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	t, err := l.q.GetTransaction(ctx, userID, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// Update persists new amount/category/description onto an existing row.
// The creation timestamp is left untouched.
func (l *TransactionLog) Update(ctx context.Context, userID, id int64, amount core.Money, category, description string) error {
	affected, err := l.q.UpdateTransaction(ctx, userID, id, amount, category, description)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Delete removes a transaction. Deleting an already-deleted id is
// ErrNotFound with no other effect.
func (l *TransactionLog) Delete(ctx context.Context, userID, id int64) error {
	affected, err := l.q.DeleteTransaction(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Recent returns the newest transactions first, for display and editing.
func (l *TransactionLog) Recent(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	txs, err := l.q.ListRecentTransactions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	return txs, nil
}
