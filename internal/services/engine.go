// Package services implements the envelope ledger: envelope balances, the
// mutable transaction log, debts, budget caps, and the engine that keeps
// them consistent.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gvozdik97/finance-bot/internal/amqp"
	"github.com/gvozdik97/finance-bot/internal/cache"
	"github.com/gvozdik97/finance-bot/internal/core"
	"github.com/gvozdik97/finance-bot/internal/metrics"
	"github.com/gvozdik97/finance-bot/internal/storage"
)

const (
	summaryCacheSize = 256
	summaryCacheTTL  = 5 * time.Minute
)

// LedgerEngine is the single entry point for all ledger operations.
//
// Every mutating operation takes the user's lock for the whole
// read-check-mutate-append sequence and runs its writes inside one SQLite
// transaction, so a crash mid-operation never leaves an envelope adjustment
// without its log entry (or vice versa). Operations for different users run
// in parallel.
type LedgerEngine struct {
	repo      *storage.SQLiteRepository
	events    *amqp.Client // optional; mutations succeed without a broker
	locks     *userLocks
	summaries *cache.LRUCache[MonthSummary]
	metrics   *metrics.Metrics // optional
	now       func() time.Time
}

func NewLedgerEngine(repo *storage.SQLiteRepository, events *amqp.Client) *LedgerEngine {
	return &LedgerEngine{
		repo:      repo,
		events:    events,
		locks:     newUserLocks(),
		summaries: cache.NewLRUCache[MonthSummary](summaryCacheSize, summaryCacheTTL),
		now:       time.Now,
	}
}

// WithMetrics attaches Prometheus collectors; pass nil to disable.
func (e *LedgerEngine) WithMetrics(m *metrics.Metrics) *LedgerEngine {
	e.metrics = m
	return e
}

// countOp records the outcome of one ledger operation.
func (e *LedgerEngine) countOp(op string, err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.OperationsTotal.WithLabelValues(op).Inc()
	if err != nil {
		e.metrics.OperationErrors.WithLabelValues(op).Inc()
	}
}

// lockUser serializes the caller against other mutations for this user.
func (e *LedgerEngine) lockUser(userID int64) func() {
	unlock := e.locks.lock(userID)
	if e.metrics != nil {
		e.metrics.ActiveUsersGauge.Set(float64(e.locks.size()))
	}
	return unlock
}

// IncomeResult reports how an income event was distributed.
type IncomeResult struct {
	Transaction    core.Transaction
	ReserveShare   core.Money
	SpendableShare core.Money
	Balances       map[string]core.Money
}

// ExpenseResult reports a recorded expense and its budget verdict.
type ExpenseResult struct {
	Transaction  core.Transaction
	NewSpendable core.Money
	Budget       BudgetStatus
}

// EditResult reports the transaction after an edit and the resulting
// balances.
type EditResult struct {
	Transaction core.Transaction
	Balances    map[string]core.Money
}

// PaymentResult reports an accepted debt payment.
type PaymentResult struct {
	Debt         core.Debt
	Paid         core.Money
	NewSpendable core.Money
}

// TransactionChanges carries the optional fields of an edit; nil means keep
// the original value.
type TransactionChanges struct {
	Amount      *core.Money
	Category    *string
	Description *string
}

// RecordIncome splits an income amount by the user's current policy, credits
// the reserve and spendable envelopes and appends the log entry, all in one
// atomic unit.
func (e *LedgerEngine) RecordIncome(ctx context.Context, userID int64, amount core.Money, category, description string) (IncomeResult, error) {
	t := core.Transaction{
		UserID:      userID,
		Kind:        core.Income,
		Amount:      amount,
		Category:    category,
		Description: description,
	}
	if err := t.Validate(); err != nil {
		return IncomeResult{}, err
	}

	defer e.lockUser(userID)()

	var result IncomeResult
	err := e.repo.WithTx(ctx, func(q *storage.Queries) error {
		settings := NewSettingsStore(q, e.now)
		envelopes := NewEnvelopeStore(q)
		txlog := NewTransactionLog(q, e.now)

		policy, err := settings.Policy(ctx, userID)
		if err != nil {
			return err
		}
		reserve, spendable := splitForPolicy(policy, amount)

		if _, err := envelopes.Adjust(ctx, userID, core.EnvelopeReserve, reserve); err != nil {
			return err
		}
		if _, err := envelopes.Adjust(ctx, userID, core.EnvelopeSpendable, spendable); err != nil {
			return err
		}

		recorded, err := txlog.Append(ctx, t)
		if err != nil {
			return err
		}

		balances, err := envelopes.Balances(ctx, userID)
		if err != nil {
			return err
		}

		result = IncomeResult{
			Transaction:    recorded,
			ReserveShare:   reserve,
			SpendableShare: spendable,
			Balances:       balances,
		}
		return nil
	})
	e.countOp("record_income", err)
	if err != nil {
		return IncomeResult{}, err
	}

	e.invalidateSummary(userID, result.Transaction.CreatedAt)
	e.publish(ctx, amqp.EventTransactionRecorded, userID, result.Transaction.ID, 0)
	return result, nil
}

// RecordExpense debits the spendable envelope after an affordability check
// and appends the log entry. The budget verdict is attached to the result
// and never blocks the expense.
func (e *LedgerEngine) RecordExpense(ctx context.Context, userID int64, amount core.Money, category, description string) (ExpenseResult, error) {
	t := core.Transaction{
		UserID:      userID,
		Kind:        core.Expense,
		Amount:      amount,
		Category:    category,
		Description: description,
	}
	if err := t.Validate(); err != nil {
		return ExpenseResult{}, err
	}

	defer e.lockUser(userID)()

	var result ExpenseResult
	err := e.repo.WithTx(ctx, func(q *storage.Queries) error {
		envelopes := NewEnvelopeStore(q)
		txlog := NewTransactionLog(q, e.now)
		budgets := NewBudgetLimiter(q, e.now)

		available, err := envelopes.Balance(ctx, userID, core.EnvelopeSpendable)
		if err != nil {
			return err
		}
		if available.Cents < amount.Cents {
			return &core.InsufficientFundsError{Available: available, Needed: amount}
		}

		newSpendable, err := envelopes.Adjust(ctx, userID, core.EnvelopeSpendable, core.Money{Cents: -amount.Cents})
		if err != nil {
			return err
		}

		recorded, err := txlog.Append(ctx, t)
		if err != nil {
			return err
		}

		// The just-appended expense is inside this transaction, so the
		// month aggregate already includes it.
		budget, err := budgets.CheckAfterSpend(ctx, userID, category)
		if err != nil {
			return err
		}

		result = ExpenseResult{
			Transaction:  recorded,
			NewSpendable: newSpendable,
			Budget:       budget,
		}
		return nil
	})
	e.countOp("record_expense", err)
	if err != nil {
		return ExpenseResult{}, err
	}

	e.invalidateSummary(userID, result.Transaction.CreatedAt)
	e.publish(ctx, amqp.EventTransactionRecorded, userID, result.Transaction.ID, 0)
	return result, nil
}

// EditTransaction changes a transaction's amount, category or description
// and re-applies the balance delta the change implies.
//
// Income diffs are split with the policy in effect now, not at creation
// time. Expense diffs adjust the spendable envelope without re-checking
// affordability, so an edit that raises an expense can drive spendable
// negative; both behaviors are deliberate and documented.
func (e *LedgerEngine) EditTransaction(ctx context.Context, userID, txID int64, changes TransactionChanges) (EditResult, error) {
	if changes.Amount != nil && changes.Amount.Cents <= 0 {
		return EditResult{}, core.ErrInvalidAmount
	}

	defer e.lockUser(userID)()

	var result EditResult
	err := e.repo.WithTx(ctx, func(q *storage.Queries) error {
		settings := NewSettingsStore(q, e.now)
		envelopes := NewEnvelopeStore(q)
		txlog := NewTransactionLog(q, e.now)

		original, err := txlog.Get(ctx, userID, txID)
		if err != nil {
			return err
		}

		updated := original
		if changes.Amount != nil {
			updated.Amount = *changes.Amount
		}
		if changes.Category != nil {
			updated.Category = *changes.Category
		}
		if changes.Description != nil {
			updated.Description = *changes.Description
		}
		if err := updated.Validate(); err != nil {
			return err
		}

		diff := core.Money{Cents: updated.Amount.Cents - original.Amount.Cents}
		if diff.Cents != 0 {
			if err := e.applyDelta(ctx, settings, envelopes, userID, original.Kind, diff); err != nil {
				return err
			}
		}

		if err := txlog.Update(ctx, userID, txID, updated.Amount, updated.Category, updated.Description); err != nil {
			return err
		}

		balances, err := envelopes.Balances(ctx, userID)
		if err != nil {
			return err
		}
		result = EditResult{Transaction: updated, Balances: balances}
		return nil
	})
	e.countOp("edit_transaction", err)
	if err != nil {
		return EditResult{}, err
	}

	e.invalidateSummary(userID, result.Transaction.CreatedAt)
	e.publish(ctx, amqp.EventTransactionEdited, userID, txID, 0)
	return result, nil
}

// DeleteTransaction reverses the balance delta the creation applied, then
// removes the row. A second delete of the same id fails ErrNotFound before
// any mutation, so balances are never double-reversed.
func (e *LedgerEngine) DeleteTransaction(ctx context.Context, userID, txID int64) (map[string]core.Money, error) {
	defer e.lockUser(userID)()

	var balances map[string]core.Money
	var deletedAt time.Time
	err := e.repo.WithTx(ctx, func(q *storage.Queries) error {
		settings := NewSettingsStore(q, e.now)
		envelopes := NewEnvelopeStore(q)
		txlog := NewTransactionLog(q, e.now)

		t, err := txlog.Get(ctx, userID, txID)
		if err != nil {
			return err
		}
		deletedAt = t.CreatedAt

		reversal := core.Money{Cents: -t.Amount.Cents}
		if err := e.applyDelta(ctx, settings, envelopes, userID, t.Kind, reversal); err != nil {
			return err
		}

		if err := txlog.Delete(ctx, userID, txID); err != nil {
			return err
		}

		balances, err = envelopes.Balances(ctx, userID)
		return err
	})
	e.countOp("delete_transaction", err)
	if err != nil {
		return nil, err
	}

	e.invalidateSummary(userID, deletedAt)
	e.publish(ctx, amqp.EventTransactionDeleted, userID, txID, 0)
	return balances, nil
}

// applyDelta applies a signed amount change to the envelopes the way the
// original recording would have: income deltas split by the current policy,
// expense deltas debit spendable directly.
func (e *LedgerEngine) applyDelta(ctx context.Context, settings *SettingsStore, envelopes *EnvelopeStore, userID int64, kind core.TransactionKind, diff core.Money) error {
	switch kind {
	case core.Income:
		policy, err := settings.Policy(ctx, userID)
		if err != nil {
			return err
		}
		reserve, spendable := splitForPolicy(policy, diff)
		if _, err := envelopes.Adjust(ctx, userID, core.EnvelopeReserve, reserve); err != nil {
			return err
		}
		if _, err := envelopes.Adjust(ctx, userID, core.EnvelopeSpendable, spendable); err != nil {
			return err
		}
	case core.Expense:
		if _, err := envelopes.Adjust(ctx, userID, core.EnvelopeSpendable, core.Money{Cents: -diff.Cents}); err != nil {
			return err
		}
	default:
		return core.ErrInvalidKind
	}
	return nil
}

// AddDebt records a new debt. Nothing is debited; only payments move money.
func (e *LedgerEngine) AddDebt(ctx context.Context, userID int64, creditor string, amount core.Money, interestRate float64, dueDate time.Time) (core.Debt, error) {
	defer e.lockUser(userID)()

	var debt core.Debt
	err := e.repo.WithTx(ctx, func(q *storage.Queries) error {
		ledger := NewDebtLedger(q, NewEnvelopeStore(q), e.now)
		var err error
		debt, err = ledger.Add(ctx, userID, creditor, amount, interestRate, dueDate)
		return err
	})
	e.countOp("add_debt", err)
	return debt, err
}

// PayDebt retires part of a debt from the spendable envelope. The
// affordability check, the clamp to the outstanding amount, the envelope
// debit and the payment row all commit in one atomic unit.
func (e *LedgerEngine) PayDebt(ctx context.Context, userID, debtID int64, amount core.Money) (PaymentResult, error) {
	if amount.Cents <= 0 {
		return PaymentResult{}, core.ErrInvalidAmount
	}

	defer e.lockUser(userID)()

	var result PaymentResult
	err := e.repo.WithTx(ctx, func(q *storage.Queries) error {
		envelopes := NewEnvelopeStore(q)
		ledger := NewDebtLedger(q, envelopes, e.now)

		debt, paid, err := ledger.Pay(ctx, userID, debtID, amount)
		if err != nil {
			return err
		}

		newSpendable, err := envelopes.Balance(ctx, userID, core.EnvelopeSpendable)
		if err != nil {
			return err
		}
		result = PaymentResult{Debt: debt, Paid: paid, NewSpendable: newSpendable}
		return nil
	})
	e.countOp("pay_debt", err)
	if err != nil {
		return PaymentResult{}, err
	}

	e.publish(ctx, amqp.EventDebtPayment, userID, 0, debtID)
	return result, nil
}

// ActiveDebts lists the user's open debts, smallest outstanding first.
func (e *LedgerEngine) ActiveDebts(ctx context.Context, userID int64) ([]core.Debt, error) {
	ledger := NewDebtLedger(e.repo.Queries(), NewEnvelopeStore(e.repo.Queries()), e.now)
	return ledger.Active(ctx, userID)
}

// DebtPayments returns the payment history for one debt.
func (e *LedgerEngine) DebtPayments(ctx context.Context, userID, debtID int64) ([]core.DebtPayment, error) {
	ledger := NewDebtLedger(e.repo.Queries(), NewEnvelopeStore(e.repo.Queries()), e.now)
	return ledger.Payments(ctx, userID, debtID)
}

// SnowballPlan proposes a repayment order for the user's active debts.
// Advisory output only; nothing is mutated.
func (e *LedgerEngine) SnowballPlan(ctx context.Context, userID int64) (SnowballPlan, error) {
	ledger := NewDebtLedger(e.repo.Queries(), NewEnvelopeStore(e.repo.Queries()), e.now)
	return ledger.Snowball(ctx, userID)
}

// SetBudgetLimit creates or overwrites a monthly category cap.
func (e *LedgerEngine) SetBudgetLimit(ctx context.Context, userID int64, category string, cap core.Money) error {
	defer e.lockUser(userID)()

	return e.repo.WithTx(ctx, func(q *storage.Queries) error {
		return NewBudgetLimiter(q, e.now).SetLimit(ctx, core.BudgetLimit{
			UserID:   userID,
			Category: category,
			Cap:      cap,
		})
	})
}

// RemoveBudgetLimit deletes a category cap.
func (e *LedgerEngine) RemoveBudgetLimit(ctx context.Context, userID int64, category string) error {
	defer e.lockUser(userID)()

	return e.repo.WithTx(ctx, func(q *storage.Queries) error {
		return NewBudgetLimiter(q, e.now).RemoveLimit(ctx, userID, category)
	})
}

// BudgetLimits lists every configured cap for the user.
func (e *LedgerEngine) BudgetLimits(ctx context.Context, userID int64) ([]core.BudgetLimit, error) {
	return NewBudgetLimiter(e.repo.Queries(), e.now).Limits(ctx, userID)
}

// SetReserveRate updates the user's reserve percentage.
func (e *LedgerEngine) SetReserveRate(ctx context.Context, userID int64, rate int) error {
	defer e.lockUser(userID)()

	return e.repo.WithTx(ctx, func(q *storage.Queries) error {
		return NewSettingsStore(q, e.now).SetReserveRate(ctx, userID, rate)
	})
}

// SetAutoDistribute toggles automatic income splitting.
func (e *LedgerEngine) SetAutoDistribute(ctx context.Context, userID int64, enabled bool) error {
	defer e.lockUser(userID)()

	return e.repo.WithTx(ctx, func(q *storage.Queries) error {
		return NewSettingsStore(q, e.now).SetAutoDistribute(ctx, userID, enabled)
	})
}

// Policy returns the user's distribution policy, creating the default on
// first use.
func (e *LedgerEngine) Policy(ctx context.Context, userID int64) (core.UserPolicy, error) {
	var policy core.UserPolicy
	err := e.repo.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		policy, err = NewSettingsStore(q, e.now).Policy(ctx, userID)
		return err
	})
	return policy, err
}

// Balances returns every envelope for the user, zero-filled.
func (e *LedgerEngine) Balances(ctx context.Context, userID int64) (map[string]core.Money, error) {
	return NewEnvelopeStore(e.repo.Queries()).Balances(ctx, userID)
}

// RecentTransactions returns the newest transactions first.
func (e *LedgerEngine) RecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	return NewTransactionLog(e.repo.Queries(), e.now).Recent(ctx, userID, limit)
}

// Close releases the engine's resources.
func (e *LedgerEngine) Close() error {
	var errs []error
	if e.repo != nil {
		if err := e.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if e.events != nil {
		if err := e.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger engine: %v", errs)
	}
	return nil
}

// publish sends a committed-mutation event. Publishing is best-effort:
// failures are logged, never surfaced, because the mutation itself already
// committed.
func (e *LedgerEngine) publish(ctx context.Context, kind string, userID, txID, debtID int64) {
	if e.events == nil {
		return
	}
	msg := amqp.NewLedgerEventMessage(kind, userID)
	msg.TransactionID = txID
	msg.DebtID = debtID
	if err := e.events.PublishLedgerEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", kind, "user_id", userID, "error", err)
		return
	}
	if e.metrics != nil {
		e.metrics.EventsPublished.Inc()
	}
}
