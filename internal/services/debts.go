package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gvozdik97/finance-bot/internal/core"
	"github.com/gvozdik97/finance-bot/internal/storage"
)

// Snowball plan tuning: each active debt gets a recommended payment of
// max(minimum, 5% of outstanding).
const (
	snowballMinPaymentCents = 100000 // 1000.00
	snowballFractionPercent = 5
)

// DebtLedger owns per-creditor debt records and their payment history.
// Payments debit the spendable envelope through the EnvelopeStore, which is
// the rule that keeps the reserve untouchable by debt repayment.
type DebtLedger struct {
	q         *storage.Queries
	envelopes *EnvelopeStore
	now       func() time.Time
}

func NewDebtLedger(q *storage.Queries, envelopes *EnvelopeStore, now func() time.Time) *DebtLedger {
	if now == nil {
		now = time.Now
	}
	return &DebtLedger{q: q, envelopes: envelopes, now: now}
}

// Add records a new debt. The outstanding amount starts equal to the
// initial amount and the status is active.
func (d *DebtLedger) Add(ctx context.Context, userID int64, creditor string, amount core.Money, interestRate float64, dueDate time.Time) (core.Debt, error) {
	debt := core.Debt{
		UserID:        userID,
		Creditor:      creditor,
		InitialAmount: amount,
		CurrentAmount: amount,
		InterestRate:  interestRate,
		DueDate:       dueDate,
		Status:        core.DebtActive,
		CreatedAt:     d.now(),
	}
	if err := debt.Validate(); err != nil {
		return core.Debt{}, err
	}
	id, err := d.q.InsertDebt(ctx, debt)
	if err != nil {
		return core.Debt{}, fmt.Errorf("insert debt: %w", err)
	}
	debt.ID = id
	return debt, nil
}

// Get loads a debt scoped to its owner.
func (d *DebtLedger) Get(ctx context.Context, userID, id int64) (core.Debt, error) {
	debt, err := d.q.GetDebt(ctx, userID, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Debt{}, core.ErrNotFound
	}
	if err != nil {
		return core.Debt{}, fmt.Errorf("get debt: %w", err)
	}
	return debt, nil
}

// Active returns the user's active debts in snowball order (smallest
// outstanding first, ties by insertion order).
func (d *DebtLedger) Active(ctx context.Context, userID int64) ([]core.Debt, error) {
	debts, err := d.q.ListActiveDebts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list active debts: %w", err)
	}
	return debts, nil
}

// Pay retires part of a debt from the spendable envelope.
//
// The affordability check runs against the requested amount before any
// mutation; the actual debit is then clamped to the outstanding amount, so
// the ledger never pays a debt below zero. At zero outstanding the debt
// flips to paid, exactly once. Must run inside the engine's storage
// transaction: the debit, the debt update and the payment row commit
// together.
func (d *DebtLedger) Pay(ctx context.Context, userID, debtID int64, amount core.Money) (core.Debt, core.Money, error) {
	if amount.Cents <= 0 {
		return core.Debt{}, core.Money{}, core.ErrInvalidAmount
	}

	debt, err := d.Get(ctx, userID, debtID)
	if err != nil {
		return core.Debt{}, core.Money{}, err
	}
	if debt.Status != core.DebtActive {
		return core.Debt{}, core.Money{}, core.ErrNotFound
	}

	available, err := d.envelopes.Balance(ctx, userID, core.EnvelopeSpendable)
	if err != nil {
		return core.Debt{}, core.Money{}, err
	}
	if available.Cents < amount.Cents {
		return core.Debt{}, core.Money{}, &core.InsufficientFundsError{
			Available: available,
			Needed:    amount,
		}
	}

	// Never pay more than is owed.
	if amount.Cents > debt.CurrentAmount.Cents {
		amount = debt.CurrentAmount
	}

	if _, err := d.envelopes.Adjust(ctx, userID, core.EnvelopeSpendable, core.Money{Cents: -amount.Cents}); err != nil {
		return core.Debt{}, core.Money{}, err
	}

	debt.CurrentAmount.Cents -= amount.Cents
	if debt.CurrentAmount.Cents <= 0 {
		debt.CurrentAmount.Cents = 0
		debt.Status = core.DebtPaid
	}
	if err := d.q.UpdateDebtAmount(ctx, userID, debtID, debt.CurrentAmount, debt.Status); err != nil {
		return core.Debt{}, core.Money{}, fmt.Errorf("update debt: %w", err)
	}

	payment := core.DebtPayment{
		UserID: userID,
		DebtID: debtID,
		Amount: amount,
		PaidAt: d.now(),
	}
	if _, err := d.q.InsertDebtPayment(ctx, payment); err != nil {
		return core.Debt{}, core.Money{}, fmt.Errorf("insert debt payment: %w", err)
	}

	return debt, amount, nil
}

// Payments returns the payment history for one debt, newest first.
func (d *DebtLedger) Payments(ctx context.Context, userID, debtID int64) ([]core.DebtPayment, error) {
	payments, err := d.q.ListDebtPayments(ctx, userID, debtID)
	if err != nil {
		return nil, fmt.Errorf("list debt payments: %w", err)
	}
	return payments, nil
}

// SnowballEntry is one advisory line of a repayment plan.
type SnowballEntry struct {
	Priority           int
	DebtID             int64
	Creditor           string
	Outstanding        core.Money
	RecommendedPayment core.Money
}

// SnowballPlan proposes a repayment order: smallest debts first. Purely
// advisory; nothing is mutated.
type SnowballPlan struct {
	TotalDebt core.Money
	Entries   []SnowballEntry
}

// Snowball builds the repayment plan for the user's active debts.
func (d *DebtLedger) Snowball(ctx context.Context, userID int64) (SnowballPlan, error) {
	debts, err := d.Active(ctx, userID)
	if err != nil {
		return SnowballPlan{}, err
	}

	var plan SnowballPlan
	for i, debt := range debts {
		plan.TotalDebt.Cents += debt.CurrentAmount.Cents
		plan.Entries = append(plan.Entries, SnowballEntry{
			Priority:           i + 1,
			DebtID:             debt.ID,
			Creditor:           debt.Creditor,
			Outstanding:        debt.CurrentAmount,
			RecommendedPayment: recommendedPayment(debt.CurrentAmount),
		})
	}
	return plan, nil
}

func recommendedPayment(outstanding core.Money) core.Money {
	byFraction := outstanding.Cents * snowballFractionPercent / 100
	if byFraction < snowballMinPaymentCents {
		return core.Money{Cents: snowballMinPaymentCents}
	}
	return core.Money{Cents: byFraction}
}
