package core

import (
	"strings"
	"time"
)

const (
	// Envelope names. Every user gets the same fixed set, created lazily
	// on first use and never deleted, only zeroed.
	EnvelopeReserve   = "reserve"
	EnvelopeSpendable = "spendable"
	EnvelopeDebtFund  = "debt_fund"
)

// EnvelopeNames lists the fixed envelope set in display order.
var EnvelopeNames = []string{EnvelopeReserve, EnvelopeSpendable, EnvelopeDebtFund}

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

const (
	DebtActive DebtStatus = "active"
	DebtPaid   DebtStatus = "paid"
)

// DefaultReserveRate is the share of each income event diverted to the
// reserve envelope for users that never touched their settings.
const DefaultReserveRate = 10

type (
	TransactionKind string

	DebtStatus string

	Money struct {
		Cents int64
	}

	// Transaction is the only mutable ledger entity: amount, category and
	// description may change after creation, and the row may be removed.
	Transaction struct {
		ID          int64
		UserID      int64
		Kind        TransactionKind
		Amount      Money
		Category    string
		Description string
		CreatedAt   time.Time
	}

	// UserPolicy is the per-user income distribution policy.
	UserPolicy struct {
		UserID         int64
		ReserveRate    int // percent, 0..100
		AutoDistribute bool
	}

	Debt struct {
		ID            int64
		UserID        int64
		Creditor      string
		InitialAmount Money
		CurrentAmount Money
		InterestRate  float64
		DueDate       time.Time // zero when open-ended
		Status        DebtStatus
		CreatedAt     time.Time
	}

	// DebtPayment rows are append-only and never mutated.
	DebtPayment struct {
		ID     int64
		UserID int64
		DebtID int64
		Amount Money
		PaidAt time.Time
	}

	BudgetLimit struct {
		UserID   int64
		Category string
		Cap      Money
	}
)

func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (p UserPolicy) Validate() error {
	if p.ReserveRate < 0 || p.ReserveRate > 100 {
		return ErrInvalidRate
	}
	return nil
}

func (d Debt) Validate() error {
	if strings.TrimSpace(d.Creditor) == "" {
		return ErrEmptyCreditor
	}
	if err := d.InitialAmount.Validate(); err != nil {
		return err
	}
	if d.InterestRate < 0 {
		return ErrInvalidRate
	}
	return nil
}

func (b BudgetLimit) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	return b.Cap.Validate()
}
