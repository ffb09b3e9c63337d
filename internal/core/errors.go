package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidRate        = errors.New("rate outside [0,100]")
	ErrInvalidKind        = errors.New("invalid transaction kind")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyCreditor      = errors.New("empty creditor")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrNotFound           = errors.New("not found")

	// ErrInsufficientFunds is the sentinel matched by errors.Is against
	// *InsufficientFundsError values.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// InsufficientFundsError reports a failed affordability check against the
// spendable envelope. No mutation has occurred when it is returned.
type InsufficientFundsError struct {
	Available Money
	Needed    Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %d, needed %d, shortfall %d",
		e.Available.Cents, e.Needed.Cents, e.Shortfall().Cents)
}

// Shortfall is how much is missing from the spendable envelope.
func (e *InsufficientFundsError) Shortfall() Money {
	return Money{Cents: e.Needed.Cents - e.Available.Cents}
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
