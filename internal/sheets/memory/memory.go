// Package memory holds an in-memory spreadsheet fake for tests and local
// runs without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/gvozdik97/finance-bot/internal/core"
)

type Store struct {
	mu       sync.Mutex
	rows     []core.Transaction
	payments []core.DebtPayment
}

func New() *Store {
	return &Store{}
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, t)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// AppendPayment stores the payment row.
func (s *Store) AppendPayment(_ context.Context, _ string, p core.DebtPayment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, p)
	return fmt.Sprintf("mem:payment:%d", len(s.payments)), nil
}

// Rows returns a copy of the appended transactions.
func (s *Store) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.rows...)
}

// Payments returns a copy of the appended payment rows.
func (s *Store) Payments() []core.DebtPayment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.DebtPayment(nil), s.payments...)
}
