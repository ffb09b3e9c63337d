package services

import (
	"context"
	"fmt"

	"github.com/gvozdik97/finance-bot/internal/core"
	"github.com/gvozdik97/finance-bot/internal/storage"
)

// EnvelopeStore owns per-user named balances. It applies deltas and answers
// balance reads; affordability is the caller's job (see LedgerEngine), not
// this layer's.
type EnvelopeStore struct {
	q *storage.Queries
}

func NewEnvelopeStore(q *storage.Queries) *EnvelopeStore {
	return &EnvelopeStore{q: q}
}

// Balance returns an envelope's balance. A never-touched envelope is 0.
func (s *EnvelopeStore) Balance(ctx context.Context, userID int64, name string) (core.Money, error) {
	balance, err := s.q.GetEnvelopeBalance(ctx, userID, name)
	if err != nil {
		return core.Money{}, fmt.Errorf("get envelope %s: %w", name, err)
	}
	return balance, nil
}

// Adjust applies balance += delta atomically and returns the new balance.
// The envelope row is created lazily on first use. Adjust never rejects a
// delta; callers pre-validate affordability.
func (s *EnvelopeStore) Adjust(ctx context.Context, userID int64, name string, delta core.Money) (core.Money, error) {
	balance, err := s.q.AdjustEnvelope(ctx, userID, name, delta)
	if err != nil {
		return core.Money{}, fmt.Errorf("adjust envelope %s: %w", name, err)
	}
	return balance, nil
}

// Balances returns every envelope for the user, zero-filled so the fixed set
// is always present.
func (s *EnvelopeStore) Balances(ctx context.Context, userID int64) (map[string]core.Money, error) {
	stored, err := s.q.ListEnvelopeBalances(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}
	balances := make(map[string]core.Money, len(core.EnvelopeNames))
	for _, name := range core.EnvelopeNames {
		balances[name] = stored[name]
	}
	return balances, nil
}
