package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gvozdik97/finance-bot/internal/core"
	"github.com/gvozdik97/finance-bot/internal/storage"
)

// SettingsStore owns the per-user income distribution policy.
type SettingsStore struct {
	q   *storage.Queries
	now func() time.Time
}

func NewSettingsStore(q *storage.Queries, now func() time.Time) *SettingsStore {
	if now == nil {
		now = time.Now
	}
	return &SettingsStore{q: q, now: now}
}

// Policy returns the user's distribution policy, creating the default
// (reserve_rate=10, auto_distribute=true) on first use.
func (s *SettingsStore) Policy(ctx context.Context, userID int64) (core.UserPolicy, error) {
	if err := s.q.EnsurePolicy(ctx, userID, s.now()); err != nil {
		return core.UserPolicy{}, fmt.Errorf("ensure policy: %w", err)
	}
	p, err := s.q.GetPolicy(ctx, userID)
	if err != nil {
		return core.UserPolicy{}, fmt.Errorf("get policy: %w", err)
	}
	return p, nil
}

// SetReserveRate updates the reserve percentage. Rates outside [0,100] fail
// with ErrInvalidRate before any write.
func (s *SettingsStore) SetReserveRate(ctx context.Context, userID int64, rate int) error {
	if rate < 0 || rate > 100 {
		return core.ErrInvalidRate
	}
	if err := s.q.EnsurePolicy(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("ensure policy: %w", err)
	}
	if err := s.q.UpdateReserveRate(ctx, userID, rate, s.now()); err != nil {
		return fmt.Errorf("update reserve rate: %w", err)
	}
	return nil
}

// SetAutoDistribute toggles automatic income splitting.
func (s *SettingsStore) SetAutoDistribute(ctx context.Context, userID int64, enabled bool) error {
	if err := s.q.EnsurePolicy(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("ensure policy: %w", err)
	}
	if err := s.q.UpdateAutoDistribute(ctx, userID, enabled, s.now()); err != nil {
		return fmt.Errorf("update auto distribute: %w", err)
	}
	return nil
}

// splitForPolicy computes the income split a policy produces for an amount.
// With auto-distribute off everything lands in the spendable envelope.
func splitForPolicy(p core.UserPolicy, amount core.Money) (reserve, spendable core.Money) {
	if !p.AutoDistribute {
		return core.Money{}, amount
	}
	return core.SplitIncome(amount, p.ReserveRate)
}
