package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/gvozdik97/finance-bot/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every query below can run
// on the pooled connection or inside a transaction unchanged.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries bundles all SQL for the ledger schema.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// CategorySpend is one row of a per-category expense aggregation.
type CategorySpend struct {
	Category string
	Spent    core.Money
}

// --- envelopes ---

// GetEnvelopeBalance returns the balance of one envelope. A missing row is a
// zero balance, not an error.
func (q *Queries) GetEnvelopeBalance(ctx context.Context, userID int64, name string) (core.Money, error) {
	var cents int64
	err := q.db.QueryRowContext(ctx,
		`SELECT balance_cents FROM envelopes WHERE user_id = ? AND name = ?`,
		userID, name,
	).Scan(&cents)
	if err == sql.ErrNoRows {
		return core.Money{}, nil
	}
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// AdjustEnvelope applies balance += delta atomically, creating the envelope
// row on first use, and returns the new balance.
func (q *Queries) AdjustEnvelope(ctx context.Context, userID int64, name string, delta core.Money) (core.Money, error) {
	var cents int64
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO envelopes (user_id, name, balance_cents) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, name) DO UPDATE SET balance_cents = balance_cents + excluded.balance_cents
		 RETURNING balance_cents`,
		userID, name, delta.Cents,
	).Scan(&cents)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// ListEnvelopeBalances returns the stored balances for a user keyed by
// envelope name. Envelopes never touched are simply absent.
func (q *Queries) ListEnvelopeBalances(ctx context.Context, userID int64) (map[string]core.Money, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT name, balance_cents FROM envelopes WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make(map[string]core.Money)
	for rows.Next() {
		var name string
		var cents int64
		if err := rows.Scan(&name, &cents); err != nil {
			return nil, err
		}
		balances[name] = core.Money{Cents: cents}
	}
	return balances, rows.Err()
}

// --- user settings ---

// EnsurePolicy inserts the default policy for a user if none exists.
func (q *Queries) EnsurePolicy(ctx context.Context, userID int64, now time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_settings (user_id, reserve_rate, auto_distribute, created_at, updated_at)
		 VALUES (?, ?, 1, ?, ?)`,
		userID, core.DefaultReserveRate, now.Unix(), now.Unix())
	return err
}

func (q *Queries) GetPolicy(ctx context.Context, userID int64) (core.UserPolicy, error) {
	var p core.UserPolicy
	var auto int
	err := q.db.QueryRowContext(ctx,
		`SELECT user_id, reserve_rate, auto_distribute FROM user_settings WHERE user_id = ?`,
		userID,
	).Scan(&p.UserID, &p.ReserveRate, &auto)
	if err != nil {
		return core.UserPolicy{}, err
	}
	p.AutoDistribute = auto != 0
	return p, nil
}

func (q *Queries) UpdateReserveRate(ctx context.Context, userID int64, rate int, now time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE user_settings SET reserve_rate = ?, updated_at = ? WHERE user_id = ?`,
		rate, now.Unix(), userID)
	return err
}

func (q *Queries) UpdateAutoDistribute(ctx context.Context, userID int64, enabled bool, now time.Time) error {
	v := 0
	if enabled {
		v = 1
	}
	_, err := q.db.ExecContext(ctx,
		`UPDATE user_settings SET auto_distribute = ?, updated_at = ? WHERE user_id = ?`,
		v, now.Unix(), userID)
	return err
}

// --- transactions ---

func (q *Queries) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, kind, amount_cents, category, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.UserID, string(t.Kind), t.Amount.Cents, t.Category, t.Description, t.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetTransaction loads a transaction scoped to its owner. Returns
// core.ErrNotFound when absent or owned by someone else.
func (q *Queries) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	var t core.Transaction
	var kind string
	var created int64
	err := q.db.QueryRowContext(ctx,
		`SELECT id, user_id, kind, amount_cents, category, description, created_at
		 FROM transactions WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&t.ID, &t.UserID, &kind, &t.Amount.Cents, &t.Category, &t.Description, &created)
	if err == sql.ErrNoRows {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, err
	}
	t.Kind = core.TransactionKind(kind)
	t.CreatedAt = time.Unix(created, 0)
	return t, nil
}

func (q *Queries) UpdateTransaction(ctx context.Context, userID, id int64, amount core.Money, category, description string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET amount_cents = ?, category = ?, description = ?
		 WHERE id = ? AND user_id = ?`,
		amount.Cents, category, description, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteTransaction(ctx context.Context, userID, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ListRecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, user_id, kind, amount_cents, category, description, created_at
		 FROM transactions WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var kind string
		var created int64
		if err := rows.Scan(&t.ID, &t.UserID, &kind, &t.Amount.Cents, &t.Category, &t.Description, &created); err != nil {
			return nil, err
		}
		t.Kind = core.TransactionKind(kind)
		t.CreatedAt = time.Unix(created, 0)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SumCategoryExpenses totals expense transactions for one category in
// [from, to]. The aggregate runs live against the log, never a counter.
func (q *Queries) SumCategoryExpenses(ctx context.Context, userID int64, category string, from, to time.Time) (core.Money, error) {
	var cents int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		 WHERE user_id = ? AND category = ? AND kind = 'expense'
		   AND created_at >= ? AND created_at <= ?`,
		userID, category, from.Unix(), to.Unix(),
	).Scan(&cents)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// SumByKind totals income and expense amounts in [from, to].
func (q *Queries) SumByKind(ctx context.Context, userID int64, from, to time.Time) (income, expense core.Money, err error) {
	err = q.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN kind = 'income' THEN amount_cents ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN kind = 'expense' THEN amount_cents ELSE 0 END), 0)
		 FROM transactions WHERE user_id = ? AND created_at >= ? AND created_at <= ?`,
		userID, from.Unix(), to.Unix(),
	).Scan(&income.Cents, &expense.Cents)
	return income, expense, err
}

// ExpensesByCategory aggregates expense totals per category in [from, to],
// largest first.
func (q *Queries) ExpensesByCategory(ctx context.Context, userID int64, from, to time.Time) ([]CategorySpend, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents) FROM transactions
		 WHERE user_id = ? AND kind = 'expense' AND created_at >= ? AND created_at <= ?
		 GROUP BY category ORDER BY SUM(amount_cents) DESC`,
		userID, from.Unix(), to.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CategorySpend
	for rows.Next() {
		var cs CategorySpend
		if err := rows.Scan(&cs.Category, &cs.Spent.Cents); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// --- debts ---

func (q *Queries) InsertDebt(ctx context.Context, d core.Debt) (int64, error) {
	var due sql.NullInt64
	if !d.DueDate.IsZero() {
		due = sql.NullInt64{Int64: d.DueDate.Unix(), Valid: true}
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO debts (user_id, creditor, initial_cents, current_cents, interest_rate, due_date, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.UserID, d.Creditor, d.InitialAmount.Cents, d.CurrentAmount.Cents,
		d.InterestRate, due, string(d.Status), d.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetDebt loads a debt scoped to its owner. Returns core.ErrNotFound when
// absent or owned by someone else.
func (q *Queries) GetDebt(ctx context.Context, userID, id int64) (core.Debt, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, user_id, creditor, initial_cents, current_cents, interest_rate, due_date, status, created_at
		 FROM debts WHERE id = ? AND user_id = ?`,
		id, userID)
	d, err := scanDebt(row)
	if err == sql.ErrNoRows {
		return core.Debt{}, core.ErrNotFound
	}
	return d, err
}

func scanDebt(row *sql.Row) (core.Debt, error) {
	var d core.Debt
	var status string
	var due sql.NullInt64
	var created int64
	err := row.Scan(&d.ID, &d.UserID, &d.Creditor, &d.InitialAmount.Cents, &d.CurrentAmount.Cents,
		&d.InterestRate, &due, &status, &created)
	if err != nil {
		return core.Debt{}, err
	}
	d.Status = core.DebtStatus(status)
	if due.Valid {
		d.DueDate = time.Unix(due.Int64, 0)
	}
	d.CreatedAt = time.Unix(created, 0)
	return d, nil
}

// ListActiveDebts returns active debts ordered ascending by outstanding
// amount, ties broken by insertion order (snowball ordering).
func (q *Queries) ListActiveDebts(ctx context.Context, userID int64) ([]core.Debt, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, user_id, creditor, initial_cents, current_cents, interest_rate, due_date, status, created_at
		 FROM debts WHERE user_id = ? AND status = 'active'
		 ORDER BY current_cents ASC, id ASC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Debt
	for rows.Next() {
		var d core.Debt
		var status string
		var due sql.NullInt64
		var created int64
		if err := rows.Scan(&d.ID, &d.UserID, &d.Creditor, &d.InitialAmount.Cents, &d.CurrentAmount.Cents,
			&d.InterestRate, &due, &status, &created); err != nil {
			return nil, err
		}
		d.Status = core.DebtStatus(status)
		if due.Valid {
			d.DueDate = time.Unix(due.Int64, 0)
		}
		d.CreatedAt = time.Unix(created, 0)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateDebtAmount(ctx context.Context, userID, id int64, current core.Money, status core.DebtStatus) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE debts SET current_cents = ?, status = ? WHERE id = ? AND user_id = ?`,
		current.Cents, string(status), id, userID)
	return err
}

func (q *Queries) InsertDebtPayment(ctx context.Context, p core.DebtPayment) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO debt_payments (user_id, debt_id, amount_cents, paid_at) VALUES (?, ?, ?, ?)`,
		p.UserID, p.DebtID, p.Amount.Cents, p.PaidAt.Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *Queries) ListDebtPayments(ctx context.Context, userID, debtID int64) ([]core.DebtPayment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, user_id, debt_id, amount_cents, paid_at FROM debt_payments
		 WHERE user_id = ? AND debt_id = ? ORDER BY paid_at DESC, id DESC`,
		userID, debtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.DebtPayment
	for rows.Next() {
		var p core.DebtPayment
		var paid int64
		if err := rows.Scan(&p.ID, &p.UserID, &p.DebtID, &p.Amount.Cents, &paid); err != nil {
			return nil, err
		}
		p.PaidAt = time.Unix(paid, 0)
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- budget limits ---

func (q *Queries) UpsertBudgetLimit(ctx context.Context, b core.BudgetLimit) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO budget_limits (user_id, category, cap_cents) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, category) DO UPDATE SET cap_cents = excluded.cap_cents`,
		b.UserID, b.Category, b.Cap.Cents)
	return err
}

// GetBudgetLimit returns the cap for a category, with found=false when no
// limit is configured.
func (q *Queries) GetBudgetLimit(ctx context.Context, userID int64, category string) (core.Money, bool, error) {
	var cents int64
	err := q.db.QueryRowContext(ctx,
		`SELECT cap_cents FROM budget_limits WHERE user_id = ? AND category = ?`,
		userID, category,
	).Scan(&cents)
	if err == sql.ErrNoRows {
		return core.Money{}, false, nil
	}
	if err != nil {
		return core.Money{}, false, err
	}
	return core.Money{Cents: cents}, true, nil
}

func (q *Queries) ListBudgetLimits(ctx context.Context, userID int64) ([]core.BudgetLimit, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT user_id, category, cap_cents FROM budget_limits WHERE user_id = ? ORDER BY category`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.BudgetLimit
	for rows.Next() {
		var b core.BudgetLimit
		if err := rows.Scan(&b.UserID, &b.Category, &b.Cap.Cents); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteBudgetLimit(ctx context.Context, userID int64, category string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM budget_limits WHERE user_id = ? AND category = ?`, userID, category)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
