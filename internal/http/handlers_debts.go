package http

import (
	"net/http"
	"time"

	"github.com/gvozdik97/finance-bot/internal/core"
)

type debtPayload struct {
	Creditor     string  `json:"creditor"`
	AmountCents  int64   `json:"amount_cents"`
	InterestRate float64 `json:"interest_rate"`
	DueDate      string  `json:"due_date"` // YYYY-MM-DD, optional
}

type debtView struct {
	ID           int64   `json:"id"`
	Creditor     string  `json:"creditor"`
	InitialCents int64   `json:"initial_cents"`
	CurrentCents int64   `json:"current_cents"`
	InterestRate float64 `json:"interest_rate"`
	DueDate      string  `json:"due_date,omitempty"`
	Status       string  `json:"status"`
	PaidOffShare float64 `json:"paid_off_share"`
}

func viewDebt(d core.Debt) debtView {
	v := debtView{
		ID:           d.ID,
		Creditor:     d.Creditor,
		InitialCents: d.InitialAmount.Cents,
		CurrentCents: d.CurrentAmount.Cents,
		InterestRate: d.InterestRate,
		Status:       string(d.Status),
	}
	if !d.DueDate.IsZero() {
		v.DueDate = d.DueDate.Format("2006-01-02")
	}
	if d.InitialAmount.Cents > 0 {
		v.PaidOffShare = float64(d.InitialAmount.Cents-d.CurrentAmount.Cents) / float64(d.InitialAmount.Cents)
	}
	return v
}

func (s *Server) handleAddDebt(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var payload debtPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var dueDate time.Time
	if payload.DueDate != "" {
		dueDate, err = time.Parse("2006-01-02", payload.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid due_date, expected YYYY-MM-DD")
			return
		}
	}

	debt, err := s.engine.AddDebt(r.Context(), uid,
		sanitizeInput(payload.Creditor),
		core.Money{Cents: payload.AmountCents},
		payload.InterestRate, dueDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"debt": viewDebt(debt)})
}

func (s *Server) handleActiveDebts(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	debts, err := s.engine.ActiveDebts(r.Context(), uid)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]debtView, 0, len(debts))
	total := int64(0)
	for _, d := range debts {
		views = append(views, viewDebt(d))
		total += d.CurrentAmount.Cents
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"debts":       views,
		"total_cents": total,
	})
}

type paymentPayload struct {
	AmountCents int64 `json:"amount_cents"`
}

func (s *Server) handlePayDebt(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	debtID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid debt id")
		return
	}
	var payload paymentPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.engine.PayDebt(r.Context(), uid, debtID, core.Money{Cents: payload.AmountCents})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"debt":                viewDebt(result.Debt),
		"paid_cents":          result.Paid.Cents,
		"new_spendable_cents": result.NewSpendable.Cents,
	})
}

func (s *Server) handleDebtPayments(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	debtID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid debt id")
		return
	}

	payments, err := s.engine.DebtPayments(r.Context(), uid, debtID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type paymentView struct {
		ID          int64  `json:"id"`
		AmountCents int64  `json:"amount_cents"`
		PaidAt      string `json:"paid_at"`
	}
	views := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, paymentView{
			ID:          p.ID,
			AmountCents: p.Amount.Cents,
			PaidAt:      p.PaidAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": views})
}

func (s *Server) handleSnowballPlan(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	plan, err := s.engine.SnowballPlan(r.Context(), uid)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type entryView struct {
		Priority         int    `json:"priority"`
		DebtID           int64  `json:"debt_id"`
		Creditor         string `json:"creditor"`
		OutstandingCents int64  `json:"outstanding_cents"`
		RecommendedCents int64  `json:"recommended_payment_cents"`
	}
	entries := make([]entryView, 0, len(plan.Entries))
	for _, e := range plan.Entries {
		entries = append(entries, entryView{
			Priority:         e.Priority,
			DebtID:           e.DebtID,
			Creditor:         e.Creditor,
			OutstandingCents: e.Outstanding.Cents,
			RecommendedCents: e.RecommendedPayment.Cents,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_debt_cents": plan.TotalDebt.Cents,
		"entries":          entries,
	})
}
