package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gvozdik97/finance-bot/internal/core"
	"github.com/gvozdik97/finance-bot/internal/services"
)

type transactionPayload struct {
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type transactionView struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func viewTransaction(t core.Transaction) transactionView {
	return transactionView{
		ID:          t.ID,
		Kind:        string(t.Kind),
		AmountCents: t.Amount.Cents,
		Amount:      t.Amount.String(),
		Category:    t.Category,
		Description: t.Description,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

func viewBalances(balances map[string]core.Money) map[string]int64 {
	out := make(map[string]int64, len(balances))
	for name, amount := range balances {
		out[name] = amount.Cents
	}
	return out
}

func (s *Server) handleRecordIncome(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var payload transactionPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.engine.RecordIncome(r.Context(), uid,
		core.Money{Cents: payload.AmountCents},
		sanitizeInput(payload.Category), sanitizeInput(payload.Description))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction":           viewTransaction(result.Transaction),
		"reserve_share_cents":   result.ReserveShare.Cents,
		"spendable_share_cents": result.SpendableShare.Cents,
		"balances":              viewBalances(result.Balances),
	})
}

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var payload transactionPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.engine.RecordExpense(r.Context(), uid,
		core.Money{Cents: payload.AmountCents},
		sanitizeInput(payload.Category), sanitizeInput(payload.Description))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	body := map[string]any{
		"transaction":         viewTransaction(result.Transaction),
		"new_spendable_cents": result.NewSpendable.Cents,
	}
	if result.Budget.HasLimit {
		body["budget"] = map[string]any{
			"cap_cents":       result.Budget.Cap.Cents,
			"spent_cents":     result.Budget.SpentThisMonth.Cents,
			"exceeded":        result.Budget.Exceeded,
			"overspend_cents": result.Budget.Overspend.Cents,
			"percent_used":    result.Budget.PercentUsed,
		}
	}
	writeJSON(w, http.StatusCreated, body)
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	transactions, err := s.engine.RecentTransactions(r.Context(), uid, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]transactionView, 0, len(transactions))
	for _, t := range transactions {
		views = append(views, viewTransaction(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": views})
}

type editPayload struct {
	AmountCents *int64  `json:"amount_cents"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	txID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	var payload editPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	changes := services.TransactionChanges{}
	if payload.AmountCents != nil {
		changes.Amount = &core.Money{Cents: *payload.AmountCents}
	}
	if payload.Category != nil {
		c := sanitizeInput(*payload.Category)
		changes.Category = &c
	}
	if payload.Description != nil {
		d := sanitizeInput(*payload.Description)
		changes.Description = &d
	}

	result, err := s.engine.EditTransaction(r.Context(), uid, txID, changes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transaction": viewTransaction(result.Transaction),
		"balances":    viewBalances(result.Balances),
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	txID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	balances, err := s.engine.DeleteTransaction(r.Context(), uid, txID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": viewBalances(balances)})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	balances, err := s.engine.Balances(r.Context(), uid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": viewBalances(balances)})
}
