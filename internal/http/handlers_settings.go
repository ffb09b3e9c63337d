package http

import (
	"net/http"

	"github.com/gvozdik97/finance-bot/internal/core"
)

func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	policy, err := s.engine.Policy(r.Context(), uid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reserve_rate":    policy.ReserveRate,
		"auto_distribute": policy.AutoDistribute,
	})
}

func (s *Server) handleSetReserveRate(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var payload struct {
		ReserveRate int `json:"reserve_rate"`
	}
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.SetReserveRate(r.Context(), uid, payload.ReserveRate); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reserve_rate": payload.ReserveRate})
}

func (s *Server) handleSetAutoDistribute(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var payload struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.SetAutoDistribute(r.Context(), uid, payload.Enabled); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"auto_distribute": payload.Enabled})
}

func (s *Server) handleSetBudgetLimit(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	category := sanitizeInput(r.PathValue("category"))
	var payload struct {
		CapCents int64 `json:"cap_cents"`
	}
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.SetBudgetLimit(r.Context(), uid, category, core.Money{Cents: payload.CapCents}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category":  category,
		"cap_cents": payload.CapCents,
	})
}

func (s *Server) handleBudgetLimits(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	limits, err := s.engine.BudgetLimits(r.Context(), uid)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type limitView struct {
		Category string `json:"category"`
		CapCents int64  `json:"cap_cents"`
	}
	views := make([]limitView, 0, len(limits))
	for _, l := range limits {
		views = append(views, limitView{Category: l.Category, CapCents: l.Cap.Cents})
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": views})
}

func (s *Server) handleRemoveBudgetLimit(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	category := sanitizeInput(r.PathValue("category"))
	if err := s.engine.RemoveBudgetLimit(r.Context(), uid, category); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	year, month := parseYearMonth(r)

	summary, err := s.engine.MonthSummary(r.Context(), uid, year, month)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type categoryView struct {
		Category   string `json:"category"`
		SpentCents int64  `json:"spent_cents"`
	}
	categories := make([]categoryView, 0, len(summary.Categories))
	for _, c := range summary.Categories {
		categories = append(categories, categoryView{Category: c.Category, SpentCents: c.Spent.Cents})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":           summary.Year,
		"month":          int(summary.Month),
		"income_cents":   summary.Income.Cents,
		"expense_cents":  summary.Expense.Cents,
		"margin_cents":   summary.Margin.Cents,
		"margin_percent": summary.MarginPercent,
		"categories":     categories,
	})
}
