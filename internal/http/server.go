// Package http exposes the ledger engine as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gvozdik97/finance-bot/internal/metrics"
	"github.com/gvozdik97/finance-bot/internal/middleware/ratelimit"
	"github.com/gvozdik97/finance-bot/internal/middleware/trace"
	"github.com/gvozdik97/finance-bot/internal/services"
)

type Server struct {
	http.Server

	engine      *services.LedgerEngine
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, engine *services.LedgerEngine, m *metrics.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine:      engine,
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		tracer:      trace.NewMiddleware(extractClientIP, m),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	if m != nil {
		mux.Handle("/metrics", m.Handler())
	}

	mux.HandleFunc("POST /api/income", s.guard(s.handleRecordIncome))
	mux.HandleFunc("POST /api/expenses", s.guard(s.handleRecordExpense))
	mux.HandleFunc("GET /api/transactions", s.guard(s.handleRecentTransactions))
	mux.HandleFunc("PATCH /api/transactions/{id}", s.guard(s.handleEditTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.guard(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/balances", s.guard(s.handleBalances))

	mux.HandleFunc("GET /api/policy", s.guard(s.handleGetPolicy))
	mux.HandleFunc("PUT /api/policy/reserve-rate", s.guard(s.handleSetReserveRate))
	mux.HandleFunc("PUT /api/policy/auto-distribute", s.guard(s.handleSetAutoDistribute))

	mux.HandleFunc("POST /api/debts", s.guard(s.handleAddDebt))
	mux.HandleFunc("GET /api/debts", s.guard(s.handleActiveDebts))
	mux.HandleFunc("GET /api/debts/snowball", s.guard(s.handleSnowballPlan))
	mux.HandleFunc("POST /api/debts/{id}/payments", s.guard(s.handlePayDebt))
	mux.HandleFunc("GET /api/debts/{id}/payments", s.guard(s.handleDebtPayments))

	mux.HandleFunc("PUT /api/budgets/{category}", s.guard(s.handleSetBudgetLimit))
	mux.HandleFunc("GET /api/budgets", s.guard(s.handleBudgetLimits))
	mux.HandleFunc("DELETE /api/budgets/{category}", s.guard(s.handleRemoveBudgetLimit))

	mux.HandleFunc("GET /api/summary", s.guard(s.handleMonthSummary))

	s.Server.Handler = s.tracer.Middleware(mux)
	return s
}

// guard applies security headers and rate limiting to mutating requests.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)

		if r.Method != http.MethodGet && !s.rateLimiter.Allow(clientIP) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next(w, r)
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Shutdown()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// A cheap read proves the database answers.
	if _, err := s.engine.Balances(ctx, 0); err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
