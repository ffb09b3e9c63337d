package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gvozdik97/finance-bot/internal/services"
	"github.com/gvozdik97/finance-bot/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	engine := services.NewLedgerEngine(repo, nil)
	t.Cleanup(func() { engine.Close() })

	srv := NewServer(":0", engine, nil)
	ts := httptest.NewServer(srv.Server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, user int64, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if user > 0 {
		req.Header.Set("X-User-ID", fmt.Sprint(user))
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode response for %s %s: %v", method, path, err)
		}
	}
	return resp, decoded
}

func TestIncomeEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodPost, "/api/income", 1, map[string]any{
		"amount_cents": 100000,
		"category":     "salary",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%v)", resp.StatusCode, body)
	}
	if body["reserve_share_cents"].(float64) != 10000 {
		t.Errorf("reserve share = %v", body["reserve_share_cents"])
	}
	if body["spendable_share_cents"].(float64) != 90000 {
		t.Errorf("spendable share = %v", body["spendable_share_cents"])
	}
}

func TestIncomeRequiresUser(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/income", 0, map[string]any{
		"amount_cents": 100000,
		"category":     "salary",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestExpenseInsufficientFundsResponse(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/income", 1, map[string]any{
		"amount_cents": 100000,
		"category":     "salary",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("income status = %d", resp.StatusCode)
	}

	resp, body := doJSON(t, ts, http.MethodPost, "/api/expenses", 1, map[string]any{
		"amount_cents": 95000,
		"category":     "food",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (%v)", resp.StatusCode, body)
	}
	if body["available_cents"].(float64) != 90000 {
		t.Errorf("available = %v", body["available_cents"])
	}
	if body["shortfall_cents"].(float64) != 5000 {
		t.Errorf("shortfall = %v", body["shortfall_cents"])
	}
}

func TestTransactionLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	doJSON(t, ts, http.MethodPost, "/api/income", 1, map[string]any{
		"amount_cents": 100000, "category": "salary",
	})
	resp, body := doJSON(t, ts, http.MethodPost, "/api/expenses", 1, map[string]any{
		"amount_cents": 30000, "category": "food",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expense status = %d", resp.StatusCode)
	}
	txID := int64(body["transaction"].(map[string]any)["id"].(float64))

	resp, body = doJSON(t, ts, http.MethodPatch, fmt.Sprintf("/api/transactions/%d", txID), 1, map[string]any{
		"amount_cents": 20000,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("edit status = %d (%v)", resp.StatusCode, body)
	}
	balances := body["balances"].(map[string]any)
	if balances["spendable"].(float64) != 70000 {
		t.Errorf("spendable after edit = %v", balances["spendable"])
	}

	resp, body = doJSON(t, ts, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", txID), 1, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	balances = body["balances"].(map[string]any)
	if balances["spendable"].(float64) != 90000 {
		t.Errorf("spendable after delete = %v", balances["spendable"])
	}

	resp, _ = doJSON(t, ts, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", txID), 1, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", resp.StatusCode)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodPut, "/api/budgets/food", 1, map[string]any{
		"cap_cents": 50000,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set budget status = %d", resp.StatusCode)
	}

	resp, body := doJSON(t, ts, http.MethodGet, "/api/budgets", 1, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list budgets status = %d", resp.StatusCode)
	}
	if budgets := body["budgets"].([]any); len(budgets) != 1 {
		t.Fatalf("budgets = %v", budgets)
	}

	resp, _ = doJSON(t, ts, http.MethodDelete, "/api/budgets/food", 1, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete budget status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, ts, http.MethodDelete, "/api/budgets/food", 1, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete budget status = %d", resp.StatusCode)
	}
}

func TestDebtEndpoints(t *testing.T) {
	ts := newTestServer(t)

	doJSON(t, ts, http.MethodPost, "/api/income", 1, map[string]any{
		"amount_cents": 1000000, "category": "salary",
	})

	resp, body := doJSON(t, ts, http.MethodPost, "/api/debts", 1, map[string]any{
		"creditor": "Bank", "amount_cents": 500000, "interest_rate": 5.5,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add debt status = %d (%v)", resp.StatusCode, body)
	}
	debtID := int64(body["debt"].(map[string]any)["id"].(float64))

	resp, body = doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/debts/%d/payments", debtID), 1, map[string]any{
		"amount_cents": 200000,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pay debt status = %d (%v)", resp.StatusCode, body)
	}
	debt := body["debt"].(map[string]any)
	if debt["current_cents"].(float64) != 300000 {
		t.Errorf("outstanding = %v", debt["current_cents"])
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/api/debts/snowball", 1, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("snowball status = %d", resp.StatusCode)
	}
	if body["total_debt_cents"].(float64) != 300000 {
		t.Errorf("total debt = %v", body["total_debt_cents"])
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := ts.Client().Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}
