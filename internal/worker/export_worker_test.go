package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gvozdik97/finance-bot/internal/amqp"
	"github.com/gvozdik97/finance-bot/internal/core"
	"github.com/gvozdik97/finance-bot/internal/services"
	"github.com/gvozdik97/finance-bot/internal/sheets/memory"
	"github.com/gvozdik97/finance-bot/internal/storage"
)

func newTestWorker(t *testing.T) (*ExportWorker, *services.LedgerEngine, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	engine := services.NewLedgerEngine(repo, nil)
	t.Cleanup(func() { engine.Close() })

	store := memory.New()
	return NewExportWorker(repo, store, store), engine, store
}

func TestExportTransactionEvent(t *testing.T) {
	worker, engine, store := newTestWorker(t)
	ctx := context.Background()

	res, err := engine.RecordIncome(ctx, 1, core.Money{Cents: 100000}, "salary", "may")
	if err != nil {
		t.Fatalf("record income: %v", err)
	}

	msg := &amqp.LedgerEventMessage{
		Kind:          amqp.EventTransactionRecorded,
		UserID:        1,
		TransactionID: res.Transaction.ID,
		Timestamp:     time.Now(),
	}
	if err := worker.HandleLedgerEvent(ctx, msg); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	rows := store.Rows()
	if len(rows) != 1 {
		t.Fatalf("exported rows = %d, want 1", len(rows))
	}
	if rows[0].ID != res.Transaction.ID || rows[0].Amount.Cents != 100000 {
		t.Fatalf("exported row = %+v", rows[0])
	}
}

func TestExportSkipsVanishedTransaction(t *testing.T) {
	worker, _, store := newTestWorker(t)

	msg := &amqp.LedgerEventMessage{
		Kind:          amqp.EventTransactionRecorded,
		UserID:        1,
		TransactionID: 999,
		Timestamp:     time.Now(),
	}
	if err := worker.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("vanished transaction should not error: %v", err)
	}
	if len(store.Rows()) != 0 {
		t.Fatal("nothing should have been exported")
	}
}

func TestExportSkipsDeletions(t *testing.T) {
	worker, _, store := newTestWorker(t)

	msg := &amqp.LedgerEventMessage{
		Kind:          amqp.EventTransactionDeleted,
		UserID:        1,
		TransactionID: 1,
		Timestamp:     time.Now(),
	}
	if err := worker.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("deletion events should be acked: %v", err)
	}
	if len(store.Rows()) != 0 {
		t.Fatal("deletions must not be exported")
	}
}

func TestExportDebtPaymentEvent(t *testing.T) {
	worker, engine, store := newTestWorker(t)
	ctx := context.Background()

	debt, err := engine.AddDebt(ctx, 1, "Bank", core.Money{Cents: 50000}, 0, time.Time{})
	if err != nil {
		t.Fatalf("add debt: %v", err)
	}
	if _, err := engine.RecordIncome(ctx, 1, core.Money{Cents: 100000}, "salary", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.PayDebt(ctx, 1, debt.ID, core.Money{Cents: 20000}); err != nil {
		t.Fatalf("pay debt: %v", err)
	}

	msg := &amqp.LedgerEventMessage{
		Kind:      amqp.EventDebtPayment,
		UserID:    1,
		DebtID:    debt.ID,
		Timestamp: time.Now(),
	}
	if err := worker.HandleLedgerEvent(ctx, msg); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	payments := store.Payments()
	if len(payments) != 1 {
		t.Fatalf("exported payments = %d, want 1", len(payments))
	}
	if payments[0].Amount.Cents != 20000 {
		t.Fatalf("exported payment = %+v", payments[0])
	}
}
