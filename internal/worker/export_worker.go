// Package worker consumes ledger events and exports the affected rows to a
// spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gvozdik97/finance-bot/internal/amqp"
	"github.com/gvozdik97/finance-bot/internal/core"
	"github.com/gvozdik97/finance-bot/internal/metrics"
	"github.com/gvozdik97/finance-bot/internal/sheets"
	"github.com/gvozdik97/finance-bot/internal/storage"
)

// ExportWorker mirrors committed ledger mutations into an external
// spreadsheet. Deletions are logged and skipped: the export is an
// append-only audit trail.
type ExportWorker struct {
	storage  *storage.SQLiteRepository
	writer   sheets.TransactionWriter
	payments sheets.PaymentWriter // optional
	metrics  *metrics.Metrics     // optional
}

func NewExportWorker(storage *storage.SQLiteRepository, writer sheets.TransactionWriter, payments sheets.PaymentWriter) *ExportWorker {
	return &ExportWorker{
		storage:  storage,
		writer:   writer,
		payments: payments,
	}
}

// WithMetrics attaches Prometheus collectors; pass nil to disable.
func (w *ExportWorker) WithMetrics(m *metrics.Metrics) *ExportWorker {
	w.metrics = m
	return w
}

// HandleLedgerEvent processes a single event from the queue. Returning an
// error requeues the message.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"kind", msg.Kind, "user_id", msg.UserID,
		"transaction_id", msg.TransactionID, "debt_id", msg.DebtID)

	switch msg.Kind {
	case amqp.EventTransactionRecorded, amqp.EventTransactionEdited:
		return w.exportTransaction(ctx, msg.UserID, msg.TransactionID)
	case amqp.EventDebtPayment:
		return w.exportLatestPayment(ctx, msg.UserID, msg.DebtID)
	case amqp.EventTransactionDeleted:
		slog.InfoContext(ctx, "Skipping deleted transaction, export is append-only",
			"transaction_id", msg.TransactionID)
		return nil
	default:
		slog.WarnContext(ctx, "Unknown ledger event kind", "kind", msg.Kind)
		return nil
	}
}

func (w *ExportWorker) exportTransaction(ctx context.Context, userID, txID int64) error {
	t, err := w.storage.Queries().GetTransaction(ctx, userID, txID)
	if err != nil {
		// The row may have been deleted between commit and consumption.
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Transaction vanished before export",
				"transaction_id", txID)
			return nil
		}
		return fmt.Errorf("load transaction %d: %w", txID, err)
	}

	ref, err := w.writer.Append(ctx, t)
	if err != nil {
		return fmt.Errorf("export transaction %d: %w", txID, err)
	}
	if w.metrics != nil {
		w.metrics.ExportedRows.Inc()
	}

	slog.InfoContext(ctx, "Transaction exported",
		"transaction_id", txID, "row_ref", ref)
	return nil
}

func (w *ExportWorker) exportLatestPayment(ctx context.Context, userID, debtID int64) error {
	if w.payments == nil {
		slog.InfoContext(ctx, "No payment writer configured, skipping", "debt_id", debtID)
		return nil
	}

	debt, err := w.storage.Queries().GetDebt(ctx, userID, debtID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Debt vanished before export", "debt_id", debtID)
			return nil
		}
		return fmt.Errorf("load debt %d: %w", debtID, err)
	}

	history, err := w.storage.Queries().ListDebtPayments(ctx, userID, debtID)
	if err != nil {
		return fmt.Errorf("load payments for debt %d: %w", debtID, err)
	}
	if len(history) == 0 {
		slog.WarnContext(ctx, "Debt payment event without payment rows", "debt_id", debtID)
		return nil
	}

	// History is ordered newest-first.
	latest := history[0]
	ref, err := w.payments.AppendPayment(ctx, debt.Creditor, latest)
	if err != nil {
		return fmt.Errorf("export payment %d: %w", latest.ID, err)
	}
	if w.metrics != nil {
		w.metrics.ExportedRows.Inc()
	}

	slog.InfoContext(ctx, "Debt payment exported",
		"debt_id", debtID, "payment_id", latest.ID, "row_ref", ref)
	return nil
}
