package sheets

import (
	"context"

	"github.com/gvozdik97/finance-bot/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionWriter appends a committed transaction to an external
	// spreadsheet. Returns an adapter-specific row reference.
	TransactionWriter interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// PaymentWriter appends a debt payment row.
	PaymentWriter interface {
		AppendPayment(ctx context.Context, creditor string, p core.DebtPayment) (rowRef string, err error)
	}
)
