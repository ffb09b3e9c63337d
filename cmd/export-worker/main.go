package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/gvozdik97/finance-bot/internal/amqp"
	"github.com/gvozdik97/finance-bot/internal/cli"
	applog "github.com/gvozdik97/finance-bot/internal/log"
	"github.com/gvozdik97/finance-bot/internal/metrics"
	"github.com/gvozdik97/finance-bot/internal/sheets"
	gsheet "github.com/gvozdik97/finance-bot/internal/sheets/google"
	mem "github.com/gvozdik97/finance-bot/internal/sheets/memory"
	"github.com/gvozdik97/finance-bot/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting export worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		writer   sheets.TransactionWriter
		payments sheets.PaymentWriter
	)
	if cfg.SheetsConfigured() {
		client, err := gsheet.NewClient(ctx, cfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		writer, payments = client, client
		logger.Info("Google Sheets client initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		store := mem.New()
		writer, payments = store, store
		logger.Info("Google Sheets not configured, exporting to in-memory store")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	m := metrics.New()
	exportWorker := worker.NewExportWorker(repo, writer, payments).WithMetrics(m)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return amqpClient.ConsumeLedgerEvents(ctx, func(msg *amqp.LedgerEventMessage) error {
			return exportWorker.HandleLedgerEvent(ctx, msg)
		})
	})
	group.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down export worker")
		return ctx.Err()
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Export worker failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Export worker stopped gracefully")
}
