package main

import (
	"context"
	"errors"
	"os"
	"time"

	"financas/internal/cli"
	"financas/internal/services"
	gsheet "financas/internal/sheets/google"
	"financas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("financas-worker")
	logger.Info("Starting financas-worker")

	cfg := cli.LoadAndValidateConfig(logger.Logger)
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
		return
	}

	repo := cli.InitSQLite(logger.Logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Cache entries only live between a change message and the export it triggers.
	reports := services.NewReportService(repo, 8, cfg.ReportCacheTTL)

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ReportSheet:        cfg.GoogleReportSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		OAuthClientFile:    cfg.GoogleOAuthClientFile,
		OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	exporter := worker.NewExportWorker(reports, sheetsClient, worker.ExportConfig{
		Interval:  cfg.ExportInterval,
		SheetName: sheetsClient.ReportSheet,
	})

	amqpClient := cli.InitAMQP(logger.Logger, cfg)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := exporter.Stop(ctx); err != nil {
			logger.Warn("Export worker stop error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
	})

	if err := exporter.Start(ctx); err != nil {
		logger.Error("Failed to start export worker", "error", err)
		os.Exit(1)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeMovementsChanged(ctx, exporter.HandleMovementsChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP consumption, relying on periodic export", "interval", cfg.ExportInterval)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("financas-worker stopped")
}
