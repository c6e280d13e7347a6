package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"financas/internal/cache"
	"financas/internal/cli"
	apphttp "financas/internal/http"
	"financas/internal/importer"
	"financas/internal/services"
)

const (
	reportCacheEntries = 64
	maxImportSessions  = 32
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("financas")
	cfg := cli.LoadAndValidateConfig(logger.Logger)

	repo := cli.InitSQLite(logger.Logger, cfg.SQLiteDBPath)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		logger.Error("Failed to create upload directory", "error", err, "path", cfg.UploadDir)
		os.Exit(1)
	}

	reports := services.NewReportService(repo, reportCacheEntries, cfg.ReportCacheTTL)
	sessions := importer.NewSessionStore(maxImportSessions, cfg.ImportSessionTTL)

	// A nil *amqp.Client must not end up inside the Publisher interface.
	var publisher services.Publisher
	amqpClient := cli.InitAMQP(logger.Logger, cfg)
	if amqpClient != nil {
		publisher = amqpClient
	}

	svc := apphttp.Services{
		Movements: services.NewMovementService(repo, reports, publisher),
		Ledger:    services.NewLedgerService(repo, reports),
		Imports:   services.NewImportService(repo, repo, sessions, cfg.UploadDir, reports, publisher),
		Reports:   reports,
	}

	caches := cache.NewManager()
	caches.Register("reports", reports.Cleaner())
	caches.Register("import_sessions", sessions.Cleaner())
	caches.StartCleanup(time.Minute)

	srv, err := apphttp.NewServer(":"+cfg.Port, repo, svc, apphttp.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		SharerAName:    cfg.SharerAName,
		SharerBName:    cfg.SharerBName,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		if err := repo.Close(); err != nil {
			logger.Warn("Database close error", "error", err)
		}
	})

	logger.Info("Starting financas server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
