package main

import (
	"context"
	"errors"
	"os"
	"time"

	"goldtrack/internal/cli"
	"goldtrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting price-recorder",
		"interval", cfg.PriceSnapshotInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	recorder := worker.NewPriceRecorder(sqliteRepo, cfg.PriceSnapshotInterval)

	shutdownCtx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	if err := recorder.Run(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Price recorder stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Price recorder shutdown complete")
}
