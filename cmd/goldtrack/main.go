package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"goldtrack/internal/backend"
	"goldtrack/internal/cli"
	apphttp "goldtrack/internal/http"
	applog "goldtrack/internal/log"
	"goldtrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	}()

	defaultPrice := decimal.Zero
	if cfg.DefaultUnitPrice != "" {
		// Already validated by cfg.Validate.
		defaultPrice, _ = decimal.NewFromString(cfg.DefaultUnitPrice)
	}

	priceService := services.NewPriceService(result.Backend, defaultPrice)
	calcService := services.NewCalculationService(result.Backend, result.Backend, priceService, result.AMQP)
	defer calcService.Close()

	var ready apphttp.Pinger
	if p, ok := result.Backend.(apphttp.Pinger); ok {
		ready = p
	}

	srv := apphttp.NewServer(":"+cfg.Port, calcService, priceService, ready,
		applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP))
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting goldtrack server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
