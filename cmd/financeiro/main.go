package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"financeiro/internal/cli"
	apphttp "financeiro/internal/http"
	"financeiro/internal/log"
	"financeiro/internal/middleware/ratelimit"
	"financeiro/internal/services"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(nil, log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	res := cli.OpenStore(context.Background(), logger, cfg)

	ledger := services.NewLedgerService(res.Store, services.LedgerConfig{
		Horizon: cfg.ForecastHorizonMonths,
	}, logger)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:      ":" + cfg.Port,
		Ledger:    ledger,
		Docs:      res.Store,
		Ready:     res.Ping,
		Logger:    logger,
		RateLimit: ratelimit.DefaultConfig(),
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := res.Close(); err != nil {
			logger.Error("Failed to close document store", log.FieldError, err)
		}
	})

	logger.Info("Starting financeiro server",
		"port", cfg.Port,
		"backend", res.Type.String(),
		"forecast_horizon", cfg.ForecastHorizonMonths)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		_ = res.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
