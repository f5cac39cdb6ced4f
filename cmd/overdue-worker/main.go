package main

import (
	"context"
	"time"

	"financeiro/internal/cli"
	"financeiro/internal/log"
	"financeiro/internal/services"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(nil, log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting overdue-worker", "interval", cfg.OverdueInterval)

	res := cli.OpenStore(context.Background(), logger, cfg)
	ledger := services.NewLedgerService(res.Store, services.LedgerConfig{
		Horizon: cfg.ForecastHorizonMonths,
	}, logger)
	processor := services.NewOverdueProcessor(ledger)

	workCtx, stopWork := context.WithCancel(context.Background())
	loopDone := make(chan struct{})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		stopWork()
		<-loopDone
		if err := res.Close(); err != nil {
			logger.Error("Failed to close document store", log.FieldError, err)
		}
	})

	go func() {
		defer close(loopDone)

		run := func() {
			if _, err := processor.ProcessOverdue(workCtx); err != nil && workCtx.Err() == nil {
				logger.Error("Overdue processing failed", log.FieldError, err)
			}
		}

		logger.Info("Running initial overdue processing...")
		run()

		ticker := time.NewTicker(cfg.OverdueInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workCtx.Done():
				return
			case now := <-ticker.C:
				run()
				logger.Debug("Overdue check complete",
					"next_check", now.Add(cfg.OverdueInterval).Format("15:04:05"))
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Overdue-worker shutdown complete")
}
