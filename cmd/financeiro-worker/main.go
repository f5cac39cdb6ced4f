package main

import (
	"context"
	"errors"
	"os"
	"time"

	"financeiro/internal/amqp"
	"financeiro/internal/cli"
	"financeiro/internal/log"
	"financeiro/internal/sheets"
	gsheet "financeiro/internal/sheets/google"
	memsheet "financeiro/internal/sheets/memory"
	"financeiro/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(nil, log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting financeiro-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the sync worker")
		os.Exit(1)
	}

	// The worker reads the engine directly; it never announces writes itself.
	storeCfg := *cfg
	storeCfg.AMQPURL = ""
	res := cli.OpenStore(context.Background(), logger, &storeCfg)

	var mirror sheets.EntryMirror
	if cfg.GoogleSpreadsheetID != "" {
		if err := cfg.ValidateSheets(); err != nil {
			logger.Error("Sheets configuration validation failed", log.FieldError, err)
			os.Exit(1)
		}
		client, err := gsheet.NewFromConfig(context.Background(), cfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mirror = memsheet.New()
		logger.Warn("No GOOGLE_SPREADSHEET_ID provided, mirroring to memory only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(res.Raw, mirror, cfg.SyncBatchSize, logger)
	purger, _ := res.Raw.(worker.TombstonePurger)
	backfill := worker.NewBackfill(syncWorker, purger, worker.BackfillConfig{
		PollInterval: cfg.SyncInterval,
	})

	workCtx, stopWork := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := backfill.Stop(stopCtx); err != nil {
			logger.Error("Failed to stop backfill", log.FieldError, err)
		}
		stopWork()
		<-consumerDone
		if err := amqpClient.Close(); err != nil {
			logger.Error("Failed to close AMQP client", log.FieldError, err)
		}
		if err := res.Close(); err != nil {
			logger.Error("Failed to close document store", log.FieldError, err)
		}
	})

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(workCtx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	if err := backfill.Start(workCtx); err != nil {
		logger.Error("Failed to start backfill", log.FieldError, err)
	}

	go func() {
		defer close(consumerDone)
		err := amqpClient.ConsumeChanges(workCtx, syncWorker.HandleChange)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
