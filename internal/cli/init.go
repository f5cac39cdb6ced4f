// Package cli provides common CLI initialization utilities shared by the
// server and worker binaries.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"financeiro/internal/backend"
	"financeiro/internal/config"
	"financeiro/internal/log"
)

// SetupLogger builds the process logger from the configured level and
// format, and sets it as the slog default. An unknown level falls back
// to info.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	return SetupLoggerOutput(cfg, component, os.Stdout)
}

// SetupLoggerOutput is SetupLogger writing to out. Tools that print
// results on stdout log to stderr.
func SetupLoggerOutput(cfg *config.Config, component string, out io.Writer) *log.Logger {
	lc := log.DefaultConfig()
	lc.Component = component
	lc.Output = out
	if cfg != nil {
		if lvl, err := config.ParseLevel(cfg.LogLevel); err == nil {
			lc.Level = lvl
		}
		if cfg.LogFormat != "" {
			lc.Format = cfg.LogFormat
		}
	}
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore creates the configured document store.
// Returns the backend or exits the process on failure.
func OpenStore(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.Result {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bc)
	if err != nil {
		logger.Error("Failed to initialize document store",
			log.FieldError, err,
			"backend", bc.Type.String())
		os.Exit(1)
	}
	return res
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cleanupDone := make(chan struct{})
		go func() {
			defer close(cleanupDone)
			if cleanup != nil {
				cleanup()
			}
		}()

		select {
		case <-cleanupDone:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		cancel()
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
