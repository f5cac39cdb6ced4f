package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"

	"financeiro/internal/backend"
	"financeiro/internal/config"
	"financeiro/internal/core"
	"financeiro/internal/log"
	"financeiro/internal/services"
)

// appConfig is the environment configuration with the values set through
// flags, the config file or FINANCEIRO_* variables laid over it.
func appConfig() *config.Config {
	cfg := config.Load()
	overrideString(&cfg.DataBackend, "storage.backend")
	overrideString(&cfg.SQLiteDBPath, "storage.sqlite_path")
	overrideString(&cfg.DataDir, "storage.data_dir")
	overrideString(&cfg.DefaultWorkspace, "workspace")
	overrideString(&cfg.AMQPURL, "amqp.url")
	overrideString(&cfg.LogLevel, "logging.level")
	overrideString(&cfg.LogFormat, "logging.format")
	if n := viper.GetInt("forecast.horizon_months"); n > 0 {
		cfg.ForecastHorizonMonths = n
	}
	return cfg
}

func overrideString(dst *string, key string) {
	if v := viper.GetString(key); v != "" {
		*dst = v
	}
}

// session is an open store with the ledger service over it.
type session struct {
	cfg       *config.Config
	ledger    *services.LedgerService
	workspace core.Workspace
	backend   *backend.Result
}

func openSession(ctx context.Context) (*session, error) {
	cfg := appConfig()
	ws, err := core.LookupWorkspace(cfg.DefaultWorkspace)
	if err != nil {
		return nil, err
	}

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", bc.Type, err)
	}

	return &session{
		cfg:       cfg,
		ledger:    services.NewLedgerService(res.Store, services.LedgerConfig{Horizon: cfg.ForecastHorizonMonths}, logger),
		workspace: ws,
		backend:   res,
	}, nil
}

func (s *session) Close() error {
	return s.backend.Close()
}

// output opens path for writing, or returns stdout for "" and "-".
func output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
