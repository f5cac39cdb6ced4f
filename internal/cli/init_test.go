package cli

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"financeiro/internal/config"
	"financeiro/internal/log"
)

func TestSetupLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"}, log.ComponentWorker)
	if logger.Component() != log.ComponentWorker {
		t.Fatalf("component = %q", logger.Component())
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug level not enabled")
	}

	logger = SetupLogger(&config.Config{LogLevel: "loud"}, "")
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("unknown level should fall back to info")
	}
}

func TestSetupLoggerOutput(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	logger := SetupLoggerOutput(&config.Config{LogFormat: "json"}, log.ComponentCLI, &buf)
	logger.Info("Snapshot exported", log.FieldWorkspace, "pessoal")

	out := buf.String()
	if !strings.Contains(out, `"component":"cli"`) || !strings.Contains(out, `"workspace":"pessoal"`) {
		t.Fatalf("unexpected log line: %s", out)
	}
}

func TestOpenStore(t *testing.T) {
	cfg := &config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: filepath.Join(t.TempDir(), "financeiro.db"),
	}
	res := OpenStore(context.Background(), log.New(log.DefaultConfig()), cfg)
	defer res.Close()

	if err := res.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if res.Store != res.Raw {
		t.Fatal("store should not be wrapped without AMQP")
	}
}
