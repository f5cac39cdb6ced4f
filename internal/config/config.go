package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend  string
	DataDir      string
	SQLiteDBPath string

	// Ledger
	DefaultWorkspace      string
	ForecastHorizonMonths int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string
	GoogleOAuthClientJSON    string
	GoogleOAuthTokenJSON     string

	// Workers
	SyncBatchSize   int
	SyncInterval    time.Duration
	OverdueInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	validBackends   = []string{"memory", "sqlite"}
	validWorkspaces = []string{"escritorio", "pessoal"}
	validLogFormats = []string{"text", "json"}
)

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		DataDir:      getEnv("DATA_DIR", ""),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/financeiro.db"),

		DefaultWorkspace:      getEnv("DEFAULT_WORKSPACE", "escritorio"),
		ForecastHorizonMonths: getEnvInt("FORECAST_HORIZON_MONTHS", 72),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "financeiro"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_entries"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Lancamentos"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:     getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		SyncBatchSize:   getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:    getEnvDuration("SYNC_INTERVAL", 30*time.Second),
		OverdueInterval: getEnvDuration("OVERDUE_INTERVAL", time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataDir != "" {
		if info, err := os.Stat(c.DataDir); err != nil || !info.IsDir() {
			errors = append(errors, fmt.Sprintf("data directory does not exist: %s", c.DataDir))
		}
	}

	if !slices.Contains(validWorkspaces, c.DefaultWorkspace) {
		errors = append(errors, fmt.Sprintf("invalid default workspace '%s': must be one of %v", c.DefaultWorkspace, validWorkspaces))
	}

	if c.ForecastHorizonMonths < 1 || c.ForecastHorizonMonths > 240 {
		errors = append(errors, fmt.Sprintf("invalid forecast horizon %d: must be between 1 and 240 months", c.ForecastHorizonMonths))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.OverdueInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid overdue interval %v: must be at least 1 minute", c.OverdueInterval))
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateSheets checks the settings the sheets export needs. Only the
// worker calls it; the API server runs without a spreadsheet.
func (c *Config) ValidateSheets() error {
	var errors []string

	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the sheets export")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "GOOGLE_SHEET_NAME is required for the sheets export")
	}

	hasServiceAccount := c.GoogleServiceAccountFile != "" || c.GoogleServiceAccountJSON != ""
	hasOAuthClient := c.GoogleOAuthClientFile != "" || c.GoogleOAuthClientJSON != ""
	hasOAuthToken := c.GoogleOAuthTokenFile != "" || c.GoogleOAuthTokenJSON != ""

	switch {
	case hasServiceAccount:
	case hasOAuthClient && hasOAuthToken:
	default:
		errors = append(errors, "either a service account (GOOGLE_SERVICE_ACCOUNT_FILE/JSON) or an OAuth client and token (GOOGLE_OAUTH_CLIENT_*/GOOGLE_OAUTH_TOKEN_*) must be provided")
	}

	for _, f := range []string{c.GoogleServiceAccountFile, c.GoogleOAuthClientFile, c.GoogleOAuthTokenFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", f))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("sheets configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of [debug info warn error]", level)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
