package backend

import (
	"errors"
	"fmt"
	"strings"

	"financeiro/internal/config"
)

var backendTypes = []BackendType{SQLiteBackend, MemoryBackend}

// ParseBackendType accepts a backend name case-insensitively.
func ParseBackendType(name string) (BackendType, error) {
	bt := BackendType(strings.ToLower(strings.TrimSpace(name)))
	if !bt.IsValid() {
		return "", fmt.Errorf("%w: %q (want one of %s)", ErrInvalidBackend, name, strings.Join(GetBackendTypeStrings(), ", "))
	}
	return bt, nil
}

// FromAppConfig picks the storage and change-feed settings out of the
// application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	bt, err := ParseBackendType(appConfig.DataBackend)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Type:          bt,
		DataDirectory: appConfig.DataDir,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,
	}, nil
}

// Validate checks that the engine named by Type has what it needs.
// An empty DataDirectory is fine for memory: the store starts empty.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidBackend, c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return errors.New("sqlite backend needs a database path")
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return errors.New("change feed needs both an exchange and a queue")
	}
	return nil
}

// GetBackendTypeStrings lists the accepted backend names.
func GetBackendTypeStrings() []string {
	names := make([]string, len(backendTypes))
	for i, bt := range backendTypes {
		names[i] = bt.String()
	}
	return names
}
