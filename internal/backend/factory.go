package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"financeiro/internal/adapters"
	"financeiro/internal/amqp"
	"financeiro/internal/store"
	"financeiro/internal/store/memory"
	"financeiro/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	// dialAMQP is replaced in tests.
	dialAMQP func(url, exchange, queue string) (adapters.ChangePublisher, func() error, error)
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger, dialAMQP: dialAMQP}
}

func dialAMQP(url, exchange, queue string) (adapters.ChangePublisher, func() error, error) {
	client, err := amqp.NewClient(url, exchange, queue)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

// CreateBackend opens the configured engine and, when AMQP is set, wraps
// it so writes are announced on the change feed.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		raw     store.DocumentStore
		cleanup []func() error
	)
	switch config.Type {
	case SQLiteBackend:
		s, err := sqlite.Open(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		raw = s
		cleanup = append(cleanup, s.Close)
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		s, err := f.memoryStore(config.DataDirectory)
		if err != nil {
			return nil, err
		}
		raw = s
		f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", config.DataDirectory)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidBackend, config.Type)
	}

	result := &Result{Store: raw, Raw: raw, Type: config.Type}
	if config.AMQPURL != "" {
		publisher, closeFn, err := f.dialAMQP(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change feed", "error", err)
		} else {
			ps := adapters.NewPublishingStore(raw, publisher, f.logger)
			result.Store = ps
			// Stop publishing before the connection and the store go away.
			cleanup = append([]func() error{ps.Close, closeFn}, cleanup...)
			f.logger.InfoContext(ctx, "Initialized AMQP change feed",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result.Cleanup = func() error {
		var errs []error
		for _, fn := range cleanup {
			errs = append(errs, fn())
		}
		return errors.Join(errs...)
	}
	return result, nil
}

func (f *DefaultFactory) memoryStore(dir string) (*memory.Store, error) {
	if dir == "" {
		return memory.New(), nil
	}
	s, err := memory.NewFromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory store from %s: %w", dir, err)
	}
	return s, nil
}
