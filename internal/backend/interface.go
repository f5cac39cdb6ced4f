// Package backend builds the document store a binary runs against.
package backend

import (
	"context"
	"errors"

	"financeiro/internal/store"
)

// CleanupFunc releases the resources of a backend.
type CleanupFunc func() error

// Result is the store a binary works with. Store is what services use;
// with AMQP configured it announces every write. Raw is the underlying
// engine, for callers that need its extra capabilities such as sync
// tracking.
type Result struct {
	Store   store.DocumentStore
	Raw     store.DocumentStore
	Type    BackendType
	Cleanup CleanupFunc
}

// Ping checks the backend when the engine supports it.
func (r *Result) Ping(ctx context.Context) error {
	if p, ok := r.Raw.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close runs the cleanup once.
func (r *Result) Close() error {
	if r.Cleanup == nil {
		return nil
	}
	err := r.Cleanup()
	r.Cleanup = nil
	return err
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory
	DataDirectory string

	// SQLite
	SQLiteDBPath string

	// Change feed, optional for both engines
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

var ErrInvalidBackend = errors.New("invalid backend type")

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
