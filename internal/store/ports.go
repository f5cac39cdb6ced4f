// Package store defines the document store the ledger reads and writes,
// plus a typed repository over it. Documents are JSON objects addressed
// by collection and id.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrNotFound = errors.New("document not found")

// Op is the kind of change a write made.
type Op string

const (
	OpSet    Op = "set"
	OpDelete Op = "delete"
)

// Record is one stored document.
type Record struct {
	ID   string
	Data json.RawMessage
}

// Change describes one applied write. Data is nil for deletes.
type Change struct {
	Collection string
	ID         string
	Op         Op
	Version    int64
	Data       json.RawMessage
}

type (
	// DocumentStore reads and writes documents by key. Writes across
	// documents are independent; the last write to a document wins.
	DocumentStore interface {
		Get(ctx context.Context, collection, id string) (json.RawMessage, error)
		Set(ctx context.Context, collection, id string, doc json.RawMessage) error
		Delete(ctx context.Context, collection, id string) error
		// List returns the collection's documents ordered by id.
		List(ctx context.Context, collection string) ([]Record, error)
		// Subscribe calls fn after every write to collection until the
		// returned cancel func is called.
		Subscribe(collection string, fn func(Change)) (cancel func())
	}

	// SyncTracker is implemented by stores that remember which documents
	// still have to be mirrored elsewhere.
	SyncTracker interface {
		PendingSync(ctx context.Context, limit int) ([]Pending, error)
		MarkSynced(ctx context.Context, collection, id string, version int64) error
		MarkSyncError(ctx context.Context, collection, id string, cause error) error
	}
)

// Pending is a document whose latest version was not mirrored yet.
type Pending struct {
	Collection string
	ID         string
	Version    int64
	Deleted    bool
	Attempts   int
}

// Versioned is implemented by stores that count writes per document.
type Versioned interface {
	GetVersioned(ctx context.Context, collection, id string) (json.RawMessage, int64, error)
}

// GetVersioned reads a document with its version when s supports it, and
// with version 0 otherwise.
func GetVersioned(ctx context.Context, s DocumentStore, collection, id string) (json.RawMessage, int64, error) {
	if v, ok := s.(Versioned); ok {
		return v.GetVersioned(ctx, collection, id)
	}
	doc, err := s.Get(ctx, collection, id)
	return doc, 0, err
}
