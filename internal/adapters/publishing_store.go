// Package adapters connects the document store to the change feed.
package adapters

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"financeiro/internal/amqp"
	"financeiro/internal/core"
	"financeiro/internal/store"
)

const publishTimeout = 5 * time.Second

// ChangePublisher sends document change events.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.DocumentChangeMessage) error
}

// PublishingStore is a DocumentStore that announces every applied write
// of the workspace collections on the change feed. Reads and writes go
// straight to the wrapped store; a failed publish is logged and never
// fails the write, the sync backfill picks the document up later.
type PublishingStore struct {
	store.DocumentStore

	publisher ChangePublisher
	logger    *slog.Logger
	cancels   []func()
}

func NewPublishingStore(inner store.DocumentStore, publisher ChangePublisher, logger *slog.Logger) *PublishingStore {
	if logger == nil {
		logger = slog.Default()
	}
	p := &PublishingStore{DocumentStore: inner, publisher: publisher, logger: logger}
	for _, ws := range core.Workspaces() {
		for _, name := range core.Collections() {
			p.cancels = append(p.cancels, inner.Subscribe(ws.Collection(name), p.forward))
		}
	}
	return p
}

func (p *PublishingStore) forward(c store.Change) {
	if p.publisher == nil {
		p.logger.Warn("AMQP client not available, skipping change message",
			"collection", c.Collection,
			"id", c.ID)
		return
	}

	ws, _ := core.SplitCollection(c.Collection)
	op := amqp.OpSet
	if c.Op == store.OpDelete {
		op = amqp.OpDelete
	}
	msg := amqp.NewDocumentChangeMessage(ws.ID, c.Collection, c.ID, op, c.Version)

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.publisher.PublishChange(ctx, msg); err != nil {
		p.logger.Error("Failed to publish change message",
			"collection", c.Collection,
			"id", c.ID,
			"version", c.Version,
			"error", err)
	}
}

func (p *PublishingStore) GetVersioned(ctx context.Context, collection, id string) (json.RawMessage, int64, error) {
	return store.GetVersioned(ctx, p.DocumentStore, collection, id)
}

// Close stops forwarding changes. The wrapped store stays open.
func (p *PublishingStore) Close() error {
	for _, cancel := range p.cancels {
		cancel()
	}
	p.cancels = nil
	return nil
}
