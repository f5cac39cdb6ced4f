// Package worker mirrors stored ledger documents into the sheets export,
// driven by change messages and by a pending-sync backfill.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"financeiro/internal/amqp"
	"financeiro/internal/core"
	"financeiro/internal/invoice"
	"financeiro/internal/log"
	"financeiro/internal/sheets"
	"financeiro/internal/store"
)

const defaultParallelism = 4

// SyncWorker copies entries from the document store to an EntryMirror.
// Stores that implement store.SyncTracker get their sync state updated.
type SyncWorker struct {
	docs        store.DocumentStore
	tracker     store.SyncTracker
	mirror      sheets.EntryMirror
	batchSize   int
	parallelism int
	logger      *log.Logger
}

func NewSyncWorker(docs store.DocumentStore, mirror sheets.EntryMirror, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	tracker, _ := docs.(store.SyncTracker)
	return &SyncWorker{
		docs:        docs,
		tracker:     tracker,
		mirror:      mirror,
		batchSize:   batchSize,
		parallelism: defaultParallelism,
		logger:      logger.WithComponent(log.ComponentWorker),
	}
}

// HandleChange mirrors the document a change message points at. The
// document is re-read, so stale or duplicated messages are harmless.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *amqp.DocumentChangeMessage) error {
	w.logger.InfoContext(ctx, "Processing change message",
		log.FieldCollection, msg.Collection,
		log.FieldEntryID, msg.ID,
		"op", msg.Op,
		"version", msg.Version)

	if ws, _ := core.SplitCollection(msg.Collection); msg.Workspace != "" && msg.Workspace != ws.ID {
		w.logger.WarnContext(ctx, "Change message workspace does not match its collection",
			log.FieldWorkspace, msg.Workspace,
			log.FieldCollection, msg.Collection)
	}
	return w.sync(ctx, msg.Collection, msg.ID, msg.Version)
}

// ProcessPending mirrors up to one batch of documents the store still
// marks as pending. It is the fallback for lost change messages and
// returns how many documents were mirrored.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck runs a larger backfill when the worker starts.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	n, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if n == 0 {
		w.logger.InfoContext(ctx, "No pending documents found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup sync completed", log.FieldCount, n)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, error) {
	if w.tracker == nil {
		return 0, nil
	}
	pending, err := w.tracker.PendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending documents: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	w.logger.InfoContext(ctx, "Processing pending documents", log.FieldCount, len(pending))

	var synced atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallelism)
	for _, p := range pending {
		g.Go(func() error {
			if err := w.sync(gctx, p.Collection, p.ID, p.Version); err != nil {
				w.logger.ErrorContext(gctx, "Failed to sync pending document",
					log.FieldCollection, p.Collection,
					log.FieldEntryID, p.ID,
					"attempts", p.Attempts,
					log.FieldError, err)
				return nil
			}
			synced.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(synced.Load()), ctx.Err()
}

// sync mirrors one document and records the outcome. version is used
// when the document is gone and cannot report its own.
func (w *SyncWorker) sync(ctx context.Context, collection, id string, version int64) error {
	ws, base := core.SplitCollection(collection)

	var err error
	switch {
	case base == core.CollectionEntries:
		version, err = w.syncEntry(ctx, ws, collection, id, version)
	case base == core.CollectionSettings && id == core.SettingsInvoiceData:
		version, err = w.syncInvoices(ctx, ws, collection, id, version)
	default:
		w.logger.DebugContext(ctx, "Collection is not mirrored",
			log.FieldCollection, collection,
			log.FieldEntryID, id)
	}

	if err != nil {
		if w.tracker != nil {
			if markErr := w.tracker.MarkSyncError(ctx, collection, id, err); markErr != nil {
				w.logger.ErrorContext(ctx, "Failed to mark sync error",
					log.FieldCollection, collection,
					log.FieldEntryID, id,
					log.FieldError, markErr)
			}
		}
		return err
	}

	if w.tracker != nil {
		if err := w.tracker.MarkSynced(ctx, collection, id, version); err != nil {
			// The mirror already has the row; the next backfill rewrites it.
			w.logger.ErrorContext(ctx, "Failed to mark as synced",
				log.FieldCollection, collection,
				log.FieldEntryID, id,
				log.FieldError, err)
		}
	}
	return nil
}

func (w *SyncWorker) syncEntry(ctx context.Context, ws core.Workspace, collection, id string, version int64) (int64, error) {
	doc, current, err := store.GetVersioned(ctx, w.docs, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		if err := w.mirror.Remove(ctx, ws, core.EntryID(id)); err != nil {
			return 0, fmt.Errorf("remove row %s: %w", id, err)
		}
		w.logger.InfoContext(ctx, "Removed mirrored entry",
			log.FieldWorkspace, ws.ID,
			log.FieldEntryID, id)
		return version, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}

	var e core.Entry
	if err := json.Unmarshal(doc, &e); err != nil {
		return 0, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	if e.ID == "" {
		e.ID = core.EntryID(id)
	}

	ref, err := w.mirror.Upsert(ctx, ws, e)
	if err != nil {
		return 0, fmt.Errorf("upsert row %s: %w", id, err)
	}
	w.logger.InfoContext(ctx, "Mirrored entry",
		log.NewFields().WithWorkspace(ws.ID).WithEntry(string(e.ID), e.Kind().String(), e.Amount.String(), string(e.Status)).ToSlice()...)
	w.logger.DebugContext(ctx, "Mirrored entry row", log.FieldEntryID, id, log.FieldSheetsRef, ref)
	return current, nil
}

// syncInvoices mirrors the entries derived from the invoice document.
// Invoices are never removed from the mirror; a deleted invoice keeps
// its last row.
func (w *SyncWorker) syncInvoices(ctx context.Context, ws core.Workspace, collection, id string, version int64) (int64, error) {
	_, current, err := store.GetVersioned(ctx, w.docs, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return version, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}

	repo := store.NewRepository(w.docs, ws)
	data, err := repo.InvoiceData(ctx)
	if err != nil {
		return 0, err
	}
	accounts, err := repo.Accounts(ctx)
	if err != nil {
		return 0, err
	}
	entries := invoice.Entries(data, core.IndexAccounts(accounts))
	for _, e := range entries {
		if _, err := w.mirror.Upsert(ctx, ws, e); err != nil {
			return 0, fmt.Errorf("upsert invoice row %s: %w", e.ID, err)
		}
	}
	w.logger.InfoContext(ctx, "Mirrored invoice entries",
		log.FieldWorkspace, ws.ID,
		log.FieldCount, len(entries))
	return current, nil
}
