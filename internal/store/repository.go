package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"financeiro/internal/core"
)

// Repository reads and writes typed ledger documents of one workspace.
type Repository struct {
	docs DocumentStore
	ws   core.Workspace
}

func NewRepository(docs DocumentStore, ws core.Workspace) *Repository {
	return &Repository{docs: docs, ws: ws}
}

func (r *Repository) Workspace() core.Workspace { return r.ws }

// Store returns the underlying document store.
func (r *Repository) Store() DocumentStore { return r.docs }

func (r *Repository) collection(name string) string {
	return r.ws.Collection(name)
}

// Entries returns every persisted entry. Documents that do not decode are
// logged and skipped.
func (r *Repository) Entries(ctx context.Context) ([]core.Entry, error) {
	return listDecoded[core.Entry](ctx, r, core.CollectionEntries, func(e *core.Entry, id string) {
		if e.ID == "" {
			e.ID = core.EntryID(id)
		}
	})
}

func (r *Repository) Entry(ctx context.Context, id core.EntryID) (core.Entry, error) {
	var e core.Entry
	if err := r.get(ctx, core.CollectionEntries, string(id), &e); err != nil {
		return core.Entry{}, err
	}
	if e.ID == "" {
		e.ID = id
	}
	return e, nil
}

func (r *Repository) SaveEntry(ctx context.Context, e core.Entry) error {
	if e.ID == "" {
		return fmt.Errorf("save entry: %w", ErrMissingID)
	}
	if !e.Kind().Persisted() {
		return fmt.Errorf("save entry %s: %s entries are not stored", e.ID, e.Kind())
	}
	return r.set(ctx, core.CollectionEntries, string(e.ID), e)
}

// SaveEntries writes each entry in order and stops at the first failure.
// Earlier writes are not rolled back.
func (r *Repository) SaveEntries(ctx context.Context, entries []core.Entry) error {
	for i, e := range entries {
		if err := r.SaveEntry(ctx, e); err != nil {
			return fmt.Errorf("entry %d of %d: %w", i+1, len(entries), err)
		}
	}
	return nil
}

func (r *Repository) DeleteEntry(ctx context.Context, id core.EntryID) error {
	return r.docs.Delete(ctx, r.collection(core.CollectionEntries), string(id))
}

func (r *Repository) Accounts(ctx context.Context) ([]core.Account, error) {
	return listDecoded[core.Account](ctx, r, core.CollectionAccounts, func(a *core.Account, id string) {
		if a.ID == "" {
			a.ID = id
		}
	})
}

func (r *Repository) SaveAccount(ctx context.Context, a core.Account) error {
	if a.ID == "" {
		return fmt.Errorf("save account: %w", ErrMissingID)
	}
	return r.set(ctx, core.CollectionAccounts, a.ID, a)
}

// CardEntries returns the documents of the older per-purchase collection.
func (r *Repository) CardEntries(ctx context.Context) ([]core.CardEntry, error) {
	return listDecoded[core.CardEntry](ctx, r, core.CollectionCardItems, func(c *core.CardEntry, id string) {
		if c.ID == "" {
			c.ID = core.EntryID(id)
		}
	})
}

type categoriesDoc struct {
	Categories []core.Category `json:"categories"`
}

// Categories returns the settings/categories list, empty when unset.
func (r *Repository) Categories(ctx context.Context) ([]core.Category, error) {
	var doc categoriesDoc
	err := r.get(ctx, core.CollectionSettings, core.SettingsCategories, &doc)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return doc.Categories, err
}

func (r *Repository) SaveCategories(ctx context.Context, cats []core.Category) error {
	return r.set(ctx, core.CollectionSettings, core.SettingsCategories, categoriesDoc{Categories: cats})
}

// InvoiceData returns the settings/invoiceData document, empty when unset.
func (r *Repository) InvoiceData(ctx context.Context) (core.InvoiceData, error) {
	data := core.InvoiceData{}
	err := r.get(ctx, core.CollectionSettings, core.SettingsInvoiceData, &data)
	if errors.Is(err, ErrNotFound) {
		return core.InvoiceData{}, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *Repository) SaveInvoiceData(ctx context.Context, data core.InvoiceData) error {
	if data == nil {
		data = core.InvoiceData{}
	}
	return r.set(ctx, core.CollectionSettings, core.SettingsInvoiceData, data)
}

func (r *Repository) get(ctx context.Context, name, id string, v any) error {
	collection := r.collection(name)
	raw, err := r.docs.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	if err := decodeDocument(ctx, collection, id, raw, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// decodeDocument unmarshals raw into v. A document whose only problem is
// a malformed date is kept: the date is cleared and a warning logged.
func decodeDocument(ctx context.Context, collection, id string, raw []byte, v any) error {
	err := json.Unmarshal(raw, v)
	if err == nil || !errors.Is(err, core.ErrInvalidDate) {
		return err
	}
	fixed, cleared, fixErr := core.ClearInvalidDates(raw)
	if fixErr != nil || len(cleared) == 0 {
		return err
	}
	if err := json.Unmarshal(fixed, v); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Cleared malformed dates in stored document",
		"collection", collection,
		"id", id,
		"fields", cleared)
	return nil
}

func (r *Repository) set(ctx context.Context, name, id string, v any) error {
	collection := r.collection(name)
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	return r.docs.Set(ctx, collection, id, raw)
}

func listDecoded[T any](ctx context.Context, r *Repository, name string, fill func(*T, string)) ([]T, error) {
	collection := r.collection(name)
	records, err := r.docs.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	out := make([]T, 0, len(records))
	for _, rec := range records {
		var v T
		if err := decodeDocument(ctx, collection, rec.ID, rec.Data, &v); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable document",
				"collection", collection,
				"id", rec.ID,
				"error", err)
			continue
		}
		fill(&v, rec.ID)
		out = append(out, v)
	}
	return out, nil
}
