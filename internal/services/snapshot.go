package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"financeiro/internal/core"
	"financeiro/internal/invoice"
	"financeiro/internal/log"
	"financeiro/internal/report"
)

// Snapshot is the portable form of one workspace, as read by import and
// written by export. CardEntries holds documents of the older
// per-purchase collection; import folds them into Invoices.
type Snapshot struct {
	Entries     []core.Entry     `json:"entries"`
	Accounts    []core.Account   `json:"accounts"`
	Categories  []core.Category  `json:"categories,omitempty"`
	Invoices    core.InvoiceData `json:"invoiceData"`
	CardEntries []core.CardEntry `json:"creditCardEntries,omitempty"`
}

// ImportResult counts what an import wrote.
type ImportResult struct {
	Entries     int `json:"entries"`
	Accounts    int `json:"accounts"`
	Categories  int `json:"categories"`
	Invoices    int `json:"invoices"`
	CardEntries int `json:"cardEntries"`
	// Rejected lists entries that failed validation and were not written.
	Rejected map[core.EntryID]string `json:"rejected,omitempty"`
}

// Export reads the stored documents of a workspace. Derived entries are
// not part of it.
func (s *LedgerService) Export(ctx context.Context, ws core.Workspace) (Snapshot, error) {
	repo := s.repo(ws)
	var snap Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Entries, err = repo.Entries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Accounts, err = repo.Accounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Categories, err = repo.Categories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Invoices, err = repo.InvoiceData(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, fmt.Errorf("export %s: %w", ws, err)
	}
	return snap, nil
}

// Import writes a snapshot into a workspace. Entries and accounts are
// upserted by id; entries without one get a new id. Invoices in the
// snapshot replace stored invoices with the same id, then card entries
// are folded in. Categories replace the stored list when present.
func (s *LedgerService) Import(ctx context.Context, ws core.Workspace, snap Snapshot) (ImportResult, error) {
	repo := s.repo(ws)
	res := ImportResult{}

	for _, a := range snap.Accounts {
		if err := repo.SaveAccount(ctx, a); err != nil {
			return res, fmt.Errorf("import account %q: %w", a.ID, err)
		}
		res.Accounts++
	}

	if len(snap.Categories) > 0 {
		if err := repo.SaveCategories(ctx, snap.Categories); err != nil {
			return res, fmt.Errorf("import categories: %w", err)
		}
		res.Categories = len(snap.Categories)
	}

	for _, e := range snap.Entries {
		if e.ID == "" {
			e.ID = core.EntryID(s.newID())
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = core.Timestamp{Time: s.now()}
		}
		if err := e.Validate(); err != nil {
			if res.Rejected == nil {
				res.Rejected = map[core.EntryID]string{}
			}
			res.Rejected[e.ID] = err.Error()
			s.logger.WarnContext(ctx, "Skipping invalid entry",
				log.FieldWorkspace, ws.ID,
				log.FieldEntryID, e.ID,
				log.FieldError, err)
			continue
		}
		if err := repo.SaveEntry(ctx, e); err != nil {
			return res, fmt.Errorf("import entry %s: %w", e.ID, err)
		}
		res.Entries++
	}

	if len(snap.Invoices) > 0 || len(snap.CardEntries) > 0 {
		data, err := repo.InvoiceData(ctx)
		if err != nil {
			return res, err
		}
		for id, inv := range snap.Invoices {
			if _, err := core.ParseInvoiceID(id); err != nil {
				return res, fmt.Errorf("import invoice: %w", err)
			}
			data[id] = inv
		}
		res.Invoices = len(snap.Invoices)

		migrated := invoice.MigrateCardEntries(data, snap.CardEntries)
		res.CardEntries = migrated.Migrated
		if err := repo.SaveInvoiceData(ctx, migrated.Data); err != nil {
			return res, fmt.Errorf("import invoice data: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "Snapshot imported",
		log.FieldWorkspace, ws.ID,
		"entries", res.Entries,
		"accounts", res.Accounts,
		"invoices", res.Invoices,
		"card_entries", res.CardEntries,
		"rejected", len(res.Rejected))
	return res, nil
}

// MigrateCardEntries folds the stored creditCardEntries collection into
// the invoice document. It is safe to run repeatedly.
func (s *LedgerService) MigrateCardEntries(ctx context.Context, ws core.Workspace) (invoice.MigrateResult, error) {
	repo := s.repo(ws)
	cards, err := repo.CardEntries(ctx)
	if err != nil {
		return invoice.MigrateResult{}, err
	}
	if len(cards) == 0 {
		return invoice.MigrateResult{}, nil
	}
	data, err := repo.InvoiceData(ctx)
	if err != nil {
		return invoice.MigrateResult{}, err
	}

	res := invoice.MigrateCardEntries(data, cards)
	if res.Migrated > 0 {
		if err := repo.SaveInvoiceData(ctx, res.Data); err != nil {
			return invoice.MigrateResult{}, fmt.Errorf("save migrated invoices: %w", err)
		}
	}
	s.logger.InfoContext(ctx, "Card entries migrated",
		log.FieldWorkspace, ws.ID,
		log.FieldCount, res.Migrated,
		"skipped", len(res.Skipped))
	return res, nil
}

// Forecast summarizes the next months of a workspace, the current one
// first. Projections of forecast templates are included.
func (s *LedgerService) Forecast(ctx context.Context, ws core.Workspace, months int) ([]report.Summary, error) {
	if months < 1 {
		months = 1
	}
	l, err := s.Load(ctx, ws)
	if err != nil {
		return nil, err
	}
	all := l.All()
	from := core.MonthOf(s.now())
	out := make([]report.Summary, months)
	for i := range out {
		out[i] = report.MonthSummary(all, from.AddMonths(i))
	}
	return out, nil
}
