package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"financeiro/internal/classify"
	"financeiro/internal/core"
	"financeiro/internal/forecast"
	"financeiro/internal/installment"
	"financeiro/internal/invoice"
	"financeiro/internal/log"
	"financeiro/internal/rateio"
	"financeiro/internal/report"
	"financeiro/internal/settlement"
	"financeiro/internal/store"
)

var ErrEntryNotFound = errors.New("entry not found")

// LedgerConfig tunes a LedgerService. Zero values pick the defaults.
type LedgerConfig struct {
	Horizon int
	Now     func() time.Time
	NewID   func() string
}

// LedgerService runs the ledger operations of the API and the CLI against
// the document store. Every call names its workspace.
type LedgerService struct {
	docs     store.DocumentStore
	expander *forecast.Expander
	builder  *rateio.Builder
	now      func() time.Time
	newID    func() string
	logger   *log.Logger
}

func NewLedgerService(docs store.DocumentStore, cfg LedgerConfig, logger *log.Logger) *LedgerService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = forecast.DefaultHorizon
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		docs:     docs,
		expander: forecast.NewExpander(cfg.Horizon, cfg.Now),
		builder:  &rateio.Builder{NewID: cfg.NewID},
		now:      cfg.Now,
		newID:    cfg.NewID,
		logger:   logger.WithComponent(log.ComponentLedger),
	}
}

func (s *LedgerService) repo(ws core.Workspace) *store.Repository {
	return store.NewRepository(s.docs, ws)
}

func (s *LedgerService) today() core.Date {
	t := s.now()
	return core.NewDate(t.Year(), t.Month(), t.Day())
}

// Ledger is everything a workspace view is derived from.
type Ledger struct {
	Workspace core.Workspace
	Entries   []core.Entry
	Accounts  []core.Account
	Invoices  core.InvoiceData
	// Virtual are the forecast projections, InvoiceEntries the entries
	// derived from invoices. Neither is stored.
	Virtual        []core.Entry
	InvoiceEntries []core.Entry
}

// All returns persisted, virtual and invoice entries together.
func (l Ledger) All() []core.Entry {
	out := make([]core.Entry, 0, len(l.Entries)+len(l.Virtual)+len(l.InvoiceEntries))
	out = append(out, l.Entries...)
	out = append(out, l.Virtual...)
	return append(out, l.InvoiceEntries...)
}

// Load reads the workspace documents concurrently and derives forecast
// and invoice entries.
func (s *LedgerService) Load(ctx context.Context, ws core.Workspace) (Ledger, error) {
	repo := s.repo(ws)
	l := Ledger{Workspace: ws}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		l.Entries, err = repo.Entries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		l.Accounts, err = repo.Accounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		l.Invoices, err = repo.InvoiceData(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Ledger{}, fmt.Errorf("load %s ledger: %w", ws, err)
	}

	for _, e := range l.Entries {
		if !e.IsForecastTemplate() {
			continue
		}
		if _, src := s.expander.AnchorFor(e); src.Guessed() {
			s.logger.WarnContext(ctx, "Forecast anchor guessed, projection may be misplaced",
				log.FieldWorkspace, ws.ID,
				log.FieldEntryID, e.ID,
				"anchor_source", src.String())
		}
	}
	l.Virtual = s.expander.Expand(l.Entries)
	l.InvoiceEntries = invoice.Entries(l.Invoices, core.IndexAccounts(l.Accounts))
	return l, nil
}

// ClassifiedEntry is an entry with its classification label.
type ClassifiedEntry struct {
	core.Entry
	Label classify.Label `json:"label"`
}

// MonthEntries returns the month's entries, derived ones included,
// classified with the workspace table.
func (s *LedgerService) MonthEntries(ctx context.Context, ws core.Workspace, month core.YearMonth) ([]ClassifiedEntry, error) {
	l, err := s.Load(ctx, ws)
	if err != nil {
		return nil, err
	}
	c := classify.ForWorkspace(ws)
	entries := report.FilterMonth(l.All(), month)
	out := make([]ClassifiedEntry, len(entries))
	for i, e := range entries {
		out[i] = ClassifiedEntry{Entry: e, Label: c.Classify(e)}
	}
	return out, nil
}

// MonthReport is the dashboard summary of one month.
type MonthReport struct {
	Summary           report.Summary  `json:"summary"`
	ByClassification  []report.Bucket `json:"byClassification"`
	ByOwner           []report.Bucket `json:"byOwner"`
	ByCategory        []report.Bucket `json:"byCategory"`
	ForecastVsSettled report.Totals   `json:"forecastVsSettled"`
	Breakeven         decimal.Decimal `json:"breakeven"`
	Reserve           report.Reserve  `json:"reserve"`
}

// Report aggregates the month. The reserve fund is projected from the
// same month onwards.
func (s *LedgerService) Report(ctx context.Context, ws core.Workspace, month core.YearMonth) (MonthReport, error) {
	l, err := s.Load(ctx, ws)
	if err != nil {
		return MonthReport{}, err
	}
	c := classify.ForWorkspace(ws)
	all := l.All()
	monthly := report.FilterMonth(all, month)
	return MonthReport{
		Summary:           report.MonthSummary(monthly, month),
		ByClassification:  report.ByClassification(monthly, c),
		ByOwner:           report.ByOwner(monthly, core.IndexAccounts(l.Accounts)),
		ByCategory:        report.ByCategory(monthly),
		ForecastVsSettled: report.ForecastVsSettled(monthly),
		Breakeven:         report.Breakeven(monthly),
		Reserve:           report.ReserveFund(all, c, month),
	}, nil
}

// CreateEntry stores a new entry. The id, creation time and status are
// filled in when missing and the amount takes the sign of the type.
func (s *LedgerService) CreateEntry(ctx context.Context, ws core.Workspace, e core.Entry) (core.Entry, error) {
	if e.ID == "" {
		e.ID = core.EntryID(s.newID())
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = core.Timestamp{Time: s.now()}
	}
	if e.Status == "" {
		e.Status = core.StatusPendente
	}
	if e.Recurrence == "" {
		e.Recurrence = core.RecurrenceVariavel
	}
	e.Amount = core.Signed(e.Type, e.Amount)

	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	if err := s.repo(ws).SaveEntry(ctx, e); err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}

	s.logger.InfoContext(ctx, "Entry created",
		log.NewFields().WithWorkspace(ws.ID).WithEntry(string(e.ID), e.Kind().String(), e.Amount.String(), string(e.Status)).ToSlice()...)
	return e, nil
}

// UpdateEntry replaces a stored entry.
func (s *LedgerService) UpdateEntry(ctx context.Context, ws core.Workspace, id core.EntryID, e core.Entry) (core.Entry, error) {
	repo := s.repo(ws)
	prev, err := repo.Entry(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return core.Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	if err != nil {
		return core.Entry{}, err
	}

	e.ID = id
	if e.CreatedAt.IsZero() {
		e.CreatedAt = prev.CreatedAt
	}
	e.Amount = core.Signed(e.Type, e.Amount)
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	if err := repo.SaveEntry(ctx, e); err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}
	return e, nil
}

func (s *LedgerService) DeleteEntry(ctx context.Context, ws core.Workspace, id core.EntryID) error {
	err := s.repo(ws).DeleteEntry(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return err
}

// InstallmentRequest describes a purchase split into monthly rows.
// Template carries the shared fields of every row.
type InstallmentRequest struct {
	Template     core.Entry                   `json:"template"`
	Total        decimal.Decimal              `json:"total"`
	Count        int                          `json:"count"`
	FirstDueDate core.Date                    `json:"firstDueDate"`
	FirstStatus  core.Status                  `json:"firstStatus,omitempty"`
	Edits        map[int]installment.RowPatch `json:"edits,omitempty"`
}

// PreviewInstallments returns the plan a request would save.
func (s *LedgerService) PreviewInstallments(req InstallmentRequest) (installment.Plan, error) {
	direction := req.Template.Type
	if direction == "" {
		direction = core.Despesa
	}
	plan, err := installment.Generate(req.Total, req.Count, req.FirstDueDate, direction)
	if err != nil {
		return installment.Plan{}, err
	}
	if req.FirstStatus != "" {
		plan = plan.WithFirstStatus(req.FirstStatus)
	}
	for i, patch := range req.Edits {
		if plan, err = plan.Edit(i, patch); err != nil {
			return installment.Plan{}, err
		}
	}
	return plan, nil
}

// CreateInstallments stores one entry per plan row, linked by a new group id.
func (s *LedgerService) CreateInstallments(ctx context.Context, ws core.Workspace, req InstallmentRequest) ([]core.Entry, error) {
	plan, err := s.PreviewInstallments(req)
	if err != nil {
		return nil, err
	}

	tpl := req.Template
	if tpl.Type == "" {
		tpl.Type = core.Despesa
	}
	tpl.CreatedAt = core.Timestamp{Time: s.now()}
	groupID := s.newID()
	entries := plan.Entries(tpl, groupID, func() core.EntryID { return core.EntryID(s.newID()) })
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("installment %d/%d: %w", e.InstallmentIndex, e.InstallmentTotal, err)
		}
	}

	if err := s.repo(ws).SaveEntries(ctx, entries); err != nil {
		return nil, fmt.Errorf("save installments: %w", err)
	}
	s.logger.InfoContext(ctx, "Installments created",
		log.FieldWorkspace, ws.ID,
		log.FieldGroupID, groupID,
		log.FieldCount, len(entries))
	return entries, nil
}

// CheckRateio validates a rateio request without saving anything.
func (s *LedgerService) CheckRateio(req rateio.Request) rateio.Validation {
	return rateio.Check(req)
}

// CreateRateio builds and stores a rateio group. An invalid request
// returns a *rateio.ValidationError and stores nothing.
func (s *LedgerService) CreateRateio(ctx context.Context, ws core.Workspace, req rateio.Request) (rateio.Group, error) {
	if req.Gross.CreatedAt.IsZero() {
		req.Gross.CreatedAt = core.Timestamp{Time: s.now()}
	}
	g, err := s.builder.Build(req)
	if err != nil {
		return rateio.Group{}, err
	}
	if err := s.repo(ws).SaveEntries(ctx, g.All()); err != nil {
		return rateio.Group{}, fmt.Errorf("save rateio %s: %w", g.RateioID, err)
	}
	s.logger.InfoContext(ctx, "Rateio created",
		log.FieldWorkspace, ws.ID,
		log.FieldRateioID, g.RateioID,
		"masters", len(g.Masters),
		"splits", len(g.Splits))
	return g, nil
}

// Settle marks an entry paid. Invoice ids settle the invoice record;
// a rateio master also releases its waiting splits. on defaults to today.
func (s *LedgerService) Settle(ctx context.Context, ws core.Workspace, id core.EntryID, on core.Date) (settlement.Result, error) {
	if on.IsEmpty() {
		on = s.today()
	}
	return s.apply(ctx, ws, id, settlement.Settle, on)
}

// Reverse undoes a settlement, moving released splits back to waiting.
func (s *LedgerService) Reverse(ctx context.Context, ws core.Workspace, id core.EntryID) (settlement.Result, error) {
	return s.apply(ctx, ws, id, settlement.Reverse, core.Date{})
}

func (s *LedgerService) apply(ctx context.Context, ws core.Workspace, id core.EntryID, action settlement.Action, on core.Date) (settlement.Result, error) {
	if _, err := core.ParseInvoiceID(string(id)); err == nil {
		return s.applyInvoice(ctx, ws, string(id), action, on)
	}

	repo := s.repo(ws)
	entries, err := repo.Entries(ctx)
	if err != nil {
		return settlement.Result{}, err
	}
	res, err := settlement.Apply(entries, id, action, on)
	if errors.Is(err, settlement.ErrNotFound) {
		if template, _, ok := forecast.ParseVirtualID(id); ok {
			return settlement.Result{}, fmt.Errorf("%w: %s is a forecast of %s", settlement.ErrNotPersisted, id, template)
		}
	}
	if err != nil {
		return settlement.Result{}, err
	}

	if err := repo.SaveEntry(ctx, res.Target); err != nil {
		return settlement.Result{}, fmt.Errorf("save %s: %w", id, err)
	}
	// Siblings are written one by one; a failure leaves earlier ones saved.
	for _, sib := range res.Cascaded {
		if err := repo.SaveEntry(ctx, sib); err != nil {
			return settlement.Result{}, fmt.Errorf("save cascaded %s: %w", sib.ID, err)
		}
	}

	op := log.OpSettle
	if action == settlement.Reverse {
		op = log.OpReverse
	}
	s.logger.InfoContext(ctx, "Entry status changed",
		log.FieldOperation, op,
		log.FieldWorkspace, ws.ID,
		log.FieldEntryID, id,
		log.FieldStatus, res.Target.Status,
		"cascaded", len(res.Cascaded))
	return res, nil
}

func (s *LedgerService) applyInvoice(ctx context.Context, ws core.Workspace, invoiceID string, action settlement.Action, on core.Date) (settlement.Result, error) {
	repo := s.repo(ws)
	data, err := repo.InvoiceData(ctx)
	if err != nil {
		return settlement.Result{}, err
	}

	var next core.InvoiceData
	switch action {
	case settlement.Settle:
		next, err = invoice.Settle(data, invoiceID, on)
	case settlement.Reverse:
		next, err = invoice.Reverse(data, invoiceID)
	default:
		return settlement.Result{}, fmt.Errorf("%w: %s on invoice", settlement.ErrInvalidTransition, action)
	}
	if errors.Is(err, invoice.ErrNotFound) {
		return settlement.Result{}, fmt.Errorf("%w: %s", ErrEntryNotFound, invoiceID)
	}
	if err != nil {
		return settlement.Result{}, err
	}
	if err := repo.SaveInvoiceData(ctx, next); err != nil {
		return settlement.Result{}, fmt.Errorf("save invoice data: %w", err)
	}

	accounts, err := repo.Accounts(ctx)
	if err != nil {
		return settlement.Result{}, err
	}
	derived := invoice.Entries(core.InvoiceData{invoiceID: next[invoiceID]}, core.IndexAccounts(accounts))
	if len(derived) == 0 {
		return settlement.Result{}, nil
	}
	return settlement.Result{Target: derived[0]}, nil
}

// Invoices returns the workspace's invoice document.
func (s *LedgerService) Invoices(ctx context.Context, ws core.Workspace) (core.InvoiceData, error) {
	return s.repo(ws).InvoiceData(ctx)
}

// SaveInvoice replaces an invoice's items and propagates its future
// installments to the following invoices of the card.
func (s *LedgerService) SaveInvoice(ctx context.Context, ws core.Workspace, invoiceID string, items []core.InvoiceItem, total decimal.Decimal) (invoice.SaveResult, error) {
	repo := s.repo(ws)
	data, err := repo.InvoiceData(ctx)
	if err != nil {
		return invoice.SaveResult{}, err
	}
	res, err := invoice.Save(data, invoiceID, items, total)
	if err != nil {
		return invoice.SaveResult{}, err
	}
	if err := repo.SaveInvoiceData(ctx, res.Data); err != nil {
		return invoice.SaveResult{}, fmt.Errorf("save invoice data: %w", err)
	}
	s.logger.InfoContext(ctx, "Invoice saved",
		log.FieldOperation, log.OpPropagate,
		log.FieldWorkspace, ws.ID,
		log.FieldInvoiceID, invoiceID,
		"touched", len(res.Touched),
		"removed", res.Removed)
	return res, nil
}

func (s *LedgerService) Accounts(ctx context.Context, ws core.Workspace) ([]core.Account, error) {
	return s.repo(ws).Accounts(ctx)
}

func (s *LedgerService) SaveAccount(ctx context.Context, ws core.Workspace, a core.Account) error {
	return s.repo(ws).SaveAccount(ctx, a)
}

// MarkOverdue moves past-due pendente entries to atrasado and returns
// how many were changed.
func (s *LedgerService) MarkOverdue(ctx context.Context, ws core.Workspace) (int, error) {
	repo := s.repo(ws)
	entries, err := repo.Entries(ctx)
	if err != nil {
		return 0, err
	}
	changed := settlement.MarkOverdue(entries, s.today())
	for i, e := range changed {
		if err := repo.SaveEntry(ctx, e); err != nil {
			return i, fmt.Errorf("save overdue %s: %w", e.ID, err)
		}
	}
	return len(changed), nil
}
