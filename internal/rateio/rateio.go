// Package rateio builds split revenue groups: level-1 entries for the
// gross revenue and level-2 payout entries for each partner.
package rateio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"financeiro/internal/core"
	"financeiro/internal/installment"
)

const DefaultPartnerCategory = "repasse"

// Partner installment modes.
const (
	Mirrored    Mode = "mirrored"
	Independent Mode = "independent"
)

var (
	ErrOversubscribed = errors.New("partner shares exceed the gross amount")
	ErrInvalidRequest = errors.New("invalid rateio request")
)

type (
	Mode string

	Partner struct {
		Name       string          `json:"name"`
		Amount     decimal.Decimal `json:"amount"`
		AccountID  string          `json:"accountId,omitempty"`
		CategoryID string          `json:"categoryId,omitempty"`
		Mode       Mode            `json:"mode"`
		// Installments and FirstDueDate apply to Independent partners.
		Installments int       `json:"installments,omitempty"`
		FirstDueDate core.Date `json:"firstDueDate"`
	}

	Request struct {
		Gross        core.Entry `json:"gross"`
		Installments int        `json:"installments,omitempty"`
		Partners     []Partner  `json:"partners"`
	}

	// Validation is the outcome of checking a request. OfficeBalance is
	// what stays with the office after partner payouts.
	Validation struct {
		Gross         decimal.Decimal `json:"gross"`
		Allocated     decimal.Decimal `json:"allocated"`
		OfficeBalance decimal.Decimal `json:"officeBalance"`
		Problems      []string        `json:"problems,omitempty"`
	}

	// ValidationError blocks a save.
	ValidationError struct {
		Validation Validation
	}

	Group struct {
		RateioID string       `json:"rateioId"`
		Masters  []core.Entry `json:"masters"`
		Splits   []core.Entry `json:"splits"`
	}

	Builder struct {
		NewID func() string
	}
)

// OK reports whether the request may be saved.
func (v Validation) OK() bool {
	return len(v.Problems) == 0
}

// Oversubscribed reports whether partner shares exceed the gross.
func (v Validation) Oversubscribed() bool {
	return v.OfficeBalance.IsNegative()
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rateio rejected: %s", strings.Join(e.Validation.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	if e.Validation.Oversubscribed() {
		return ErrOversubscribed
	}
	return ErrInvalidRequest
}

// Check validates a request without building anything.
func Check(req Request) Validation {
	v := Validation{Gross: req.Gross.Amount.Abs(), Allocated: decimal.Zero}
	for _, p := range req.Partners {
		v.Allocated = v.Allocated.Add(p.Amount.Abs())
	}
	v.OfficeBalance = v.Gross.Sub(v.Allocated)

	if strings.TrimSpace(req.Gross.Description) == "" {
		v.Problems = append(v.Problems, "gross description is required")
	}
	if v.Gross.IsZero() {
		v.Problems = append(v.Problems, "gross amount must not be zero")
	}
	if req.Gross.DueDate.IsEmpty() {
		v.Problems = append(v.Problems, "gross due date is required")
	}
	if req.Installments < 0 {
		v.Problems = append(v.Problems, "gross installments must not be negative")
	}
	if len(req.Partners) == 0 {
		v.Problems = append(v.Problems, "at least one partner is required")
	}
	for i, p := range req.Partners {
		if strings.TrimSpace(p.Name) == "" {
			v.Problems = append(v.Problems, fmt.Sprintf("partner %d: name is required", i+1))
		}
		if p.Amount.IsZero() {
			v.Problems = append(v.Problems, fmt.Sprintf("partner %d: amount must not be zero", i+1))
		}
		switch p.Mode {
		case Mirrored, "":
		case Independent:
			if p.Installments < 1 {
				v.Problems = append(v.Problems, fmt.Sprintf("partner %d: installments must be at least 1", i+1))
			}
			if p.FirstDueDate.IsEmpty() {
				v.Problems = append(v.Problems, fmt.Sprintf("partner %d: first due date is required", i+1))
			}
		default:
			v.Problems = append(v.Problems, fmt.Sprintf("partner %d: unknown mode %q", i+1, p.Mode))
		}
	}
	if v.Oversubscribed() {
		v.Problems = append(v.Problems, fmt.Sprintf("partner shares %s exceed gross %s by %s",
			v.Allocated.StringFixed(2), v.Gross.StringFixed(2), v.OfficeBalance.Abs().StringFixed(2)))
	}
	return v
}

// NewBuilder returns a builder that names entries with random UUIDs.
func NewBuilder() *Builder {
	return &Builder{NewID: uuid.NewString}
}

// Build validates the request and produces the group. Nothing is built
// when validation fails.
func (b *Builder) Build(req Request) (Group, error) {
	if v := Check(req); !v.OK() {
		return Group{}, &ValidationError{Validation: v}
	}

	g := Group{RateioID: b.newID()}

	masters, err := b.masters(req, g.RateioID)
	if err != nil {
		return Group{}, err
	}
	g.Masters = masters

	for _, p := range req.Partners {
		splits, err := b.splits(req, p, g)
		if err != nil {
			return Group{}, fmt.Errorf("partner %s: %w", p.Name, err)
		}
		g.Splits = append(g.Splits, splits...)
	}
	return g, nil
}

// All returns masters followed by splits.
func (g Group) All() []core.Entry {
	out := make([]core.Entry, 0, len(g.Masters)+len(g.Splits))
	out = append(out, g.Masters...)
	return append(out, g.Splits...)
}

func (b *Builder) masters(req Request, rateioID string) ([]core.Entry, error) {
	tpl := req.Gross
	tpl.Type = core.Receita
	tpl.Amount = core.Signed(core.Receita, tpl.Amount)
	tpl.RateioID = rateioID
	tpl.RateioLevel = core.RateioMasterLevel
	tpl.RateioMasterID = ""
	if tpl.Status == "" || tpl.Status == core.StatusAguardando {
		tpl.Status = core.StatusPendente
	}

	if req.Installments < 2 {
		tpl.ID = b.entryID()
		tpl.Amount = core.Round2(tpl.Amount)
		if tpl.Status != core.StatusPago {
			tpl.SettlementDate = core.Date{}
		} else if tpl.SettlementDate.IsEmpty() {
			tpl.SettlementDate = tpl.DueDate
		}
		return []core.Entry{tpl}, nil
	}

	plan, err := installment.Generate(tpl.Amount, req.Installments, tpl.DueDate, core.Receita)
	if err != nil {
		return nil, err
	}
	plan = plan.WithFirstStatus(tpl.Status)
	return plan.Entries(tpl, b.newID(), b.entryID), nil
}

func (b *Builder) splits(req Request, p Partner, g Group) ([]core.Entry, error) {
	tpl := core.Entry{
		Description: fmt.Sprintf("Repasse %s - %s", strings.TrimSpace(p.Name), req.Gross.Description),
		Type:        core.Despesa,
		AccountID:   p.AccountID,
		CategoryID:  p.CategoryID,
		Captador:    req.Gross.Captador,
		Recurrence:  core.RecurrenceVariavel,
		RateioID:    g.RateioID,
		RateioLevel: core.RateioSplitLevel,
		CreatedAt:   req.Gross.CreatedAt,
	}
	if tpl.CategoryID == "" {
		tpl.CategoryID = DefaultPartnerCategory
	}
	total := core.Signed(core.Despesa, p.Amount)

	if p.Mode == Independent {
		return b.independentSplits(tpl, total, p, g.Masters)
	}

	n := len(g.Masters)
	share := total.Div(decimal.NewFromInt(int64(n)))
	groupID := ""
	if n > 1 {
		groupID = b.newID()
	}
	out := make([]core.Entry, n)
	for i, m := range g.Masters {
		e := tpl
		e.ID = b.entryID()
		e.Amount = core.Round2(share)
		e.DueDate = m.DueDate
		e.RateioMasterID = m.ID
		e.Status = splitStatus(m)
		if n > 1 {
			e.Description = fmt.Sprintf("%s (Parcela %d/%d)", tpl.Description, i+1, n)
			e.Recurrence = core.RecurrenceParcelamento
			e.InstallmentGroupID = groupID
			e.InstallmentIndex = i + 1
			e.InstallmentTotal = n
		}
		out[i] = e
	}
	return out, nil
}

// independentSplits installments a partner on its own schedule. Row i
// references master min(i, len(masters)-1).
func (b *Builder) independentSplits(tpl core.Entry, total decimal.Decimal, p Partner, masters []core.Entry) ([]core.Entry, error) {
	masterFor := func(i int) core.Entry {
		return masters[min(i, len(masters)-1)]
	}

	if p.Installments < 2 {
		e := tpl
		e.ID = b.entryID()
		e.Amount = core.Round2(total)
		e.DueDate = p.FirstDueDate
		m := masterFor(0)
		e.RateioMasterID = m.ID
		e.Status = splitStatus(m)
		return []core.Entry{e}, nil
	}

	plan, err := installment.Generate(total, p.Installments, p.FirstDueDate, core.Despesa)
	if err != nil {
		return nil, err
	}
	entries := plan.Entries(tpl, b.newID(), b.entryID)
	for i := range entries {
		m := masterFor(i)
		entries[i].RateioMasterID = m.ID
		entries[i].Status = splitStatus(m)
		entries[i].SettlementDate = core.Date{}
	}
	return entries, nil
}

// splitStatus arms a payout only once its master has been received.
func splitStatus(master core.Entry) core.Status {
	if master.Status == core.StatusPago {
		return core.StatusPendente
	}
	return core.StatusAguardando
}

func (b *Builder) newID() string {
	if b.NewID == nil {
		return uuid.NewString()
	}
	return b.NewID()
}

func (b *Builder) entryID() core.EntryID {
	return core.EntryID(b.newID())
}
