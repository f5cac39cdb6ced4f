// Package installment splits a total into monthly installments.
package installment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"financeiro/internal/core"
)

var (
	ErrInvalidCount = errors.New("installment count must be at least 2")
	ErrInvalidRow   = errors.New("installment row out of range")
	ErrMissingDate  = errors.New("first due date is required")
)

// Row is one generated installment. Amount is not rounded.
type Row struct {
	Index   int             `json:"index"` // zero-based
	Count   int             `json:"count"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate core.Date       `json:"dueDate"`
	Status  core.Status     `json:"status"`
}

// Label returns the description suffix "(Parcela i/N)".
func (r Row) Label() string {
	return fmt.Sprintf("(Parcela %d/%d)", r.Index+1, r.Count)
}

// Plan is an editable set of generated rows. Editing a row never adds,
// removes or moves rows.
type Plan struct {
	Total decimal.Decimal `json:"total"`
	Rows  []Row           `json:"rows"`
}

// RowPatch carries the fields an edit may change. Nil fields stay.
type RowPatch struct {
	Amount  *decimal.Decimal `json:"amount,omitempty"`
	DueDate *core.Date       `json:"dueDate,omitempty"`
	Status  *core.Status     `json:"status,omitempty"`
}

// Generate splits total into count rows due monthly from firstDue. The
// direction sets the sign: Despesa rows are negative, Receita positive.
func Generate(total decimal.Decimal, count int, firstDue core.Date, direction core.EntryType) (Plan, error) {
	if count < 2 {
		return Plan{}, fmt.Errorf("%w: got %d", ErrInvalidCount, count)
	}
	if firstDue.IsEmpty() {
		return Plan{}, ErrMissingDate
	}

	signedTotal := core.Signed(direction, total)
	amount := signedTotal.Div(decimal.NewFromInt(int64(count)))

	rows := make([]Row, count)
	for i := range rows {
		rows[i] = Row{
			Index:   i,
			Count:   count,
			Amount:  amount,
			DueDate: firstDue.AddMonths(i),
			Status:  core.StatusPendente,
		}
	}
	return Plan{Total: signedTotal, Rows: rows}, nil
}

// WithFirstStatus presets the status of the first row.
func (p Plan) WithFirstStatus(s core.Status) Plan {
	if len(p.Rows) == 0 || s == "" {
		return p
	}
	p.Rows = append([]Row(nil), p.Rows...)
	p.Rows[0].Status = s
	return p
}

// Edit returns a copy of the plan with row i patched.
func (p Plan) Edit(i int, patch RowPatch) (Plan, error) {
	if i < 0 || i >= len(p.Rows) {
		return p, fmt.Errorf("%w: %d of %d", ErrInvalidRow, i, len(p.Rows))
	}
	rows := append([]Row(nil), p.Rows...)
	if patch.Amount != nil {
		rows[i].Amount = *patch.Amount
	}
	if patch.DueDate != nil && !patch.DueDate.IsEmpty() {
		rows[i].DueDate = *patch.DueDate
	}
	if patch.Status != nil {
		rows[i].Status = *patch.Status
	}
	p.Rows = rows
	return p, nil
}

// Sum adds the row amounts.
func (p Plan) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p.Rows {
		total = total.Add(r.Amount)
	}
	return total
}

// Entries materializes the plan as ledger entries cloned from template.
// Amounts are rounded to cents here. ids supplies one id per row.
func (p Plan) Entries(template core.Entry, groupID string, ids func() core.EntryID) []core.Entry {
	out := make([]core.Entry, len(p.Rows))
	for i, r := range p.Rows {
		e := template
		e.ID = ids()
		e.Description = fmt.Sprintf("%s %s", template.Description, r.Label())
		e.Amount = core.Round2(r.Amount)
		e.DueDate = r.DueDate
		e.Status = r.Status
		if r.Status != core.StatusPago {
			e.SettlementDate = core.Date{}
		} else if e.SettlementDate.IsEmpty() {
			e.SettlementDate = r.DueDate
		}
		e.Recurrence = core.RecurrenceParcelamento
		e.InstallmentGroupID = groupID
		e.InstallmentIndex = r.Index + 1
		e.InstallmentTotal = r.Count
		out[i] = e
	}
	return out
}
