package invoice

import (
	"errors"
	"fmt"
	"slices"

	"financeiro/internal/core"
)

var (
	ErrNotFound       = errors.New("invoice not found")
	ErrNegativeOffset = errors.New("negative month offset")
)

// Entries derives one ledger entry per invoice with items. The entry is
// due on the card's due day in the invoice month, or the month's last
// day when the card has none. A positive total is an expense.
func Entries(data core.InvoiceData, accounts core.AccountIndex) []core.Entry {
	ids := make([]string, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var out []core.Entry
	for _, id := range ids {
		inv := data[id]
		if len(inv.Items) == 0 && inv.Total.IsZero() {
			continue
		}
		parsed, err := core.ParseInvoiceID(id)
		if err != nil {
			continue
		}
		card := accounts[parsed.CardID]

		label := card.Label
		if label == "" {
			label = parsed.CardID
		}
		due := parsed.Month.LastDay()
		if card.DueDay > 0 {
			due = core.NewDate(parsed.Month.Year, parsed.Month.Month, min(card.DueDay, parsed.Month.DaysIn()))
		}

		status := inv.Status
		if status == "" {
			status = core.StatusPendente
		}

		e := core.Entry{
			ID:          core.EntryID(id),
			Description: fmt.Sprintf("Fatura %s %02d/%04d", label, int(parsed.Month.Month), parsed.Month.Year),
			Amount:      inv.Total.Neg(),
			DueDate:     due,
			Type:        core.Despesa,
			Status:      status,
			Recurrence:  core.RecurrenceNone,
			AccountID:   parsed.CardID,
			Owner:       card.Owner,
			IsInvoice:   true,
			InvoiceID:   id,
		}
		if inv.Total.IsNegative() {
			e.Type = core.Receita
		}
		if status == core.StatusPago {
			e.SettlementDate = inv.SettlementDate
		}
		out = append(out, e)
	}
	return out
}

// Settle marks an invoice paid. data is not modified.
func Settle(data core.InvoiceData, invoiceID string, on core.Date) (core.InvoiceData, error) {
	if _, ok := data[invoiceID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, invoiceID)
	}
	out := data.Clone()
	inv := out[invoiceID]
	inv.Status = core.StatusPago
	inv.SettlementDate = on
	out[invoiceID] = inv
	return out, nil
}

// Reverse clears the settlement of an invoice. data is not modified.
func Reverse(data core.InvoiceData, invoiceID string) (core.InvoiceData, error) {
	if _, ok := data[invoiceID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, invoiceID)
	}
	out := data.Clone()
	inv := out[invoiceID]
	inv.Status = core.StatusPendente
	inv.SettlementDate = core.Date{}
	out[invoiceID] = inv
	return out, nil
}
