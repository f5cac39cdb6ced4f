package invoice

import (
	"slices"

	"financeiro/internal/core"
)

// MigrateResult is the outcome of MigrateCardEntries.
type MigrateResult struct {
	Data core.InvoiceData
	// Migrated counts card entries copied into an invoice.
	Migrated int
	// Skipped lists card entries left out: already present, or filed
	// under an invoice id that does not parse.
	Skipped []core.EntryID
	// Touched lists every invoice id that gained items, sorted.
	Touched []string
}

// MigrateCardEntries folds documents of the older per-purchase collection
// into the invoice document. An entry whose item already sits on its
// invoice is skipped, so the migration can run more than once. Totals of
// touched invoices are recomputed. data is not modified.
func MigrateCardEntries(data core.InvoiceData, cards []core.CardEntry) MigrateResult {
	out := data.Clone()
	if out == nil {
		out = core.InvoiceData{}
	}

	res := MigrateResult{}
	touched := map[string]bool{}
	for _, c := range cards {
		if _, err := core.ParseInvoiceID(c.InvoiceID); err != nil {
			res.Skipped = append(res.Skipped, c.ID)
			continue
		}
		inv := out[c.InvoiceID]
		if slices.ContainsFunc(inv.Items, func(it core.InvoiceItem) bool { return sameItem(it, c.InvoiceItem) }) {
			res.Skipped = append(res.Skipped, c.ID)
			continue
		}
		inv.Items = append(inv.Items, c.InvoiceItem)
		out[c.InvoiceID] = inv
		touched[c.InvoiceID] = true
		res.Migrated++
	}

	for id := range touched {
		inv := out[id]
		inv.Total = core.ComputeTotal(inv.Items)
		out[id] = inv
		res.Touched = append(res.Touched, id)
	}
	slices.Sort(res.Touched)
	res.Data = out
	return res
}

func sameItem(a, b core.InvoiceItem) bool {
	return a.Description == b.Description &&
		a.Amount.Equal(b.Amount) &&
		a.Type == b.Type &&
		a.PurchaseDate == b.PurchaseDate &&
		a.InstallmentGroupID == b.InstallmentGroupID
}
