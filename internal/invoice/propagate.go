// Package invoice maintains credit-card invoices: saving an invoice
// propagates future installments into the following months, and invoice
// records are turned into ledger entries for the dashboard.
package invoice

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"financeiro/internal/core"
)

// SaveResult is the outcome of Save.
type SaveResult struct {
	Data core.InvoiceData
	// Touched lists every invoice id whose record changed, sorted.
	Touched []string
	// Removed counts stale propagated items dropped from other invoices.
	Removed int
}

// Save replaces the items of invoiceID and propagates its future items.
//
// Items with monthOffset 0 stay on the invoice together with total.
// Future items are appended to the invoice monthOffset months later with
// their offset reset; a future item without an installment group gets a
// group id derived from invoiceID and the item itself. Before that,
// every other invoice of the same card loses the items whose group
// appears among the future items, and later invoices lose the items of
// groups that now end on invoiceID, when invoiceID is where the group
// starts. Repeated saves never leave stale copies behind. Totals of
// touched invoices are recomputed as Σ despesa − Σ receita.
//
// data is not modified.
func Save(data core.InvoiceData, invoiceID string, items []core.InvoiceItem, total decimal.Decimal) (SaveResult, error) {
	id, err := core.ParseInvoiceID(invoiceID)
	if err != nil {
		return SaveResult{}, err
	}
	out := data.Clone()
	if out == nil {
		out = core.InvoiceData{}
	}

	var current, future []core.InvoiceItem
	for _, it := range items {
		if it.MonthOffset < 0 {
			return SaveResult{}, fmt.Errorf("item %q: %w %d", it.Description, ErrNegativeOffset, it.MonthOffset)
		}
		if it.MonthOffset == 0 {
			current = append(current, it)
			continue
		}
		if it.InstallmentGroupID == "" {
			it.InstallmentGroupID = derivedGroupID(invoiceID, it)
		}
		future = append(future, it)
	}

	touched := map[string]bool{invoiceID: true}

	src := out[invoiceID]
	src.Items = current
	src.Total = total
	out[invoiceID] = src

	groups := map[string]bool{}
	for _, it := range future {
		groups[it.InstallmentGroupID] = true
	}
	// Groups that start here but no longer reach a later month.
	ended := map[string]bool{}
	for _, it := range current {
		g := it.InstallmentGroupID
		if g != "" && !groups[g] && !startsEarlier(out, id, g) {
			ended[g] = true
		}
	}

	removed := 0
	if len(groups) > 0 || len(ended) > 0 {
		prefix := id.CardPrefix()
		for otherID, inv := range out {
			if otherID == invoiceID || !strings.HasPrefix(otherID, prefix) {
				continue
			}
			other, err := core.ParseInvoiceID(otherID)
			if err != nil || other.CardID != id.CardID {
				continue
			}
			later := id.Month.Before(other.Month)
			kept := inv.Items[:0:0]
			for _, it := range inv.Items {
				if groups[it.InstallmentGroupID] || (later && ended[it.InstallmentGroupID]) {
					removed++
					continue
				}
				kept = append(kept, it)
			}
			if len(kept) == len(inv.Items) {
				continue
			}
			inv.Items = kept
			inv.Total = core.ComputeTotal(kept)
			out[otherID] = inv
			touched[otherID] = true
		}
	}

	for _, it := range future {
		target := id.Shift(it.MonthOffset).String()
		inv := out[target]
		copied := it
		copied.MonthOffset = 0
		inv.Items = append(inv.Items, copied)
		inv.Total = core.ComputeTotal(inv.Items)
		out[target] = inv
		touched[target] = true
	}

	ids := make([]string, 0, len(touched))
	for t := range touched {
		ids = append(ids, t)
	}
	slices.Sort(ids)

	return SaveResult{Data: out, Touched: ids, Removed: removed}, nil
}

// derivedGroupID names the installment group of a future item that came
// without one. It is stable across saves of the same item.
func derivedGroupID(invoiceID string, it core.InvoiceItem) string {
	key := strings.Join([]string{
		invoiceID, it.Description, it.PurchaseDate.String(), it.Amount.String(), string(it.Type),
	}, "|")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// startsEarlier reports whether an invoice of the same card before id
// already holds an item of group.
func startsEarlier(data core.InvoiceData, id core.InvoiceID, group string) bool {
	for otherID, inv := range data {
		other, err := core.ParseInvoiceID(otherID)
		if err != nil || other.CardID != id.CardID || !other.Month.Before(id.Month) {
			continue
		}
		for _, it := range inv.Items {
			if it.InstallmentGroupID == group {
				return true
			}
		}
	}
	return false
}

// sameCard guards against card ids that extend another one
// ("itau" vs "itau-black").
func sameCard(invoiceID, cardID string) bool {
	parsed, err := core.ParseInvoiceID(invoiceID)
	return err == nil && parsed.CardID == cardID
}

// ForCard returns the ids of the card's invoices in month order.
func ForCard(data core.InvoiceData, cardID string) []string {
	var ids []string
	for id := range data {
		if sameCard(id, cardID) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
