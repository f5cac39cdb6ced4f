// Package sheets mirrors ledger entries into a spreadsheet, one sheet per
// workspace keyed by entry id in column A.
package sheets

import (
	"context"

	"financeiro/internal/core"
)

// EntryMirror is the outbound port of the sheets export.
type EntryMirror interface {
	// Upsert writes the entry's row, replacing an existing row with the
	// same id or appending a new one.
	Upsert(ctx context.Context, ws core.Workspace, e core.Entry) (rowRef string, err error)
	// Remove clears the row of id. Removing an unknown id is not an error.
	Remove(ctx context.Context, ws core.Workspace, id core.EntryID) error
}

// Header is the first row of every mirrored sheet.
var Header = []string{
	"ID", "Vencimento", "Descrição", "Valor", "Tipo", "Status",
	"Recorrência", "Categoria", "Conta", "Pagamento",
}

// Row renders an entry in Header order. Amounts are plain decimals so the
// spreadsheet locale decides their display.
func Row(e core.Entry) []any {
	return []any{
		string(e.ID),
		e.DueDate.String(),
		e.Description,
		e.Amount.StringFixed(2),
		string(e.Type),
		string(e.Status),
		string(e.Recurrence),
		e.CategoryID,
		e.AccountID,
		e.SettlementDate.String(),
	}
}

// SheetName is the sheet a workspace mirrors into: base for the firm,
// "base - Label" for the others.
func SheetName(base string, ws core.Workspace) string {
	if !ws.Personal {
		return base
	}
	return base + " - " + ws.Label
}
