package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"financeiro/internal/core"
)

// OverdueProcessor flips past-due pendente entries to atrasado in every
// workspace. The overdue worker runs it on a timer.
type OverdueProcessor struct {
	ledger     *LedgerService
	workspaces []core.Workspace
}

func NewOverdueProcessor(ledger *LedgerService) *OverdueProcessor {
	return &OverdueProcessor{ledger: ledger, workspaces: core.Workspaces()}
}

// ProcessOverdue returns the number of entries moved. A failing workspace
// is logged and does not stop the others.
func (p *OverdueProcessor) ProcessOverdue(ctx context.Context) (int, error) {
	if p.ledger == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	total := 0
	var errs []error
	for _, ws := range p.workspaces {
		n, err := p.ledger.MarkOverdue(ctx, ws)
		total += n
		if err != nil {
			slog.ErrorContext(ctx, "Failed to mark overdue entries",
				"workspace", ws.ID,
				"marked", n,
				"error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ws, err))
			continue
		}
		if n > 0 {
			slog.InfoContext(ctx, "Marked entries overdue",
				"workspace", ws.ID,
				"count", n)
		}
	}

	slog.InfoContext(ctx, "Overdue processing complete", "marked", total)
	return total, errors.Join(errs...)
}
