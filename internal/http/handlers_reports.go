package http

import (
	"context"
	"net/http"

	"financeiro/internal/cache"
	"financeiro/internal/core"
	"financeiro/internal/log"
	"financeiro/internal/services"
)

// handleReportSummary returns the month's dashboard aggregates.
func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	month, err := ParseMonthParam(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	rep, err := s.report(r.Context(), ws, month)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(map[string]any{
		"workspace": ws.ID,
		"month":     month.String(),
		"report":    rep,
	}).Write(w)
}

// report serves from the cache; any write to the workspace drops its entries.
func (s *Server) report(ctx context.Context, ws core.Workspace, month core.YearMonth) (services.MonthReport, error) {
	key := cache.WorkspaceKey(ws, "report", month.String())
	if rep, ok := s.reports.Get(key); ok {
		s.logger.DebugContext(ctx, "Report cache hit",
			log.FieldWorkspace, ws.ID,
			log.FieldMonth, month.String())
		return rep, nil
	}

	rep, err := s.ledger.Report(ctx, ws, month)
	if err != nil {
		return services.MonthReport{}, err
	}
	s.reports.Set(key, rep)
	return rep, nil
}
