package http

import (
	"net/http"

	"financeiro/internal/core"
	"financeiro/internal/log"
	"financeiro/internal/settlement"
)

type settleRequest struct {
	SettlementDate core.Date `json:"settlementDate"`
}

// settleResponse is the JSON form of a settlement result.
type settleResponse struct {
	Entry    core.Entry   `json:"entry"`
	Cascaded []core.Entry `json:"cascaded"`
}

func newSettleResponse(res settlement.Result) settleResponse {
	cascaded := res.Cascaded
	if cascaded == nil {
		cascaded = []core.Entry{}
	}
	return settleResponse{Entry: res.Target, Cascaded: cascaded}
}

// handleListEntries returns the month's persisted, forecast and invoice
// entries with their classification label.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	month, err := ParseMonthParam(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	entries, err := s.ledger.MonthEntries(r.Context(), ws, month)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	NewResponse().JSON(map[string]any{
		"workspace": ws.ID,
		"month":     month.String(),
		"entries":   entries,
	}).Write(w)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	var e core.Entry
	if err := decodeJSON(w, r, &e); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	sanitizeEntry(&e)

	saved, err := s.ledger.CreateEntry(r.Context(), ws, e)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/"+ws.ID+"/entries/"+string(saved.ID)).
		JSON(saved).
		Write(w)
}

// handleUpdateEntry replaces a stored entry with the request body.
func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	var e core.Entry
	if err := decodeJSON(w, r, &e); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	sanitizeEntry(&e)

	saved, err := s.ledger.UpdateEntry(r.Context(), ws, core.EntryID(r.PathValue("id")), e)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	NewResponse().JSON(saved).Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeleteEntry(r.Context(), ws, core.EntryID(r.PathValue("id"))); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

// handleSettle marks an entry or invoice paid. The body is optional; its
// settlementDate defaults to today.
func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	var req settleRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	res, err := s.ledger.Settle(r.Context(), ws, core.EntryID(r.PathValue("id")), req.SettlementDate)
	if err != nil {
		s.writeError(w, r, log.OpSettle, err)
		return
	}
	NewResponse().JSON(newSettleResponse(res)).Write(w)
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	res, err := s.ledger.Reverse(r.Context(), ws, core.EntryID(r.PathValue("id")))
	if err != nil {
		s.writeError(w, r, log.OpReverse, err)
		return
	}
	NewResponse().JSON(newSettleResponse(res)).Write(w)
}
