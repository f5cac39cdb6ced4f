package http

import (
	"net/http"

	"financeiro/internal/log"
	"financeiro/internal/rateio"
	"financeiro/internal/services"
)

// handlePreviewInstallments returns the rows a request would save,
// edits applied, without storing anything.
func (s *Server) handlePreviewInstallments(w http.ResponseWriter, r *http.Request) {
	if _, ok := workspace(w, r); !ok {
		return
	}
	var req services.InstallmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	plan, err := s.ledger.PreviewInstallments(req)
	if err != nil {
		s.writeError(w, r, log.OpValidate, err)
		return
	}
	NewResponse().JSON(plan).Write(w)
}

func (s *Server) handleCreateInstallments(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	var req services.InstallmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	sanitizeEntry(&req.Template)

	entries, err := s.ledger.CreateInstallments(r.Context(), ws, req)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(map[string]any{
		"installmentGroupId": entries[0].InstallmentGroupID,
		"entries":            entries,
	}).Write(w)
}

// checkResponse is a rateio validation with its verdict.
type checkResponse struct {
	rateio.Validation
	OK bool `json:"ok"`
}

// handleCheckRateio always answers 200; the verdict is in the body.
func (s *Server) handleCheckRateio(w http.ResponseWriter, r *http.Request) {
	if _, ok := workspace(w, r); !ok {
		return
	}
	var req rateio.Request
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	v := s.ledger.CheckRateio(req)
	NewResponse().JSON(checkResponse{Validation: v, OK: v.OK()}).Write(w)
}

// handleCreateRateio saves the group, or answers 422 with the validation
// when partner shares leave the office negative.
func (s *Server) handleCreateRateio(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	var req rateio.Request
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	sanitizeEntry(&req.Gross)
	for i := range req.Partners {
		req.Partners[i].Name = sanitizeInput(req.Partners[i].Name)
	}

	g, err := s.ledger.CreateRateio(r.Context(), ws, req)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(g).Write(w)
}
