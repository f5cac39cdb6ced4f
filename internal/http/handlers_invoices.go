package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"financeiro/internal/core"
	"financeiro/internal/log"
)

type saveInvoiceRequest struct {
	Items []core.InvoiceItem `json:"items"`
	Total decimal.Decimal    `json:"total"`
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	data, err := s.ledger.Invoices(r.Context(), ws)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if data == nil {
		data = core.InvoiceData{}
	}
	NewResponse().JSON(data).Write(w)
}

// handleSaveInvoice replaces the invoice's items and propagates future
// installments. The response lists every invoice the save touched.
func (s *Server) handleSaveInvoice(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	var req saveInvoiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	for i := range req.Items {
		req.Items[i].Description = sanitizeInput(req.Items[i].Description)
	}

	id := r.PathValue("invoiceId")
	res, err := s.ledger.SaveInvoice(r.Context(), ws, id, req.Items, req.Total)
	if err != nil {
		s.writeError(w, r, log.OpPropagate, err)
		return
	}

	touched := make(core.InvoiceData, len(res.Touched))
	for _, t := range res.Touched {
		touched[t] = res.Data[t]
	}
	NewResponse().JSON(map[string]any{
		"invoiceId": id,
		"invoice":   res.Data[id],
		"touched":   touched,
		"removed":   res.Removed,
	}).Write(w)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	accounts, err := s.ledger.Accounts(r.Context(), ws)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if accounts == nil {
		accounts = []core.Account{}
	}
	NewResponse().JSON(accounts).Write(w)
}

// handleSaveAccount stores the account under the path id.
func (s *Server) handleSaveAccount(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	var a core.Account
	if err := decodeJSON(w, r, &a); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	a.ID = r.PathValue("id")
	a.Label = sanitizeInput(a.Label)
	a.Owner = sanitizeInput(a.Owner)
	if strings.TrimSpace(a.Label) == "" {
		UnprocessableEntityError("account label is required").Write(w)
		return
	}

	if err := s.ledger.SaveAccount(r.Context(), ws, a); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	NewResponse().JSON(a).Write(w)
}
