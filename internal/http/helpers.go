package http

import (
	"errors"
	"net/http"

	"financeiro/internal/core"
	"financeiro/internal/installment"
	"financeiro/internal/invoice"
	"financeiro/internal/log"
	"financeiro/internal/rateio"
	"financeiro/internal/services"
	"financeiro/internal/settlement"
	"financeiro/internal/store"
)

var (
	notFoundErrors = []error{
		services.ErrEntryNotFound,
		settlement.ErrNotFound,
		invoice.ErrNotFound,
		store.ErrNotFound,
	}
	conflictErrors = []error{
		settlement.ErrNotPersisted,
		settlement.ErrInvalidTransition,
	}
	validationErrors = []error{
		core.ErrEmptyDescription,
		core.ErrDescriptionLength,
		core.ErrInvalidType,
		core.ErrInvalidStatus,
		core.ErrInvalidRecurrence,
		core.ErrInvalidFrequency,
		core.ErrAmountSign,
		core.ErrSettlementStatus,
		core.ErrAguardandoLevel,
		core.ErrMissingMaster,
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		core.ErrInvalidMonth,
		core.ErrInvalidInvoiceID,
		installment.ErrInvalidCount,
		installment.ErrInvalidRow,
		installment.ErrMissingDate,
		invoice.ErrNegativeOffset,
		rateio.ErrInvalidRequest,
		rateio.ErrOversubscribed,
	}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case isAny(err, notFoundErrors):
		return http.StatusNotFound
	case isAny(err, conflictErrors):
		return http.StatusConflict
	case isAny(err, validationErrors):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the status of err. Server errors are logged
// and their text is not sent to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	var rv *rateio.ValidationError
	if errors.As(err, &rv) {
		ValidationFailed(err.Error(), rv.Validation).Write(w)
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.NewFields().WithOperation(operation).WithError(err).ToSlice()...)
		InternalServerError("internal error").Write(w)
		return
	}
	ErrorResponse(status, err.Error()).Write(w)
}

// workspace resolves the {workspace} path value. It writes the 404 and
// returns false when the workspace is unknown.
func workspace(w http.ResponseWriter, r *http.Request) (core.Workspace, bool) {
	ws, err := core.LookupWorkspace(r.PathValue("workspace"))
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return core.Workspace{}, false
	}
	return ws, true
}
