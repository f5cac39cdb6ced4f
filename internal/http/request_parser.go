package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"financeiro/internal/core"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// decodeJSON reads one JSON value from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body larger than %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON: trailing data after the first value")
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for bodies that may be omitted.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	err := decodeJSON(w, r, v)
	if errors.Is(err, errEmptyBody) {
		return nil
	}
	return err
}

// ParseMonthParam reads ?month=YYYY-MM, defaulting to the month of now.
func ParseMonthParam(query url.Values, now time.Time) (core.YearMonth, error) {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return core.MonthOf(now), nil
	}
	return core.ParseYearMonth(v)
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// sanitizeEntry cleans the free-text fields of an entry and drops the
// markers of derived entries, which clients never write.
func sanitizeEntry(e *core.Entry) {
	e.Description = sanitizeInput(e.Description)
	e.Captador = sanitizeInput(e.Captador)
	e.Owner = sanitizeInput(e.Owner)
	e.IsForecastVirtual = false
	e.IsInvoice = false
	e.InvoiceID = ""
	e.HideDueDate = false
	e.TemplateID = ""
}
