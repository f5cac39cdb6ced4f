package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const invoicePrefix = "invoice-"

const (
	ItemDespesa ItemType = "despesa"
	ItemReceita ItemType = "receita"
)

var ErrInvalidInvoiceID = errors.New("invalid invoice id")

type (
	ItemType string

	// InvoiceID is the parsed form of "invoice-{cardId}-{YYYY}-{MM}".
	// Card ids may themselves contain dashes.
	InvoiceID struct {
		CardID string
		Month  YearMonth
	}

	// InvoiceItem is one credit-card line. Amount is unsigned; the sign
	// comes from Type.
	InvoiceItem struct {
		PurchaseDate       Date            `json:"purchaseDate"`
		Description        string          `json:"description"`
		CategoryID         string          `json:"categoryId,omitempty"`
		Recurrence         Recurrence      `json:"recurrence,omitempty"`
		Amount             decimal.Decimal `json:"amount"`
		Type               ItemType        `json:"type"`
		InstallmentGroupID string          `json:"installmentGroupId,omitempty"`
		MonthOffset        int             `json:"monthOffset"`
	}

	Invoice struct {
		Items          []InvoiceItem   `json:"items"`
		Total          decimal.Decimal `json:"total"`
		Status         Status          `json:"status,omitempty"`
		SettlementDate Date            `json:"settlementDate"`
	}

	// InvoiceData is the settings/invoiceData document, keyed by invoice id.
	InvoiceData map[string]Invoice

	// CardEntry is a document of the older creditCardEntries collection:
	// one purchase filed under an invoice id.
	CardEntry struct {
		ID        EntryID `json:"id"`
		InvoiceID string  `json:"invoiceId"`
		InvoiceItem
	}
)

// NewInvoiceID builds an id for the card and month.
func NewInvoiceID(cardID string, month YearMonth) InvoiceID {
	return InvoiceID{CardID: cardID, Month: month}
}

// ParseInvoiceID splits an invoice id, reading year and month from the end.
func ParseInvoiceID(s string) (InvoiceID, error) {
	rest, ok := strings.CutPrefix(s, invoicePrefix)
	if !ok {
		return InvoiceID{}, fmt.Errorf("%w: %q", ErrInvalidInvoiceID, s)
	}
	parts := strings.Split(rest, "-")
	if len(parts) < 3 {
		return InvoiceID{}, fmt.Errorf("%w: %q", ErrInvalidInvoiceID, s)
	}
	n := len(parts)
	year, err := strconv.Atoi(parts[n-2])
	if err != nil || len(parts[n-2]) != 4 {
		return InvoiceID{}, fmt.Errorf("%w: %q", ErrInvalidInvoiceID, s)
	}
	month, err := strconv.Atoi(parts[n-1])
	if err != nil || month < 1 || month > 12 {
		return InvoiceID{}, fmt.Errorf("%w: %q", ErrInvalidInvoiceID, s)
	}
	card := strings.Join(parts[:n-2], "-")
	if card == "" {
		return InvoiceID{}, fmt.Errorf("%w: %q", ErrInvalidInvoiceID, s)
	}
	return InvoiceID{CardID: card, Month: YearMonth{Year: year, Month: time.Month(month)}}, nil
}

func (id InvoiceID) String() string {
	return fmt.Sprintf("%s%s-%04d-%02d", invoicePrefix, id.CardID, id.Month.Year, int(id.Month.Month))
}

// CardPrefix is the id prefix shared by every invoice of the card.
func (id InvoiceID) CardPrefix() string {
	return invoicePrefix + id.CardID + "-"
}

// Shift returns the id of the same card n months later.
func (id InvoiceID) Shift(n int) InvoiceID {
	return InvoiceID{CardID: id.CardID, Month: id.Month.AddMonths(n)}
}

// SignedAmount applies the item type to its unsigned amount: despesa
// counts positive towards the invoice total, receita negative.
func (it InvoiceItem) SignedAmount() decimal.Decimal {
	if it.Type == ItemReceita {
		return it.Amount.Abs().Neg()
	}
	return it.Amount.Abs()
}

// ComputeTotal returns Σ despesa − Σ receita over the items.
func ComputeTotal(items []InvoiceItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.SignedAmount())
	}
	return total
}

// Clone returns a deep copy of the document.
func (d InvoiceData) Clone() InvoiceData {
	out := make(InvoiceData, len(d))
	for id, inv := range d {
		inv.Items = append([]InvoiceItem(nil), inv.Items...)
		out[id] = inv
	}
	return out
}
