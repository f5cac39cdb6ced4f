package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Despesa EntryType = "Despesa"
	Receita EntryType = "Receita"
	Reserva EntryType = "Reserva"
)

const (
	StatusPago       Status = "pago"
	StatusPendente   Status = "pendente"
	StatusAtrasado   Status = "atrasado"
	StatusAguardando Status = "aguardando"
)

const (
	RecurrenceFixa         Recurrence = "Fixa"
	RecurrenceFixaAnual    Recurrence = "Fixa/Anual"
	RecurrenceVariavel     Recurrence = "Variável"
	RecurrenceParcelamento Recurrence = "Parcelamento"
	RecurrencePrevisao     Recurrence = "Previsão"
	RecurrenceNone         Recurrence = "—"
)

const (
	Semanal Frequency = "semanal"
	Mensal  Frequency = "mensal"
	Anual   Frequency = "anual"
)

// Entry kinds. Every entry is exactly one of these.
const (
	KindPlain Kind = iota
	KindForecastVirtual
	KindInvoice
	KindRateioMaster
	KindRateioSplit
)

const (
	RateioMasterLevel = 1
	RateioSplitLevel  = 2
)

type (
	EntryType  string
	Status     string
	Recurrence string
	Frequency  string
	Kind       int

	// EntryID is a document id. Legacy documents use epoch-millisecond
	// numbers, newer ones use strings; both decode into the same value.
	EntryID string

	// Entry is one ledger line as stored in the entries collection.
	Entry struct {
		ID                 EntryID         `json:"id"`
		Description        string          `json:"description"`
		Amount             decimal.Decimal `json:"amount"`
		DueDate            Date            `json:"dueDate"`
		SettlementDate     Date            `json:"settlementDate"`
		Type               EntryType       `json:"type"`
		Status             Status          `json:"status"`
		Recurrence         Recurrence      `json:"recurrence,omitempty"`
		ForecastFrequency  Frequency       `json:"forecastFrequency,omitempty"`
		ForecastStartMonth string          `json:"forecastStartMonth,omitempty"`
		AccountID          string          `json:"accountId,omitempty"`
		CategoryID         string          `json:"categoryId,omitempty"`
		Captador           string          `json:"captador,omitempty"`
		Owner              string          `json:"owner,omitempty"`
		RateioID           string          `json:"rateioId,omitempty"`
		RateioLevel        int             `json:"rateioLevel,omitempty"`
		RateioMasterID     EntryID         `json:"rateioMasterId,omitempty"`
		InstallmentGroupID string          `json:"installmentGroupId,omitempty"`
		InstallmentIndex   int             `json:"installmentIndex,omitempty"`
		InstallmentTotal   int             `json:"installmentTotal,omitempty"`
		CreatedAt          Timestamp       `json:"createdAt,omitzero"`
		IsInvoice          bool            `json:"isInvoice,omitempty"`
		InvoiceID          string          `json:"invoiceId,omitempty"`
		IsForecastVirtual  bool            `json:"_isForecastVirtual,omitempty"`
		HideDueDate        bool            `json:"_hideDueDate,omitempty"`
		TemplateID         EntryID         `json:"_templateId,omitempty"`
	}
)

var (
	ErrEmptyDescription  = errors.New("empty description")
	ErrDescriptionLength = errors.New("description too long (max 300 characters)")
	ErrInvalidType       = errors.New("invalid entry type")
	ErrInvalidStatus     = errors.New("invalid entry status")
	ErrInvalidRecurrence = errors.New("invalid recurrence")
	ErrInvalidFrequency  = errors.New("invalid forecast frequency")
	ErrAmountSign        = errors.New("amount sign does not match entry type")
	ErrSettlementStatus  = errors.New("settlement date requires status pago")
	ErrAguardandoLevel   = errors.New("status aguardando is only valid for rateio splits")
	ErrMissingMaster     = errors.New("rateio split without master reference")
)

// installmentSuffix matches the "(Parcela i/N)" label appended to
// generated installments.
var installmentSuffix = regexp.MustCompile(`\(Parcela \d+/\d+\)`)

func (t EntryType) Valid() bool {
	switch t {
	case Despesa, Receita, Reserva:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPago, StatusPendente, StatusAtrasado, StatusAguardando:
		return true
	}
	return false
}

func (r Recurrence) Valid() bool {
	switch r {
	case "", RecurrenceFixa, RecurrenceFixaAnual, RecurrenceVariavel, RecurrenceParcelamento, RecurrencePrevisao, RecurrenceNone:
		return true
	}
	return false
}

func (f Frequency) Valid() bool {
	switch f {
	case "", Semanal, Mensal, Anual:
		return true
	}
	return false
}

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindForecastVirtual:
		return "forecast_virtual"
	case KindInvoice:
		return "invoice"
	case KindRateioMaster:
		return "rateio_master"
	case KindRateioSplit:
		return "rateio_split"
	default:
		return "unknown"
	}
}

// Persisted reports whether entries of this kind live in the entries
// collection. Forecast and invoice entries are recomputed on every load.
func (k Kind) Persisted() bool {
	switch k {
	case KindForecastVirtual, KindInvoice:
		return false
	default:
		return true
	}
}

// Kind derives the tagged variant from the stored flags.
func (e Entry) Kind() Kind {
	switch {
	case e.IsForecastVirtual:
		return KindForecastVirtual
	case e.IsInvoice:
		return KindInvoice
	case e.RateioID != "" && e.RateioLevel == RateioMasterLevel:
		return KindRateioMaster
	case e.RateioID != "" && e.RateioLevel == RateioSplitLevel:
		return KindRateioSplit
	default:
		return KindPlain
	}
}

// IsForecastTemplate reports whether the entry drives forecast expansion.
func (e Entry) IsForecastTemplate() bool {
	return e.Recurrence == RecurrencePrevisao && e.DueDate.IsEmpty() && !e.IsForecastVirtual
}

// HasInstallmentSuffix reports whether the description carries "(Parcela i/N)".
func (e Entry) HasInstallmentSuffix() bool {
	return installmentSuffix.MatchString(e.Description)
}

// IsExpense reports whether the entry counts on the expense side.
func (e Entry) IsExpense() bool {
	return e.Type != Receita
}

// EffectiveDate is the date the entry is bucketed under: the due date,
// else the settlement date.
func (e Entry) EffectiveDate() Date {
	if !e.DueDate.IsEmpty() {
		return e.DueDate
	}
	return e.SettlementDate
}

// SignFor returns the amount sign an entry type carries.
func SignFor(t EntryType) int {
	switch t {
	case Despesa:
		return -1
	case Receita:
		return 1
	default:
		return 0
	}
}

// Signed applies the sign of type t to the magnitude of amount. Reserva
// keeps the amount as given.
func Signed(t EntryType, amount decimal.Decimal) decimal.Decimal {
	switch SignFor(t) {
	case -1:
		return amount.Abs().Neg()
	case 1:
		return amount.Abs()
	default:
		return amount
	}
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > 300 {
		return ErrDescriptionLength
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, e.Type)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, e.Status)
	}
	if !e.Recurrence.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRecurrence, e.Recurrence)
	}
	if !e.ForecastFrequency.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, e.ForecastFrequency)
	}
	switch e.Type {
	case Despesa:
		if e.Amount.IsPositive() {
			return fmt.Errorf("%w: Despesa amount %s must be <= 0", ErrAmountSign, e.Amount)
		}
	case Receita:
		if e.Amount.IsNegative() {
			return fmt.Errorf("%w: Receita amount %s must be >= 0", ErrAmountSign, e.Amount)
		}
	}
	if !e.SettlementDate.IsEmpty() && e.Status != StatusPago {
		return ErrSettlementStatus
	}
	switch e.Kind() {
	case KindRateioSplit:
		if e.RateioMasterID == "" {
			return ErrMissingMaster
		}
	default:
		if e.Status == StatusAguardando {
			return ErrAguardandoLevel
		}
	}
	return nil
}

// Timestamp interprets a numeric id as epoch milliseconds. Ids that are
// not numeric, or that decode to a date before 2000, are rejected.
func (id EntryID) Timestamp() (time.Time, bool) {
	ms, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	t := time.UnixMilli(ms).UTC()
	if t.Year() < 2000 {
		return time.Time{}, false
	}
	return t, true
}

func (id EntryID) String() string {
	return string(id)
}

func (id *EntryID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = EntryID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	if i, err := n.Int64(); err == nil {
		*id = EntryID(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = EntryID(strconv.FormatInt(int64(f), 10))
	return nil
}
