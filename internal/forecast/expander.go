package forecast

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"financeiro/internal/core"
)

// DefaultHorizon is the number of months a template projects.
const DefaultHorizon = 72

// AnchorSource records which field the anchor month came from.
type AnchorSource int

const (
	AnchorStartMonth AnchorSource = iota
	AnchorDueDate
	AnchorCreatedAt
	AnchorIDTimestamp
	AnchorToday
)

func (s AnchorSource) String() string {
	switch s {
	case AnchorStartMonth:
		return "forecastStartMonth"
	case AnchorDueDate:
		return "dueDate"
	case AnchorCreatedAt:
		return "createdAt"
	case AnchorIDTimestamp:
		return "id"
	case AnchorToday:
		return "today"
	default:
		return "unknown"
	}
}

// Guessed reports whether the anchor was inferred from data not meant to
// carry it. Projections from guessed anchors are likely off.
func (s AnchorSource) Guessed() bool {
	return s == AnchorIDTimestamp || s == AnchorToday
}

// Expander projects templates over a fixed horizon.
type Expander struct {
	Horizon int
	// Now is read only when a template has no usable anchor.
	Now func() time.Time
}

// NewExpander returns an expander with the given horizon; non-positive
// values use DefaultHorizon.
func NewExpander(horizon int, now func() time.Time) *Expander {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if now == nil {
		now = time.Now
	}
	return &Expander{Horizon: horizon, Now: now}
}

// AnchorFor determines the first projected month of a template:
// forecastStartMonth, then dueDate, then createdAt, then the id read as
// an epoch-millisecond timestamp, then the current month.
func (x *Expander) AnchorFor(e core.Entry) (core.YearMonth, AnchorSource) {
	if ym, err := core.ParseYearMonth(e.ForecastStartMonth); err == nil {
		return ym, AnchorStartMonth
	}
	if !e.DueDate.IsEmpty() {
		return e.DueDate.YearMonth(), AnchorDueDate
	}
	if !e.CreatedAt.IsZero() {
		return core.MonthOf(e.CreatedAt.Time), AnchorCreatedAt
	}
	if ts, ok := e.ID.Timestamp(); ok {
		return core.MonthOf(ts), AnchorIDTimestamp
	}
	return core.MonthOf(x.now()), AnchorToday
}

// MonthlyAmount returns the signed per-month amount of a template.
func MonthlyAmount(e core.Entry) decimal.Decimal {
	conv, err := GetConverter(e.ForecastFrequency)
	if err != nil {
		conv = MonthlyAsIs{}
	}
	return core.Signed(e.Type, conv.Monthly(e.Amount.Abs()))
}

// VirtualID names the projection of template id for month ym.
func VirtualID(templateID core.EntryID, ym core.YearMonth) core.EntryID {
	return core.EntryID(fmt.Sprintf("%s-forecast-%04d-%02d", templateID, ym.Year, int(ym.Month)))
}

// ParseVirtualID splits an id built by VirtualID.
func ParseVirtualID(id core.EntryID) (core.EntryID, core.YearMonth, bool) {
	i := strings.LastIndex(string(id), virtualMarker)
	if i <= 0 {
		return "", core.YearMonth{}, false
	}
	ym, err := core.ParseYearMonth(string(id)[i+len(virtualMarker):])
	if err != nil {
		return "", core.YearMonth{}, false
	}
	return id[:i], ym, true
}

const virtualMarker = "-forecast-"

// Expand returns the virtual entries of every template in entries, in
// input order. Inputs are not modified.
func (x *Expander) Expand(entries []core.Entry) []core.Entry {
	var out []core.Entry
	for _, e := range entries {
		if !e.IsForecastTemplate() {
			continue
		}
		out = append(out, x.ExpandOne(e)...)
	}
	return out
}

// ExpandOne projects a single template.
func (x *Expander) ExpandOne(template core.Entry) []core.Entry {
	anchor, _ := x.AnchorFor(template)
	amount := core.Round2(MonthlyAmount(template))

	out := make([]core.Entry, 0, x.Horizon)
	for i := 0; i < x.Horizon; i++ {
		ym := anchor.AddMonths(i)
		v := template
		v.ID = VirtualID(template.ID, ym)
		v.TemplateID = template.ID
		v.DueDate = ym.LastDay()
		v.SettlementDate = core.Date{}
		v.Amount = amount
		v.IsForecastVirtual = true
		v.HideDueDate = true
		out = append(out, v)
	}
	return out
}

// InRange keeps the virtual entries due in months [from, to].
func InRange(entries []core.Entry, from, to core.YearMonth) []core.Entry {
	var out []core.Entry
	for _, e := range entries {
		ym := e.DueDate.YearMonth()
		if ym.Before(from) || to.Before(ym) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (x *Expander) now() time.Time {
	if x.Now == nil {
		return time.Now()
	}
	return x.Now()
}
