package report

import (
	"github.com/shopspring/decimal"

	"financeiro/internal/classify"
	"financeiro/internal/core"
)

// ReserveHorizons are the month counts the reserve fund is projected for.
var ReserveHorizons = []int{1, 3, 6, 12}

// ReserveMonth is the committed expense of one projected month.
type ReserveMonth struct {
	Month        core.YearMonth  `json:"month"`
	Fixed        decimal.Decimal `json:"fixed"`
	Installments decimal.Decimal `json:"installments"`
	Total        decimal.Decimal `json:"total"`
	// Estimated marks a month with no observed entries whose total was
	// carried forward from the first month's fixed expense.
	Estimated bool `json:"_estimated,omitempty"`
}

// ReserveTarget is the cumulative reserve needed to cover a horizon.
type ReserveTarget struct {
	Months    int             `json:"months"`
	Total     decimal.Decimal `json:"total"`
	Estimated bool            `json:"_estimated,omitempty"`
}

// Reserve is the reserve-fund projection starting at a month.
type Reserve struct {
	From    core.YearMonth  `json:"from"`
	Months  []ReserveMonth  `json:"months"`
	Targets []ReserveTarget `json:"targets"`
}

// ReserveFund projects Σ(Fixa + Parcelamento) expense over the next
// 1, 3, 6 and 12 months starting at from. A month after the first with
// no such entries takes the first month's fixed total instead and is
// flagged Estimated.
func ReserveFund(entries []core.Entry, c *classify.Classifier, from core.YearMonth) Reserve {
	last := ReserveHorizons[len(ReserveHorizons)-1]

	months := make([]ReserveMonth, last)
	observed := make([]bool, last)
	for i := range months {
		months[i] = ReserveMonth{Month: from.AddMonths(i), Fixed: decimal.Zero, Installments: decimal.Zero}
	}

	for _, e := range entries {
		if e.Type != core.Despesa || e.IsForecastTemplate() {
			continue
		}
		d := e.EffectiveDate()
		if d.IsEmpty() {
			continue
		}
		i := from.MonthsUntil(d.YearMonth())
		if i < 0 || i >= last {
			continue
		}
		switch c.ClassifyEntry(e) {
		case classify.Fixa:
			months[i].Fixed = months[i].Fixed.Add(e.Amount.Abs())
			observed[i] = true
		case classify.Parcelamento:
			months[i].Installments = months[i].Installments.Add(e.Amount.Abs())
			observed[i] = true
		}
	}

	baseline := months[0].Fixed
	for i := range months {
		if i > 0 && !observed[i] {
			months[i].Fixed = baseline
			months[i].Estimated = true
		}
		months[i].Fixed = core.Round2(months[i].Fixed)
		months[i].Installments = core.Round2(months[i].Installments)
		months[i].Total = months[i].Fixed.Add(months[i].Installments)
	}

	targets := make([]ReserveTarget, 0, len(ReserveHorizons))
	for _, h := range ReserveHorizons {
		t := ReserveTarget{Months: h, Total: decimal.Zero}
		for _, m := range months[:h] {
			t.Total = t.Total.Add(m.Total)
			t.Estimated = t.Estimated || m.Estimated
		}
		targets = append(targets, t)
	}

	return Reserve{From: from, Months: months, Targets: targets}
}
