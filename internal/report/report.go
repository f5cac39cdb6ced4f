// Package report reduces entry lists into the totals the dashboard shows.
// Every function is pure and recomputed on each request.
package report

import (
	"slices"

	"github.com/shopspring/decimal"

	"financeiro/internal/classify"
	"financeiro/internal/core"
)

// Bucket is one labelled total.
type Bucket struct {
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// Totals splits a period into what is only projected, what was paid and
// what is still open.
type Totals struct {
	Forecast decimal.Decimal `json:"forecast"`
	Settled  decimal.Decimal `json:"settled"`
	Pending  decimal.Decimal `json:"pending"`
}

// Summary is the income/expense picture of one month.
type Summary struct {
	Month   core.YearMonth  `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
	Entries int             `json:"entries"`
	Overdue int             `json:"overdue"`
}

// FilterMonth keeps the entries whose effective date falls in month.
func FilterMonth(entries []core.Entry, month core.YearMonth) []core.Entry {
	var out []core.Entry
	for _, e := range entries {
		d := e.EffectiveDate()
		if d.IsEmpty() || d.YearMonth() != month {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ByClassification sums signed amounts per classifier label. Labels with
// no entries are omitted; the rest follow the classifier's label order.
func ByClassification(entries []core.Entry, c *classify.Classifier) []Bucket {
	acc := newAccumulator()
	for _, e := range entries {
		acc.add(string(c.Classify(e)), e.Amount)
	}
	order := make([]string, 0, len(acc.totals))
	for _, l := range c.Labels() {
		order = append(order, string(l))
	}
	return acc.buckets(order)
}

// ByOwner sums signed amounts per owner. The owner comes from the entry's
// account, falling back to the entry's own owner field.
func ByOwner(entries []core.Entry, accounts core.AccountIndex) []Bucket {
	acc := newAccumulator()
	for _, e := range entries {
		owner := accounts.OwnerOf(e)
		if owner == "" {
			owner = "sem-dono"
		}
		acc.add(owner, e.Amount)
	}
	return acc.buckets(nil)
}

// ByCategory sums signed amounts per category id.
func ByCategory(entries []core.Entry) []Bucket {
	acc := newAccumulator()
	for _, e := range entries {
		cat := e.CategoryID
		if cat == "" {
			cat = "sem-categoria"
		}
		acc.add(cat, e.Amount)
	}
	return acc.buckets(nil)
}

// ForecastVsSettled compares projected virtual entries with real ones.
// Invoice entries count as real.
func ForecastVsSettled(entries []core.Entry) Totals {
	t := Totals{Forecast: decimal.Zero, Settled: decimal.Zero, Pending: decimal.Zero}
	for _, e := range entries {
		switch e.Kind() {
		case core.KindForecastVirtual:
			t.Forecast = t.Forecast.Add(e.Amount)
		case core.KindPlain, core.KindInvoice, core.KindRateioMaster, core.KindRateioSplit:
			if e.Status == core.StatusPago {
				t.Settled = t.Settled.Add(e.Amount)
			} else {
				t.Pending = t.Pending.Add(e.Amount)
			}
		}
	}
	return t
}

// Breakeven is the revenue needed to cover every expense of the period,
// projected ones included. Forecast templates themselves are skipped
// since their virtual months already count.
func Breakeven(entries []core.Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.Type != core.Despesa || e.IsForecastTemplate() {
			continue
		}
		total = total.Add(e.Amount.Abs())
	}
	return core.Round2(total)
}

// MonthSummary reduces the month's entries to income, expense and balance.
// Expense is reported as a positive magnitude.
func MonthSummary(entries []core.Entry, month core.YearMonth) Summary {
	s := Summary{Month: month, Income: decimal.Zero, Expense: decimal.Zero}
	for _, e := range FilterMonth(entries, month) {
		if e.IsForecastTemplate() {
			continue
		}
		s.Entries++
		switch e.Type {
		case core.Receita:
			s.Income = s.Income.Add(e.Amount.Abs())
		case core.Despesa:
			s.Expense = s.Expense.Add(e.Amount.Abs())
		}
		if e.Status == core.StatusAtrasado {
			s.Overdue++
		}
	}
	s.Income = core.Round2(s.Income)
	s.Expense = core.Round2(s.Expense)
	s.Balance = s.Income.Sub(s.Expense)
	return s
}

type accumulator struct {
	totals map[string]decimal.Decimal
	counts map[string]int
}

func newAccumulator() *accumulator {
	return &accumulator{totals: map[string]decimal.Decimal{}, counts: map[string]int{}}
}

func (a *accumulator) add(label string, amount decimal.Decimal) {
	a.totals[label] = a.totals[label].Add(amount)
	a.counts[label]++
}

// buckets returns labels in order first, then any remaining ones sorted.
func (a *accumulator) buckets(order []string) []Bucket {
	out := make([]Bucket, 0, len(a.totals))
	seen := map[string]bool{}
	for _, l := range order {
		if _, ok := a.totals[l]; !ok || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, Bucket{Label: l, Total: core.Round2(a.totals[l]), Count: a.counts[l]})
	}
	rest := make([]string, 0, len(a.totals))
	for l := range a.totals {
		if !seen[l] {
			rest = append(rest, l)
		}
	}
	slices.Sort(rest)
	for _, l := range rest {
		out = append(out, Bucket{Label: l, Total: core.Round2(a.totals[l]), Count: a.counts[l]})
	}
	return out
}
