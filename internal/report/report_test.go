package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financeiro/internal/classify"
	"financeiro/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func expense(id, amount, due string, rec core.Recurrence) core.Entry {
	return core.Entry{
		ID:          core.EntryID(id),
		Description: id,
		Amount:      dec(amount),
		DueDate:     core.MustDate(due),
		Type:        core.Despesa,
		Status:      core.StatusPendente,
		Recurrence:  rec,
	}
}

func revenue(id, amount, due string) core.Entry {
	return core.Entry{
		ID:          core.EntryID(id),
		Description: id,
		Amount:      dec(amount),
		DueDate:     core.MustDate(due),
		Type:        core.Receita,
		Status:      core.StatusPendente,
		Recurrence:  core.RecurrenceVariavel,
	}
}

func month(s string) core.YearMonth {
	ym, err := core.ParseYearMonth(s)
	if err != nil {
		panic(err)
	}
	return ym
}

func TestFilterMonth(t *testing.T) {
	settledOnly := expense("s", "-5", "2026-01-01", core.RecurrenceVariavel)
	settledOnly.DueDate = core.Date{}
	settledOnly.SettlementDate = core.MustDate("2026-03-10")

	entries := []core.Entry{
		expense("a", "-10", "2026-03-01", core.RecurrenceFixa),
		expense("b", "-10", "2026-04-01", core.RecurrenceFixa),
		settledOnly,
		{ID: "template", Recurrence: core.RecurrencePrevisao},
	}
	got := FilterMonth(entries, month("2026-03"))
	require.Len(t, got, 2)
	assert.Equal(t, core.EntryID("a"), got[0].ID)
	assert.Equal(t, core.EntryID("s"), got[1].ID)
}

func TestByClassification(t *testing.T) {
	c := classify.ForWorkspace(core.Firm)
	iof := expense("iof", "-6.85", "2026-03-02", core.RecurrenceVariavel)
	iof.CategoryID = "impostos"
	iof.Description = "IOF Operação Exterior"

	entries := []core.Entry{
		expense("aluguel", "-2000", "2026-03-05", core.RecurrenceFixa),
		expense("internet", "-150.50", "2026-03-10", core.RecurrenceFixa),
		iof,
		expense("almoço", "-45", "2026-03-11", core.RecurrenceVariavel),
		revenue("consultoria", "3000", "2026-03-20"),
	}

	got := ByClassification(entries, c)
	byLabel := map[string]Bucket{}
	for _, b := range got {
		byLabel[b.Label] = b
	}
	assert.True(t, byLabel[string(classify.Fixa)].Total.Equal(dec("-2150.50")))
	assert.Equal(t, 2, byLabel[string(classify.Fixa)].Count)
	assert.True(t, byLabel[string(classify.Impostos)].Total.Equal(dec("-6.85")))
	assert.True(t, byLabel[string(classify.Variavel)].Total.Equal(dec("-45")))
	assert.True(t, byLabel[string(classify.OutrasReceitas)].Total.Equal(dec("3000")))
	assert.Len(t, got, 4)

	// classifier order: Impostos precedes Fixa in the firm table
	assert.Equal(t, string(classify.Impostos), got[0].Label)
}

func TestByOwner(t *testing.T) {
	accounts := core.IndexAccounts([]core.Account{{ID: "itau", Owner: "gilberto"}})
	a := expense("a", "-100", "2026-03-01", core.RecurrenceFixa)
	a.AccountID = "itau"
	a.Owner = "lenon"
	b := expense("b", "-30", "2026-03-01", core.RecurrenceFixa)
	b.Owner = "lenon"
	c := expense("c", "-1", "2026-03-01", core.RecurrenceFixa)

	got := ByOwner([]core.Entry{a, b, c}, accounts)
	require.Len(t, got, 3)
	assert.Equal(t, "gilberto", got[0].Label)
	assert.True(t, got[0].Total.Equal(dec("-100")))
	assert.Equal(t, "lenon", got[1].Label)
	assert.True(t, got[1].Total.Equal(dec("-30")))
	assert.Equal(t, "sem-dono", got[2].Label)
}

func TestByCategory(t *testing.T) {
	a := expense("a", "-10.004", "2026-03-01", core.RecurrenceFixa)
	a.CategoryID = "aluguel"
	b := expense("b", "-0.001", "2026-03-01", core.RecurrenceFixa)
	b.CategoryID = "aluguel"

	got := ByCategory([]core.Entry{a, b})
	require.Len(t, got, 1)
	assert.True(t, got[0].Total.Equal(dec("-10.01")))
	assert.Equal(t, 2, got[0].Count)
}

func TestForecastVsSettled(t *testing.T) {
	paid := expense("paid", "-100", "2026-03-01", core.RecurrenceFixa)
	paid.Status = core.StatusPago
	virtual := expense("v-forecast-2026-03", "-40", "2026-03-31", core.RecurrencePrevisao)
	virtual.IsForecastVirtual = true
	open := revenue("r", "500", "2026-03-15")

	got := ForecastVsSettled([]core.Entry{paid, virtual, open})
	assert.True(t, got.Forecast.Equal(dec("-40")))
	assert.True(t, got.Settled.Equal(dec("-100")))
	assert.True(t, got.Pending.Equal(dec("500")))
}

func TestBreakevenAndMonthSummary(t *testing.T) {
	late := expense("late", "-20", "2026-03-02", core.RecurrenceVariavel)
	late.Status = core.StatusAtrasado
	template := core.Entry{ID: "t", Type: core.Despesa, Amount: dec("-999"), Recurrence: core.RecurrencePrevisao}

	entries := []core.Entry{
		expense("a", "-1389.66", "2026-03-03", core.RecurrenceParcelamento),
		late,
		revenue("r", "2000", "2026-03-20"),
		expense("next", "-5", "2026-04-01", core.RecurrenceFixa),
		template,
	}

	assert.True(t, Breakeven(FilterMonth(entries, month("2026-03"))).Equal(dec("1409.66")))

	s := MonthSummary(entries, month("2026-03"))
	assert.True(t, s.Income.Equal(dec("2000")))
	assert.True(t, s.Expense.Equal(dec("1409.66")))
	assert.True(t, s.Balance.Equal(dec("590.34")))
	assert.Equal(t, 3, s.Entries)
	assert.Equal(t, 1, s.Overdue)
}

func TestReserveFund(t *testing.T) {
	c := classify.ForWorkspace(core.Firm)
	entries := []core.Entry{
		expense("aluguel-03", "-2000", "2026-03-05", core.RecurrenceFixa),
		expense("internet-03", "-100", "2026-03-10", core.RecurrenceFixa),
		expense("notebook-1", "-500", "2026-03-15", core.RecurrenceParcelamento),
		expense("notebook-2", "-500", "2026-04-15", core.RecurrenceParcelamento),
		expense("aluguel-05", "-2100", "2026-05-05", core.RecurrenceFixa),
		expense("almoço", "-80", "2026-04-11", core.RecurrenceVariavel),
		revenue("r", "9000", "2026-04-01"),
		expense("antes", "-999", "2026-02-05", core.RecurrenceFixa),
	}

	got := ReserveFund(entries, c, month("2026-03"))
	require.Len(t, got.Months, 12)

	assert.True(t, got.Months[0].Total.Equal(dec("2600")))
	assert.False(t, got.Months[0].Estimated)

	// April has an installment only, so it is observed and not estimated.
	assert.True(t, got.Months[1].Fixed.Equal(decimal.Zero))
	assert.True(t, got.Months[1].Total.Equal(dec("500")))
	assert.False(t, got.Months[1].Estimated)

	assert.True(t, got.Months[2].Total.Equal(dec("2100")))

	assert.True(t, got.Months[3].Estimated)
	assert.True(t, got.Months[3].Total.Equal(dec("2100")), "carries the first month's fixed total")
	assert.Equal(t, month("2026-06"), got.Months[3].Month)

	require.Len(t, got.Targets, 4)
	assert.Equal(t, 1, got.Targets[0].Months)
	assert.True(t, got.Targets[0].Total.Equal(dec("2600")))
	assert.False(t, got.Targets[0].Estimated)
	assert.True(t, got.Targets[1].Total.Equal(dec("5200")))
	assert.False(t, got.Targets[1].Estimated)
	assert.True(t, got.Targets[2].Total.Equal(dec("11500")))
	assert.True(t, got.Targets[2].Estimated)
	assert.True(t, got.Targets[3].Total.Equal(dec("24100")))
}

func TestReserveFund_EmptyLedger(t *testing.T) {
	got := ReserveFund(nil, classify.ForWorkspace(core.Personal), month("2026-01"))
	for _, tgt := range got.Targets {
		assert.True(t, tgt.Total.IsZero())
	}
	assert.Equal(t, month("2026-12"), got.Months[11].Month)
}
