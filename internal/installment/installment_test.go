package installment

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financeiro/internal/core"
)

func sequentialIDs() func() core.EntryID {
	n := 0
	return func() core.EntryID {
		n++
		return core.EntryID(fmt.Sprintf("id-%d", n))
	}
}

func TestGenerate_CrossesYearBoundary(t *testing.T) {
	plan, err := Generate(decimal.RequireFromString("6000"), 6, core.MustDate("2025-11-03"), core.Despesa)
	require.NoError(t, err)
	require.Len(t, plan.Rows, 6)

	want := []string{"2025-11-03", "2025-12-03", "2026-01-03", "2026-02-03", "2026-03-03", "2026-04-03"}
	for i, r := range plan.Rows {
		assert.Equal(t, want[i], r.DueDate.String())
		assert.True(t, r.Amount.Equal(decimal.NewFromInt(-1000)))
		assert.Equal(t, core.StatusPendente, r.Status)
	}
	assert.Equal(t, "(Parcela 6/6)", plan.Rows[5].Label())
}

func TestGenerate_ThreeInstallmentsExample(t *testing.T) {
	plan, err := Generate(decimal.RequireFromString("4168.98"), 3, core.MustDate("2026-02-03"), core.Despesa)
	require.NoError(t, err)

	entries := plan.Entries(core.Entry{Description: "Contador", Type: core.Despesa}, "g1", sequentialIDs())
	require.Len(t, entries, 3)
	for i, want := range []string{"2026-02-03", "2026-03-03", "2026-04-03"} {
		assert.Equal(t, want, entries[i].DueDate.String())
		assert.True(t, entries[i].Amount.Equal(decimal.RequireFromString("-1389.66")), entries[i].Amount.String())
		assert.Equal(t, core.RecurrenceParcelamento, entries[i].Recurrence)
		assert.Equal(t, "g1", entries[i].InstallmentGroupID)
		assert.Equal(t, 3, entries[i].InstallmentTotal)
	}
	assert.Equal(t, "Contador (Parcela 1/3)", entries[0].Description)
	assert.Equal(t, core.EntryID("id-3"), entries[2].ID)
}

func TestGenerate_DayClamping(t *testing.T) {
	plan, err := Generate(decimal.NewFromInt(300), 3, core.MustDate("2026-01-31"), core.Receita)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-28", plan.Rows[1].DueDate.String())
	assert.Equal(t, "2026-03-31", plan.Rows[2].DueDate.String())
	assert.True(t, plan.Rows[0].Amount.IsPositive())
}

func TestGenerate_RejectsSmallCounts(t *testing.T) {
	for _, n := range []int{-1, 0, 1} {
		_, err := Generate(decimal.NewFromInt(100), n, core.MustDate("2026-01-01"), core.Despesa)
		assert.ErrorIs(t, err, ErrInvalidCount)
	}
	_, err := Generate(decimal.NewFromInt(100), 2, core.Date{}, core.Despesa)
	assert.ErrorIs(t, err, ErrMissingDate)
}

func TestGenerate_SumInvariant(t *testing.T) {
	totals := []string{"100", "0.01", "1389.66", "999.99", "12345.67", "7"}
	for _, total := range totals {
		for count := 2; count <= 48; count++ {
			tot := decimal.RequireFromString(total)
			plan, err := Generate(tot, count, core.MustDate("2025-01-15"), core.Despesa)
			require.NoError(t, err)

			entries := plan.Entries(core.Entry{Description: "x"}, "g", sequentialIDs())
			rounded := decimal.Zero
			for _, e := range entries {
				rounded = rounded.Add(e.Amount)
			}
			tolerance := decimal.NewFromFloat(0.01).Mul(decimal.NewFromInt(int64(count)))
			diff := rounded.Sub(tot.Neg()).Abs()
			assert.True(t, diff.LessThanOrEqual(tolerance), "total %s count %d: diff %s", total, count, diff)
		}
	}
}

func TestPlanEdit_DoesNotShiftOtherRows(t *testing.T) {
	plan, err := Generate(decimal.NewFromInt(1200), 4, core.MustDate("2026-05-10"), core.Despesa)
	require.NoError(t, err)

	amount := decimal.NewFromInt(-500)
	date := core.MustDate("2026-06-20")
	paid := core.StatusPago
	edited, err := plan.Edit(1, RowPatch{Amount: &amount, DueDate: &date, Status: &paid})
	require.NoError(t, err)

	require.Len(t, edited.Rows, 4)
	assert.True(t, edited.Rows[1].Amount.Equal(amount))
	assert.Equal(t, "2026-06-20", edited.Rows[1].DueDate.String())
	assert.Equal(t, core.StatusPago, edited.Rows[1].Status)
	for _, i := range []int{0, 2, 3} {
		assert.Equal(t, plan.Rows[i], edited.Rows[i])
	}
	assert.Equal(t, "2026-06-10", plan.Rows[1].DueDate.String(), "original plan must not change")

	_, err = plan.Edit(4, RowPatch{})
	assert.ErrorIs(t, err, ErrInvalidRow)
}

func TestPlanWithFirstStatus(t *testing.T) {
	plan, err := Generate(decimal.NewFromInt(100), 2, core.MustDate("2026-05-10"), core.Despesa)
	require.NoError(t, err)

	paid := plan.WithFirstStatus(core.StatusPago)
	assert.Equal(t, core.StatusPago, paid.Rows[0].Status)
	assert.Equal(t, core.StatusPendente, paid.Rows[1].Status)
	assert.Equal(t, core.StatusPendente, plan.Rows[0].Status)

	entries := paid.Entries(core.Entry{Description: "x"}, "g", sequentialIDs())
	assert.Equal(t, "2026-05-10", entries[0].SettlementDate.String())
	assert.True(t, entries[1].SettlementDate.IsEmpty())
}
