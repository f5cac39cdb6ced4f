package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financeiro/internal/core"
	"financeiro/internal/store"
)

func TestImportExport_RoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	snap := Snapshot{
		Entries: []core.Entry{
			{ID: "1700000000000", Description: "Aluguel", Amount: amount("-2000"), DueDate: core.MustDate("2026-03-05"),
				Type: core.Despesa, Status: core.StatusPendente, Recurrence: core.RecurrenceFixa},
			{Description: "Honorários", Amount: amount("5000"), DueDate: core.MustDate("2026-03-20"),
				Type: core.Receita, Status: core.StatusPendente},
			{ID: "bad", Description: "", Amount: amount("-1"), DueDate: core.MustDate("2026-03-01"),
				Type: core.Despesa, Status: core.StatusPendente},
		},
		Accounts:   []core.Account{{ID: "nubank", Label: "Nubank", Owner: "lenon", Type: core.AccountCartao, DueDay: 10}},
		Categories: []core.Category{{ID: "impostos", Label: "Impostos", Type: core.Despesa}},
		Invoices: core.InvoiceData{
			"invoice-nubank-2026-03": {Items: []core.InvoiceItem{
				{PurchaseDate: core.MustDate("2026-02-10"), Description: "Mercado", Amount: amount("200"), Type: core.ItemDespesa},
			}, Total: amount("200")},
		},
		CardEntries: []core.CardEntry{{
			ID:        "c1",
			InvoiceID: "invoice-nubank-2026-03",
			InvoiceItem: core.InvoiceItem{
				PurchaseDate: core.MustDate("2026-02-12"), Description: "Farmácia", Amount: amount("50"), Type: core.ItemDespesa,
			},
		}},
	}

	res, err := svc.Import(ctx, core.Personal, snap)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Entries)
	assert.Equal(t, 1, res.Accounts)
	assert.Equal(t, 1, res.Categories)
	assert.Equal(t, 1, res.Invoices)
	assert.Equal(t, 1, res.CardEntries)
	require.Contains(t, res.Rejected, core.EntryID("bad"))

	out, err := svc.Export(ctx, core.Personal)
	require.NoError(t, err)
	assert.Len(t, out.Entries, 2)
	assert.Len(t, out.Accounts, 1)
	assert.Equal(t, snap.Categories, out.Categories)
	inv := out.Invoices["invoice-nubank-2026-03"]
	assert.Len(t, inv.Items, 2)
	assert.True(t, inv.Total.Equal(amount("250")))

	firm, err := svc.Export(ctx, core.Firm)
	require.NoError(t, err)
	assert.Empty(t, firm.Entries)
}

func TestImport_RejectsBadInvoiceID(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Import(context.Background(), core.Firm, Snapshot{
		Invoices: core.InvoiceData{"nubank-2026-03": {}},
	})
	assert.ErrorIs(t, err, core.ErrInvalidInvoiceID)
}

func TestMigrateCardEntries_FromStoredCollection(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	doc := []byte(`{"invoiceId":"invoice-inter-2026-04","description":"Livro","amount":"90","type":"despesa","purchaseDate":"2026-03-28","monthOffset":0}`)
	require.NoError(t, svc.docs.Set(ctx, core.Firm.Collection(core.CollectionCardItems), "c9", doc))

	res, err := svc.MigrateCardEntries(ctx, core.Firm)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Migrated)

	data, err := store.NewRepository(svc.docs, core.Firm).InvoiceData(ctx)
	require.NoError(t, err)
	assert.True(t, data["invoice-inter-2026-04"].Total.Equal(amount("90")))

	res, err = svc.MigrateCardEntries(ctx, core.Firm)
	require.NoError(t, err)
	assert.Zero(t, res.Migrated)
}

func TestForecast_ProjectsTemplates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateEntry(ctx, core.Firm, core.Entry{
		Description:        "Energia",
		Amount:             amount("300"),
		Type:               core.Despesa,
		Recurrence:         core.RecurrencePrevisao,
		ForecastFrequency:  core.Mensal,
		ForecastStartMonth: "2026-01",
	})
	require.NoError(t, err)

	months, err := svc.Forecast(ctx, core.Firm, 3)
	require.NoError(t, err)
	require.Len(t, months, 3)
	assert.Equal(t, "2026-03", months[0].Month.String())
	assert.Equal(t, "2026-05", months[2].Month.String())
	for _, m := range months {
		assert.True(t, m.Expense.Equal(amount("300")), "%s: %s", m.Month, m.Expense)
	}
}
