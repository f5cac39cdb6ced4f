package store_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financeiro/internal/core"
	"financeiro/internal/store"
	"financeiro/internal/store/memory"
)

func TestRepository_WorkspaceNamespaces(t *testing.T) {
	ctx := context.Background()
	docs := memory.New()
	firm := store.NewRepository(docs, core.Firm)
	personal := store.NewRepository(docs, core.Personal)

	e := core.Entry{
		ID:          "1",
		Description: "Aluguel",
		Amount:      decimal.RequireFromString("-2000"),
		DueDate:     core.MustDate("2026-03-05"),
		Type:        core.Despesa,
		Status:      core.StatusPendente,
		Recurrence:  core.RecurrenceFixa,
	}
	require.NoError(t, personal.SaveEntry(ctx, e))

	firmEntries, err := firm.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, firmEntries)

	personalEntries, err := personal.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, personalEntries, 1)
	assert.True(t, personalEntries[0].Amount.Equal(e.Amount))

	_, err = docs.Get(ctx, "personal_entries", "1")
	assert.NoError(t, err)
}

func TestRepository_RejectsDerivedEntries(t *testing.T) {
	repo := store.NewRepository(memory.New(), core.Firm)
	err := repo.SaveEntry(context.Background(), core.Entry{ID: "x-forecast-2026-01", IsForecastVirtual: true})
	assert.Error(t, err)
	err = repo.SaveEntry(context.Background(), core.Entry{ID: "invoice-nu-2026-01", IsInvoice: true})
	assert.Error(t, err)
	err = repo.SaveEntry(context.Background(), core.Entry{})
	assert.ErrorIs(t, err, store.ErrMissingID)
}

func TestRepository_SettingsDefaults(t *testing.T) {
	ctx := context.Background()
	repo := store.NewRepository(memory.New(), core.Firm)

	data, err := repo.InvoiceData(ctx)
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)

	cats, err := repo.Categories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)

	require.NoError(t, repo.SaveCategories(ctx, []core.Category{{ID: "impostos", Label: "Impostos", Type: core.Despesa}}))
	cats, err = repo.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "impostos", cats[0].ID)

	data["invoice-nubank-2026-03"] = core.Invoice{Total: decimal.RequireFromString("10.5")}
	require.NoError(t, repo.SaveInvoiceData(ctx, data))
	got, err := repo.InvoiceData(ctx)
	require.NoError(t, err)
	assert.True(t, got["invoice-nubank-2026-03"].Total.Equal(decimal.RequireFromString("10.5")))
}

func TestRepository_SkipsMalformedAndFillsIDs(t *testing.T) {
	ctx := context.Background()
	docs := memory.New()
	require.NoError(t, docs.Set(ctx, "entries", "1732000000000", []byte(`{"description":"sem id","amount":-5,"type":"Despesa","status":"pendente"}`)))
	require.NoError(t, docs.Set(ctx, "entries", "bad", []byte(`{"amount":"muito"}`)))
	require.NoError(t, docs.Set(ctx, "accounts", "itau", []byte(`{"label":"Itaú","owner":"gilberto","type":"banco"}`)))

	repo := store.NewRepository(docs, core.Firm)
	entries, err := repo.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, core.EntryID("1732000000000"), entries[0].ID)

	accounts, err := repo.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "itau", accounts[0].ID)

	_, err = repo.Entry(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRepository_KeepsDocumentsWithMalformedDates(t *testing.T) {
	ctx := context.Background()
	docs := memory.New()
	require.NoError(t, docs.Set(ctx, "entries", "1", []byte(`{"id":"1","description":"Aluguel","amount":"-2000","dueDate":"2026-03-05","type":"Despesa","status":"pendente"}`)))
	require.NoError(t, docs.Set(ctx, "entries", "2", []byte(`{"id":"2","description":"Luz","amount":"-180.4","dueDate":"05/03/2026","settlementDate":"2026-03-04","type":"Despesa","status":"pago"}`)))
	require.NoError(t, docs.Set(ctx, "settings", "invoiceData", []byte(`{"invoice-nubank-2026-03":{"items":[
		{"description":"Mercado","amount":"40","type":"despesa","purchaseDate":"ontem","monthOffset":0}],"total":"40"}}`)))

	repo := store.NewRepository(docs, core.Firm)
	entries, err := repo.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var luz core.Entry
	for _, e := range entries {
		if e.ID == "2" {
			luz = e
		}
	}
	assert.Equal(t, "Luz", luz.Description)
	assert.True(t, luz.DueDate.IsEmpty())
	assert.Equal(t, "2026-03-04", luz.SettlementDate.String())
	assert.True(t, luz.Amount.Equal(decimal.RequireFromString("-180.4")))

	one, err := repo.Entry(ctx, "2")
	require.NoError(t, err)
	assert.True(t, one.DueDate.IsEmpty())

	data, err := repo.InvoiceData(ctx)
	require.NoError(t, err)
	require.Len(t, data["invoice-nubank-2026-03"].Items, 1)
	assert.True(t, data["invoice-nubank-2026-03"].Items[0].PurchaseDate.IsEmpty())
}
