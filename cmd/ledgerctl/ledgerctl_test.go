package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financeiro/internal/report"
	"financeiro/internal/services"
)

const snapshotJSON = `{
  "entries": [
    {"id": "1700000000001", "description": "Aluguel", "amount": "-2000", "dueDate": "2026-03-05",
     "type": "Despesa", "status": "pendente", "recurrence": "Fixa"},
    {"id": "1700000000002", "description": "Salário", "amount": "7000", "dueDate": "2026-03-05",
     "type": "Receita", "status": "pago", "settlementDate": "2026-03-05"}
  ],
  "accounts": [{"id": "nubank", "label": "Nubank", "owner": "lenon", "type": "cartao", "dueDay": 10}],
  "invoiceData": {},
  "creditCardEntries": [
    {"id": "c1", "invoiceId": "invoice-nubank-2026-03", "description": "Mercado", "amount": "300",
     "type": "despesa", "purchaseDate": "2026-02-20", "monthOffset": 0}
  ]
}`

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestImportThenExport(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	db := filepath.Join(dir, "ledger.db")
	in := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(in, []byte(snapshotJSON), 0o600))

	common := []string{"--backend", "sqlite", "--sqlite-path", db, "-w", "pessoal", "--log-level", "error"}

	out := run(t, append(common, "import", in)...)
	assert.Contains(t, out, "2 entries, 1 accounts")
	assert.Contains(t, out, "1 card entries")

	exported := filepath.Join(dir, "export.json")
	run(t, append(common, "export", "-o", exported)...)

	raw, err := os.ReadFile(exported)
	require.NoError(t, err)
	var snap services.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Len(t, snap.Entries, 2)
	assert.Len(t, snap.Accounts, 1)
	require.Contains(t, snap.Invoices, "invoice-nubank-2026-03")
	assert.Equal(t, "300", snap.Invoices["invoice-nubank-2026-03"].Total.String())
	assert.Empty(t, snap.CardEntries)
}

func TestMonthFlag(t *testing.T) {
	m, err := monthFlag("2026-07")
	require.NoError(t, err)
	assert.Equal(t, "2026-07", m.String())

	_, err = monthFlag("julho")
	assert.Error(t, err)
}

func TestPrintForecast(t *testing.T) {
	var buf bytes.Buffer
	m, err := monthFlag("2026-03")
	require.NoError(t, err)
	require.NoError(t, printForecast(&buf, []report.Summary{
		report.MonthSummary(nil, m),
	}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "BALANCE")
	assert.Contains(t, lines[1], "2026-03")
	assert.Contains(t, lines[1], "0.00")
}
