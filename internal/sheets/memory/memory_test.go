package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"financeiro/internal/core"
)

func entry(id, desc string) core.Entry {
	return core.Entry{
		ID:          core.EntryID(id),
		Description: desc,
		Amount:      decimal.RequireFromString("-10.5"),
		DueDate:     core.MustDate("2026-03-10"),
		Type:        core.Despesa,
		Status:      core.StatusPendente,
	}
}

func TestMirror_UpsertReplacesByID(t *testing.T) {
	m := New()
	ctx := context.Background()

	if _, err := m.Upsert(ctx, core.Firm, entry("a", "Luz")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if _, err := m.Upsert(ctx, core.Firm, entry("b", "Água")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	ref, err := m.Upsert(ctx, core.Firm, entry("a", "Luz corrigida"))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if ref != "mem:escritorio:1" {
		t.Errorf("ref = %q, want mem:escritorio:1", ref)
	}

	rows := m.Rows(core.Firm)
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0][2] != "Luz corrigida" {
		t.Errorf("row 1 description = %v", rows[0][2])
	}
	if rows[0][3] != "-10.50" {
		t.Errorf("row 1 amount = %v, want -10.50", rows[0][3])
	}
	if len(m.Rows(core.Personal)) != 0 {
		t.Error("personal sheet should be empty")
	}
}

func TestMirror_Remove(t *testing.T) {
	m := New()
	ctx := context.Background()
	_, _ = m.Upsert(ctx, core.Personal, entry("a", "Luz"))

	if err := m.Remove(ctx, core.Personal, "missing"); err != nil {
		t.Errorf("Remove(missing) error = %v", err)
	}
	if err := m.Remove(ctx, core.Personal, "a"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if len(m.Rows(core.Personal)) != 0 {
		t.Error("row should be removed")
	}
}

func TestMirror_UpsertWithoutID(t *testing.T) {
	if _, err := New().Upsert(context.Background(), core.Firm, entry("", "x")); err == nil {
		t.Error("expected error for missing id")
	}
}
