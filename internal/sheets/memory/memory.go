package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"financeiro/internal/core"
	"financeiro/internal/sheets"
)

var _ sheets.EntryMirror = (*Mirror)(nil)

// Mirror keeps mirrored rows in memory, one ordered sheet per workspace.
// It backs the worker when no spreadsheet is configured, and tests.
type Mirror struct {
	mu     sync.Mutex
	sheets map[string][]row
}

type row struct {
	id     core.EntryID
	values []any
}

func New() *Mirror {
	return &Mirror{sheets: map[string][]row{}}
}

// Upsert replaces the row with the entry id or appends one.
func (m *Mirror) Upsert(_ context.Context, ws core.Workspace, e core.Entry) (string, error) {
	if e.ID == "" {
		return "", fmt.Errorf("upsert row: missing entry id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.sheets[ws.ID]
	values := sheets.Row(e)
	if i := indexOf(rows, e.ID); i >= 0 {
		rows[i].values = values
		return fmt.Sprintf("mem:%s:%d", ws.ID, i+1), nil
	}
	m.sheets[ws.ID] = append(rows, row{id: e.ID, values: values})
	return fmt.Sprintf("mem:%s:%d", ws.ID, len(rows)+1), nil
}

// Remove drops the row of id, if any.
func (m *Mirror) Remove(_ context.Context, ws core.Workspace, id core.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.sheets[ws.ID]
	if i := indexOf(rows, id); i >= 0 {
		m.sheets[ws.ID] = slices.Delete(rows, i, i+1)
	}
	return nil
}

// Rows returns a copy of a workspace's rows in insertion order.
func (m *Mirror) Rows(ws core.Workspace) [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]any, 0, len(m.sheets[ws.ID]))
	for _, r := range m.sheets[ws.ID] {
		out = append(out, slices.Clone(r.values))
	}
	return out
}

func indexOf(rows []row, id core.EntryID) int {
	return slices.IndexFunc(rows, func(r row) bool { return r.id == id })
}
