// Package classify maps ledger entries to the bucket labels shown on the
// dashboard. Each workspace has its own rule table; tables are plain data
// evaluated in order, first match wins.
package classify

import (
	"slices"
	"strings"

	"financeiro/internal/core"
)

// Label is a classification bucket.
type Label string

// Condition holds constraints that must all hold. Empty fields do not
// constrain.
type Condition struct {
	Categories  []string
	Recurrences []core.Recurrence
	// DescriptionAll requires every substring, DescriptionAny at least one.
	DescriptionAll []string
	DescriptionAny []string
	RateioSplit    bool
	// InstallmentLabel requires the "(Parcela i/N)" description suffix.
	InstallmentLabel bool
}

// Rule assigns Label when any of its conditions holds.
type Rule struct {
	Label Label
	Any   []Condition
	// ByCaptador refines the label by the captador field.
	ByCaptador map[string]Label
}

// Table is an ordered rule list with a default label.
type Table struct {
	Rules   []Rule
	Default Label
}

// Classifier holds the expense and revenue tables of one workspace.
type Classifier struct {
	Workspace core.Workspace
	Expense   Table
	Revenue   Table
}

// ForWorkspace returns the classifier for the workspace.
func ForWorkspace(ws core.Workspace) *Classifier {
	if ws.Personal {
		return &Classifier{Workspace: ws, Expense: PersonalExpenseTable, Revenue: PersonalRevenueTable}
	}
	return &Classifier{Workspace: ws, Expense: FirmExpenseTable, Revenue: FirmRevenueTable}
}

// Classify dispatches on the entry type: Receita uses the revenue table,
// everything else the expense table.
func (c *Classifier) Classify(e core.Entry) Label {
	if e.Type == core.Receita {
		return c.ClassifyReceita(e)
	}
	return c.ClassifyEntry(e)
}

// ClassifyEntry evaluates the expense table.
func (c *Classifier) ClassifyEntry(e core.Entry) Label {
	return c.Expense.Evaluate(e)
}

// ClassifyReceita evaluates the revenue table.
func (c *Classifier) ClassifyReceita(e core.Entry) Label {
	return c.Revenue.Evaluate(e)
}

// Labels lists every label the classifier can return, expense first.
func (c *Classifier) Labels() []Label {
	var out []Label
	for _, t := range []Table{c.Expense, c.Revenue} {
		for _, l := range t.Labels() {
			if !slices.Contains(out, l) {
				out = append(out, l)
			}
		}
	}
	return out
}

// Evaluate returns the label of the first matching rule, or the default.
func (t Table) Evaluate(e core.Entry) Label {
	f := newFacts(e)
	for _, r := range t.Rules {
		if r.matches(f) {
			return r.resolve(f)
		}
	}
	return t.Default
}

// Labels lists the labels the table can produce.
func (t Table) Labels() []Label {
	var out []Label
	add := func(l Label) {
		if !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	for _, r := range t.Rules {
		add(r.Label)
		for _, l := range sortedCaptadorLabels(r.ByCaptador) {
			add(l)
		}
	}
	add(t.Default)
	return out
}

func sortedCaptadorLabels(m map[string]Label) []Label {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]Label, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// facts are the normalized fields conditions look at.
type facts struct {
	entry       core.Entry
	description string
	category    string
	captador    string
}

func newFacts(e core.Entry) facts {
	return facts{
		entry:       e,
		description: strings.ToLower(e.Description),
		category:    strings.ToLower(strings.TrimSpace(e.CategoryID)),
		captador:    strings.ToLower(strings.TrimSpace(e.Captador)),
	}
}

func (r Rule) matches(f facts) bool {
	for _, c := range r.Any {
		if c.holds(f) {
			return true
		}
	}
	return false
}

func (r Rule) resolve(f facts) Label {
	if l, ok := r.ByCaptador[f.captador]; ok {
		return l
	}
	return r.Label
}

func (c Condition) holds(f facts) bool {
	if len(c.Categories) > 0 && !slices.Contains(c.Categories, f.category) {
		return false
	}
	if len(c.Recurrences) > 0 && !slices.Contains(c.Recurrences, f.entry.Recurrence) {
		return false
	}
	for _, s := range c.DescriptionAll {
		if !strings.Contains(f.description, s) {
			return false
		}
	}
	if len(c.DescriptionAny) > 0 && !containsAny(f.description, c.DescriptionAny) {
		return false
	}
	if c.RateioSplit && f.entry.Kind() != core.KindRateioSplit {
		return false
	}
	if c.InstallmentLabel && !f.entry.HasInstallmentSuffix() {
		return false
	}
	return true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
