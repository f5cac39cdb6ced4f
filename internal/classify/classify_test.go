package classify

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"financeiro/internal/core"
)

func expense(desc, category string) core.Entry {
	return core.Entry{Description: desc, CategoryID: category, Type: core.Despesa, Amount: decimal.NewFromInt(-100)}
}

func revenue(desc, category, captador string) core.Entry {
	return core.Entry{Description: desc, CategoryID: category, Captador: captador, Type: core.Receita, Amount: decimal.NewFromInt(100)}
}

func TestFirmExpenseClassification(t *testing.T) {
	c := ForWorkspace(core.Firm)

	split := expense("Repasse Dra. Ana", "repasse")
	split.RateioID, split.RateioLevel, split.RateioMasterID = "r1", 2, "m1"

	splitRetirada := split
	splitRetirada.CategoryID = "retirada-socio"

	installment := expense("Notebook (Parcela 2/10)", "equipamentos")

	tests := []struct {
		name  string
		entry core.Entry
		want  Label
	}{
		{"iof abroad is a tax", core.Entry{CategoryID: "impostos", Description: "IOF Operação Exterior", Amount: decimal.RequireFromString("-6.85"), Type: core.Despesa}, Impostos},
		{"gilberto withdrawal", expense("Retirada GILBERTO março", "retirada-socio"), RetiradaGilberto},
		{"split under partner withdrawal", splitRetirada, RetiradaGilberto},
		{"pro-labore by name", expense("Retirada Lenon", "retirada-socio"), ProLabore},
		{"pro-labore by word", expense("PRÓ-LABORE", "retirada-socio"), ProLabore},
		{"plain partner split", split, RepasseParceiros},
		{"oab annuity by description", expense("Anuidade OAB 2026", "servicos"), Impostos},
		{"simples by category", expense("DAS", "simples-nacional"), Impostos},
		{"installment recurrence", core.Entry{Description: "Cadeiras", Recurrence: core.RecurrenceParcelamento, Type: core.Despesa}, Parcelamento},
		{"installment suffix", installment, Parcelamento},
		{"fixed", core.Entry{Description: "Aluguel", Recurrence: core.RecurrenceFixa, Type: core.Despesa}, Fixa},
		{"fixed annual", core.Entry{Description: "Seguro", Recurrence: core.RecurrenceFixaAnual, Type: core.Despesa}, Fixa},
		{"default", expense("Café", "alimentacao"), Variavel},
		{"retirada without a known name", expense("Retirada", "retirada-socio"), Variavel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ClassifyEntry(tt.entry))
			assert.Equal(t, tt.want, c.Classify(tt.entry))
		})
	}
}

func TestFirmRevenueClassification(t *testing.T) {
	c := ForWorkspace(core.Firm)

	tests := []struct {
		name  string
		entry core.Entry
		want  Label
	}{
		{"aliquota gilberto", revenue("Alíquota Gilberto - ref. 03", "", ""), ImpostosGilberto},
		{"retirada gilberto refund", revenue("Devolução Gilberto", "retirada-socio", ""), ImpostosGilberto},
		{"bank loan", revenue("Crédito", "emprestimo-bancario", ""), Emprestimo},
		{"working capital", revenue("Capital de giro Itaú", "", ""), Emprestimo},
		{"partner contribution", revenue("Aporte Lenon", "", ""), AporteSocio},
		{"fees default captador", revenue("Honorários processo 123", "", ""), HonorariosLenon},
		{"fees gilberto", revenue("Êxito", "honorarios", "Gilberto"), HonorariosGilberto},
		{"fees lenon", revenue("Êxito", "honorarios", "lenon"), HonorariosLenon},
		{"other", revenue("Rendimento CDB", "rendimentos", ""), OutrasReceitas},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ClassifyReceita(tt.entry))
			assert.Equal(t, tt.want, c.Classify(tt.entry))
		})
	}
}

func TestPersonalClassification(t *testing.T) {
	c := ForWorkspace(core.Personal)

	assert.Equal(t, Variavel, c.Classify(expense("Retirada Gilberto", "retirada-socio")))
	assert.Equal(t, Fixa, c.Classify(core.Entry{Description: "Condomínio", Recurrence: core.RecurrenceFixa, Type: core.Despesa}))
	assert.Equal(t, Parcelamento, c.Classify(expense("TV (Parcela 1/12)", "")))

	assert.Equal(t, Salario, c.Classify(revenue("Salário", "salario", "")))
	assert.Equal(t, Rendimentos, c.Classify(revenue("CDB", "investimentos", "")))
	assert.Equal(t, Reembolsos, c.Classify(revenue("Reembolso plano", "reembolso", "")))
	assert.Equal(t, OutrasReceitas, c.Classify(revenue("Honorários", "", "")))

	assert.Len(t, c.Expense.Labels(), 3)
	assert.Len(t, c.Revenue.Labels(), 6)
}

func TestClassificationIsTotal(t *testing.T) {
	categories := []string{"", "impostos", "retirada-socio", "honorarios", "aporte-socio", "capital-giro", "salario", "x"}
	descriptions := []string{"", "gilberto", "Lenon", "OAB", "(Parcela 1/2)", "alíquota gilberto", "empréstimo", "contribuição", "honorários"}
	recurrences := []core.Recurrence{"", core.RecurrenceFixa, core.RecurrenceFixaAnual, core.RecurrenceParcelamento, core.RecurrencePrevisao, core.RecurrenceNone}
	types := []core.EntryType{core.Despesa, core.Receita, core.Reserva, ""}

	rng := rand.New(rand.NewSource(42))
	for _, ws := range core.Workspaces() {
		c := ForWorkspace(ws)
		labels := c.Labels()
		for i := 0; i < 500; i++ {
			e := core.Entry{
				ID:          core.EntryID(fmt.Sprint(i)),
				CategoryID:  categories[rng.Intn(len(categories))],
				Description: descriptions[rng.Intn(len(descriptions))],
				Recurrence:  recurrences[rng.Intn(len(recurrences))],
				Type:        types[rng.Intn(len(types))],
				Captador:    []string{"", "gilberto", "lenon"}[rng.Intn(3)],
			}
			if rng.Intn(4) == 0 {
				e.RateioID, e.RateioLevel, e.RateioMasterID = "r", 2, "m"
			}
			got := c.Classify(e)
			assert.NotEmpty(t, got)
			assert.True(t, slices.Contains(labels, got), "%s: label %q not in %v", ws.ID, got, labels)
		}
	}
}
