package classify

import "financeiro/internal/core"

// Firm workspace labels.
const (
	RetiradaGilberto   Label = "Retirada Gilberto"
	ProLabore          Label = "Pró-labore"
	RepasseParceiros   Label = "Repasse Parceiros"
	Impostos           Label = "Impostos"
	Parcelamento       Label = "Parcelamento"
	Fixa               Label = "Fixa"
	Variavel           Label = "Variável"
	ImpostosGilberto   Label = "Impostos Gilberto"
	Emprestimo         Label = "Empréstimo"
	AporteSocio        Label = "Aporte de Sócio"
	HonorariosLenon    Label = "Honorários Lenon"
	HonorariosGilberto Label = "Honorários Gilberto"
	OutrasReceitas     Label = "Outras Receitas"
)

// Personal workspace revenue labels.
const (
	Salario            Label = "Salário"
	ProLaboreRecebido  Label = "Pró-labore Recebido"
	DistribuicaoLucros Label = "Distribuição de Lucros"
	Rendimentos        Label = "Rendimentos"
	Reembolsos         Label = "Reembolsos"
)

var (
	parcelamentoRule = Rule{
		Label: Parcelamento,
		Any: []Condition{
			{Recurrences: []core.Recurrence{core.RecurrenceParcelamento}},
			{InstallmentLabel: true},
		},
	}
	fixaRule = Rule{
		Label: Fixa,
		Any: []Condition{
			{Recurrences: []core.Recurrence{core.RecurrenceFixa, core.RecurrenceFixaAnual}},
		},
	}
)

// FirmExpenseTable classifies firm expenses.
var FirmExpenseTable = Table{
	Rules: []Rule{
		{
			Label: RetiradaGilberto,
			Any: []Condition{
				{Categories: []string{"retirada-socio"}, DescriptionAny: []string{"gilberto"}},
				{Categories: []string{"retirada-socio"}, RateioSplit: true},
			},
		},
		{
			Label: ProLabore,
			Any: []Condition{
				{Categories: []string{"retirada-socio"}, DescriptionAny: []string{"lenon", "pró-labore"}},
			},
		},
		{
			Label: RepasseParceiros,
			Any:   []Condition{{RateioSplit: true}},
		},
		{
			Label: Impostos,
			Any: []Condition{
				{Categories: []string{"impostos", "simples-nacional", "anuidade-oab"}},
				{DescriptionAny: []string{"simples nacional", "oab"}},
			},
		},
		parcelamentoRule,
		fixaRule,
	},
	Default: Variavel,
}

// FirmRevenueTable classifies firm revenue.
var FirmRevenueTable = Table{
	Rules: []Rule{
		{
			Label: ImpostosGilberto,
			Any: []Condition{
				{DescriptionAll: []string{"alíquota", "gilberto"}},
				{Categories: []string{"retirada-socio"}, DescriptionAny: []string{"gilberto"}},
			},
		},
		{
			Label: Emprestimo,
			Any: []Condition{
				{Categories: []string{"emprestimo-bancario", "capital-giro"}},
				{DescriptionAny: []string{"capital de giro", "empréstimo"}},
			},
		},
		{
			Label: AporteSocio,
			Any: []Condition{
				{Categories: []string{"aporte-socio", "contribuicao-socio"}},
				{DescriptionAny: []string{"aporte", "contribuição"}},
			},
		},
		{
			Label: HonorariosLenon,
			Any: []Condition{
				{Categories: []string{"honorarios"}},
				{DescriptionAny: []string{"honorários"}},
			},
			ByCaptador: map[string]Label{"gilberto": HonorariosGilberto},
		},
	},
	Default: OutrasReceitas,
}

// PersonalExpenseTable classifies personal expenses.
var PersonalExpenseTable = Table{
	Rules:   []Rule{parcelamentoRule, fixaRule},
	Default: Variavel,
}

// PersonalRevenueTable classifies personal revenue by category only.
var PersonalRevenueTable = Table{
	Rules: []Rule{
		{Label: Salario, Any: []Condition{{Categories: []string{"salario"}}}},
		{Label: ProLaboreRecebido, Any: []Condition{{Categories: []string{"pro-labore", "retirada-socio"}}}},
		{Label: DistribuicaoLucros, Any: []Condition{{Categories: []string{"distribuicao-lucros"}}}},
		{Label: Rendimentos, Any: []Condition{{Categories: []string{"rendimentos", "investimentos"}}}},
		{Label: Reembolsos, Any: []Condition{{Categories: []string{"reembolso"}}}},
	},
	Default: OutrasReceitas,
}
