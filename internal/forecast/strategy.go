// Package forecast expands Previsão templates into virtual monthly entries.
//
// This file holds the frequency strategies: each forecast frequency knows
// how to turn the template amount into a monthly figure.
package forecast

import (
	"fmt"

	"github.com/shopspring/decimal"

	"financeiro/internal/core"
)

// MonthlyConverter is the strategy interface for turning a template
// amount into the amount projected for one month.
type MonthlyConverter interface {
	// Monthly receives the unsigned template amount.
	Monthly(amount decimal.Decimal) decimal.Decimal
}

// WeeklyConverter counts four weeks per month.
type WeeklyConverter struct{}

func (WeeklyConverter) Monthly(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(4))
}

// MonthlyAsIs keeps the amount.
type MonthlyAsIs struct{}

func (MonthlyAsIs) Monthly(amount decimal.Decimal) decimal.Decimal {
	return amount
}

// AnnualConverter spreads the amount over twelve months.
type AnnualConverter struct{}

func (AnnualConverter) Monthly(amount decimal.Decimal) decimal.Decimal {
	return amount.Div(decimal.NewFromInt(12))
}

var converters = map[core.Frequency]MonthlyConverter{
	core.Semanal: WeeklyConverter{},
	core.Mensal:  MonthlyAsIs{},
	core.Anual:   AnnualConverter{},
}

// GetConverter returns the converter for a frequency. An empty frequency
// means monthly.
func GetConverter(frequency core.Frequency) (MonthlyConverter, error) {
	if frequency == "" {
		return MonthlyAsIs{}, nil
	}
	c, ok := converters[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown forecast frequency: %s", frequency)
	}
	return c, nil
}
