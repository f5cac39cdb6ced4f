package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"financeiro/internal/core"
	"financeiro/internal/report"
)

func forecastCmd() *cobra.Command {
	var months int
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Print projected monthly totals",
		Long:  `Print income, expense and balance for the coming months, forecast projections and invoices included.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			summaries, err := s.ledger.Forecast(cmd.Context(), s.workspace, months)
			if err != nil {
				return err
			}
			return printForecast(cmd.OutOrStdout(), summaries)
		},
	}
	cmd.Flags().IntVarP(&months, "months", "m", 12, "number of months to project")
	return cmd
}

func reserveCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "reserve",
		Short: "Print the reserve fund projection",
		Long:  `Print committed fixed and installment expense per month and the cumulative reserve needed for 1, 3, 6 and 12 months.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			month, err := monthFlag(from)
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rep, err := s.ledger.Report(cmd.Context(), s.workspace, month)
			if err != nil {
				return err
			}
			return printReserve(cmd.OutOrStdout(), rep.Reserve)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first month, YYYY-MM (default: current month)")
	return cmd
}

func classifyCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Print the month's entries with their classification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ym, err := monthFlag(month)
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.ledger.MonthEntries(cmd.Context(), s.workspace, ym)
			if err != nil {
				return err
			}
			rep, err := s.ledger.Report(cmd.Context(), s.workspace, ym)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DUE\tDESCRIPTION\tAMOUNT\tSTATUS\tLABEL")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.DueDate, e.Description, e.Amount.StringFixed(2), e.Status, e.Label)
			}
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "LABEL\tENTRIES\tTOTAL")
			for _, b := range rep.ByClassification {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", b.Label, b.Count, b.Total.StringFixed(2))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month, YYYY-MM (default: current month)")
	return cmd
}

// monthFlag parses a YYYY-MM flag, defaulting to the current month.
func monthFlag(v string) (core.YearMonth, error) {
	if v == "" {
		return core.MonthOf(time.Now()), nil
	}
	return core.ParseYearMonth(v)
}

func printForecast(w io.Writer, summaries []report.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "MONTH\tINCOME\tEXPENSE\tBALANCE\tENTRIES\t")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t\n", s.Month, s.Income.StringFixed(2), s.Expense.StringFixed(2), s.Balance.StringFixed(2), s.Entries)
	}
	return tw.Flush()
}

func printReserve(w io.Writer, r report.Reserve) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "MONTH\tFIXED\tINSTALLMENTS\tTOTAL\t\t")
	for _, m := range r.Months {
		mark := ""
		if m.Estimated {
			mark = "estimated"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", m.Month, m.Fixed.StringFixed(2), m.Installments.StringFixed(2), m.Total.StringFixed(2), mark)
	}
	fmt.Fprintln(tw, "\t\t\t\t\t")
	fmt.Fprintln(tw, "HORIZON\t\t\tRESERVE\t\t")
	for _, t := range r.Targets {
		fmt.Fprintf(tw, "%d months\t\t\t%s\t\t\n", t.Months, t.Total.StringFixed(2))
	}
	return tw.Flush()
}
