package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"financeiro/internal/log"
	"financeiro/internal/services"
)

func importCmd() *cobra.Command {
	var migrateStored bool
	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Load a workspace snapshot into the store",
		Long: `Load entries, accounts, categories and invoiceData from a snapshot file
into the selected workspace. Documents are upserted by id. Entries of
the older creditCardEntries list are folded into their invoices.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.ledger.Import(cmd.Context(), s.workspace, snap)
			if err != nil {
				return err
			}
			for id, reason := range res.Rejected {
				logger.Warn("Entry rejected", log.FieldEntryID, id, log.FieldError, reason)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported into %s: %d entries, %d accounts, %d categories, %d invoices, %d card entries (%d rejected)\n",
				s.workspace, res.Entries, res.Accounts, res.Categories, res.Invoices, res.CardEntries, len(res.Rejected))

			if migrateStored {
				m, err := s.ledger.MigrateCardEntries(cmd.Context(), s.workspace)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrated %d stored card entries (%d skipped)\n", m.Migrated, len(m.Skipped))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrateStored, "migrate-stored", false, "also fold the stored creditCardEntries collection into invoices")
	return cmd
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the workspace as a snapshot",
		Long:  `Write the stored documents of the selected workspace as a JSON snapshot that import accepts.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			snap, err := s.ledger.Export(cmd.Context(), s.workspace)
			if err != nil {
				return err
			}

			w, err := output(out)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(snap); err != nil {
				_ = w.Close()
				return fmt.Errorf("encode snapshot: %w", err)
			}
			if err := w.Close(); err != nil {
				return err
			}
			logger.Info("Snapshot exported",
				log.FieldWorkspace, s.workspace.ID,
				log.FieldCount, len(snap.Entries))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func migrateCardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-cards",
		Short: "Fold stored creditCardEntries into invoiceData",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.ledger.MigrateCardEntries(cmd.Context(), s.workspace)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d card entries into %d invoices (%d skipped)\n",
				res.Migrated, len(res.Touched), len(res.Skipped))
			return nil
		},
	}
}

func readSnapshot(path string) (services.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return services.Snapshot{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	var snap services.Snapshot
	dec := json.NewDecoder(f)
	if err := dec.Decode(&snap); err != nil {
		return services.Snapshot{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return snap, nil
}
