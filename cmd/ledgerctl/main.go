// Command ledgerctl runs maintenance tasks against the ledger store:
// snapshot import and export, card-entry migration, and read-only
// forecast, reserve and classification reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"financeiro/internal/backend"
	"financeiro/internal/cli"
	"financeiro/internal/log"
)

var (
	cfgFile string
	logger  *log.Logger
	rootCmd = &cobra.Command{
		Use:   "ledgerctl",
		Short: "Maintenance tool for the financeiro ledger",
		Long: `ledgerctl imports and exports workspace snapshots, migrates the older
credit-card collection into invoices, and prints forecast, reserve and
classification reports straight from the document store.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/financeiro/config.yaml)")
	flags.StringP("workspace", "w", "", "workspace id (escritorio, pessoal)")
	flags.String("backend", "", "data backend ("+strings.Join(backend.GetBackendTypeStrings(), ", ")+")")
	flags.String("sqlite-path", "", "SQLite database path")
	flags.String("data-dir", "", "seed directory for the memory backend")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")

	_ = viper.BindPFlag("workspace", flags.Lookup("workspace"))
	_ = viper.BindPFlag("storage.backend", flags.Lookup("backend"))
	_ = viper.BindPFlag("storage.sqlite_path", flags.Lookup("sqlite-path"))
	_ = viper.BindPFlag("storage.data_dir", flags.Lookup("data-dir"))
	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(migrateCardsCmd())
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(reserveCmd())
	rootCmd.AddCommand(classifyCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		viper.AddConfigPath(home + "/.config/financeiro")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FINANCEIRO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := appConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger = cli.SetupLoggerOutput(cfg, log.ComponentCLI, os.Stderr)
	return nil
}
