package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"studioledger/internal/config"
	"studioledger/internal/finance"
	"studioledger/internal/storage"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	flagDB      string
	flagTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "ledgerctl",
	Short:        "Inspect the studioledger project database",
	Long:         "Print projects, single-project ledgers and the portfolio summary straight from the SQLite database.",
	SilenceUsage: true,
}

func init() {
	cfg := config.Load()
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", cfg.SQLiteDBPath, "SQLite database path")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 10*time.Second, "Timeout for database queries")
}

// openStore opens the SQLite database, applying pending migrations.
func openStore() (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(flagDB)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", flagDB, err)
	}
	return repo, nil
}

// thresholds reads the margin bands from STUDIOLEDGER_CONFIG when set.
func thresholds() (finance.Thresholds, error) {
	cfg := config.Load()
	if cfg.FilePath == "" {
		return cfg.Thresholds, nil
	}
	if err := cfg.Validate(); err != nil {
		return finance.Thresholds{}, err
	}
	return cfg.Thresholds, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), flagTimeout)
}
