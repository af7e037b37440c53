package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/perfumeharvest/internal/config"
	"github.com/nao1215/perfumeharvest/internal/database"
	"github.com/nao1215/perfumeharvest/internal/log"
)

// NewRootCmd creates the root command for PerfumeHarvest.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perfumeharvest",
		Short: "Harvest perfume product data from online shops",
		Long: `PerfumeHarvest collects perfume product data from online shops.

It walks listing pages, follows pagination, visits every product page and
stores normalized records (prices, notes, scent families, gender tags) in a
local SQLite database. robots.txt is honored and requests to the same host
are spaced out.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON")
	cmd.PersistentFlags().String("log-file", "",
		"Write logs to a rotated file instead of stderr")
	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(),
		"Directory of the perfume database")

	// Add subcommands
	cmd.AddCommand(NewHarvestCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewRunsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag retrieves a flag of the command or its parents.
// A flag that is not defined reads as false.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// getStringFlag retrieves a flag of the command or its parents.
func getStringFlag(cmd *cobra.Command, name, fallback string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return fallback
		}
	}
	return v
}

// setupLogger creates the structured logger selected by the global flags.
// The returned function closes the log file, if any.
func setupLogger(cmd *cobra.Command) (*slog.Logger, func()) {
	opts := log.Options{
		Verbose: getBoolFlag(cmd, "verbose"),
		JSON:    getBoolFlag(cmd, "json-log"),
	}

	path := getStringFlag(cmd, "log-file", "")
	if path == "" {
		return log.NewLogger(cmd.ErrOrStderr(), opts), func() {}
	}

	w := log.NewFileWriter(path)
	return log.NewLogger(w, opts), func() { _ = w.Close() } //nolint:errcheck // nothing to do on close failure
}

// openDatabase opens the perfume database named by --db-dir.
// Read-only commands pass create=false so that a missing database is
// reported instead of silently created.
func openDatabase(cmd *cobra.Command, create bool) (*database.PerfumeDB, error) {
	dir := getStringFlag(cmd, "db-dir", config.XDGDataDir())

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = create

	db, err := database.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
