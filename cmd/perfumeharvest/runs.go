package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/perfumeharvest/internal/config"
	"github.com/nao1215/perfumeharvest/internal/database"
)

// errNoRuns is returned by runs --latest for a site never harvested.
var errNoRuns = errors.New("no runs recorded")

// NewRunsCmd creates the runs command.
func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [site]",
		Short: "List past harvest runs",
		Long: `Runs lists recorded harvest runs, newest first. A site argument limits
the list to that site.

With --latest, the full report of the most recent run of the site is
printed again, in any report format.

Examples:
  # All runs
  perfumeharvest runs

  # Latest report of a site as Markdown
  perfumeharvest runs vicioso --latest --markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRunsCmd,
	}

	cmd.Flags().BoolP("latest", "l", false, "Print the latest report of the site")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")

	return cmd
}

// runRunsCmd executes the runs command.
func runRunsCmd(cmd *cobra.Command, args []string) error {
	latest, err := cmd.Flags().GetBool("latest")
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	cfg.Verbose = getBoolFlag(cmd, "verbose")
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return fmt.Errorf("configuration error: %w", config.ErrConflictingReportFormats)
	}

	var site string
	if len(args) == 1 {
		site = args[0]
	}
	if latest && site == "" {
		return errors.New("--latest needs a site argument")
	}

	db, err := openDatabase(cmd, false)
	if err != nil {
		return err
	}
	defer db.Close()

	if latest {
		r, err := db.LatestRunReport(cmd.Context(), site)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("%w for site %s", errNoRuns, site)
		}
		_, err = newReportWriter(cfg, cmd.OutOrStdout()).Write(r)
		return err
	}

	runs, err := db.ListRuns(cmd.Context(), site)
	if err != nil {
		return err
	}
	if cfg.JSONReport {
		return writeJSON(cmd.OutOrStdout(), runs)
	}
	return writeRunTable(cmd.OutOrStdout(), runs)
}

// writeRunTable prints run summaries as aligned columns.
func writeRunTable(out io.Writer, runs []database.RunSummary) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSITE\tSTARTED\tDURATION\tSCRAPED\tFAILED")
	for _, r := range runs {
		duration := "-"
		if !r.FinishedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			r.RunID,
			r.Site,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
			r.ScrapedCount,
			r.FailedCount,
		)
	}
	return tw.Flush()
}
