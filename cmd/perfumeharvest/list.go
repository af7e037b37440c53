package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nao1215/perfumeharvest/internal/model"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List harvested perfumes",
		Long: `List prints the perfumes in the database, ordered by ID.

Examples:
  # First 20 perfumes
  perfumeharvest list

  # Next page as JSON
  perfumeharvest list --offset 20 --json`,
		Args: cobra.NoArgs,
		RunE: runListCmd,
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum number of perfumes (0 = all)")
	cmd.Flags().Int("offset", 0, "Number of perfumes to skip")
	cmd.Flags().BoolP("json", "j", false, "Output JSON")

	return cmd
}

// runListCmd executes the list command.
func runListCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	offset, err := cmd.Flags().GetInt("offset")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	if offset < 0 {
		return fmt.Errorf("invalid offset %d", offset)
	}

	db, err := openDatabase(cmd, false)
	if err != nil {
		return err
	}
	defer db.Close()

	perfumes, err := db.ListPerfumes(cmd.Context(), limit, offset)
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), perfumes)
	}

	total, err := db.CountPerfumes(cmd.Context())
	if err != nil {
		return err
	}
	return writePerfumeTable(cmd.OutOrStdout(), perfumes, offset, total)
}

// writePerfumeTable prints perfumes as aligned columns.
func writePerfumeTable(out io.Writer, perfumes []*model.Perfume, offset, total int) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tFAMILIES")
	for _, p := range perfumes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			p.ID,
			truncate(p.Name, 40),
			formatPrice(p),
			strings.Join(p.ScentFamilies, ", "),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	from := offset + 1
	if len(perfumes) == 0 {
		from = offset
	}
	_, err := fmt.Fprintf(out, "\n%d-%d of %d perfumes\n", from, offset+len(perfumes), total)
	return err
}

// formatPrice renders the price range, or "-" when unknown.
func formatPrice(p *model.Perfume) string {
	switch {
	case p.PriceMin == nil && p.PriceMax == nil:
		return "-"
	case p.PriceMin == nil:
		return fmt.Sprintf("%.2f", *p.PriceMax)
	case p.PriceMax == nil || *p.PriceMin == *p.PriceMax:
		return fmt.Sprintf("%.2f", *p.PriceMin)
	default:
		return fmt.Sprintf("%.2f-%.2f", *p.PriceMin, *p.PriceMax)
	}
}

func truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes-1]) + "…"
}

// writeJSON writes v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
