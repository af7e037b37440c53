package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/perfumeharvest/internal/model"
)

// errPerfumeNotFound is returned by show for an unknown ID.
var errPerfumeNotFound = errors.New("perfume not found")

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <perfume-id>",
		Short: "Show one harvested perfume as JSON",
		Long: `Show prints every field of a perfume record as JSON, including the
flattened note list.

Example:
  perfumeharvest show amber-night`,
		Args: cobra.ExactArgs(1),
		RunE: runShowCmd,
	}
}

// perfumeView adds the flattened notes to the stored record.
type perfumeView struct {
	*model.Perfume
	NotesAll []model.NoteEntry `json:"notes_all"`
}

// runShowCmd executes the show command.
func runShowCmd(cmd *cobra.Command, args []string) error {
	db, err := openDatabase(cmd, false)
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := db.GetPerfume(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: %s", errPerfumeNotFound, args[0])
	}

	return writeJSON(cmd.OutOrStdout(), perfumeView{Perfume: p, NotesAll: p.NotesAll()})
}
