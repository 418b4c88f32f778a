package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/tablemap/cli/internal/ui"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "tables",
		Aliases: []string{"ls"},
		Short:   "List the tables of the database",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			var rows []map[string]any
			for _, name := range db.Tables() {
				t, err := db.Table(name)
				if err != nil {
					return err
				}
				info := t.Info()
				rows = append(rows, map[string]any{
					"name":   info.Name,
					"schema": info.Schema,
					"kind":   info.Kind,
				})
			}
			return ui.RenderRows(cmd.OutOrStdout(), []string{"name", "schema", "kind"}, rows, settingsFrom(cmd).format)
		},
	}
}
