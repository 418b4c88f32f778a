package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/tablemap/cli/internal/ui"
	"github.com/satishbabariya/tablemap/internal/testdb"
)

// NewFixtureCommand creates the fixture command.
func NewFixtureCommand() *cobra.Command {
	var driver string

	cmd := &cobra.Command{
		Use:     "fixture <path>",
		Short:   "Write a sample SQLite database with artists and albums",
		Example: "  tablemap fixture music.db && tablemap tables --dsn music.db",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := testdb.Create(cmd.Context(), driver, args[0]); err != nil {
				return err
			}
			ui.PrintSuccess("Created %s", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "sqlite", "database/sql driver (sqlite or sqlite3)")
	return cmd
}
