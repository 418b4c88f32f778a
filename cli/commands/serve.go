package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/tablemap/cli/internal/ui"
	"github.com/satishbabariya/tablemap/internal/debug"
	"github.com/satishbabariya/tablemap/internal/httpapi"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var (
		addr     string
		readOnly bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tables as JSON resources over HTTP",
		Long: `Serve the tables of the database as JSON resources over HTTP.

Every table is a collection at /<table> and every row a member at
/<table>/<key>. Another tablemap can use the server with --adapter rest.`,
		Example: `  tablemap serve --dsn music.db --addr :8080
  tablemap tables --adapter rest --dsn http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			ui.PrintInfo("Serving %d tables on %s", len(db.Tables()), addr)
			srv := httpapi.NewServer(httpapi.Config{
				Database: db,
				Addr:     addr,
				ReadOnly: readOnly,
				Logger:   debug.Logger(),
			})
			return srv.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Address to listen on")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Reject writes")
	return cmd
}
