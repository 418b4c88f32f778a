package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/satishbabariya/tablemap/cli/internal/config"
	"github.com/satishbabariya/tablemap/cli/internal/ui"
	"github.com/satishbabariya/tablemap/cli/internal/version"
	"github.com/satishbabariya/tablemap/internal/debug"
	"github.com/satishbabariya/tablemap/orm"
	"github.com/satishbabariya/tablemap/telemetry"
)

// configKey stores the loaded configuration in the command context.
type configKey struct{}

// settings is what PersistentPreRunE resolves for every command.
type settings struct {
	cfg    *config.Config
	format string
}

// Execute is the main entry point for the CLI
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, ui.ErrAborted) {
		ui.PrintError("%v", err)
	}
	return err
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "tablemap",
		Short: "Browse and edit database tables from the command line",
		Long: `tablemap maps the tables of a database onto rows you can list, filter,
create, update and delete, without writing SQL.

Backends are chosen by adapter name: sqlite3, sqlite, postgres, pgx, mysql,
or rest for a server started with "tablemap serve".`,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ui.Stdout, ui.Stderr = cmd.OutOrStdout(), cmd.ErrOrStderr()

			cfg, err := config.LoadWith(v)
			if err != nil {
				return err
			}
			debug.InitWriter(cfg.Debug, cmd.ErrOrStderr(), debug.FormatText)

			format, _ := cmd.Flags().GetString("format")
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, &settings{cfg: cfg, format: format}))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("adapter", "a", "", "Adapter name (default: sqlite)")
	flags.StringP("dsn", "d", "", "Data source: a file path, connection string or base URL")
	flags.Bool("debug", false, "Log statements and adapter activity to stderr")
	flags.StringP("format", "f", ui.FormatTable, "Output format (table|json|csv|markdown)")
	for _, name := range []string{"adapter", "dsn", "debug"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	_ = rootCmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{ui.FormatTable, ui.FormatJSON, ui.FormatCSV, ui.FormatMarkdown}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		NewTablesCommand(),
		NewDescribeCommand(),
		NewQueryCommand(),
		NewGetCommand(),
		NewCreateCommand(),
		NewUpdateCommand(),
		NewDeleteCommand(),
		NewServeCommand(),
		NewWatchCommand(),
		NewFixtureCommand(),
		NewConfigCommand(),
		NewVersionCommand(),
	)

	return rootCmd
}

func settingsFrom(cmd *cobra.Command) *settings {
	if s, ok := cmd.Context().Value(configKey{}).(*settings); ok {
		return s
	}
	return &settings{cfg: &config.Config{}, format: ui.FormatTable}
}

// openDatabase connects with the resolved configuration. Statements are
// logged through the debug logger.
func openDatabase(cmd *cobra.Command) (*orm.Database, error) {
	cfg := settingsFrom(cmd).cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := cfg.ORM()
	opts.Options.Logger = debug.Logger()
	opts.Recorder = telemetry.NewLogger(debug.Logger())

	db, err := orm.Open(cmd.Context(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Adapter, err)
	}
	return db, nil
}

// lookupTable resolves a table name or lists the available ones.
func lookupTable(db *orm.Database, name string) (*orm.Table, error) {
	t, err := db.Table(name)
	if err != nil {
		return nil, fmt.Errorf("%w (tables: %v)", err, db.Tables())
	}
	return t, nil
}
