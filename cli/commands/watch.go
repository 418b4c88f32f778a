package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/tablemap/cli/internal/ui"
	"github.com/satishbabariya/tablemap/cli/internal/watch"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rescan a SQLite database whenever its file changes",
		Long: `Rescan a SQLite database whenever its file changes and print the tables
that appeared or disappeared. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := settingsFrom(cmd).cfg
			if !strings.HasPrefix(cfg.Adapter, "sqlite") {
				return fmt.Errorf("watch needs a sqlite adapter, got %q", cfg.Adapter)
			}

			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			ctx := cmd.Context()
			known := make(map[string]bool)
			rescan := func() error {
				if err := db.Rescan(ctx); err != nil {
					return err
				}
				current := make(map[string]bool)
				for _, name := range db.Tables() {
					current[name] = true
					if !known[name] {
						ui.PrintSuccess("+ %s", name)
					}
				}
				for name := range known {
					if !current[name] {
						ui.PrintWarning("- %s", name)
					}
				}
				known = current
				return nil
			}

			w, err := watch.NewWatcher(filePath(cfg.DSN), debounce, rescan)
			if err != nil {
				return err
			}
			defer func() { _ = w.Stop() }()

			ui.PrintInfo("Watching %s", cfg.DSN)
			if err := w.Start(); err != nil {
				return err
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case err := <-w.Errors():
					ui.PrintError("%v", err)
				}
			}
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before rescanning")
	return cmd
}

// filePath strips the file: scheme and query parameters of a SQLite DSN.
func filePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}
