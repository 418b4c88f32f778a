package commands

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/tablemap/cli/internal/config"
	"github.com/satishbabariya/tablemap/cli/internal/ui"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or save the resolved configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the configuration after flags, environment and files are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := settingsFrom(cmd).cfg
			rows := []map[string]any{
				{"key": "adapter", "value": cfg.Adapter},
				{"key": "dsn", "value": cfg.DSN},
				{"key": "debug", "value": cfg.Debug},
				{"key": "max_open_conns", "value": cfg.MaxOpenConns},
			}
			keys := make([]string, 0, len(cfg.Options))
			for k := range cfg.Options {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				rows = append(rows, map[string]any{"key": "options." + k, "value": cfg.Options[k]})
			}
			return ui.RenderRows(cmd.OutOrStdout(), []string{"key", "value"}, rows, settingsFrom(cmd).format)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Save the resolved configuration to ~/.config/tablemap/.tablemap.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.Save(settingsFrom(cmd).cfg)
			if err != nil {
				return err
			}
			ui.PrintSuccess("Saved %s", path)
			return nil
		},
	})

	return cmd
}
