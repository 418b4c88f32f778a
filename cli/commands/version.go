package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/tablemap/cli/internal/ui"
	"github.com/satishbabariya/tablemap/cli/internal/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	var latest string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, info.FullString())

			if latest == "" {
				return nil
			}
			older, err := info.Older(latest)
			if err != nil {
				return err
			}
			if older {
				ui.PrintWarning("A newer version is available: %s", latest)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&latest, "check", "", "Compare against this released version")
	return cmd
}
