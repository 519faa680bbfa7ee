package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Manage the controller's web UI",
}

var webUpdateCmd = daemonCommand(&cobra.Command{
	Use:   "update [version]",
	Short: "Update the web UI served by the controller",
	Long:  `Ask the controller to download and serve the given web UI release, or the latest one.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if offline {
			return errors.New("web update needs a running controller")
		}
		var version string
		if len(args) == 1 {
			version = args[0]
		}
		if err := env.daemon().UpdateWeb(cmd.Context(), version); err != nil {
			return fmt.Errorf("updating web UI: %w", err)
		}
		fmt.Fprintln(env.out, "Web UI updated.")
		return nil
	},
})

func init() {
	webCmd.AddCommand(webUpdateCmd)
	rootCmd.AddCommand(webCmd)
}
