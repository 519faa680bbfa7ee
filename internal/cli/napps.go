package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kytos/kytos-utils/internal/napp"
	"github.com/kytos/kytos-utils/internal/napps"
)

const suggestionLimit = 3

var installNoEnable bool

var nappsCmd = &cobra.Command{
	Use:   "napps",
	Short: "Create, manage and publish NApps",
	Long: `Manage Network Applications (NApps).

NApps are referenced as <namespace>/<name>, optionally followed by
:<version> or -<version>; without a version the latest one is meant.`,
}

var enableCmd = daemonCommand(&cobra.Command{
	Use:   "enable (all | <napp>...)",
	Short: "Enable installed NApps",
	Long:  `Enable installed NApps. "all" enables every installed NApp that is not enabled yet.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEnable,
})

var disableCmd = daemonCommand(&cobra.Command{
	Use:   "disable (all | <napp>...)",
	Short: "Disable enabled NApps",
	Long:  `Disable NApps. "all" disables every enabled NApp.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDisable,
})

var reloadCmd = daemonCommand(&cobra.Command{
	Use:   "reload (all | <napp>...)",
	Short: "Reload the code of enabled NApps",
	Long:  `Ask the controller to reload the code of enabled NApps. "all" reloads every NApp.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReload,
})

var installCmd = daemonCommand(&cobra.Command{
	Use:   "install <napp>...",
	Short: "Install NApps and their dependencies",
	Long: `Install NApps and, recursively, the NApps listed in their napp_dependencies.

A NApp is looked up in the current directory first (<namespace>/<name>/kytos.json
or ./kytos.json) and linked into the controller's NApps directory; otherwise it
is downloaded from the NApps server. Installed NApps are enabled unless
--no-enable is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
})

var uninstallCmd = daemonCommand(&cobra.Command{
	Use:   "uninstall <napp>...",
	Short: "Disable and uninstall NApps",
	Long: `Uninstall NApps, disabling them first. A NApp installed from a working copy
is unlinked and its sources are kept.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUninstall,
})

func init() {
	installCmd.Flags().BoolVar(&installNoEnable, "no-enable", false, "Only install; do not enable the installed NApps")

	nappsCmd.AddCommand(enableCmd, disableCmd, reloadCmd, installCmd, uninstallCmd)
	rootCmd.AddCommand(nappsCmd)
}

func runEnable(cmd *cobra.Command, args []string) error {
	sel, skipped := parseSelection(args)
	mgr, err := env.manager()
	if err != nil {
		return err
	}
	results, err := mgr.EnableNApps(cmd.Context(), sel)
	return finish(env.out, results, skipped, err, "enabled", "already enabled")
}

func runDisable(cmd *cobra.Command, args []string) error {
	sel, skipped := parseSelection(args)
	mgr, err := env.manager()
	if err != nil {
		return err
	}
	results, err := mgr.DisableNApps(cmd.Context(), sel)
	return finish(env.out, results, skipped, err, "disabled", "already disabled")
}

func runReload(cmd *cobra.Command, args []string) error {
	sel, skipped := parseSelection(args)
	mgr, err := env.manager()
	if err != nil {
		return err
	}
	if err := mgr.Reload(cmd.Context(), sel); err != nil {
		return err
	}
	if sel.All {
		fmt.Fprintln(env.out, "  ✓ all NApps reloaded")
	}
	for _, id := range sel.IDs {
		fmt.Fprintf(env.out, "  ✓ %s: reloaded\n", id)
	}
	return skippedError(skipped)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ids, skipped, err := parseIDs(args)
	if err != nil {
		return err
	}
	mgr, err := env.manager()
	if err != nil {
		return err
	}

	results, err := mgr.InstallNApps(cmd.Context(), ids, napps.InstallOptions{Enable: !installNoEnable})
	for i := range results {
		r := &results[i]
		var notFound *napp.NotFoundError
		if !errors.As(r.Err, &notFound) {
			continue
		}
		if hints := mgr.Suggest(cmd.Context(), notFound.Key, suggestionLimit); len(hints) > 0 {
			r.Err = fmt.Errorf("%w (did you mean %s?)", r.Err, strings.Join(hints, ", "))
		}
	}
	return finish(env.out, results, skipped, err, "installed", "already installed")
}

func runUninstall(cmd *cobra.Command, args []string) error {
	ids, skipped, err := parseIDs(args)
	if err != nil {
		return err
	}
	mgr, err := env.manager()
	if err != nil {
		return err
	}
	results, err := mgr.UninstallNApps(cmd.Context(), ids)
	return finish(env.out, results, skipped, err, "uninstalled", "not installed")
}

// parseSelection parses NApp arguments, logging and counting the malformed
// ones, which are skipped.
func parseSelection(args []string) (napp.Selection, int) {
	sel, errs := napp.ParseMany(args)
	for _, err := range errs {
		env.log.Error("skipping argument", zap.Error(err))
	}
	return sel, len(errs)
}

// parseIDs is parseSelection for commands that need explicit NApps.
func parseIDs(args []string) ([]napp.Identity, int, error) {
	sel, skipped := parseSelection(args)
	if sel.All {
		return nil, 0, fmt.Errorf("%q is not accepted here; name the NApps", napp.AllToken)
	}
	if len(sel.IDs) == 0 {
		return nil, skipped, errors.New("no valid NApp given")
	}
	return sel.IDs, skipped, nil
}

// finish prints one line per result and turns failures into the command's
// error. batchErr, the reason a batch stopped early, wins.
func finish(w io.Writer, results []napps.Result, skipped int, batchErr error, done, noop string) error {
	failed := skipped
	for i := range results {
		r := &results[i]
		switch r.Outcome {
		case napps.Done:
			fmt.Fprintf(w, "  ✓ %s: %s\n", r.ID, done)
		case napps.NoOp:
			fmt.Fprintf(w, "  - %s: %s\n", r.ID, noop)
		default:
			failed++
			fmt.Fprintf(w, "  ✗ %s: %v\n", r.ID, r.Err)
		}
	}
	if batchErr != nil {
		return batchErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d NApps failed", failed, len(results)+skipped)
	}
	return nil
}

func skippedError(skipped int) error {
	if skipped == 0 {
		return nil
	}
	return fmt.Errorf("%d invalid NApp references skipped", skipped)
}
