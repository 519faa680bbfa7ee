package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kytos/kytos-utils/internal/branding"
	"github.com/kytos/kytos-utils/internal/compat"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	configPath string
	logLevel   string
	logFormat  string
	offline    bool
)

// annotationDaemon marks commands that talk to the daemon; they get the
// version check before running.
const annotationDaemon = "kytos/daemon"

// env is the environment of the running command, built before it runs.
var env *app

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` utilities create, publish and manage Network Applications (NApps):
install them from a working copy or the NApps server, enable and disable them
on a running controller, and search the NApps server catalog.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		env = a

		if cmd.Annotations[annotationDaemon] != "" && !offline {
			compat.Check(cmd.Context(), a.daemon(), buildVersion, a.log)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default ~/.kytos/config.yaml, or $KYTOS_CONFIG)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides log.level)")
	flags.StringVar(&logFormat, "log-format", "", "Log format: console or json (overrides log.format)")
	flags.BoolVar(&offline, "offline", false, "Work on the NApps directories directly instead of asking the controller")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if env != nil {
		if cerr := env.close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}

// daemonCommand marks cmd as one that talks to the controller.
func daemonCommand(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationDaemon] = "true"
	return cmd
}
