package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kytos/kytos-utils/internal/napp"
	"github.com/kytos/kytos-utils/internal/napps"
)

var (
	listJSON   bool
	searchJSON bool
)

var listCmd = daemonCommand(&cobra.Command{
	Use:   "list",
	Short: "List installed NApps",
	Long:  `List every installed NApp with its status and description.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
})

var searchCmd = daemonCommand(&cobra.Command{
	Use:   "search <pattern>",
	Short: "Search the NApps server",
	Long: `Search the NApps server for NApps whose namespace/name, description or tags
contain pattern, ignoring case. * matches any text.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
})

var depsCmd = daemonCommand(&cobra.Command{
	Use:   "deps <napp>",
	Short: "Show the dependency tree of a NApp",
	Long:  `Show the napp_dependencies of a NApp, recursively, as the NApps server describes them.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDeps,
})

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")
	nappsCmd.AddCommand(listCmd, searchCmd, depsCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	mgr, err := env.manager()
	if err != nil {
		return err
	}
	records, err := mgr.List(cmd.Context())
	if err != nil {
		return err
	}
	if listJSON {
		return printJSON(env.out, records)
	}
	printNApps(env.out, records)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	re, err := napps.GlobPattern(args[0])
	if err != nil {
		return err
	}
	mgr, err := env.manager()
	if err != nil {
		return err
	}
	records, err := mgr.Search(cmd.Context(), re)
	if err != nil {
		return err
	}
	if searchJSON {
		return printJSON(env.out, records)
	}
	printNApps(env.out, records)
	return nil
}

func runDeps(cmd *cobra.Command, args []string) error {
	id, err := napp.Parse(args[0])
	if err != nil {
		return err
	}
	mgr, err := env.manager()
	if err != nil {
		return err
	}
	tree, err := mgr.DependencyTree(cmd.Context(), id)
	if err != nil {
		return err
	}
	napps.PrintTree(env.out, tree)
	return nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
