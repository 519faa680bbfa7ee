package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kytos/kytos-utils/internal/manifest"
	"github.com/kytos/kytos-utils/internal/napp"
	"github.com/kytos/kytos-utils/internal/packaging"
	"github.com/kytos/kytos-utils/internal/scaffold"
)

var createMeta bool

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Bootstrap a new NApp in the current directory",
	Long: `Ask for a NApps server username, a NApp name and a description, then create
<username>/<name>/ with kytos.json, main.py, settings.py, README.rst and the
web UI directories. --meta creates a meta package holding only kytos.json
and README.rst, for NApps that exist to pull in dependencies.`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Generate openapi.yml from the NApp's REST endpoints",
	Long: `Generate openapi.yml for the NApp in the current directory from the @rest
decorators in main.py, taking summaries and descriptions from the docstrings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := prepare()
		return err
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Package the NApp in the current directory and publish it",
	Long: `Build the .napp package of the NApp in the current directory, skipping what
.gitignore (and ~/.gitignore) exclude, and upload it with its metadata to the
NApps server. Missing credentials are asked for and the token is saved.`,
	Args: cobra.NoArgs,
	RunE: runUpload,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <napp>...",
	Short: "Delete NApps from the NApps server",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

func init() {
	createCmd.Flags().BoolVar(&createMeta, "meta", false, "Create a meta package (no code, no UI)")
	nappsCmd.AddCommand(createCmd, prepareCmd, uploadCmd, deleteCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	w := cmd.ErrOrStderr()
	fmt.Fprintln(w, "Welcome to the bootstrap process of your NApp.")
	fmt.Fprintln(w, "Both the username and the NApp name must:")
	fmt.Fprintln(w, " - start with a letter")
	fmt.Fprintln(w, " - contain only letters, numbers or underscores")
	fmt.Fprintln(w, " - be at least three characters long")
	fmt.Fprintln(w)

	username, err := env.prompt.Ask("Please, insert your NApps Server username: ", true, napp.ValidName, false)
	if err != nil {
		return err
	}
	name, err := env.prompt.Ask("Please, insert your NApp name: ", true, napp.ValidName, false)
	if err != nil {
		return err
	}
	description, err := env.prompt.Ask("Please, insert a brief description for your NApp [optional]: ", false, nil, false)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}
	result, err := scaffold.Generate(cwd, scaffold.NewData(username, name, description), scaffold.Options{Meta: createMeta})
	if err != nil {
		return err
	}

	for _, f := range result.Files {
		fmt.Fprintf(env.out, "  ✓ %s\n", filepath.Join(username, name, f))
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	fmt.Fprintf(env.out, "\nCongratulations! Your NApp has been bootstrapped!\n"+
		"Now you can go to the directory %q and begin to code your NApp.\n", filepath.Join(username, name))
	return nil
}

// prepare offers to (re)generate openapi.yml and reports whether it did.
func prepare() (bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return false, fmt.Errorf("resolving working directory: %w", err)
	}

	question := "Do you have REST endpoints and wish to create an API skeleton in openapi.yml? (Y/n) "
	def := true
	if _, err := os.Stat(scaffold.OpenAPIPath(cwd)); err == nil {
		question = "Override local openapi.yml with a new skeleton? (y/N) "
		def = false
	}
	ok, err := env.prompt.Confirm(question, def)
	if err != nil || !ok {
		return false, err
	}

	if _, err := scaffold.Prepare(cwd); err != nil {
		return false, err
	}
	fmt.Fprintln(env.out, "Please, update your openapi.yml file.")
	return true, nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}
	desc, err := manifest.Parse(filepath.Join(cwd, manifest.FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("couldn't find %s in current directory", manifest.FileName)
	}
	if err != nil {
		return err
	}

	// A fresh skeleton needs editing before it is worth publishing.
	if generated, err := prepare(); err != nil || generated {
		return err
	}

	meta, err := packaging.Metadata(cwd)
	if err != nil {
		return err
	}
	rules, err := packaging.LoadIgnoreRules(cwd)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	pkg, err := packaging.Build(cwd, rules, &buf)
	if err != nil {
		return fmt.Errorf("building package: %w", err)
	}

	if err := env.registry().Upload(cmd.Context(), meta, &buf); err != nil {
		return err
	}
	fmt.Fprintf(env.out, "  ✓ %s: uploaded (%d files, %d bytes, %s)\n",
		desc.Key(), len(pkg.Files), pkg.Size, pkg.Digest)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ids, skipped, err := parseIDs(args)
	if err != nil {
		return err
	}
	mgr, err := env.manager()
	if err != nil {
		return err
	}
	results := mgr.DeleteNApps(cmd.Context(), ids)
	return finish(env.out, results, skipped, nil, "deleted", "")
}
