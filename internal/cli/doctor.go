package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/kytos/kytos-utils/internal/compat"
	"github.com/kytos/kytos-utils/internal/config"
	"github.com/kytos/kytos-utils/internal/manifest"
	"github.com/kytos/kytos-utils/internal/napp"
	"github.com/kytos/kytos-utils/internal/platform"
)

var checkManifest string

func init() {
	doctorCmd.Flags().StringVar(&checkManifest, "check-manifest", "", "Only validate the kytos.json at the given path")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the kytos-utils setup",
	Long: `Run diagnostic checks: config file permissions, controller and NApps server
reachability, version compatibility, and NApps enabled without being installed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d := &doctor{w: env.out}
		if checkManifest != "" {
			d.manifest(checkManifest)
		} else {
			d.config()
			d.controller(cmd)
			d.registry(cmd)
		}
		if d.failed > 0 {
			return fmt.Errorf("%d check(s) failed", d.failed)
		}
		return nil
	},
}

// doctor prints check results and counts failures.
type doctor struct {
	w      io.Writer
	failed int
}

func (d *doctor) ok(format string, a ...any)   { d.line("[ OK ]", format, a...) }
func (d *doctor) warn(format string, a ...any) { d.line("[WARN]", format, a...) }
func (d *doctor) info(format string, a ...any) { d.line("[INFO]", format, a...) }

func (d *doctor) fail(format string, a ...any) {
	d.failed++
	d.line("[FAIL]", format, a...)
}

func (d *doctor) line(tag, format string, a ...any) {
	fmt.Fprintf(d.w, "  %s %s\n", tag, fmt.Sprintf(format, a...))
}

func (d *doctor) config() {
	fmt.Fprintln(d.w, "Config check:")
	path := env.cfg.Path()
	open, err := platform.PermissionsTooOpen(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		d.info("%s does not exist; using defaults", path)
	case err != nil:
		d.fail("cannot stat %s: %v", path, err)
	case open:
		d.warn("%s is readable by others; run chmod %o %s", path, config.FilePerm, path)
	default:
		d.ok("%s", path)
	}
	if env.cfg.Auth.Token != "" {
		d.ok("NApps server token stored for %s", env.cfg.Auth.User)
	} else {
		d.info("no NApps server token; upload and delete will ask for credentials")
	}
}

func (d *doctor) controller(cmd *cobra.Command) {
	ctx := cmd.Context()
	if offline {
		fmt.Fprintln(d.w, "NApps directories check (offline):")
		roots := env.store().Roots()
		for _, dir := range []string{roots.Enabled, roots.Installed} {
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				d.fail("%s is not a directory", dir)
				continue
			}
			d.ok("%s", dir)
		}
	} else {
		fmt.Fprintln(d.w, "Controller check:")
		version, err := env.daemon().Version(ctx)
		if err != nil {
			d.fail("%v", err)
			return
		}
		d.ok("kytos %s at %s", version, env.cfg.Kytos.API)
		switch {
		case buildVersion == "" || buildVersion == compat.DevVersion:
			d.info("development build; version check skipped")
		case compat.SameRelease(version, buildVersion):
			d.ok("kytos-utils %s matches", buildVersion)
		default:
			d.warn("kytos (%s) and kytos-utils (%s) versions are not equal", version, buildVersion)
		}
	}

	mgr, err := env.manager()
	if err != nil {
		d.fail("%v", err)
		return
	}
	dangling, err := mgr.Dangling(ctx)
	if err != nil {
		d.fail("listing NApps: %v", err)
		return
	}
	if len(dangling) == 0 {
		d.ok("every enabled NApp is installed")
	}
	for _, k := range dangling {
		if offline {
			d.danglingLink(k)
			continue
		}
		d.warn("%s is enabled but not installed; run kytos napps disable %s", k, k)
	}
}

// danglingLink reports an enabled link left behind by a removed NApp.
func (d *doctor) danglingLink(k napp.Key) {
	link := env.store().Roots().EnabledLink(k)
	if !platform.IsDangling(link) {
		d.warn("%s is enabled but not installed; run kytos --offline napps disable %s", k, k)
		return
	}
	target, err := platform.LinkTarget(link)
	if err != nil {
		target = "an unreadable target"
	}
	d.warn("%s is enabled but its link points to missing %s; run kytos --offline napps disable %s", k, target, k)
}

func (d *doctor) registry(cmd *cobra.Command) {
	fmt.Fprintln(d.w, "NApps server check:")
	catalog, err := env.registry().Catalog(cmd.Context())
	if err != nil {
		d.fail("%v", err)
		return
	}
	d.ok("%d NApps published at %s", len(catalog), env.cfg.NApps.API)
}

func (d *doctor) manifest(path string) {
	fmt.Fprintf(d.w, "Manifest validation: %s\n", path)

	result, err := manifest.ValidateFile(path)
	if err != nil {
		d.fail("%v", err)
		return
	}
	if result.Valid {
		meta, err := manifest.Parse(path)
		if err != nil {
			d.ok("valid %s", manifest.FileName)
			return
		}
		d.ok("valid %s: %s (%s)", manifest.FileName, meta.Key(), meta.Version)
		return
	}

	d.fail("%d validation issue(s):", len(result.Issues))
	for _, issue := range result.Issues {
		if issue.Path != "" {
			fmt.Fprintf(d.w, "    - %s: %s\n", issue.Path, issue.Message)
		} else {
			fmt.Fprintf(d.w, "    - %s\n", issue.Message)
		}
	}
}
