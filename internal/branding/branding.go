// Package branding provides compile-time identity values for the CLI.
//
// Packagers edit branding.yaml next to this file; //go:embed bakes it into
// the binary.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	GitHubRepo  string `yaml:"github_repo"`
	DaemonAPI   string `yaml:"daemon_api"`
	NAppsAPI    string `yaml:"napps_api"`
	NAppsRepo   string `yaml:"napps_repo"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing or empty.
		defaults = brand{
			CLIName:     "kytos",
			DisplayName: "Kytos",
			Description: "Command line utilities to use with Kytos",
			HomeDir:     ".kytos",
			EnvPrefix:   "KYTOS",
			GitHubRepo:  "kytos/kytos-utils",
			DaemonAPI:   "http://localhost:8181/",
			NAppsAPI:    "https://napps.kytos.io/api/",
			NAppsRepo:   "https://napps.kytos.io/repo/",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "kytos").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".kytos").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "KYTOS").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GitHubRepo returns the "owner/repo" string.
func GitHubRepo() string { load(); return defaults.GitHubRepo }

// DaemonAPI returns the default base URL of the controller daemon.
func DaemonAPI() string { load(); return defaults.DaemonAPI }

// NAppsAPI returns the default base URL of the NApps server API.
func NAppsAPI() string { load(); return defaults.NAppsAPI }

// NAppsRepo returns the default base URL NApp packages are downloaded from.
func NAppsRepo() string { load(); return defaults.NAppsRepo }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("CONFIG") → "KYTOS_CONFIG".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}

// UserAgent is sent on every HTTP request.
func UserAgent(version string) string {
	load()
	return defaults.CLIName + "-utils/" + version
}
