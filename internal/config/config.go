package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/kytos/kytos-utils/internal/branding"
	"github.com/kytos/kytos-utils/internal/platform"
)

const (
	fileName = "config"
	fileType = "yaml"

	// FilePerm keeps the NApps server token private.
	FilePerm os.FileMode = 0o600
	dirPerm  os.FileMode = 0o700
)

// Config is the resolved configuration of one invocation.
type Config struct {
	Kytos   KytosConfig   `mapstructure:"kytos"`
	NApps   NAppsConfig   `mapstructure:"napps"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Log     LogConfig     `mapstructure:"log"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Paths   PathsConfig   `mapstructure:"paths"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	path string
	v    *viper.Viper
}

// KytosConfig points at the controller daemon.
type KytosConfig struct {
	API string `mapstructure:"api"`
}

// NAppsConfig points at the NApps server.
type NAppsConfig struct {
	API      string        `mapstructure:"api"`
	Repo     string        `mapstructure:"repo"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// AuthConfig holds NApps server credentials.
type AuthConfig struct {
	User  string `mapstructure:"user"`
	Token string `mapstructure:"token"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HTTPConfig tunes the HTTP clients.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// PathsConfig locates the NApps trees when no daemon is consulted.
type PathsConfig struct {
	Enabled   string `mapstructure:"enabled"`
	Installed string `mapstructure:"installed"`
}

// MetricsConfig enables the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// legacyEnv holds the un-prefixed variables older kytos-utils releases read.
// They only fill keys the config file leaves unset.
type legacyEnv struct {
	User      string `envconfig:"NAPPS_USER"`
	Token     string `envconfig:"NAPPS_TOKEN"`
	NAppsAPI  string `envconfig:"NAPPS_API_URI"`
	NAppsRepo string `envconfig:"NAPPS_REPO_URI"`
	KytosAPI  string `envconfig:"KYTOS_API"`
}

// Dir returns the config directory (~/.kytos/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// DefaultPath returns the config file location, honoring KYTOS_CONFIG.
func DefaultPath() string {
	if p := os.Getenv(branding.EnvVar("CONFIG")); p != "" {
		return p
	}
	return filepath.Join(Dir(), fileName+"."+fileType)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("kytos.api", branding.DaemonAPI())
	v.SetDefault("napps.api", branding.NAppsAPI())
	v.SetDefault("napps.repo", branding.NAppsRepo())
	v.SetDefault("napps.cache_ttl", "0s")
	v.SetDefault("auth.user", "")
	v.SetDefault("auth.token", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.retries", 2)
	v.SetDefault("paths.enabled", "/var/lib/kytos/napps")
	v.SetDefault("paths.installed", "/var/lib/kytos/napps/.installed")
	v.SetDefault("metrics.textfile", "")
}

// Load reads path (DefaultPath when empty). A missing file is not an error.
// Precedence: config file, then KYTOS_<SECTION>_<KEY> and the legacy
// NAPPS_*/KYTOS_API variables, then built-in defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var env legacyEnv
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	for key, value := range map[string]string{
		"auth.user":  env.User,
		"auth.token": env.Token,
		"napps.api":  env.NAppsAPI,
		"napps.repo": env.NAppsRepo,
		"kytos.api":  env.KytosAPI,
	} {
		if value != "" && !v.InConfig(key) {
			v.Set(key, value)
		}
	}

	cfg := &Config{path: path, v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Kytos.API = withSlash(cfg.Kytos.API)
	cfg.NApps.API = withSlash(cfg.NApps.API)
	cfg.NApps.Repo = withSlash(cfg.NApps.Repo)
	return cfg, nil
}

// Default returns the built-in configuration, ignoring file and environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{path: DefaultPath(), v: v}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Path returns the file this configuration was read from.
func (c *Config) Path() string { return c.path }

// Keys lists every known setting.
func (c *Config) Keys() []string {
	keys := c.v.AllKeys()
	slices.Sort(keys)
	return keys
}

// Get returns a config value by key. Returns empty string if not set.
func (c *Config) Get(key string) string {
	return c.v.GetString(key)
}

// Set validates key, writes it to the config file and updates c.
func (c *Config) Set(key, value string) error {
	key = strings.ToLower(key)
	if !slices.Contains(c.v.AllKeys(), key) {
		return fmt.Errorf("unknown config key %q", key)
	}
	if err := c.update(func(fv *viper.Viper) { fv.Set(key, value) }); err != nil {
		return err
	}
	c.v.Set(key, value)
	return c.v.Unmarshal(c)
}

// SaveToken stores the NApps server credentials in the config file.
func (c *Config) SaveToken(user, token string) error {
	if err := c.update(func(fv *viper.Viper) {
		fv.Set("auth.user", user)
		fv.Set("auth.token", token)
	}); err != nil {
		return err
	}
	c.Auth = AuthConfig{User: user, Token: token}
	return nil
}

// ClearToken forgets the stored token and keeps the user name.
func (c *Config) ClearToken() error {
	if err := c.update(func(fv *viper.Viper) { fv.Set("auth.token", "") }); err != nil {
		return err
	}
	c.Auth.Token = ""
	return nil
}

// update rewrites the config file from its own content only, so values that
// came from the environment or defaults are never persisted by accident.
func (c *Config) update(mutate func(*viper.Viper)) error {
	if err := os.MkdirAll(filepath.Dir(c.path), dirPerm); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	fv := viper.New()
	fv.SetConfigFile(c.path)
	fv.SetConfigType(fileType)
	if err := fv.ReadInConfig(); err != nil && !isNotExist(err) {
		return fmt.Errorf("reading config file %s: %w", c.path, err)
	}
	mutate(fv)

	if err := fv.WriteConfigAs(c.path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := platform.Chmod(c.path, FilePerm); err != nil {
		return fmt.Errorf("securing config file: %w", err)
	}
	return nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func withSlash(u string) string {
	if u == "" || strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
