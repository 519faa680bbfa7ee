package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kytos/kytos-utils/internal/branding"
	"github.com/kytos/kytos-utils/internal/config"
	"github.com/kytos/kytos-utils/internal/daemon"
	"github.com/kytos/kytos-utils/internal/logging"
	"github.com/kytos/kytos-utils/internal/metrics"
	"github.com/kytos/kytos-utils/internal/napps"
	"github.com/kytos/kytos-utils/internal/registry"
	"github.com/kytos/kytos-utils/internal/store"
)

// app wires the clients one command needs from the loaded configuration.
// Clients are built on first use.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	out    io.Writer
	prompt *terminalPrompter
	rec    *metrics.Metrics

	daemonClient   *daemon.Client
	registryClient *registry.Client
	fsStore        *store.FS
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		log:    log,
		out:    cmd.OutOrStdout(),
		prompt: newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()),
		rec:    metrics.New(),
	}, nil
}

func userAgent() string {
	return branding.UserAgent(buildVersion)
}

func (a *app) daemon() *daemon.Client {
	if a.daemonClient == nil {
		a.daemonClient = daemon.New(daemon.Options{
			API:       a.cfg.Kytos.API,
			Timeout:   a.cfg.HTTP.Timeout,
			Retries:   a.cfg.HTTP.Retries,
			UserAgent: userAgent(),
			Logger:    a.log.Named("daemon"),
		})
	}
	return a.daemonClient
}

func (a *app) registry() *registry.Client {
	if a.registryClient != nil {
		return a.registryClient
	}

	log := a.log.Named("registry")
	var cache *registry.Cache
	if a.cfg.NApps.CacheTTL > 0 {
		path, err := registry.DefaultCachePath()
		if err != nil {
			log.Debug("catalog cache disabled", zap.Error(err))
		} else {
			cache = registry.NewCache(path, a.cfg.NApps.CacheTTL)
		}
	}

	creds := registry.Credentials{User: a.cfg.Auth.User, Token: a.cfg.Auth.Token}
	a.registryClient = registry.New(registry.Options{
		API:       a.cfg.NApps.API,
		Repo:      a.cfg.NApps.Repo,
		Timeout:   a.cfg.HTTP.Timeout,
		Retries:   a.cfg.HTTP.Retries,
		UserAgent: userAgent(),
		Logger:    log,
		Cache:     cache,
		Auth:      registry.NewAuthenticator(creds, a.prompt, a.cfg, log.Named("auth")),
	})
	return a.registryClient
}

// store returns the filesystem controller used with --offline.
func (a *app) store() *store.FS {
	if a.fsStore == nil {
		roots := store.Roots{Enabled: a.cfg.Paths.Enabled, Installed: a.cfg.Paths.Installed}
		a.fsStore = store.NewFS(roots, a.registry(), a.log.Named("store"))
	}
	return a.fsStore
}

func (a *app) controller() napps.Controller {
	if offline {
		return a.store()
	}
	return a.daemon()
}

// roots resolves where NApps live: the configured paths offline, the
// daemon's own directories otherwise.
func (a *app) roots() store.RootsFunc {
	if offline {
		return store.StaticRoots(a.store().Roots())
	}
	d := a.daemon()
	return store.OnceRoots(func(ctx context.Context) (store.Roots, error) {
		r, err := d.Roots(ctx)
		if err != nil {
			return store.Roots{}, err
		}
		return store.Roots{Enabled: r.Enabled, Installed: r.Installed}, nil
	})
}

func (a *app) manager() (*napps.Manager, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}
	return napps.New(a.controller(),
		napps.WithLocalSource(store.NewLocal(cwd, a.roots(), a.log.Named("local"))),
		napps.WithRegistry(a.registry()),
		napps.WithLogger(a.log.Named("napps")),
		napps.WithRecorder(a.rec),
	), nil
}

// close flushes what the command leaves behind.
func (a *app) close() error {
	defer func() { _ = a.log.Sync() }()
	if a.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := a.rec.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
