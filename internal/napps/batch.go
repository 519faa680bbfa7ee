package napps

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/kytos/kytos-utils/internal/logging"
	"github.com/kytos/kytos-utils/internal/napp"
)

// InstallOptions tunes InstallNApps.
type InstallOptions struct {
	// Enable enables every NApp this batch newly installs.
	Enable bool
}

// transition is one of the single-NApp operations.
type transition func(context.Context, napp.Identity) (Outcome, error)

// EnableNApps enables every selected NApp. All means every disabled NApp.
func (m *Manager) EnableNApps(ctx context.Context, sel napp.Selection) ([]Result, error) {
	ids, err := m.expand(ctx, sel, m.Disabled)
	if err != nil {
		return nil, err
	}
	return m.each(ctx, "enable", ids, m.Enable)
}

// DisableNApps disables every selected NApp. All means every enabled NApp.
func (m *Manager) DisableNApps(ctx context.Context, sel napp.Selection) ([]Result, error) {
	ids, err := m.expand(ctx, sel, func(ctx context.Context) ([]napp.Key, error) {
		enabled, err := m.Enabled(ctx)
		if err != nil {
			return nil, err
		}
		return enabled.Sorted(), nil
	})
	if err != nil {
		return nil, err
	}
	return m.each(ctx, "disable", ids, m.Disable)
}

// UninstallNApps uninstalls every listed NApp.
func (m *Manager) UninstallNApps(ctx context.Context, ids []napp.Identity) ([]Result, error) {
	return m.each(ctx, "uninstall", ids, m.Uninstall)
}

// DeleteNApps deletes every listed NApp from the NApps server. A failed
// delete never stops the others.
func (m *Manager) DeleteNApps(ctx context.Context, ids []napp.Identity) []Result {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		m.log.Info("deleting from napps server", logging.NApp(id))
		if err := m.Delete(ctx, id); err != nil {
			m.log.Error("delete failed", logging.NApp(id), zap.Error(err))
			results = append(results, Result{ID: id, Outcome: Failed, Err: err})
			continue
		}
		results = append(results, Result{ID: id, Outcome: Done})
	}
	return results
}

// InstallNApps installs every listed NApp and, right after each one, its
// declared dependencies, recursively. Dependencies are attempted whether or
// not the NApp that declares them installed. Each NApp is visited once per
// batch, so cyclic declarations terminate.
func (m *Manager) InstallNApps(ctx context.Context, ids []napp.Identity, opts InstallOptions) ([]Result, error) {
	var results []Result
	err := m.installTree(ctx, ids, opts, napp.NewSet(), nil, &results)
	return results, err
}

func (m *Manager) installTree(ctx context.Context, ids []napp.Identity, opts InstallOptions,
	visited napp.Set, chain []napp.Key, results *[]Result) error {
	for _, id := range ids {
		if visited.Contains(id.Key) {
			if slices.Contains(chain, id.Key) {
				m.log.Warn("dependency cycle, skipping", logging.NApp(id),
					zap.Stringers("chain", chain))
			}
			continue
		}
		visited.Add(id.Key)

		res := m.installOne(ctx, id, opts)
		*results = append(*results, res)
		if napp.IsDaemonFailure(res.Err) {
			return res.Err
		}

		deps, err := m.Dependencies(ctx, id)
		if err != nil {
			if napp.IsDaemonFailure(err) {
				return err
			}
			m.log.Warn("cannot resolve dependencies", logging.NApp(id), zap.Error(err))
			continue
		}
		if len(deps) == 0 {
			continue
		}
		m.log.Info("installing dependencies", logging.NApp(id), zap.Int("count", len(deps)))
		if err := m.installTree(ctx, deps, opts, visited, append(slices.Clone(chain), id.Key), results); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) installOne(ctx context.Context, id napp.Identity, opts InstallOptions) Result {
	outcome, err := m.Install(ctx, id)
	if err != nil {
		m.log.Error("install failed", logging.NApp(id), zap.Error(err))
		return Result{ID: id, Outcome: outcome, Err: err}
	}
	if outcome == Done && opts.Enable {
		if _, err := m.Enable(ctx, id); err != nil {
			m.log.Error("enable after install failed", logging.NApp(id), zap.Error(err))
			return Result{ID: id, Outcome: Failed, Err: err}
		}
	}
	return Result{ID: id, Outcome: outcome}
}

// expand turns a selection into identities, resolving All through all.
func (m *Manager) expand(ctx context.Context, sel napp.Selection, all func(context.Context) ([]napp.Key, error)) ([]napp.Identity, error) {
	if !sel.All {
		return sel.IDs, nil
	}
	keys, err := all(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]napp.Identity, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, napp.NewIdentity(k.Namespace, k.Name, ""))
	}
	return ids, nil
}

// each runs fn over ids, logging and recording failures and moving on.
// Losing the daemon stops the batch since nothing else can succeed.
func (m *Manager) each(ctx context.Context, op string, ids []napp.Identity, fn transition) ([]Result, error) {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		outcome, err := fn(ctx, id)
		results = append(results, Result{ID: id, Outcome: outcome, Err: err})
		if err == nil {
			continue
		}
		if napp.IsDaemonFailure(err) {
			return results, err
		}
		m.log.Error(op+" failed", logging.NApp(id), zap.Error(err))
	}
	return results, nil
}
