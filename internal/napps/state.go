package napps

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/kytos/kytos-utils/internal/logging"
	"github.com/kytos/kytos-utils/internal/napp"
)

// Enabled returns the NApps the controller currently has enabled.
func (m *Manager) Enabled(ctx context.Context) (napp.Set, error) {
	keys, err := m.ctrl.Enabled(ctx)
	if err != nil {
		return nil, err
	}
	return napp.NewSet(keys...), nil
}

// Installed returns the NApps the controller currently has installed.
func (m *Manager) Installed(ctx context.Context) (napp.Set, error) {
	keys, err := m.ctrl.Installed(ctx)
	if err != nil {
		return nil, err
	}
	return napp.NewSet(keys...), nil
}

// Disabled returns installed minus enabled, sorted. Enabled NApps missing
// from the installed set are ignored here; see Dangling.
func (m *Manager) Disabled(ctx context.Context) ([]napp.Key, error) {
	installed, err := m.Installed(ctx)
	if err != nil {
		return nil, err
	}
	enabled, err := m.Enabled(ctx)
	if err != nil {
		return nil, err
	}
	return installed.Difference(enabled).Sorted(), nil
}

// Dangling returns NApps reported enabled but not installed, which happens
// when an installed copy is removed behind the controller's back.
func (m *Manager) Dangling(ctx context.Context) ([]napp.Key, error) {
	installed, err := m.Installed(ctx)
	if err != nil {
		return nil, err
	}
	enabled, err := m.Enabled(ctx)
	if err != nil {
		return nil, err
	}
	return enabled.Difference(installed).Sorted(), nil
}

// IsInstalled reports whether k is installed.
func (m *Manager) IsInstalled(ctx context.Context, k napp.Key) (bool, error) {
	installed, err := m.Installed(ctx)
	if err != nil {
		return false, err
	}
	return installed.Contains(k), nil
}

// IsEnabled reports whether k is enabled.
func (m *Manager) IsEnabled(ctx context.Context, k napp.Key) (bool, error) {
	enabled, err := m.Enabled(ctx)
	if err != nil {
		return false, err
	}
	return enabled.Contains(k), nil
}

// Dependencies returns the NApps id declares in napp_dependencies. The
// installed copy is asked first; a NApp that is not installed is looked up
// in the registry instead.
func (m *Manager) Dependencies(ctx context.Context, id napp.Identity) ([]napp.Identity, error) {
	installed, err := m.IsInstalled(ctx, id.Key)
	if err != nil {
		return nil, err
	}

	var refs []string
	switch {
	case installed:
		if err := m.metadata(ctx, id.Key, "napp_dependencies", &refs); err != nil {
			return nil, err
		}
	case m.reg != nil:
		desc, err := m.reg.Get(ctx, id.Key)
		if err != nil {
			return nil, fmt.Errorf("dependencies of %s: %w", id.Key, err)
		}
		refs = desc.NAppDependencies
	default:
		return nil, &napp.NotInstalledError{Key: id.Key}
	}

	deps := make([]napp.Identity, 0, len(refs))
	for _, ref := range refs {
		dep, err := napp.Parse(ref)
		if err != nil {
			m.log.Warn("ignoring malformed dependency", logging.NApp(id), zap.String("dependency", ref))
			continue
		}
		// Dependencies are always resolved to whatever the registry serves.
		deps = append(deps, napp.NewIdentity(dep.Namespace, dep.Name, ""))
	}
	return deps, nil
}

// Description returns the description of an installed NApp.
func (m *Manager) Description(ctx context.Context, k napp.Key) (string, error) {
	var desc string
	if err := m.metadata(ctx, k, "description", &desc); err != nil {
		return "", err
	}
	return desc, nil
}

// Version returns the version of an installed NApp, "latest" when the
// descriptor has none.
func (m *Manager) Version(ctx context.Context, k napp.Key) (string, error) {
	var version string
	if err := m.metadata(ctx, k, "version", &version); err != nil {
		return "", err
	}
	if version == "" {
		return napp.LatestVersion, nil
	}
	return version, nil
}

func (m *Manager) metadata(ctx context.Context, k napp.Key, field string, out any) error {
	raw, err := m.ctrl.Metadata(ctx, k, field)
	if err != nil {
		return err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s of %s: %w", field, k, err)
	}
	return nil
}
