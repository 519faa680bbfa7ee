package napps

import (
	"context"
	"errors"

	"github.com/kytos/kytos-utils/internal/logging"
	"github.com/kytos/kytos-utils/internal/napp"
)

// Install makes id installed. A working copy found by the local source wins;
// otherwise the registry must know the NApp and the controller fetches it.
// Already installed NApps are left alone.
func (m *Manager) Install(ctx context.Context, id napp.Identity) (Outcome, error) {
	outcome, err := m.install(ctx, id)
	m.observe("install", outcome)
	return outcome, err
}

func (m *Manager) install(ctx context.Context, id napp.Identity) (Outcome, error) {
	installed, err := m.IsInstalled(ctx, id.Key)
	if err != nil {
		return Failed, err
	}
	if installed {
		m.log.Info("already installed", logging.NApp(id))
		return NoOp, nil
	}

	if m.local != nil {
		m.log.Debug("searching local napp", logging.NApp(id))
		err := m.local.InstallLocal(ctx, id)
		if err == nil {
			m.log.Info("installed from local copy", logging.NApp(id))
			return Done, nil
		}
		if !errors.Is(err, napp.ErrNotFoundLocally) {
			return Failed, err
		}
	}

	if m.reg == nil {
		return Failed, &napp.NotFoundError{Key: id.Key}
	}
	m.log.Debug("not found locally, asking the napps server", logging.NApp(id))
	if _, err := m.reg.Get(ctx, id.Key); err != nil {
		return Failed, err
	}
	if err := m.ctrl.Install(ctx, id); err != nil {
		return Failed, err
	}
	m.log.Info("downloaded and installed", logging.NApp(id))
	return Done, nil
}

// Enable makes an installed NApp enabled.
func (m *Manager) Enable(ctx context.Context, id napp.Identity) (Outcome, error) {
	outcome, err := m.enable(ctx, id)
	m.observe("enable", outcome)
	return outcome, err
}

func (m *Manager) enable(ctx context.Context, id napp.Identity) (Outcome, error) {
	installed, err := m.IsInstalled(ctx, id.Key)
	if err != nil {
		return Failed, err
	}
	if !installed {
		return Failed, &napp.NotInstalledError{Key: id.Key}
	}
	enabled, err := m.IsEnabled(ctx, id.Key)
	if err != nil {
		return Failed, err
	}
	if enabled {
		m.log.Info("already enabled", logging.NApp(id))
		return NoOp, nil
	}
	if err := m.ctrl.Enable(ctx, id.Key); err != nil {
		return Failed, err
	}
	m.log.Info("enabled", logging.NApp(id))
	return Done, nil
}

// Disable makes an enabled NApp disabled. Disabling a NApp that is not
// enabled only warns.
func (m *Manager) Disable(ctx context.Context, id napp.Identity) (Outcome, error) {
	outcome, err := m.disable(ctx, id)
	m.observe("disable", outcome)
	return outcome, err
}

func (m *Manager) disable(ctx context.Context, id napp.Identity) (Outcome, error) {
	enabled, err := m.IsEnabled(ctx, id.Key)
	if err != nil {
		return Failed, err
	}
	if !enabled {
		m.log.Warn("not enabled, nothing to disable", logging.NApp(id))
		return NoOp, nil
	}
	if err := m.ctrl.Disable(ctx, id.Key); err != nil {
		return Failed, err
	}
	m.log.Info("disabled", logging.NApp(id))
	return Done, nil
}

// Uninstall removes an installed NApp, disabling it first when enabled.
func (m *Manager) Uninstall(ctx context.Context, id napp.Identity) (Outcome, error) {
	outcome, err := m.uninstall(ctx, id)
	m.observe("uninstall", outcome)
	return outcome, err
}

func (m *Manager) uninstall(ctx context.Context, id napp.Identity) (Outcome, error) {
	installed, err := m.IsInstalled(ctx, id.Key)
	if err != nil {
		return Failed, err
	}
	if !installed {
		return Failed, &napp.NotInstalledError{Key: id.Key}
	}

	// The installed copy must never disappear under an enabled NApp.
	enabled, err := m.IsEnabled(ctx, id.Key)
	if err != nil {
		return Failed, err
	}
	if enabled {
		if err := m.ctrl.Disable(ctx, id.Key); err != nil {
			return Failed, err
		}
		m.log.Info("disabled", logging.NApp(id))
	}
	if err := m.ctrl.Uninstall(ctx, id.Key); err != nil {
		return Failed, err
	}
	m.log.Info("uninstalled", logging.NApp(id))
	return Done, nil
}

// Delete removes id from the NApps server.
func (m *Manager) Delete(ctx context.Context, id napp.Identity) error {
	if m.reg == nil {
		return errors.New("no napps server configured")
	}
	err := m.reg.Delete(ctx, id.Key)
	if err != nil {
		m.observe("delete", Failed)
		return err
	}
	m.observe("delete", Done)
	m.log.Info("deleted from napps server", logging.NApp(id))
	return nil
}

// Reload asks the controller to reload the selected NApps' code.
func (m *Manager) Reload(ctx context.Context, sel napp.Selection) error {
	if !sel.All && len(sel.IDs) == 0 {
		return nil
	}
	var keys []napp.Key
	if !sel.All {
		for _, id := range sel.IDs {
			keys = append(keys, id.Key)
		}
	}
	err := m.ctrl.Reload(ctx, keys)
	if err != nil {
		m.observe("reload", Failed)
		return err
	}
	m.observe("reload", Done)
	if sel.All {
		m.log.Info("reloaded all napps")
	} else {
		for _, id := range sel.IDs {
			m.log.Info("reloaded", logging.NApp(id))
		}
	}
	return nil
}
