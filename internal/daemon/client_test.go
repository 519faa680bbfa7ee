package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kytos/kytos-utils/internal/daemon/daemontest"
	"github.com/kytos/kytos-utils/internal/napp"
)

var (
	ofLLDP   = napp.Key{Namespace: "kytos", Name: "of_lldp"}
	mefEline = napp.Key{Namespace: "kytos", Name: "mef_eline"}
	topology = napp.Key{Namespace: "kytos", Name: "topology"}
)

func newFixture(t *testing.T) (*daemontest.Server, *Client) {
	t.Helper()
	srv := daemontest.New(
		daemontest.NApp{Namespace: "kytos", Name: "of_lldp", Installed: true, Enabled: true,
			Meta: map[string]any{"description": "Discover links", "napp_dependencies": []string{"kytos/of_core"}}},
		daemontest.NApp{Namespace: "kytos", Name: "mef_eline", Installed: true},
	)
	t.Cleanup(srv.Close)
	return srv, New(Options{API: srv.URL})
}

func TestEnabledAndInstalled(t *testing.T) {
	_, c := newFixture(t)
	ctx := context.Background()

	enabled, err := c.Enabled(ctx)
	require.NoError(t, err)
	assert.Equal(t, []napp.Key{ofLLDP}, enabled)

	installed, err := c.Installed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []napp.Key{mefEline, ofLLDP}, installed)
}

func TestMetadata(t *testing.T) {
	_, c := newFixture(t)
	ctx := context.Background()

	raw, err := c.Metadata(ctx, ofLLDP, "napp_dependencies")
	require.NoError(t, err)
	var deps []string
	require.NoError(t, json.Unmarshal(raw, &deps))
	assert.Equal(t, []string{"kytos/of_core"}, deps)

	raw, err = c.Metadata(ctx, mefEline, "version")
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))

	_, err = c.Metadata(ctx, topology, "version")
	var ni *napp.NotInstalledError
	require.ErrorAs(t, err, &ni)
	assert.Equal(t, topology, ni.Key)
}

func TestLifecycle(t *testing.T) {
	srv, c := newFixture(t)
	ctx := context.Background()

	require.NoError(t, c.Enable(ctx, mefEline))
	state, _ := srv.State("kytos/mef_eline")
	assert.True(t, state.Enabled)

	require.NoError(t, c.Disable(ctx, ofLLDP))
	state, _ = srv.State("kytos/of_lldp")
	assert.False(t, state.Enabled)

	require.NoError(t, c.Uninstall(ctx, ofLLDP))
	state, _ = srv.State("kytos/of_lldp")
	assert.False(t, state.Installed)

	err := c.Enable(ctx, topology)
	var ni *napp.NotInstalledError
	require.ErrorAs(t, err, &ni)
}

func TestInstall(t *testing.T) {
	srv, c := newFixture(t)
	srv.Available["kytos/topology"] = map[string]any{"version": "2023.2"}
	ctx := context.Background()

	require.NoError(t, c.Install(ctx, napp.MustParse("kytos/topology")))
	state, ok := srv.State("kytos/topology")
	require.True(t, ok)
	assert.True(t, state.Installed)
	assert.False(t, state.Enabled)

	assert.Error(t, c.Install(ctx, napp.MustParse("kytos/unknown")))
}

func TestReload(t *testing.T) {
	srv, c := newFixture(t)
	ctx := context.Background()

	require.NoError(t, c.Reload(ctx, nil))
	require.NoError(t, c.Reload(ctx, []napp.Key{ofLLDP}))
	assert.Equal(t, []string{"all", "kytos/of_lldp"}, srv.Reloads())

	err := c.Reload(ctx, []napp.Key{mefEline})
	var re *napp.RegistryError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusBadRequest, re.Status)
	assert.Equal(t, "napp not enabled", re.Detail)
}

func TestRootsAndVersion(t *testing.T) {
	_, c := newFixture(t)
	ctx := context.Background()

	roots, err := c.Roots(ctx)
	require.NoError(t, err)
	assert.Equal(t, Roots{Enabled: "/var/lib/kytos/napps", Installed: "/var/lib/kytos/napps/.installed"}, roots)

	version, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2023.2.0", version)
}

func TestUpdateWeb(t *testing.T) {
	srv, c := newFixture(t)
	ctx := context.Background()

	require.NoError(t, c.UpdateWeb(ctx, ""))
	require.NoError(t, c.UpdateWeb(ctx, "2.4.1"))
	assert.Contains(t, srv.Calls(), "POST /api/kytos/core/web/update/2.4.1")

	srv.FailWebUpdate(http.StatusInternalServerError)
	err := c.UpdateWeb(ctx, "")
	var pe *napp.DaemonProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusInternalServerError, pe.Status)
}

func TestStateQueryRejected(t *testing.T) {
	srv, _ := newFixture(t)
	srv.FailStateQueries(http.StatusInternalServerError)
	c := New(Options{API: srv.URL, Retries: 1})
	ctx := context.Background()

	_, err := c.Installed(ctx)
	var pe *napp.DaemonProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusInternalServerError, pe.Status)
	assert.Equal(t, srv.URL+"/api/kytos/core/napps_installed", pe.URL)
	assert.False(t, napp.IsDaemonFailure(err))

	_, err = c.Enabled(ctx)
	require.ErrorAs(t, err, &pe)
	assert.False(t, napp.IsDaemonFailure(err))

	// One retry per query before giving up.
	calls := 0
	for _, call := range srv.Calls() {
		if call == "GET /api/kytos/core/napps_installed" {
			calls++
		}
	}
	assert.Equal(t, 2, calls)
}

func TestUnreachableDaemon(t *testing.T) {
	c := New(Options{API: "http://127.0.0.1:1"})

	_, err := c.Enabled(context.Background())
	require.Error(t, err)
	assert.True(t, napp.IsDaemonFailure(err))

	var du *napp.DaemonUnreachableError
	require.ErrorAs(t, err, &du)
	assert.Equal(t, "http://127.0.0.1:1/api/kytos/core/napps_enabled", du.URL)
}
