package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kytos/kytos-utils/internal/daemon/daemontest"
	"github.com/kytos/kytos-utils/internal/manifest"
	"github.com/kytos/kytos-utils/internal/napp"
	"github.com/kytos/kytos-utils/internal/platform"
	"github.com/kytos/kytos-utils/internal/registry"
)

// harness runs the command tree against a fake daemon and NApps server,
// from a scratch working directory with its own config file.
type harness struct {
	dir    string
	config string
	paths  struct{ enabled, installed string }
}

func newHarness(t *testing.T, daemonURL string, reg http.Handler, extra string) *harness {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := t.TempDir()
	t.Chdir(dir)

	regURL := "http://127.0.0.1:1"
	if reg != nil {
		srv := httptest.NewServer(reg)
		t.Cleanup(srv.Close)
		regURL = srv.URL
	}

	h := &harness{dir: dir, config: filepath.Join(home, "config.yaml")}
	h.paths.enabled = filepath.Join(home, "napps")
	h.paths.installed = filepath.Join(home, "napps", ".installed")
	content := fmt.Sprintf(`kytos:
  api: %s/
napps:
  api: %s/api/
  repo: %s/repo/
log:
  level: error
http:
  timeout: 5s
  retries: 0
paths:
  enabled: %s
  installed: %s
%s`, daemonURL, regURL, regURL, h.paths.enabled, h.paths.installed, extra)
	require.NoError(t, os.WriteFile(h.config, []byte(content), 0o600))
	return h
}

// run executes the root command with stdin as input.
func (h *harness) run(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(rootCmd)
	env = nil

	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config", h.config}, args...))
	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fakeRegistry serves the catalog and single descriptors of descs.
func fakeRegistry(descs ...registry.Descriptor) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/napps/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"napps": descs})
	})
	r.Get("/api/napps/{ns}/{name}/", func(w http.ResponseWriter, req *http.Request) {
		for _, d := range descs {
			if d.Namespace() == chi.URLParam(req, "ns") && d.Name == chi.URLParam(req, "name") {
				writeJSON(w, http.StatusOK, d)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	return r
}

func descriptor(ns, name string, deps ...string) registry.Descriptor {
	return registry.Descriptor{Metadata: manifest.Metadata{
		Username: ns, Name: name, Version: "1.0", Description: name + " NApp", NAppDependencies: deps,
	}}
}

func TestListShowsStatus(t *testing.T) {
	d := daemontest.New(
		daemontest.NApp{Namespace: "kytos", Name: "of_core", Installed: true, Enabled: true,
			Meta: map[string]any{"description": "Core", "version": "1.0"}},
		daemontest.NApp{Namespace: "kytos", Name: "of_lldp", Installed: true,
			Meta: map[string]any{"description": "LLDP"}},
	)
	defer d.Close()
	h := newHarness(t, d.URL, nil, "")

	out, _, err := h.run(t, "", "napps", "list")
	require.NoError(t, err)
	assert.Regexp(t, `\[ie\]\s+\| kytos/of_core\s+\| Core`, out)
	assert.Regexp(t, `\[i-\]\s+\| kytos/of_lldp\s+\| LLDP`, out)
	assert.Contains(t, out, "Status: (i)nstalled, (e)nabled")

	out, _, err = h.run(t, "", "napps", "list", "--json")
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "of_core", records[0]["name"])
	assert.Equal(t, "installed-and-enabled", records[0]["status"])
	assert.Equal(t, "installed-only", records[1]["status"])
}

func TestListNothingInstalled(t *testing.T) {
	d := daemontest.New()
	defer d.Close()
	h := newHarness(t, d.URL, nil, "")

	out, _, err := h.run(t, "", "napps", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No NApps found.")
}

func TestEnableAllAndDisable(t *testing.T) {
	d := daemontest.New(
		daemontest.NApp{Namespace: "kytos", Name: "of_core", Installed: true, Enabled: true},
		daemontest.NApp{Namespace: "kytos", Name: "of_lldp", Installed: true},
	)
	defer d.Close()
	h := newHarness(t, d.URL, nil, "")

	out, _, err := h.run(t, "", "napps", "enable", "all")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ kytos/of_lldp: enabled")
	assert.NotContains(t, out, "of_core")
	n, _ := d.State("kytos/of_lldp")
	assert.True(t, n.Enabled)

	out, _, err = h.run(t, "", "napps", "disable", "kytos/of_lldp", "kytos/of_lldp")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ kytos/of_lldp: disabled")
	assert.Contains(t, out, "- kytos/of_lldp: already disabled")
}

func TestEnableReportsFailures(t *testing.T) {
	d := daemontest.New(daemontest.NApp{Namespace: "kytos", Name: "of_lldp", Installed: true})
	defer d.Close()
	h := newHarness(t, d.URL, nil, "")

	out, _, err := h.run(t, "", "napps", "enable", "kytos/missing", "not-a-napp", "kytos/of_lldp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 NApps failed")
	assert.Contains(t, out, "✗ kytos/missing")
	assert.Contains(t, out, "✓ kytos/of_lldp: enabled")
}

func TestInstallFromRegistryWithDependencies(t *testing.T) {
	d := daemontest.New()
	defer d.Close()
	d.Available["kytos/of_lldp"] = map[string]any{"napp_dependencies": []string{"kytos/of_core"}}
	d.Available["kytos/of_core"] = map[string]any{}
	reg := fakeRegistry(descriptor("kytos", "of_lldp", "kytos/of_core"), descriptor("kytos", "of_core"))
	h := newHarness(t, d.URL, reg, "")

	out, _, err := h.run(t, "", "napps", "install", "--no-enable", "kytos/of_lldp")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ kytos/of_lldp: installed")
	assert.Contains(t, out, "✓ kytos/of_core: installed")

	for _, id := range []string{"kytos/of_lldp", "kytos/of_core"} {
		n, ok := d.State(id)
		require.True(t, ok, id)
		assert.True(t, n.Installed, id)
		assert.False(t, n.Enabled, id)
	}
}

func TestInstallEnablesByDefault(t *testing.T) {
	d := daemontest.New()
	defer d.Close()
	d.Available["kytos/of_core"] = map[string]any{}
	h := newHarness(t, d.URL, fakeRegistry(descriptor("kytos", "of_core")), "")

	_, _, err := h.run(t, "", "napps", "install", "kytos/of_core")
	require.NoError(t, err)
	n, _ := d.State("kytos/of_core")
	assert.True(t, n.Enabled)
}

func TestInstallUnknownSuggests(t *testing.T) {
	d := daemontest.New()
	defer d.Close()
	h := newHarness(t, d.URL, fakeRegistry(descriptor("kytos", "of_lldp")), "")

	out, _, err := h.run(t, "", "napps", "install", "kytos/lldp")
	require.Error(t, err)
	assert.Contains(t, out, "✗ kytos/lldp")
	assert.Contains(t, out, "did you mean kytos/of_lldp?")
}

func TestInstallRejectsAll(t *testing.T) {
	d := daemontest.New()
	defer d.Close()
	h := newHarness(t, d.URL, nil, "")

	_, _, err := h.run(t, "", "napps", "install", "all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not accepted")
}

func TestReload(t *testing.T) {
	d := daemontest.New(daemontest.NApp{Namespace: "kytos", Name: "of_lldp", Installed: true, Enabled: true})
	defer d.Close()
	h := newHarness(t, d.URL, nil, "")

	out, _, err := h.run(t, "", "napps", "reload", "kytos/of_lldp")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ kytos/of_lldp: reloaded")

	_, _, err = h.run(t, "", "napps", "reload", "all")
	require.NoError(t, err)
	assert.Equal(t, []string{"kytos/of_lldp", "all"}, d.Reloads())
}

func TestSearch(t *testing.T) {
	d := daemontest.New(daemontest.NApp{Namespace: "kytos", Name: "of_lldp", Installed: true})
	defer d.Close()
	h := newHarness(t, d.URL, fakeRegistry(descriptor("kytos", "of_lldp"), descriptor("amlight", "sdntrace")), "")

	out, _, err := h.run(t, "", "napps", "search", "LLDP")
	require.NoError(t, err)
	assert.Regexp(t, `\[i-\]\s+\| kytos/of_lldp`, out)
	assert.NotContains(t, out, "sdntrace")

	out, _, err = h.run(t, "", "napps", "search", "--json", "*")
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Len(t, records, 2)
}

func TestDaemonUnreachable(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", nil, "")

	_, _, err := h.run(t, "", "napps", "list")
	require.Error(t, err)
	assert.True(t, napp.IsDaemonFailure(err), "got %v", err)
}

func TestVersionMismatchWarns(t *testing.T) {
	d := daemontest.New()
	defer d.Close()
	h := newHarness(t, d.URL, nil, "")

	old := buildVersion
	buildVersion = "2022.3.1"
	t.Cleanup(func() { buildVersion = old })

	_, stderr, err := h.run(t, "", "--log-level", "warn", "napps", "list")
	require.NoError(t, err)
	assert.Contains(t, stderr, "kytos (2023.2.0) and kytos-utils (2022.3.1) versions are not equal")

	_, stderr, err = h.run(t, "", "--log-level", "warn", "config", "path")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "versions are not equal")
}

func TestOfflineEnable(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", nil, "")
	dir := filepath.Join(h.paths.installed, "kytos", "of_lldp")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.FileName),
		[]byte(`{"username": "kytos", "name": "of_lldp", "version": "1.0", "description": "LLDP"}`), 0o644))

	out, _, err := h.run(t, "", "--offline", "napps", "enable", "kytos/of_lldp")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ kytos/of_lldp: enabled")
	assert.True(t, platform.IsLinked(filepath.Join(h.paths.enabled, "kytos", "of_lldp")))

	out, _, err = h.run(t, "", "--offline", "napps", "list")
	require.NoError(t, err)
	assert.Regexp(t, `\[ie\]\s+\| kytos/of_lldp\s+\| LLDP`, out)

	_, _, err = h.run(t, "", "--offline", "web", "update")
	require.Error(t, err)
}

func TestOfflineDisableDanglingLink(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", nil, "")
	dir := filepath.Join(h.paths.installed, "kytos", "of_lldp")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.FileName),
		[]byte(`{"username": "kytos", "name": "of_lldp", "version": "1.0", "description": "LLDP"}`), 0o644))

	_, _, err := h.run(t, "", "--offline", "napps", "enable", "kytos/of_lldp")
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	// The NApps server is unreachable, so doctor fails; the link is still reported.
	out, _, _ := h.run(t, "", "--offline", "doctor")
	assert.Contains(t, out, "[WARN] kytos/of_lldp is enabled but its link points to missing "+dir)

	out, _, err = h.run(t, "", "--offline", "napps", "disable", "kytos/of_lldp")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ kytos/of_lldp: disabled")
	assert.False(t, platform.IsLinked(filepath.Join(h.paths.enabled, "kytos", "of_lldp")))
}

func TestCreateAndPrepare(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", nil, "")

	out, _, err := h.run(t, "ky\nkytos\nof_demo\n\n", "napps", "create")
	require.NoError(t, err)
	assert.Contains(t, out, "Congratulations!")
	nappDir := filepath.Join(h.dir, "kytos", "of_demo")
	assert.FileExists(t, filepath.Join(nappDir, "main.py"))
	assert.DirExists(t, filepath.Join(nappDir, "ui", "k-toolbar"))

	t.Chdir(nappDir)
	out, _, err = h.run(t, "\n", "napps", "prepare")
	require.NoError(t, err)
	assert.Contains(t, out, "Please, update your openapi.yml file.")
	assert.FileExists(t, filepath.Join(nappDir, "openapi.yml"))

	// An existing document is kept unless the user agrees.
	require.NoError(t, os.WriteFile(filepath.Join(nappDir, "openapi.yml"), []byte("mine"), 0o644))
	_, _, err = h.run(t, "\n", "napps", "prepare")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(nappDir, "openapi.yml"))
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
}

func TestCreateMeta(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", nil, "")

	_, _, err := h.run(t, "kytos\nbundle\nA bundle\n", "napps", "create", "--meta")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(h.dir, "kytos", "bundle", manifest.FileName))
	assert.NoFileExists(t, filepath.Join(h.dir, "kytos", "bundle", "main.py"))
}

func TestUpload(t *testing.T) {
	var got struct {
		token, name, file string
	}
	reg := fakeRegistry()
	reg.Post("/api/napps/", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		got.token = req.FormValue("token")
		got.name = req.FormValue("name")
		if _, header, err := req.FormFile("file"); err == nil {
			got.file = header.Filename
		}
		writeJSON(w, http.StatusCreated, map[string]string{"response": "created"})
	})
	h := newHarness(t, "http://127.0.0.1:1", reg, "auth:\n  user: alice\n  token: tok\n")

	_, _, err := h.run(t, "kytos\nof_demo\n\n", "napps", "create")
	require.NoError(t, err)
	t.Chdir(filepath.Join(h.dir, "kytos", "of_demo"))

	out, _, err := h.run(t, "n\n", "napps", "upload")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ kytos/of_demo: uploaded")
	assert.Equal(t, "tok", got.token)
	assert.Equal(t, "of_demo", got.name)
	assert.Equal(t, "of_demo.napp", got.file)
}

func TestUploadNeedsDescriptor(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", nil, "")

	_, _, err := h.run(t, "", "napps", "upload")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "couldn't find kytos.json")
}

func TestUsersRegister(t *testing.T) {
	var got map[string]string
	reg := chi.NewRouter()
	reg.Post("/api/users/", func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewDecoder(req.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("User created"))
	})
	h := newHarness(t, "http://127.0.0.1:1", reg, "")

	answers := strings.Join([]string{
		"alice", "A1", "Alice", "", "secret1", "secret2", "secret1", "secret1", "alice@example.com", "", "", "", "",
	}, "\n") + "\n"
	out, stderr, err := h.run(t, answers, "users", "register")
	require.NoError(t, err)
	assert.Contains(t, out, "User created")
	assert.Contains(t, stderr, "Password does not match")
	assert.Equal(t, map[string]string{
		"username":   "alice",
		"first_name": "Alice",
		"password":   "secret1",
		"email":      "alice@example.com",
	}, got)
}

func TestWebUpdate(t *testing.T) {
	d := daemontest.New()
	defer d.Close()
	h := newHarness(t, d.URL, nil, "")

	out, _, err := h.run(t, "", "web", "update", "2.4.0")
	require.NoError(t, err)
	assert.Contains(t, out, "Web UI updated.")
	assert.Contains(t, d.Calls(), "POST /api/kytos/core/web/update/2.4.0")

	d.FailWebUpdate(http.StatusInternalServerError)
	_, _, err = h.run(t, "", "web", "update")
	require.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", nil, "auth:\n  user: alice\n  token: tok\n")

	out, _, err := h.run(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, h.config+"\n", out)

	_, _, err = h.run(t, "", "config", "set", "napps.cache_ttl", "1h")
	require.NoError(t, err)
	out, _, err = h.run(t, "", "config", "get", "napps.cache_ttl")
	require.NoError(t, err)
	assert.Equal(t, "1h\n", out)

	out, _, err = h.run(t, "", "config", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "auth.token = ********")
	assert.Contains(t, out, "auth.user = alice")

	_, _, err = h.run(t, "", "config", "set", "no.such_key", "x")
	require.Error(t, err)
}

func TestDoctor(t *testing.T) {
	d := daemontest.New(daemontest.NApp{Namespace: "kytos", Name: "ghost", Enabled: true})
	defer d.Close()
	h := newHarness(t, d.URL, fakeRegistry(descriptor("kytos", "of_lldp")), "")

	out, _, err := h.run(t, "", "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "[ OK ] kytos 2023.2.0 at")
	assert.Contains(t, out, "[WARN] kytos/ghost is enabled but not installed")
	assert.Contains(t, out, "[ OK ] 1 NApps published")
}

func TestDoctorFailsWhenDaemonIsDown(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", fakeRegistry(), "")

	out, _, err := h.run(t, "", "doctor")
	require.Error(t, err)
	assert.Contains(t, out, "[FAIL]")
}

func TestVersion(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", nil, "")

	old := buildVersion
	buildVersion = "2023.2.0"
	t.Cleanup(func() { buildVersion = old })

	out, _, err := h.run(t, "", "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "2023.2.0\n", out)
}
