//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kytos/kytos-utils/internal/manifest"
	"github.com/kytos/kytos-utils/internal/napps"
	"github.com/kytos/kytos-utils/internal/packaging"
	"github.com/kytos/kytos-utils/internal/registry"
	"github.com/kytos/kytos-utils/internal/store"
)

const testToken = "s3cret-token"

// testEnv holds the isolated directories and servers of one test.
type testEnv struct {
	WorkDir string // where NApps are bootstrapped
	Roots   store.Roots
	Server  *nappsServer
	Client  *registry.Client
}

// setupTestEnv creates scratch NApp trees and a NApps server holding
// nothing. HOME points at a scratch directory so ~/.gitignore is not read.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	base := t.TempDir()
	env := &testEnv{
		WorkDir: t.TempDir(),
		Roots: store.Roots{
			Enabled:   filepath.Join(base, "napps"),
			Installed: filepath.Join(base, "napps", ".installed"),
		},
		Server: newNAppsServer(t),
	}
	env.Client = registry.New(registry.Options{
		API:  env.Server.URL + "/api/",
		Repo: env.Server.URL + "/repo/",
		Auth: registry.NewAuthenticator(registry.Credentials{User: "alice", Token: testToken}, nil, nil, nil),
	})
	return env
}

// offlineManager manages the scratch trees directly, downloading from the
// test's NApps server and linking working copies found in WorkDir.
func (e *testEnv) offlineManager() *napps.Manager {
	fsStore := store.NewFS(e.Roots, e.Client, nil)
	return napps.New(fsStore,
		napps.WithRegistry(e.Client),
		napps.WithLocalSource(store.NewLocal(e.WorkDir, store.StaticRoots(e.Roots), nil)),
	)
}

// publish packages the NApp in dir and uploads it.
func (e *testEnv) publish(t *testing.T, dir string) *packaging.Package {
	t.Helper()
	meta, err := packaging.Metadata(dir)
	if err != nil {
		t.Fatalf("Metadata(%s): %v", dir, err)
	}
	rules, err := packaging.LoadIgnoreRules(dir)
	if err != nil {
		t.Fatalf("LoadIgnoreRules(%s): %v", dir, err)
	}
	var buf bytes.Buffer
	pkg, err := packaging.Build(dir, rules, &buf)
	if err != nil {
		t.Fatalf("Build(%s): %v", dir, err)
	}
	if err := e.Client.Upload(context.Background(), meta, &buf); err != nil {
		t.Fatalf("Upload(%s): %v", dir, err)
	}
	return pkg
}

// nappsServer is an in-memory NApps server: uploads become descriptors and
// downloadable packages.
type nappsServer struct {
	*httptest.Server

	mu       sync.Mutex
	napps    map[string]registry.Descriptor
	packages map[string][]byte // keyed by <ns>/<name>-<version>.napp
}

func newNAppsServer(t *testing.T) *nappsServer {
	t.Helper()
	s := &nappsServer{napps: map[string]registry.Descriptor{}, packages: map[string][]byte{}}

	r := chi.NewRouter()
	r.Get("/api/napps/", s.catalog)
	r.Post("/api/napps/", s.upload)
	r.Get("/api/napps/{ns}/{name}/", s.descriptor)
	r.Get("/repo/{ns}/{file}", s.download)
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Published reports whether id (namespace/name) was uploaded.
func (s *nappsServer) Published(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.napps[id]
	return ok
}

func (s *nappsServer) catalog(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]registry.Descriptor, 0, len(s.napps))
	for _, d := range s.napps {
		all = append(all, d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"napps": all})
}

func (s *nappsServer) descriptor(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.napps[chi.URLParam(r, "ns")+"/"+chi.URLParam(r, "name")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "napp not found"})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *nappsServer) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.FormValue("token") != testToken {
		http.Error(w, "bad token", http.StatusUnauthorized)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d := registry.Descriptor{Metadata: manifest.Metadata{
		Username:         r.FormValue("username"),
		Name:             r.FormValue("name"),
		Version:          r.FormValue("version"),
		Description:      r.FormValue("description"),
		NAppDependencies: r.Form["napp_dependencies"],
		Tags:             r.Form["tags"],
	}}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.napps[d.Username+"/"+d.Name] = d
	s.packages[d.Username+"/"+d.Name+"-"+d.Version+packaging.Extension] = data
	writeJSON(w, http.StatusCreated, map[string]string{"response": "created"})
}

func (s *nappsServer) download(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.packages[chi.URLParam(r, "ns")+"/"+chi.URLParam(r, "file")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeManifest writes a kytos.json for ns/name under root/ns/name.
func writeManifest(t *testing.T, root, ns, name string, deps ...string) string {
	t.Helper()
	dir := filepath.Join(root, ns, name)
	meta := manifest.Metadata{
		Username:         ns,
		Name:             name,
		Version:          "1.0",
		Description:      name + " for tests",
		NAppDependencies: deps,
		Tags:             []string{},
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		t.Fatalf("encoding %s/%s: %v", ns, name, err)
	}
	writeFile(t, filepath.Join(dir, manifest.FileName), string(data))
	return dir
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Lstat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}

// assertOutcomes fails unless results carry want, in order.
func assertOutcomes(t *testing.T, results []napps.Result, want map[string]napps.Outcome, order ...string) {
	t.Helper()
	if len(results) != len(order) {
		t.Fatalf("got %d results, want %d: %+v", len(results), len(order), results)
	}
	for i, r := range results {
		if got := r.ID.Key.String(); got != order[i] {
			t.Errorf("result %d is %s, want %s", i, got, order[i])
		}
		if r.Outcome != want[order[i]] {
			t.Errorf("%s: outcome %s (err %v), want %s", order[i], r.Outcome, r.Err, want[order[i]])
		}
	}
}
