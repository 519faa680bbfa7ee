package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kytos/kytos-utils/internal/logging"
	"github.com/kytos/kytos-utils/internal/manifest"
	"github.com/kytos/kytos-utils/internal/napp"
	"github.com/kytos/kytos-utils/internal/packaging"
	"github.com/kytos/kytos-utils/internal/platform"
)

// ErrReloadUnsupported is returned by FS.Reload: reloading code needs a
// running daemon.
var ErrReloadUnsupported = errors.New("reloading napps needs a running kytos daemon")

// Fetcher downloads NApp packages.
type Fetcher interface {
	Download(ctx context.Context, id napp.Identity) (io.ReadCloser, error)
}

// FS is a controller that works on the NApp trees directly, for hosts
// where the daemon is not running. Changes take effect the next time the
// daemon starts.
type FS struct {
	roots Roots
	fetch Fetcher
	log   *zap.Logger
}

// NewFS returns an FS over roots. fetch may be nil, in which case only
// working-copy installs are possible.
func NewFS(roots Roots, fetch Fetcher, log *zap.Logger) *FS {
	if log == nil {
		log = zap.NewNop()
	}
	return &FS{roots: roots, fetch: fetch, log: log}
}

// Roots returns the trees FS works on.
func (s *FS) Roots() Roots { return s.roots }

// Installed lists the NApps with a kytos.json in the installed root.
func (s *FS) Installed(context.Context) ([]napp.Key, error) {
	return scan(s.roots.Installed, hasDescriptor)
}

// Enabled lists the NApps linked from the enabled root, whether or not
// their target is still there.
func (s *FS) Enabled(context.Context) ([]napp.Key, error) {
	return scan(s.roots.Enabled, platform.IsLinked)
}

// scan walks root/<ns>/<name> and keeps the entries accepted by keep.
// Link markers are reported under the name they stand for.
func scan(root string, keep func(dir string) bool) ([]napp.Key, error) {
	namespaces, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}

	set := napp.NewSet()
	for _, ns := range namespaces {
		if !napp.ValidName(ns.Name()) {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(root, ns.Name()))
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := strings.TrimSuffix(e.Name(), platform.MarkerSuffix)
			if !napp.ValidName(name) {
				continue
			}
			if keep(filepath.Join(root, ns.Name(), name)) {
				set.Add(napp.Key{Namespace: ns.Name(), Name: name})
			}
		}
	}
	return set.Sorted(), nil
}

// Metadata reads one field of an installed NApp's kytos.json.
func (s *FS) Metadata(_ context.Context, k napp.Key, field string) (json.RawMessage, error) {
	raw, err := manifest.ParseRaw(filepath.Join(s.roots.InstalledDir(k), manifest.FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &napp.NotInstalledError{Key: k}
	}
	if err != nil {
		return nil, err
	}
	v, ok := raw[field]
	if !ok {
		return nil, nil
	}
	return json.Marshal(v)
}

// Enable links the installed NApp into the enabled root.
func (s *FS) Enable(ctx context.Context, k napp.Key) error {
	if !s.installed(k) {
		return &napp.NotInstalledError{Key: k}
	}
	if err := ensureNamespace(s.roots.Enabled, k.Namespace); err != nil {
		return err
	}
	err := platform.Link(s.roots.InstalledDir(k), s.roots.EnabledLink(k))
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	return err
}

// Disable removes the enabled link. A link whose installed copy is gone is
// removed too.
func (s *FS) Disable(_ context.Context, k napp.Key) error {
	link := s.roots.EnabledLink(k)
	if !platform.IsLinked(link) {
		return nil
	}
	err := platform.Unlink(link)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Install downloads the package of id and unpacks it into the installed
// root.
func (s *FS) Install(ctx context.Context, id napp.Identity) error {
	if s.fetch == nil {
		return fmt.Errorf("installing %s: no napps server to download from", id)
	}
	rc, err := s.fetch.Download(ctx, id)
	if err != nil {
		return err
	}
	defer rc.Close()

	tmp, err := os.MkdirTemp("", "kytos-napp-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	if err := packaging.Extract(rc, tmp); err != nil {
		return fmt.Errorf("unpacking %s: %w", id, err)
	}
	src, err := manifest.FindFor(tmp, id.Key)
	if errors.Is(err, napp.ErrNotFoundLocally) {
		return fmt.Errorf("package of %s holds no matching %s", id, manifest.FileName)
	}
	if err != nil {
		return err
	}

	if err := ensureNamespace(s.roots.Installed, id.Namespace); err != nil {
		return err
	}
	dst := s.roots.InstalledDir(id.Key)
	if err := move(src, dst); err != nil {
		return fmt.Errorf("installing %s into %s: %w", id, dst, err)
	}
	// Temporary directories are private; installed NApps are not.
	if err := platform.Chmod(dst, 0o755); err != nil {
		return err
	}
	s.log.Debug("unpacked", logging.NApp(id), zap.String("dir", dst))
	return nil
}

// Uninstall removes the NApp from the installed root. A linked working copy
// is only unlinked; its files are left alone.
func (s *FS) Uninstall(_ context.Context, k napp.Key) error {
	dir := s.roots.InstalledDir(k)
	if platform.IsLinked(dir) {
		return platform.Unlink(dir)
	}
	if !s.installed(k) {
		return &napp.NotInstalledError{Key: k}
	}
	return os.RemoveAll(dir)
}

// Reload always fails with ErrReloadUnsupported.
func (s *FS) Reload(context.Context, []napp.Key) error {
	return ErrReloadUnsupported
}

func (s *FS) installed(k napp.Key) bool {
	return hasDescriptor(s.roots.InstalledDir(k))
}

func hasDescriptor(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, manifest.FileName))
	return err == nil
}
