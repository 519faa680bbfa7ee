package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kytos/kytos-utils/internal/napp"
	"github.com/kytos/kytos-utils/internal/platform"
)

// Roots are the two NApp trees.
type Roots struct {
	Enabled   string
	Installed string
}

// InstalledDir returns where k is installed.
func (r Roots) InstalledDir(k napp.Key) string {
	return filepath.Join(r.Installed, k.Namespace, k.Name)
}

// EnabledLink returns the link that marks k as enabled.
func (r Roots) EnabledLink(k napp.Key) string {
	return filepath.Join(r.Enabled, k.Namespace, k.Name)
}

// RootsFunc resolves the roots when first needed.
type RootsFunc func(ctx context.Context) (Roots, error)

// StaticRoots returns a RootsFunc answering r.
func StaticRoots(r Roots) RootsFunc {
	return func(context.Context) (Roots, error) { return r, nil }
}

// OnceRoots calls resolve on first use and remembers a successful answer.
func OnceRoots(resolve RootsFunc) RootsFunc {
	var (
		mu    sync.Mutex
		roots *Roots
	)
	return func(ctx context.Context) (Roots, error) {
		mu.Lock()
		defer mu.Unlock()
		if roots != nil {
			return *roots, nil
		}
		r, err := resolve(ctx)
		if err != nil {
			return Roots{}, err
		}
		if r.Enabled == "" || r.Installed == "" {
			return Roots{}, errors.New("napp directories are not configured")
		}
		roots = &r
		return r, nil
	}
}

// ensureNamespace creates root/ns as a Python package.
func ensureNamespace(root, ns string) error {
	dir := filepath.Join(root, ns)
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	if err := platform.EnsureDir(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "__init__.py"), nil, 0o644); err != nil {
		return fmt.Errorf("creating namespace %s: %w", dir, err)
	}
	return nil
}
