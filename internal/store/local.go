package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kytos/kytos-utils/internal/logging"
	"github.com/kytos/kytos-utils/internal/manifest"
	"github.com/kytos/kytos-utils/internal/napp"
	"github.com/kytos/kytos-utils/internal/platform"
)

// Local installs NApps from a working copy by linking it into the installed
// root, so edits take effect without reinstalling.
type Local struct {
	dir   string
	roots RootsFunc
	log   *zap.Logger
}

// NewLocal returns a Local looking for working copies under dir.
func NewLocal(dir string, roots RootsFunc, log *zap.Logger) *Local {
	if log == nil {
		log = zap.NewNop()
	}
	return &Local{dir: dir, roots: roots, log: log}
}

// InstallLocal links the working copy of id, found at dir or
// dir/<namespace>/<name>, into the installed root. It returns
// napp.ErrNotFoundLocally when there is no such copy.
func (l *Local) InstallLocal(ctx context.Context, id napp.Identity) error {
	src, err := manifest.FindFor(l.dir, id.Key)
	if err != nil {
		return err
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	roots, err := l.roots(ctx)
	if err != nil {
		return err
	}
	if err := ensureNamespace(roots.Installed, id.Namespace); err != nil {
		return err
	}

	err = platform.Link(src, roots.InstalledDir(id.Key))
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s is already present in %s", id.Key, roots.Installed)
	}
	if err != nil {
		return err
	}
	l.log.Debug("linked working copy", logging.NApp(id), zap.String("source", src))
	return nil
}
