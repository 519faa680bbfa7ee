package packaging

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"github.com/ulikunitz/xz"
)

// Extension is the suffix of package files.
const Extension = ".napp"

// Package describes a built package.
type Package struct {
	Files  []string      // slash separated, relative to the NApp directory
	Size   int64         // compressed size in bytes
	Digest digest.Digest // of the compressed bytes
}

// Build writes the .napp package of the NApp in dir to w: every regular file
// below dir that the ignore rules keep, under its path relative to dir.
func Build(dir string, rules *IgnoreRules, w io.Writer) (*Package, error) {
	digester := digest.Canonical.Digester()
	counter := &countingWriter{w: io.MultiWriter(w, digester.Hash())}

	xw, err := xz.NewWriter(counter)
	if err != nil {
		return nil, fmt.Errorf("creating xz stream: %w", err)
	}
	tw := tar.NewWriter(xw)

	pkg := &Package{}
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)

		if rules.Ignored(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := addFile(tw, p, rel); err != nil {
			return err
		}
		pkg.Files = append(pkg.Files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("packaging %s: %w", dir, err)
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing tar stream: %w", err)
	}
	if err := xw.Close(); err != nil {
		return nil, fmt.Errorf("closing xz stream: %w", err)
	}

	pkg.Size = counter.n
	pkg.Digest = digester.Digest()
	return pkg, nil
}

func addFile(tw *tar.Writer, src, name string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name

	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
