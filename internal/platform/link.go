package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// MarkerSuffix is appended to a link path to name its stand-in marker file.
const MarkerSuffix = ".link"

// symlinkFunc is swapped in tests to exercise the marker fallback.
var symlinkFunc = os.Symlink

// Link creates link pointing at target, creating link's parent directories.
// When the platform refuses symlinks a marker file is written instead.
// It fails with fs.ErrExist when link is already present.
func Link(target, link string) error {
	if IsLinked(link) {
		return fmt.Errorf("linking %s: %w", link, fs.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(link), err)
	}

	err := symlinkFunc(target, link)
	if err == nil {
		return nil
	}
	if runtime.GOOS != "windows" && !errors.Is(err, errors.ErrUnsupported) {
		return fmt.Errorf("linking %s -> %s: %w", link, target, err)
	}

	if werr := os.WriteFile(link+MarkerSuffix, []byte(target+"\n"), 0o644); werr != nil {
		return fmt.Errorf("writing link marker for %s: %w", link, werr)
	}
	return nil
}

// Unlink removes link or its marker. Removing an absent link returns an
// error wrapping fs.ErrNotExist.
func Unlink(link string) error {
	if info, err := os.Lstat(link); err == nil {
		if info.Mode()&fs.ModeSymlink == 0 {
			return fmt.Errorf("%s is not a link", link)
		}
		return os.Remove(link)
	}
	if err := os.Remove(link + MarkerSuffix); err != nil {
		return fmt.Errorf("unlinking %s: %w", link, fs.ErrNotExist)
	}
	return nil
}

// IsLinked reports whether link exists as a symlink or a marker. Whether the
// target still exists does not matter.
func IsLinked(link string) bool {
	if info, err := os.Lstat(link); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		return true
	}
	_, err := os.Stat(link + MarkerSuffix)
	return err == nil
}

// LinkTarget returns where link points to.
func LinkTarget(link string) (string, error) {
	target, err := os.Readlink(link)
	if err == nil {
		return target, nil
	}
	data, readErr := os.ReadFile(link + MarkerSuffix)
	if readErr != nil {
		return "", fmt.Errorf("reading link %s: %w", link, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// IsDangling reports whether link exists but its target does not.
func IsDangling(link string) bool {
	if !IsLinked(link) {
		return false
	}
	target, err := LinkTarget(link)
	if err != nil {
		return true
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(link), target)
	}
	_, err = os.Stat(target)
	return err != nil
}
