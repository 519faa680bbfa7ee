// Package compat checks that the client and the daemon it talks to belong
// to the same release line.
package compat

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"
)

// DevVersion is the version of builds without release information. It is
// never reported as a mismatch.
const DevVersion = "dev"

// CompareVersions compares two version strings using semver.
// Returns -1 if a < b, 0 if equal, 1 if a > b.
// A leading "v" is ignored.
func CompareVersions(a, b string) (int, error) {
	av, err := parseSemver(a)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", a, err)
	}
	bv, err := parseSemver(b)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", b, err)
	}
	return av.Compare(bv), nil
}

// SameRelease reports whether a and b share major and minor version, e.g.
// 2023.2.0 and 2023.2.1. Strings that are not versions must be equal.
func SameRelease(a, b string) bool {
	av, aerr := parseSemver(a)
	bv, berr := parseSemver(b)
	if aerr != nil || berr != nil {
		return strings.TrimPrefix(a, "v") == strings.TrimPrefix(b, "v")
	}
	return av.Major() == bv.Major() && av.Minor() == bv.Minor()
}

// parseSemver strips a leading "v" and parses the version string.
func parseSemver(version string) (*semver.Version, error) {
	return semver.NewVersion(strings.TrimPrefix(version, "v"))
}

// VersionSource reports the daemon's version.
type VersionSource interface {
	Version(ctx context.Context) (string, error)
}

// Check warns when the daemon behind src runs another release than client.
// It stays quiet when the daemon cannot be asked; commands that need it will
// report that themselves.
func Check(ctx context.Context, src VersionSource, client string, log *zap.Logger) bool {
	if client == "" || client == DevVersion {
		return true
	}
	daemon, err := src.Version(ctx)
	if err != nil {
		log.Debug("skipping version check", zap.Error(err))
		return true
	}
	if daemon == "" || SameRelease(daemon, client) {
		return true
	}
	log.Warn(fmt.Sprintf("kytos (%s) and kytos-utils (%s) versions are not equal", daemon, client))
	return false
}
