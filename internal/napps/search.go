package napps

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/kytos/kytos-utils/internal/logging"
	"github.com/kytos/kytos-utils/internal/napp"
	"github.com/kytos/kytos-utils/internal/registry"
)

// Status is the local state of a NApp at query time.
type Status int

const (
	NotInstalled Status = iota
	InstalledOnly
	InstalledEnabled
)

// Flags renders the status the way listings show it: (i)nstalled, (e)nabled.
func (s Status) Flags() string {
	switch s {
	case InstalledEnabled:
		return "[ie]"
	case InstalledOnly:
		return "[i-]"
	default:
		return "[--]"
	}
}

func (s Status) String() string {
	switch s {
	case InstalledEnabled:
		return "installed-and-enabled"
	case InstalledOnly:
		return "installed-only"
	default:
		return "not-installed"
	}
}

// MarshalText renders the status in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func statusOf(k napp.Key, installed, enabled napp.Set) Status {
	switch {
	case installed.Contains(k) && enabled.Contains(k):
		return InstalledEnabled
	case installed.Contains(k):
		return InstalledOnly
	default:
		return NotInstalled
	}
}

// Record is a NApp annotated with its local status.
type Record struct {
	napp.Key
	Status      Status   `json:"status"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// GlobPattern compiles a shell-like pattern, where * matches anything, into
// a case-insensitive expression that matches anywhere in a string.
func GlobPattern(pattern string) (*regexp.Regexp, error) {
	quoted := strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, `.*`)
	re, err := regexp.Compile("(?i)" + quoted)
	if err != nil {
		return nil, fmt.Errorf("compiling search pattern %q: %w", pattern, err)
	}
	return re, nil
}

// Search returns the NApps server entries whose namespace/name, description
// or any tag matches re, sorted by key and annotated with their local
// status. The annotation is for display only.
func (m *Manager) Search(ctx context.Context, re *regexp.Regexp) ([]Record, error) {
	if m.reg == nil {
		return nil, errors.New("no napps server configured")
	}
	catalog, err := m.reg.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	var matched []registry.Descriptor
	for _, desc := range catalog {
		if matches(re, desc) {
			matched = append(matched, desc)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}

	installed, err := m.Installed(ctx)
	if err != nil {
		return nil, err
	}
	enabled, err := m.Enabled(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(matched))
	for _, desc := range matched {
		k := desc.Key()
		records = append(records, Record{
			Key:         k,
			Status:      statusOf(k, installed, enabled),
			Version:     desc.Version,
			Description: desc.Description,
			Tags:        desc.Tags,
		})
	}
	slices.SortFunc(records, func(a, b Record) int { return a.Key.Compare(b.Key) })
	return records, nil
}

func matches(re *regexp.Regexp, desc registry.Descriptor) bool {
	subjects := append([]string{desc.Key().String(), desc.Description}, desc.Tags...)
	return slices.ContainsFunc(subjects, re.MatchString)
}

// List returns every installed NApp with its status and description. The
// description is fetched per NApp on each call.
func (m *Manager) List(ctx context.Context) ([]Record, error) {
	installed, err := m.Installed(ctx)
	if err != nil {
		return nil, err
	}
	enabled, err := m.Enabled(ctx)
	if err != nil {
		return nil, err
	}

	keys := installed.Sorted()
	records := make([]Record, 0, len(keys))
	for _, k := range keys {
		rec := Record{Key: k, Status: statusOf(k, installed, enabled)}
		if rec.Description, err = m.Description(ctx, k); err != nil {
			if napp.IsDaemonFailure(err) {
				return nil, err
			}
			m.log.Debug("no description", logging.NApp(k), zap.Error(err))
		}
		if rec.Version, err = m.Version(ctx, k); err != nil {
			if napp.IsDaemonFailure(err) {
				return nil, err
			}
			m.log.Debug("no version", logging.NApp(k), zap.Error(err))
		}
		records = append(records, rec)
	}
	return records, nil
}

// Suggest returns up to limit catalog entries whose namespace/name looks
// like k. It is a best effort: registry errors yield no suggestions.
func (m *Manager) Suggest(ctx context.Context, k napp.Key, limit int) []string {
	if m.reg == nil {
		return nil
	}
	catalog, err := m.reg.Catalog(ctx)
	if err != nil {
		m.log.Debug("no suggestions", logging.NApp(k), zap.Error(err))
		return nil
	}
	names := make([]string, 0, len(catalog))
	for _, desc := range catalog {
		names = append(names, desc.Key().String())
	}

	var out []string
	for _, match := range fuzzy.Find(k.String(), names) {
		if len(out) == limit {
			break
		}
		out = append(out, match.Str)
	}
	return out
}
