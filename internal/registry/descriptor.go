package registry

import (
	"github.com/Masterminds/semver/v3"

	"github.com/kytos/kytos-utils/internal/manifest"
)

// Descriptor is a NApp as published on the NApps server.
type Descriptor struct {
	manifest.Metadata
	Readme   string   `json:"readme,omitempty"`
	Versions []string `json:"versions,omitempty"`
}

// Latest returns the newest published version. Versions that are not
// semantic versions are ignored; without any, the descriptor's own version
// is returned.
func (d *Descriptor) Latest() string {
	var best *semver.Version
	raw := d.Version
	for _, v := range append([]string{d.Version}, d.Versions...) {
		sv, err := semver.NewVersion(v)
		if err != nil {
			continue
		}
		if best == nil || sv.GreaterThan(best) {
			best, raw = sv, v
		}
	}
	return raw
}
