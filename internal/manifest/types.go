package manifest

import (
	"fmt"

	"github.com/kytos/kytos-utils/internal/napp"
)

// FileName is the descriptor file name.
const FileName = "kytos.json"

// Metadata is the content of kytos.json.
type Metadata struct {
	Username         string   `json:"username,omitempty"`
	Author           string   `json:"author,omitempty"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Version          string   `json:"version"`
	NAppDependencies []string `json:"napp_dependencies"`
	License          string   `json:"license,omitempty"`
	URL              string   `json:"url,omitempty"`
	Tags             []string `json:"tags"`
}

// Namespace returns the publishing user. Older descriptors call it author.
func (m *Metadata) Namespace() string {
	if m.Username != "" {
		return m.Username
	}
	return m.Author
}

// Key returns the (namespace, name) pair the descriptor declares.
func (m *Metadata) Key() napp.Key {
	return napp.Key{Namespace: m.Namespace(), Name: m.Name}
}

// Matches reports whether the descriptor belongs to k.
func (m *Metadata) Matches(k napp.Key) bool {
	return m.Key() == k
}

// Dependencies parses napp_dependencies.
func (m *Metadata) Dependencies() ([]napp.Identity, error) {
	deps := make([]napp.Identity, 0, len(m.NAppDependencies))
	for _, ref := range m.NAppDependencies {
		id, err := napp.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("%s dependency: %w", m.Key(), err)
		}
		deps = append(deps, id)
	}
	return deps, nil
}
