// Package napp defines NApp identities, the reference grammar used on the
// command line and the error taxonomy shared by every NApp operation.
package napp

import (
	"cmp"
	"regexp"
	"strings"
)

// LatestVersion is the version of an identity parsed without one. It means
// "let the registry decide", never a concrete version to compare against.
const LatestVersion = "latest"

// AllToken selects every NApp in the set an operation works on.
const AllToken = "all"

var (
	namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{2,}$`)
	refPattern  = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]{2,})/([A-Za-z][A-Za-z0-9_]{2,})(?:[:-](.*))?$`)
)

// Key is the (namespace, name) pair NApps are compared by.
type Key struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// String renders the key as namespace/name.
func (k Key) String() string {
	return k.Namespace + "/" + k.Name
}

// Compare orders keys by namespace, then name.
func (k Key) Compare(other Key) int {
	if c := cmp.Compare(k.Namespace, other.Namespace); c != 0 {
		return c
	}
	return cmp.Compare(k.Name, other.Name)
}

// Identity is a parsed NApp reference.
type Identity struct {
	Key
	Version string `json:"version"`
}

// NewIdentity builds an identity without validating it. An empty version
// becomes LatestVersion.
func NewIdentity(namespace, name, version string) Identity {
	if version == "" {
		version = LatestVersion
	}
	return Identity{Key: Key{Namespace: namespace, Name: name}, Version: version}
}

// IsLatest reports whether the identity carries no concrete version.
func (id Identity) IsLatest() bool {
	return id.Version == "" || id.Version == LatestVersion
}

// String renders namespace/name, with :version appended when concrete.
func (id Identity) String() string {
	if id.IsLatest() {
		return id.Key.String()
	}
	return id.Key.String() + ":" + id.Version
}

// ValidName reports whether s is usable as a namespace or NApp name: starts
// with a letter, then letters, digits or underscores, three characters at
// least.
func ValidName(s string) bool {
	return namePattern.MatchString(s)
}

// Parse parses ns/name, ns/name:version or ns/name-version.
func Parse(ref string) (Identity, error) {
	m := refPattern.FindStringSubmatch(strings.TrimSpace(ref))
	if m == nil {
		return Identity{}, &InvalidIdentityError{Ref: ref}
	}
	return NewIdentity(m[1], m[2], m[3]), nil
}

// MustParse is Parse for references known to be valid. It panics otherwise.
func MustParse(ref string) Identity {
	id, err := Parse(ref)
	if err != nil {
		panic(err)
	}
	return id
}

// Selection is the result of parsing a list of references: either every
// NApp of the relevant set, or an explicit list.
type Selection struct {
	All bool
	IDs []Identity
}

// SelectAll returns the "all" sentinel.
func SelectAll() Selection {
	return Selection{All: true}
}

// SelectIDs returns an explicit selection.
func SelectIDs(ids ...Identity) Selection {
	return Selection{IDs: ids}
}

// ParseMany parses command line references. The literal "all" anywhere in
// refs wins over every other entry. Malformed entries are dropped from the
// selection and reported one error each, so callers can carry on with the
// rest.
func ParseMany(refs []string) (Selection, []error) {
	for _, ref := range refs {
		if strings.TrimSpace(ref) == AllToken {
			return SelectAll(), nil
		}
	}

	var (
		sel  Selection
		errs []error
	)
	for _, ref := range refs {
		id, err := Parse(ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sel.IDs = append(sel.IDs, id)
	}
	return sel, errs
}
