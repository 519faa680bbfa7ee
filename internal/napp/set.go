package napp

import "slices"

// Set is a set of NApp keys. The zero value is not usable; use NewSet.
type Set map[Key]struct{}

// NewSet builds a set holding keys.
func NewSet(keys ...Key) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add inserts k.
func (s Set) Add(k Key) {
	s[k] = struct{}{}
}

// Contains reports whether k is in the set.
func (s Set) Contains(k Key) bool {
	_, ok := s[k]
	return ok
}

// Difference returns the keys of s that are not in other.
func (s Set) Difference(other Set) Set {
	out := make(Set)
	for k := range s {
		if !other.Contains(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

// Sorted returns the keys ordered by namespace, then name.
func (s Set) Sorted() []Key {
	keys := make([]Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, Key.Compare)
	return keys
}
