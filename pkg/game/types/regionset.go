package types

import (
	"encoding/json"
	"sort"
)

// RegionSet is a set of region ids. Values are treated as immutable once
// they are part of a Session; the With/Without helpers return new sets.
type RegionSet map[string]struct{}

// NewRegionSet builds a set from the given ids, dropping duplicates.
func NewRegionSet(ids ...string) RegionSet {
	s := make(RegionSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s RegionSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s RegionSet) Len() int {
	return len(s)
}

// Clone returns an independent copy of the set.
func (s RegionSet) Clone() RegionSet {
	out := make(RegionSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// With returns a copy of the set that also contains id.
func (s RegionSet) With(id string) RegionSet {
	out := s.Clone()
	out[id] = struct{}{}
	return out
}

// Without returns a copy of the set that does not contain id.
func (s RegionSet) Without(id string) RegionSet {
	out := s.Clone()
	delete(out, id)
	return out
}

// Equal reports whether both sets hold the same ids.
func (s RegionSet) Equal(other RegionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Sorted returns the ids in lexical order.
func (s RegionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s RegionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *RegionSet) UnmarshalJSON(b []byte) error {
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	*s = NewRegionSet(ids...)
	return nil
}
