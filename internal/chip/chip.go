// Package chip tracks which target chips a definition applies to.
//
// Every node in the register model carries a Set of chip identifiers. Sets
// grow by union as per-chip trees merge into the cross-chip accumulator and
// are canonicalized against the family registry once the tree is finalized:
// a family whose members are all present collapses to its family token in
// the rendered form, while membership itself stays concrete.
package chip

import (
	"path"
	"sort"
	"strings"
)

// Set is a mutable set of chip identifiers (for example "STM32F101").
// The zero value is not usable; use NewSet. An empty set is valid and
// represents "no chips yet".
type Set struct {
	members   map[string]struct{}
	canonical []string
}

// NewSet builds a set from the given chip identifiers. Empty strings are
// ignored.
func NewSet(chips ...string) *Set {
	s := &Set{members: make(map[string]struct{}, len(chips))}
	for _, c := range chips {
		if c != "" {
			s.members[c] = struct{}{}
		}
	}
	return s
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	out := NewSet()
	for m := range s.members {
		out.members[m] = struct{}{}
	}
	return out
}

// Add unions other into s. Union is commutative, associative and
// idempotent. A nil other is a no-op.
func (s *Set) Add(other *Set) {
	if other == nil {
		return
	}
	for m := range other.members {
		s.members[m] = struct{}{}
	}
	s.canonical = nil
}

// AddChips inserts individual chip identifiers into s.
func (s *Set) AddChips(chips ...string) {
	for _, c := range chips {
		if c != "" {
			s.members[c] = struct{}{}
		}
	}
	s.canonical = nil
}

// Len returns the number of chips in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.members)
}

// Empty reports whether the set holds no chips.
func (s *Set) Empty() bool { return s.Len() == 0 }

// Has reports whether the given chip identifier is a member.
func (s *Set) Has(chip string) bool {
	_, ok := s.members[chip]
	return ok
}

// Equal reports set equality on concrete membership. A nil other equals an
// empty set.
func (s *Set) Equal(other *Set) bool {
	if other == nil {
		return len(s.members) == 0
	}
	if len(s.members) != len(other.members) {
		return false
	}
	for m := range s.members {
		if _, ok := other.members[m]; !ok {
			return false
		}
	}
	return true
}

// Match reports whether any member satisfies the glob-style pattern
// ("STM32F1*" matches "STM32F101"). Malformed patterns match nothing.
func (s *Set) Match(pattern string) bool {
	for m := range s.members {
		if ok, err := path.Match(pattern, m); err == nil && ok {
			return true
		}
	}
	return false
}

// SubsetOf reports whether every member of s is also in other.
func (s *Set) SubsetOf(other *Set) bool {
	if other == nil {
		return len(s.members) == 0
	}
	for m := range s.members {
		if _, ok := other.members[m]; !ok {
			return false
		}
	}
	return true
}

// SupersetOf reports whether every member of other is also in s.
func (s *Set) SupersetOf(other *Set) bool {
	if other == nil {
		return true
	}
	return other.SubsetOf(s)
}

// UpdateFamilies recomputes the cached canonical form, substituting a family
// token once every member of that family is present. Call after the set has
// stopped growing; Add invalidates the cache.
func (s *Set) UpdateFamilies() {
	s.canonical = s.computeCanonical()
}

func (s *Set) computeCanonical() []string {
	rest := make(map[string]struct{}, len(s.members))
	for m := range s.members {
		rest[m] = struct{}{}
	}
	out := make([]string, 0, len(rest))
	for _, fam := range familyNames() {
		members := familyMembers(fam)
		if len(members) == 0 {
			continue
		}
		complete := true
		for _, m := range members {
			if _, ok := rest[m]; !ok {
				complete = false
				break
			}
		}
		if complete {
			out = append(out, fam)
			for _, m := range members {
				delete(rest, m)
			}
		}
	}
	for m := range rest {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Canonical returns the compact rendered form: family tokens for complete
// families, concrete identifiers for the rest, sorted.
func (s *Set) Canonical() []string {
	if s.canonical != nil {
		return s.canonical
	}
	return s.computeCanonical()
}

// Chips returns the concrete members, sorted.
func (s *Set) Chips() []string {
	out := make([]string, 0, len(s.members))
	for m := range s.members {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Key returns a stable identity string for the concrete membership, usable
// as a map key. Two sets have the same key iff they are Equal.
func (s *Set) Key() string {
	return strings.Join(s.Chips(), "|")
}

// Defines renders the preprocessor disjunction guarding this scope, using
// the canonical form: "defined(STM32F1) || defined(STM32L053)".
func (s *Set) Defines() string {
	parts := s.Canonical()
	terms := make([]string, len(parts))
	for i, p := range parts {
		terms[i] = "defined(" + p + ")"
	}
	return strings.Join(terms, " || ")
}

// String renders the canonical form for diagnostics.
func (s *Set) String() string {
	return "{" + strings.Join(s.Canonical(), ", ") + "}"
}
