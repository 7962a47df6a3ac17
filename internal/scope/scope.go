// Package scope models OAuth scopes as sets with subset semantics.
package scope

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Scope names: lowercase, start and end with [a-z0-9], middle may contain
// [a-z0-9:_.-], 1..64 chars. Examples: contacts:read, data_events:write.
var nameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

// ValidName reports whether name is an acceptable scope name.
func ValidName(name string) bool {
	return nameRe.MatchString(name)
}

// Set is an immutable, sorted, duplicate-free set of scope names.
// The zero value is the empty set.
type Set struct {
	names []string
}

// New builds a set from names, dropping blanks and duplicates.
func New(names ...string) Set {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return Set{names: out}
}

// Parse reads a space (or comma) separated scope string, as carried in the
// OAuth "scope" parameter and claim.
func Parse(s string) Set {
	return New(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})...)
}

// ParseStrict is Parse plus name validation.
func ParseStrict(s string) (Set, error) {
	set := Parse(s)
	if err := set.Validate(); err != nil {
		return Set{}, err
	}
	return set, nil
}

// Validate checks every name against the scope grammar.
func (s Set) Validate() error {
	for _, n := range s.names {
		if !ValidName(n) {
			return fmt.Errorf("invalid scope name %q", n)
		}
	}
	return nil
}

func (s Set) Len() int      { return len(s.names) }
func (s Set) IsEmpty() bool { return len(s.names) == 0 }

// Has reports membership.
func (s Set) Has(name string) bool {
	i := sort.SearchStrings(s.names, name)
	return i < len(s.names) && s.names[i] == name
}

// Contains reports whether other ⊆ s. The empty set is contained in every set.
func (s Set) Contains(other Set) bool {
	return len(s.Missing(other)) == 0
}

// SubsetOf reports whether s ⊆ other.
func (s Set) SubsetOf(other Set) bool {
	return other.Contains(s)
}

// Missing returns the names of required that s lacks, sorted.
func (s Set) Missing(required Set) []string {
	var out []string
	for _, n := range required.names {
		if !s.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

// Intersect returns s ∩ other.
func (s Set) Intersect(other Set) Set {
	out := make([]string, 0, len(s.names))
	for _, n := range s.names {
		if other.Has(n) {
			out = append(out, n)
		}
	}
	return Set{names: out}
}

// Equal reports set equality.
func (s Set) Equal(other Set) bool {
	if len(s.names) != len(other.names) {
		return false
	}
	for i := range s.names {
		if s.names[i] != other.names[i] {
			return false
		}
	}
	return true
}

// Slice returns a copy of the sorted names.
func (s Set) Slice() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// String joins the names with a single space.
func (s Set) String() string {
	return strings.Join(s.names, " ")
}

// MarshalJSON encodes the set as an array of names.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON accepts either an array of names or a space separated string.
func (s *Set) UnmarshalJSON(b []byte) error {
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*s = New(arr...)
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("scope: expected array or string: %w", err)
	}
	*s = Parse(str)
	return nil
}

// UnmarshalYAML accepts the same two shapes as UnmarshalJSON.
func (s *Set) UnmarshalYAML(unmarshal func(any) error) error {
	var arr []string
	if err := unmarshal(&arr); err == nil {
		*s = New(arr...)
		return nil
	}
	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}
	*s = Parse(str)
	return nil
}
