// Package capability models the edit categories a host runtime can apply to
// a running process. Lookups are total: a name the host did not report, or
// one this package does not know, is absent.
package capability

import (
	"sort"
	"strings"
)

// Name identifies one capability.
type Name string

const (
	Baseline                           Name = "Baseline"
	AddMethodToExistingType            Name = "AddMethodToExistingType"
	AddStaticFieldToExistingType       Name = "AddStaticFieldToExistingType"
	AddInstanceFieldToExistingType     Name = "AddInstanceFieldToExistingType"
	NewTypeDefinition                  Name = "NewTypeDefinition"
	ChangeCustomAttributes             Name = "ChangeCustomAttributes"
	UpdateParameters                   Name = "UpdateParameters"
	AddExplicitInterfaceImplementation Name = "AddExplicitInterfaceImplementation"
	AddFieldRva                        Name = "AddFieldRva"
	GenericAddMethodToExistingType     Name = "GenericAddMethodToExistingType"
	GenericUpdateMethod                Name = "GenericUpdateMethod"
	GenericAddFieldToExistingType      Name = "GenericAddFieldToExistingType"
	AddNonVirtualMemberToInterface     Name = "AddNonVirtualMemberToInterface"
)

// Known lists every capability name in a stable order.
var Known = []Name{
	Baseline,
	AddMethodToExistingType,
	AddStaticFieldToExistingType,
	AddInstanceFieldToExistingType,
	NewTypeDefinition,
	ChangeCustomAttributes,
	UpdateParameters,
	AddExplicitInterfaceImplementation,
	AddFieldRva,
	GenericAddMethodToExistingType,
	GenericUpdateMethod,
	GenericAddFieldToExistingType,
	AddNonVirtualMemberToInterface,
}

// IsKnown reports whether the name is one of Known.
func (n Name) IsKnown() bool {
	for _, k := range Known {
		if k == n {
			return true
		}
	}
	return false
}

// Set is an immutable capability set. The zero value is empty.
type Set struct {
	names map[Name]bool
}

// Of builds a set from names. Unknown names are kept so they round-trip,
// but they never enable any edit.
func Of(names ...Name) Set {
	s := Set{names: make(map[Name]bool, len(names))}
	for _, n := range names {
		if n != "" {
			s.names[n] = true
		}
	}
	return s
}

// Parse reads names separated by commas or whitespace, as reported by a host
// ("Baseline AddMethodToExistingType NewTypeDefinition").
func Parse(s string) Set {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == ';'
	})
	names := make([]Name, 0, len(fields))
	for _, f := range fields {
		names = append(names, Name(f))
	}
	return Of(names...)
}

// Has reports whether the capability is present.
func (s Set) Has(n Name) bool { return s.names[n] }

// HasAll reports whether every capability is present.
func (s Set) HasAll(names ...Name) bool {
	for _, n := range names {
		if !s.names[n] {
			return false
		}
	}
	return true
}

// With returns a new set with the names added.
func (s Set) With(names ...Name) Set {
	return Of(append(s.Names(), names...)...)
}

// Without returns a new set with the names removed.
func (s Set) Without(names ...Name) Set {
	drop := make(map[Name]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var keep []Name
	for n := range s.names {
		if !drop[n] {
			keep = append(keep, n)
		}
	}
	return Of(keep...)
}

// Union returns the capabilities of both sets.
func (s Set) Union(other Set) Set { return s.With(other.Names()...) }

// Contains reports whether s is a superset of other.
func (s Set) Contains(other Set) bool { return s.HasAll(other.Names()...) }

// Len returns the number of names in the set.
func (s Set) Len() int { return len(s.names) }

// Names returns the names sorted, known names first in declaration order.
func (s Set) Names() []Name {
	out := make([]Name, 0, len(s.names))
	for _, k := range Known {
		if s.names[k] {
			out = append(out, k)
		}
	}
	var unknown []Name
	for n := range s.names {
		if !n.IsKnown() {
			unknown = append(unknown, n)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return append(out, unknown...)
}

func (s Set) String() string {
	names := s.Names()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, " ")
}
