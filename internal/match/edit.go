// Package match pairs the declarations of two arenas level by level and
// produces the raw edit script: inserts, deletes, updates, moves and
// reorders. Renames are never merged into updates.
package match

import (
	"fmt"
	"sort"
	"strings"

	"hotdelta/internal/decl"
)

// EditKind is the kind of a structural edit.
type EditKind uint8

const (
	Insert EditKind = iota + 1
	Delete
	Update
	Move
	Reorder
)

// AllEditKinds lists every edit kind.
var AllEditKinds = []EditKind{Insert, Delete, Update, Move, Reorder}

func (k EditKind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	case Update:
		return "update"
	case Move:
		return "move"
	case Reorder:
		return "reorder"
	}
	return "unknown"
}

// Mirror returns the kind of the edit seen in the opposite direction.
func (k EditKind) Mirror() EditKind {
	switch k {
	case Insert:
		return Delete
	case Delete:
		return Insert
	}
	return k
}

// Change is a bitset of what differs between the two sides of an update.
type Change uint32

const (
	ChangeModifiers Change = 1 << iota
	ChangeAccessibility
	ChangeAttributes
	ChangeSignature
	ChangeType
	ChangeBody
	ChangeInitializer
	ChangeConstraints
	ChangeVariance
	ChangeCaptured
	ChangeBases
	ChangeEnumMembers
	ChangeParameters
	ChangeTypeParameters
	ChangeTypeKind
	// ChangeDocument is set when a declaration with a body or initializer
	// now lives in a different document.
	ChangeDocument
)

var changeNames = []string{
	"modifiers", "accessibility", "attributes", "signature", "type", "body",
	"initializer", "constraints", "variance", "captured", "bases",
	"enumMembers", "parameters", "typeParameters", "typeKind", "document",
}

// Has reports whether all bits of c are set.
func (c Change) Has(bits Change) bool { return c&bits == bits }

// Any reports whether any bit of bits is set.
func (c Change) Any(bits Change) bool { return c&bits != 0 }

func (c Change) String() string {
	var parts []string
	for i, name := range changeNames {
		if c&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// Edit is one structural edit. Old is nil for inserts and New is nil for
// deletes. The containers are the parent declarations, nil at namespace
// level.
type Edit struct {
	Kind         EditKind
	Old          *decl.Node
	New          *decl.Node
	OldContainer *decl.Node
	NewContainer *decl.Node
	Changes      Change
}

// Node returns the new node when present, else the old one.
func (e Edit) Node() *decl.Node {
	if e.New != nil {
		return e.New
	}
	return e.Old
}

// Container returns the new container when the edit has a new side.
func (e Edit) Container() *decl.Node {
	if e.New != nil {
		return e.NewContainer
	}
	return e.OldContainer
}

// DeclKind is the declaration kind the edit applies to.
func (e Edit) DeclKind() decl.Kind { return e.Node().Kind }

// Mirror returns the edit as seen diffing in the opposite direction.
func (e Edit) Mirror() Edit {
	return Edit{
		Kind:         e.Kind.Mirror(),
		Old:          e.New,
		New:          e.Old,
		OldContainer: e.NewContainer,
		NewContainer: e.OldContainer,
		Changes:      e.Changes,
	}
}

func (e Edit) String() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteByte(' ')
	b.WriteString(e.Node().Kind.String())
	b.WriteByte(' ')
	switch e.Kind {
	case Move:
		fmt.Fprintf(&b, "%s -> %s", e.Old.DisplayName(), e.New.DisplayName())
	default:
		b.WriteString(e.Node().DisplayName())
	}
	if e.Changes != 0 {
		fmt.Fprintf(&b, " [%s]", e.Changes)
	}
	return b.String()
}

// Script is the edit script between two arenas.
type Script struct {
	Old   *decl.Arena
	New   *decl.Arena
	Edits []Edit
}

// Mirror returns the script for the opposite direction.
func (s *Script) Mirror() *Script {
	out := &Script{Old: s.New, New: s.Old, Edits: make([]Edit, len(s.Edits))}
	for i, e := range s.Edits {
		out.Edits[i] = e.Mirror()
	}
	return out
}

// Strings renders the edits sorted, for order-independent comparison.
func (s *Script) Strings() []string {
	out := make([]string, len(s.Edits))
	for i, e := range s.Edits {
		out[i] = e.String()
	}
	sort.Strings(out)
	return out
}

// Filter returns the edits of the given kinds.
func (s *Script) Filter(kinds ...EditKind) []Edit {
	var out []Edit
	for _, e := range s.Edits {
		for _, k := range kinds {
			if e.Kind == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
