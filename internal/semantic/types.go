// Package semantic turns classified edits into symbol-level operations the
// patch generator applies to the running process: inserts, updates, deletes
// and whole-type replacements, including the members the compiler
// synthesizes from the edited declarations.
package semantic

import (
	"hotdelta/internal/decl"
	"hotdelta/internal/synth"
)

// OpKind is the kind of a semantic operation.
type OpKind string

const (
	OpInsert  OpKind = "insert"
	OpUpdate  OpKind = "update"
	OpDelete  OpKind = "delete"
	OpReplace OpKind = "replace"
)

// SyntaxMap correlates the statements of an updated body so the runtime can
// map active frames and preserve locals. Statements pairs old and new
// statement indexes of unchanged statements.
type SyntaxMap struct {
	Statements []StatementPair `json:"statements"`
}

// StatementPair pairs an old statement index with a new one.
type StatementPair struct {
	Old int `json:"old"`
	New int `json:"new"`
}

// Operation is one symbol-level edit.
type Operation struct {
	Kind   OpKind          `json:"kind"`
	Target synth.SymbolRef `json:"target"`
	// Container is the display name of the containing type, empty at
	// namespace level.
	Container string     `json:"container,omitempty"`
	SyntaxMap *SyntaxMap `json:"syntaxMap,omitempty"`
	// Stub marks an update that replaces a deleted member's body with one
	// that throws.
	Stub bool `json:"stub,omitempty"`
	// Document is the fragment authoritative for diagnostics.
	Document string    `json:"document,omitempty"`
	Span     decl.Span `json:"span"`
	Unit     string    `json:"unit"`
}

func (op Operation) String() string {
	s := string(op.Kind) + " " + op.Target.String()
	if op.Stub {
		s += " [stub]"
	}
	return s
}
