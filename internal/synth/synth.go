// Package synth models the members a compiler generates from declarations:
// record equality and printing, deconstruction, primary and implicit
// constructors, captured parameter fields and delegate invocation methods.
// Both the edit classifier and the semantic edit synthesizer consult it.
package synth

import (
	"strings"

	"hotdelta/internal/decl"
	"hotdelta/internal/partial"
)

// SynthesizedMember is a kind of compiler-generated member.
type SynthesizedMember string

const (
	PrintMembers        SynthesizedMember = "PrintMembers"
	EqualsMember        SynthesizedMember = "Equals"
	GetHashCodeMember   SynthesizedMember = "GetHashCode"
	CopyConstructor     SynthesizedMember = "CopyConstructor"
	Deconstruct         SynthesizedMember = "Deconstruct"
	PrimaryConstructor  SynthesizedMember = "PrimaryConstructor"
	ImplicitConstructor SynthesizedMember = "ImplicitConstructor"
	StaticConstructor   SynthesizedMember = "StaticConstructor"
	CapturedField       SynthesizedMember = "CapturedField"
	DelegateInvoke      SynthesizedMember = "Invoke"
	DelegateBeginInvoke SynthesizedMember = "BeginInvoke"
)

// CascadeOrder is the order cascaded operations of one type are emitted in.
// Operations on data members go right after the copy constructor.
var CascadeOrder = []SynthesizedMember{
	PrintMembers,
	EqualsMember,
	GetHashCodeMember,
	CopyConstructor,
	Deconstruct,
	PrimaryConstructor,
	ImplicitConstructor,
	StaticConstructor,
	CapturedField,
	DelegateInvoke,
	DelegateBeginInvoke,
}

// SurfaceChange is a change to the part of a type that synthesized members
// are generated from.
type SurfaceChange string

const (
	SurfacePrintable           SurfaceChange = "printable"           // members shown by PrintMembers
	SurfaceInstanceState       SurfaceChange = "instanceState"       // fields compared, hashed and copied
	SurfacePositional          SurfaceChange = "positional"          // primary constructor parameter list
	SurfaceCapture             SurfaceChange = "capture"             // captured primary constructor parameters
	SurfaceInstanceInitializer SurfaceChange = "instanceInitializer" // instance field and property initializers
	SurfaceStaticInitializer   SurfaceChange = "staticInitializer"   // static field and property initializers
	SurfaceDelegateParameters  SurfaceChange = "delegateParameters"  // delegate parameter names
)

// Dependencies lists the synthesized members regenerated when a surface
// changes.
var Dependencies = map[SurfaceChange][]SynthesizedMember{
	SurfacePrintable:           {PrintMembers},
	SurfaceInstanceState:       {EqualsMember, GetHashCodeMember, CopyConstructor},
	SurfacePositional:          {Deconstruct, PrimaryConstructor},
	SurfaceCapture:             {PrimaryConstructor, CapturedField},
	SurfaceInstanceInitializer: {PrimaryConstructor, ImplicitConstructor},
	SurfaceStaticInitializer:   {StaticConstructor},
	SurfaceDelegateParameters:  {DelegateInvoke, DelegateBeginInvoke},
}

// SymbolRef identifies a runtime symbol.
type SymbolRef struct {
	Kind      string `json:"kind"`
	Container string `json:"container,omitempty"`
	Name      string `json:"name"`
	Signature string `json:"signature,omitempty"`
	// HasSignature distinguishes M() from a non-method named M.
	HasSignature bool `json:"hasSignature,omitempty"`
	// Synthesized is set for compiler-generated members.
	Synthesized SynthesizedMember `json:"synthesized,omitempty"`
}

// RefOf returns the symbol of a declaration.
func RefOf(n *decl.Node) SymbolRef {
	id := n.Identity()
	return SymbolRef{
		Kind:         n.Kind.String(),
		Container:    containerPath(id.Container),
		Name:         id.Name,
		Signature:    id.Signature,
		HasSignature: id.HasSignature,
	}
}

// containerPath drops the parameter list of a method container, so the
// parameters of F(int) live in "C.F".
func containerPath(p string) string {
	if i := strings.IndexByte(p, '('); i >= 0 && strings.HasSuffix(p, ")") {
		return p[:i]
	}
	return p
}

// Key returns a string usable as a map key.
func (r SymbolRef) Key() string {
	k := r.Kind + "|" + r.Container + "|" + r.Name
	if r.HasSignature {
		k += "(" + r.Signature + ")"
	}
	return k
}

func (r SymbolRef) String() string {
	name := r.Name
	if r.HasSignature {
		name += "(" + r.Signature + ")"
	}
	if r.Container != "" {
		name = r.Container + "." + name
	}
	return r.Kind + " " + name
}

// Synthesized is one compiler-generated member.
type Synthesized struct {
	Member SynthesizedMember
	Ref    SymbolRef
}

// Model answers which members the compiler synthesizes for a type.
type Model interface {
	// Synthesized lists the generated members of the type declared by the
	// fragments. Hand-written members suppress their generated counterpart.
	Synthesized(fragments []*decl.Node, eraser decl.Eraser) []Synthesized
}

// DefaultModel derives synthesized members from the declaration model.
type DefaultModel struct{}

// Synthesized implements Model.
func (DefaultModel) Synthesized(fragments []*decl.Node, eraser decl.Eraser) []Synthesized {
	if len(fragments) == 0 {
		return nil
	}
	t := fragments[0]
	path := t.Identity().Path()
	var members []*decl.Node
	var params []*decl.Node
	for _, f := range fragments {
		members = append(members, f.Members()...)
		if f.HasPrimaryConstructor() {
			params = f.Parameters()
		}
	}
	declared := map[string]bool{}
	for _, m := range members {
		id := m.Identity()
		declared[id.Name+"("+id.Signature+")"] = true
	}

	var out []Synthesized
	add := func(member SynthesizedMember, kind, name, sig string) {
		if kind != "field" && declared[name+"("+sig+")"] {
			return
		}
		out = append(out, Synthesized{Member: member, Ref: SymbolRef{
			Kind:         kind,
			Container:    path,
			Name:         name,
			Signature:    sig,
			HasSignature: kind != "field",
			Synthesized:  member,
		}})
	}

	if t.Kind == decl.KindDelegate {
		for _, pm := range t.PseudoMembers() {
			switch pm.Name {
			case "Invoke":
				add(DelegateInvoke, "method", pm.Name, erasedList(eraser, pm.Signature))
			case "BeginInvoke":
				add(DelegateBeginInvoke, "method", pm.Name, erasedList(eraser, pm.Signature))
			}
		}
		return out
	}
	if t.Kind != decl.KindType {
		return nil
	}

	self := t.Name
	if t.TypeKind.IsRecord() {
		add(PrintMembers, "method", "PrintMembers", "StringBuilder")
		add(EqualsMember, "method", "Equals", self)
		add(GetHashCodeMember, "method", "GetHashCode", "")
		if t.TypeKind == decl.TypeRecord {
			add(CopyConstructor, "constructor", ".ctor", self)
		}
		if len(params) > 0 {
			add(Deconstruct, "method", "Deconstruct", outList(params, eraser))
		}
	}
	if len(params) > 0 {
		out = append(out, Synthesized{Member: PrimaryConstructor, Ref: SymbolRef{
			Kind:         "constructor",
			Container:    path,
			Name:         ".ctor",
			Signature:    paramList(params, eraser),
			HasSignature: true,
			Synthesized:  PrimaryConstructor,
		}})
		if !t.TypeKind.IsRecord() {
			for _, p := range params {
				if p.Captured {
					add(CapturedField, "field", "<"+p.Name+">P", "")
				}
			}
		}
	}
	if partial.ImplicitConstructor(fragments, false) {
		add(ImplicitConstructor, "constructor", ".ctor", "")
	}
	if partial.ImplicitConstructor(fragments, true) {
		add(StaticConstructor, "constructor", ".cctor", "")
	}
	return out
}

func paramList(params []*decl.Node, eraser decl.Eraser) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, decl.ParameterTypeSignature(p, eraser))
	}
	return strings.Join(parts, ",")
}

func outList(params []*decl.Node, eraser decl.Eraser) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, "out "+eraser.Erase(p.Type))
	}
	return strings.Join(parts, ",")
}

func erasedList(eraser decl.Eraser, sig string) string {
	if sig == "" {
		return ""
	}
	var parts []string
	for _, p := range splitSignature(sig) {
		parts = append(parts, eraser.Erase(decl.TypeRef(p)))
	}
	return strings.Join(parts, ",")
}

// splitSignature splits a comma separated type list outside brackets.
func splitSignature(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

// Replaces reports whether a hand-written member with the given symbol takes
// the place of a member the compiler generates for the type made of the
// fragments.
func Replaces(m Model, fragments []*decl.Node, eraser decl.Eraser, ref SymbolRef) bool {
	if len(fragments) == 0 || !fragments[0].Kind.IsTypeLike() {
		return false
	}
	for _, s := range m.Synthesized(fragments, eraser) {
		if s.Ref.Key() == ref.Key() {
			return true
		}
	}
	return false
}
