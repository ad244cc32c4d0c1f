package rude

import (
	"hotdelta/internal/decl"
	"hotdelta/internal/synth"
)

// ReloadableAttribute marks types replaced as a whole on every edit.
const ReloadableAttribute = "CreateNewOnMetadataUpdate"

// SymbolModel is the semantic lookup the classifier consults.
type SymbolModel interface {
	// Erase maps a source type to its runtime representation.
	Erase(t decl.TypeRef) string
	// IsReloadable reports whether edits to the type replace it as a whole.
	IsReloadable(n *decl.Node) bool
	// Synthesized answers which members the compiler generates.
	synth.Model
}

// DefaultModel answers from the declaration model alone.
type DefaultModel struct {
	synth.DefaultModel
	Eraser decl.Eraser
	// Reloadable names additional reloadable types by display name, e.g.
	// from a project manifest.
	Reloadable map[string]bool
}

// Erase implements SymbolModel.
func (m DefaultModel) Erase(t decl.TypeRef) string {
	if m.Eraser == nil {
		return decl.DefaultEraser{}.Erase(t)
	}
	return m.Eraser.Erase(t)
}

// IsReloadable implements SymbolModel.
func (m DefaultModel) IsReloadable(n *decl.Node) bool {
	if n == nil || !n.Kind.IsTypeLike() {
		return false
	}
	return n.HasAttribute(ReloadableAttribute) || m.Reloadable[n.DisplayName()]
}

// nonCustomAttributes are realized as metadata flags or signature blobs
// rather than custom attribute rows.
var nonCustomAttributes = map[string]bool{
	"StructLayout":                  true,
	"FieldOffset":                   true,
	"DllImport":                     true,
	"MarshalAs":                     true,
	"SpecialName":                   true,
	"Serializable":                  true,
	"NonSerialized":                 true,
	"ComImport":                     true,
	"MethodImpl":                    true,
	"PreserveSig":                   true,
	"Optional":                      true,
	"In":                            true,
	"Out":                           true,
	"TypeForwardedTo":               true,
	"DefaultParameterValue":         true,
	"SuppressUnmanagedCodeSecurity": true,
}

// IsNonCustomAttribute reports whether an attribute is a pseudo-custom one.
func IsNonCustomAttribute(a decl.Attribute) bool {
	return nonCustomAttributes[a.ShortName()]
}
