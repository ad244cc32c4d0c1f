package match

import (
	"slices"

	"hotdelta/internal/decl"
)

// Compare reports what differs between two declarations of the same
// identity. Children are compared only through the parameter and type
// parameter lists of the owner.
func Compare(o, n *decl.Node) Change {
	var c Change
	if o.Modifiers.Without(decl.AccessMask) != n.Modifiers.Without(decl.AccessMask) {
		c |= ChangeModifiers
	}
	if o.Accessibility() != n.Accessibility() {
		c |= ChangeAccessibility
	}
	if !slices.Equal(o.Attributes, n.Attributes) {
		c |= ChangeAttributes
	}
	if o.Type != n.Type {
		c |= ChangeType
	}
	if o.Body.Hash() != n.Body.Hash() || o.ChainsToThis != n.ChainsToThis {
		c |= ChangeBody
	}
	if o.Initializer.Hash() != n.Initializer.Hash() || o.DefaultValue != n.DefaultValue {
		c |= ChangeInitializer
	}
	if !slices.Equal(o.Constraints, n.Constraints) {
		c |= ChangeConstraints
	}
	if o.Variance != n.Variance {
		c |= ChangeVariance
	}
	if o.Captured != n.Captured {
		c |= ChangeCaptured
	}
	if !slices.Equal(o.Bases, n.Bases) {
		c |= ChangeBases
	}
	if !slices.Equal(o.EnumMembers, n.EnumMembers) {
		c |= ChangeEnumMembers
	}
	if o.TypeKind != n.TypeKind {
		c |= ChangeTypeKind
	}
	c |= compareParameters(o.Parameters(), n.Parameters())
	if !equalNames(o.TypeParameters(), n.TypeParameters()) {
		c |= ChangeTypeParameters
	}
	if o.Document != n.Document && (n.Body != nil || n.Initializer != nil) {
		c |= ChangeDocument
	}
	return c
}

// compareParameters compares parameter lists by position: names set
// ChangeParameters, source types and ref kinds set ChangeSignature.
func compareParameters(olds, news []*decl.Node) Change {
	if len(olds) != len(news) {
		return ChangeParameters | ChangeSignature
	}
	var c Change
	for i := range olds {
		if olds[i].Name != news[i].Name {
			c |= ChangeParameters
		}
		if olds[i].Type != news[i].Type || olds[i].Modifiers != news[i].Modifiers {
			c |= ChangeSignature
		}
	}
	return c
}

func equalNames(a, b []*decl.Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}
