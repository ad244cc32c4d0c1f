package decl

import (
	"strconv"
	"strings"
)

// Identity is the matching key of a declaration: kind, container path, name,
// arity and erased parameter signature. Modifiers, attributes, bodies and
// return types do not participate, so identity survives modifier edits and
// changes on rename or signature change.
type Identity struct {
	Kind      Kind   `json:"kind"`
	Container string `json:"container,omitempty"`
	Name      string `json:"name"`
	Arity     int    `json:"arity,omitempty"`
	Signature string `json:"signature,omitempty"`
	// HasSignature distinguishes F() from a non-method named F.
	HasSignature bool `json:"-"`
}

// Key returns a string usable as a map key.
func (id Identity) Key() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(id.Kind)))
	b.WriteByte('|')
	b.WriteString(id.Container)
	b.WriteByte('|')
	b.WriteString(id.Name)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(id.Arity))
	if id.HasSignature {
		b.WriteString("|(")
		b.WriteString(id.Signature)
		b.WriteByte(')')
	}
	return b.String()
}

// Local drops the container path. Two declarations with equal local
// identities in different containers are candidates for a move.
func (id Identity) Local() Identity {
	id.Container = ""
	return id
}

// Path renders the identity as a container path for its children.
func (id Identity) Path() string {
	name := id.Name
	if id.Arity > 0 {
		name += "`" + strconv.Itoa(id.Arity)
	}
	if id.HasSignature {
		name += "(" + id.Signature + ")"
	}
	if id.Container == "" {
		return name
	}
	return id.Container + "." + name
}

// Display is Path with generic arity omitted.
func (id Identity) Display() string {
	name := id.Name
	if id.HasSignature {
		name += "(" + id.Signature + ")"
	}
	if id.Container == "" {
		return name
	}
	return id.Container + "." + name
}

func (id Identity) String() string { return id.Kind.String() + " " + id.Path() }

// identityOf computes the identity of n inside a container path.
func identityOf(n *Node, container string, eraser Eraser) Identity {
	id := Identity{Kind: n.Kind, Container: container, Name: n.Name}
	switch n.Kind {
	case KindType, KindDelegate, KindMethod:
		id.Arity = n.Arity()
	}
	switch n.Kind {
	case KindMethod:
		if n.MethodKind == MethodDestructor {
			id.Name = "Finalize"
		}
		if n.ExplicitInterface != "" {
			id.Name = n.ExplicitInterface + "." + id.Name
		}
		if n.MethodKind == MethodConversion {
			// Conversions overload on return type.
			id.Name += ":" + eraser.Erase(n.Type)
		}
		id.Signature = parameterSignature(n, eraser)
		id.HasSignature = true
	case KindConstructor:
		id.Name = ".ctor"
		if n.IsStatic() {
			id.Name = ".cctor"
		}
		id.Signature = parameterSignature(n, eraser)
		id.HasSignature = true
	case KindIndexer:
		id.Name = "this[]"
		if n.ExplicitInterface != "" {
			id.Name = n.ExplicitInterface + "." + id.Name
		}
		id.Signature = parameterSignature(n, eraser)
		id.HasSignature = true
	case KindProperty, KindEvent:
		if n.ExplicitInterface != "" {
			id.Name = n.ExplicitInterface + "." + id.Name
		}
	case KindAccessor:
		id.Name = n.AccessorKind.String()
	}
	return id
}

// parameterSignature joins the erased parameter types of n.
func parameterSignature(n *Node, eraser Eraser) string {
	params := n.Parameters()
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, ParameterTypeSignature(p, eraser))
	}
	return strings.Join(parts, ",")
}

// ParameterTypeSignature returns the erased type of a parameter including its
// ref kind.
func ParameterTypeSignature(p *Node, eraser Eraser) string {
	t := eraser.Erase(p.Type)
	switch {
	case p.Has(ModRef) && p.Has(ModReadonly):
		return "ref readonly " + t
	case p.Has(ModRef):
		return "ref " + t
	case p.Has(ModOut):
		return "out " + t
	case p.Has(ModIn):
		return "in " + t
	}
	return t
}
