package decl

import (
	"strings"
)

// TypeRef is a type as written in source.
type TypeRef string

// Attribute is one attribute application.
type Attribute struct {
	Name      string `json:"name" yaml:"name" msgpack:"n"`
	Arguments string `json:"arguments,omitempty" yaml:"arguments,omitempty" msgpack:"a"`
}

// ShortName strips the namespace qualifier and the "Attribute" suffix.
func (a Attribute) ShortName() string {
	name := a.Name
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if len(name) > len("Attribute") {
		name = strings.TrimSuffix(name, "Attribute")
	}
	return name
}

func (a Attribute) String() string {
	if a.Arguments == "" {
		return a.ShortName()
	}
	return a.ShortName() + "(" + a.Arguments + ")"
}

// BodyFeatures flags constructs in a body that affect how an update can be
// applied.
type BodyFeatures uint8

const (
	FeatureStackAlloc BodyFeatures = 1 << iota
	FeatureAwait
	FeatureYield
	FeatureLambda
	// FeatureDataBlob marks constant data the compiler stores in a static
	// data field, such as UTF-8 string literals.
	FeatureDataBlob
)

// Body is the opaque content of a method body or initializer. Statements are
// kept only to correlate statements across an update.
type Body struct {
	Statements []string     `json:"statements" yaml:"statements" msgpack:"s"`
	Features   BodyFeatures `json:"features,omitempty" yaml:"features,omitempty" msgpack:"f"`
}

// NewBody builds a body from statement texts and detects its features.
func NewBody(statements ...string) *Body {
	b := &Body{Statements: statements}
	b.Features = DetectFeatures(strings.Join(statements, "\n"))
	return b
}

// DetectFeatures scans source text for feature keywords.
func DetectFeatures(text string) BodyFeatures {
	var f BodyFeatures
	if containsWord(text, "stackalloc") {
		f |= FeatureStackAlloc
	}
	if containsWord(text, "await") {
		f |= FeatureAwait
	}
	if strings.Contains(text, "yield return") || strings.Contains(text, "yield break") {
		f |= FeatureYield
	}
	if strings.Contains(text, "=>") || containsWord(text, "delegate") {
		f |= FeatureLambda
	}
	if strings.Contains(text, `"u8`) {
		f |= FeatureDataBlob
	}
	return f
}

func containsWord(text, word string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], word)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(word)
		if (start == 0 || !isIdentChar(text[start-1])) && (end == len(text) || !isIdentChar(text[end])) {
			return true
		}
		i = end
	}
}

func isIdentChar(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// Has reports whether the body uses all of the given features.
func (b *Body) Has(f BodyFeatures) bool {
	return b != nil && b.Features&f == f
}

// Hash returns the content hash of the body. A nil body hashes to "".
func (b *Body) Hash() string {
	if b == nil {
		return ""
	}
	return NewHasher().HashBody(b)
}

// EnumMember is a pseudo-member of an enum. Value is empty when implicit.
type EnumMember struct {
	Name  string `json:"name" yaml:"name" msgpack:"n"`
	Value string `json:"value,omitempty" yaml:"value,omitempty" msgpack:"v"`
}

// Span is a 1-indexed inclusive line range.
type Span struct {
	StartLine int `json:"startLine" yaml:"startLine,omitempty" msgpack:"s"`
	EndLine   int `json:"endLine" yaml:"endLine,omitempty" msgpack:"e"`
}

// Node is one declaration.
type Node struct {
	Kind         Kind         `msgpack:"k"`
	Name         string       `msgpack:"n"`
	TypeKind     TypeKind     `msgpack:"tk,omitempty"`
	MethodKind   MethodKind   `msgpack:"mk,omitempty"`
	AccessorKind AccessorKind `msgpack:"ak,omitempty"`

	// Type is the return type of methods, the declared type of fields,
	// properties, indexers, events and parameters, and the return type of
	// delegates.
	Type TypeRef `msgpack:"t,omitempty"`

	Modifiers  Modifiers   `msgpack:"m,omitempty"`
	Attributes []Attribute `msgpack:"at,omitempty"`

	Body        *Body `msgpack:"b,omitempty"`
	Initializer *Body `msgpack:"i,omitempty"`

	// Bases lists base types and implemented interfaces.
	Bases []TypeRef `msgpack:"bs,omitempty"`

	// Constraints of a type parameter, and its variance ("in", "out" or "").
	Constraints []string `msgpack:"c,omitempty"`
	Variance    string   `msgpack:"v,omitempty"`

	// ExplicitInterface names the interface of an explicit implementation.
	ExplicitInterface string `msgpack:"ei,omitempty"`

	// ChainsToThis is set on constructors with a this(...) initializer.
	ChainsToThis bool `msgpack:"ct,omitempty"`

	// Captured is set on primary constructor parameters read by an instance
	// member.
	Captured bool `msgpack:"cp,omitempty"`

	// DefaultValue of an optional parameter.
	DefaultValue string `msgpack:"dv,omitempty"`

	EnumMembers []EnumMember `msgpack:"em,omitempty"`
	Children    []*Node      `msgpack:"ch,omitempty"`

	Document string `msgpack:"d,omitempty"`
	Span     Span   `msgpack:"sp,omitempty"`

	id        NodeID
	parent    NodeID
	namespace string
	identity  Identity
	arena     *Arena
}

// ID returns the arena index of the node, or NoNode before the node was
// added to an arena.
func (n *Node) ID() NodeID { return n.id }

// Namespace returns the effective namespace of the node.
func (n *Node) Namespace() string { return n.namespace }

// Identity returns the identity computed when the node was added to an arena.
func (n *Node) Identity() Identity { return n.identity }

// Parent returns the containing declaration, or nil for namespace members.
func (n *Node) Parent() *Node {
	if n.arena == nil || !n.parent.IsValid() {
		return nil
	}
	return n.arena.Node(n.parent)
}

// ContainingType returns the closest enclosing type, excluding n itself.
func (n *Node) ContainingType() *Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind == KindType {
			return p
		}
	}
	return nil
}

// Has reports whether all modifier bits are set.
func (n *Node) Has(m Modifiers) bool { return n.Modifiers.Has(m) }

// IsStatic reports whether the member is static. Constants are static.
func (n *Node) IsStatic() bool { return n.Modifiers.Any(ModStatic | ModConst) }

// IsGeneric reports whether the node declares type parameters.
func (n *Node) IsGeneric() bool { return n.Arity() > 0 }

// Arity returns the number of type parameters.
func (n *Node) Arity() int {
	count := 0
	for _, c := range n.Children {
		if c.Kind == KindTypeParameter {
			count++
		}
	}
	return count
}

// ChildrenOf returns the children of the given kind in order.
func (n *Node) ChildrenOf(kind Kind) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Parameters returns the parameter children in order.
func (n *Node) Parameters() []*Node { return n.ChildrenOf(KindParameter) }

// TypeParameters returns the type parameter children in order.
func (n *Node) TypeParameters() []*Node { return n.ChildrenOf(KindTypeParameter) }

// Members returns the member children: everything except parameters and type
// parameters.
func (n *Node) Members() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind != KindParameter && c.Kind != KindTypeParameter {
			out = append(out, c)
		}
	}
	return out
}

// Accessor returns the accessor child of the given kind.
func (n *Node) Accessor(kind AccessorKind) *Node {
	for _, c := range n.Children {
		if c.Kind == KindAccessor && c.AccessorKind == kind {
			return c
		}
	}
	return nil
}

// HasPrimaryConstructor reports whether a type declares a parameter list.
func (n *Node) HasPrimaryConstructor() bool {
	return n.Kind == KindType && len(n.Parameters()) > 0
}

// HasAttribute reports whether an attribute with the given short name is
// applied.
func (n *Node) HasAttribute(short string) bool {
	return n.Attribute(short) != nil
}

// Attribute returns the first attribute with the given short name.
func (n *Node) Attribute(short string) *Attribute {
	for i := range n.Attributes {
		if n.Attributes[i].ShortName() == short {
			return &n.Attributes[i]
		}
	}
	return nil
}

// IsAsync reports whether the method compiles to an async state machine.
func (n *Node) IsAsync() bool { return n.Has(ModAsync) }

// IsIterator reports whether the body yields.
func (n *Node) IsIterator() bool { return n.Body.Has(FeatureYield) }

// IsStateMachine reports whether the method compiles to a state machine.
func (n *Node) IsStateMachine() bool { return n.IsAsync() || n.IsIterator() }

// IsVirtualSlot reports whether the member occupies or overrides a vtable
// slot.
func (n *Node) IsVirtualSlot() bool {
	return n.Modifiers.Any(ModVirtual | ModAbstract | ModOverride)
}

// IsAutoProperty reports whether a property or event stores its value in a
// compiler-generated backing field. Field-like events have no accessors.
func (n *Node) IsAutoProperty() bool {
	switch n.Kind {
	case KindProperty:
		if n.Modifiers.Any(ModAbstract|ModExtern) || len(n.ChildrenOf(KindAccessor)) == 0 {
			return false
		}
		if t := n.ContainingType(); t != nil && t.TypeKind == TypeInterface {
			return false
		}
		for _, acc := range n.ChildrenOf(KindAccessor) {
			if acc.Body != nil {
				return false
			}
		}
		return true
	case KindEvent:
		if n.Modifiers.Any(ModAbstract | ModExtern) {
			return false
		}
		if t := n.ContainingType(); t != nil && t.TypeKind == TypeInterface {
			return false
		}
		return len(n.ChildrenOf(KindAccessor)) == 0
	}
	return false
}

// HoldsInstanceState reports whether the declaration adds per-instance
// storage to its containing type.
func (n *Node) HoldsInstanceState() bool {
	if n.IsStatic() {
		return false
	}
	switch n.Kind {
	case KindField:
		return true
	case KindProperty, KindEvent:
		return n.IsAutoProperty()
	case KindParameter:
		if p := n.Parent(); p != nil && p.Kind == KindType {
			return p.TypeKind.IsRecord() || n.Captured
		}
	}
	return false
}

// Layout returns the instance layout of a type. Value types are sequential
// unless StructLayout says otherwise.
func (n *Node) Layout() Layout {
	if a := n.Attribute("StructLayout"); a != nil {
		switch {
		case strings.Contains(a.Arguments, "Explicit"):
			return LayoutExplicit
		case strings.Contains(a.Arguments, "Sequential"):
			return LayoutSequential
		case strings.Contains(a.Arguments, "Auto"):
			return LayoutAuto
		}
	}
	if n.TypeKind.IsValueType() {
		return LayoutSequential
	}
	return LayoutAuto
}

// Accessibility returns the effective accessibility, applying the language
// defaults: members are private, top-level types internal, interface members
// public.
func (n *Node) Accessibility() Accessibility {
	def := AccessPrivate
	switch {
	case n.Kind.IsTypeLike() && n.Parent() == nil:
		def = AccessInternal
	case n.Kind == KindAccessor || n.Kind == KindParameter || n.Kind == KindTypeParameter:
		if p := n.Parent(); p != nil {
			return p.Accessibility()
		}
	default:
		if t := n.ContainingType(); t != nil && t.TypeKind == TypeInterface {
			def = AccessPublic
		}
		if n.Kind == KindEnumMember {
			def = AccessPublic
		}
	}
	return accessibilityOf(n.Modifiers, def)
}

// DisplayName renders the node for diagnostics, e.g. "C.F(int)".
func (n *Node) DisplayName() string {
	id := n.identity
	if id.Kind == 0 {
		return n.Name
	}
	return id.Display()
}

// PseudoMember is a runtime member synthesized from the declaration and used
// only when emitting semantic edits.
type PseudoMember struct {
	Name      string
	Signature string
}

// PseudoMembers returns enum fields or delegate invocation methods.
func (n *Node) PseudoMembers() []PseudoMember {
	switch {
	case n.Kind == KindType && n.TypeKind == TypeEnum:
		out := make([]PseudoMember, 0, len(n.EnumMembers))
		for _, m := range n.EnumMembers {
			out = append(out, PseudoMember{Name: m.Name})
		}
		return out
	case n.Kind == KindDelegate:
		var params []string
		for _, p := range n.Parameters() {
			params = append(params, string(p.Type))
		}
		sig := strings.Join(params, ",")
		begin := sig
		if begin != "" {
			begin += ","
		}
		return []PseudoMember{
			{Name: "Invoke", Signature: sig},
			{Name: "BeginInvoke", Signature: begin + "AsyncCallback,object"},
			{Name: "EndInvoke", Signature: "IAsyncResult"},
		}
	}
	return nil
}

// Document is one source document's declarations. Members holds namespace
// declarations and namespace-level types in source order.
type Document struct {
	Path    string  `msgpack:"p"`
	Members []*Node `msgpack:"m"`
}

// Walk visits every node of the document in pre-order.
func (d *Document) Walk(fn func(n *Node) bool) {
	var visit func(nodes []*Node)
	visit = func(nodes []*Node) {
		for _, n := range nodes {
			if fn(n) {
				visit(n.Children)
			}
		}
	}
	visit(d.Members)
}

// Clone returns a deep copy of the document without arena state.
func (d *Document) Clone() *Document {
	out := &Document{Path: d.Path, Members: make([]*Node, 0, len(d.Members))}
	for _, m := range d.Members {
		out.Members = append(out.Members, m.Clone())
	}
	return out
}

// Clone returns a deep copy of the subtree without arena state.
func (n *Node) Clone() *Node {
	c := *n
	c.id, c.parent, c.namespace, c.identity, c.arena = NoNode, NoNode, "", Identity{}, nil
	c.Attributes = append([]Attribute(nil), n.Attributes...)
	c.Bases = append([]TypeRef(nil), n.Bases...)
	c.Constraints = append([]string(nil), n.Constraints...)
	c.EnumMembers = append([]EnumMember(nil), n.EnumMembers...)
	c.Body = n.Body.clone()
	c.Initializer = n.Initializer.clone()
	c.Children = make([]*Node, 0, len(n.Children))
	for _, ch := range n.Children {
		c.Children = append(c.Children, ch.Clone())
	}
	return &c
}

func (b *Body) clone() *Body {
	if b == nil {
		return nil
	}
	return &Body{Statements: append([]string(nil), b.Statements...), Features: b.Features}
}

// HasImplicitConstructor reports whether the compiler generates a
// constructor for the type: a parameterless instance constructor for classes
// without explicit or primary constructors, or a static constructor for types
// with static member initializers but no explicit static constructor.
func (n *Node) HasImplicitConstructor(static bool) bool {
	if n.Kind != KindType {
		return false
	}
	for _, c := range n.ChildrenOf(KindConstructor) {
		if c.IsStatic() == static {
			return false
		}
	}
	if static {
		for _, m := range n.Members() {
			if m.IsStatic() && !m.Has(ModConst) && m.Initializer != nil {
				return true
			}
		}
		return false
	}
	switch n.TypeKind {
	case TypeInterface, TypeEnum, TypeStruct, TypeRecordStruct:
		return false
	}
	return !n.Has(ModStatic) && !n.HasPrimaryConstructor()
}
