package decl

import "strings"

// Builder constructs declaration trees fluently. It is used by fixtures, the
// YAML loader and tests:
//
//	doc := decl.Doc("a.cs",
//		decl.Namespace("N",
//			decl.Class("C").Members(
//				decl.Method("F", "void").Body("return;"),
//			),
//		),
//	)
type Builder struct {
	n *Node
}

func newBuilder(kind Kind, name string) *Builder {
	return &Builder{n: &Node{Kind: kind, Name: name}}
}

// Doc assembles a document from namespace members.
func Doc(path string, members ...*Builder) *Document {
	d := &Document{Path: path}
	for _, m := range members {
		d.Members = append(d.Members, m.Build())
	}
	return d
}

// Namespace declares a namespace with members.
func Namespace(name string, members ...*Builder) *Builder {
	return newBuilder(KindNamespace, name).Members(members...)
}

// Type declares a type of the given flavor.
func Type(kind TypeKind, name string) *Builder {
	b := newBuilder(KindType, name)
	b.n.TypeKind = kind
	return b
}

func Class(name string) *Builder        { return Type(TypeClass, name) }
func Struct(name string) *Builder       { return Type(TypeStruct, name) }
func Interface(name string) *Builder    { return Type(TypeInterface, name) }
func Enum(name string) *Builder         { return Type(TypeEnum, name) }
func Record(name string) *Builder       { return Type(TypeRecord, name) }
func RecordStruct(name string) *Builder { return Type(TypeRecordStruct, name) }

// Delegate declares a delegate type.
func Delegate(name string, returns TypeRef) *Builder {
	b := newBuilder(KindDelegate, name)
	b.n.Type = returns
	return b
}

// Method declares an ordinary method.
func Method(name string, returns TypeRef) *Builder {
	b := newBuilder(KindMethod, name)
	b.n.Type = returns
	return b
}

// Operator declares a user-defined operator such as "op_Addition".
func Operator(name string, returns TypeRef) *Builder {
	b := Method(name, returns)
	b.n.MethodKind = MethodOperator
	return b
}

// Conversion declares an implicit or explicit conversion operator.
func Conversion(name string, returns TypeRef) *Builder {
	b := Method(name, returns)
	b.n.MethodKind = MethodConversion
	return b
}

// Destructor declares a finalizer.
func Destructor() *Builder {
	b := Method("Finalize", "void")
	b.n.MethodKind = MethodDestructor
	return b
}

// Ctor declares an instance constructor; add Mods("static") for a static one.
func Ctor() *Builder { return newBuilder(KindConstructor, ".ctor") }

func Field(name string, typ TypeRef) *Builder    { return typed(KindField, name, typ) }
func Property(name string, typ TypeRef) *Builder { return typed(KindProperty, name, typ) }
func Event(name string, typ TypeRef) *Builder    { return typed(KindEvent, name, typ) }
func Param(name string, typ TypeRef) *Builder    { return typed(KindParameter, name, typ) }

// Indexer declares this[...].
func Indexer(typ TypeRef) *Builder { return typed(KindIndexer, "this[]", typ) }

// TypeParam declares a type parameter.
func TypeParam(name string) *Builder { return newBuilder(KindTypeParameter, name) }

// Accessor declares an accessor. Without statements the accessor has no
// body, which makes its property an auto-property.
func Accessor(kind AccessorKind, statements ...string) *Builder {
	b := newBuilder(KindAccessor, kind.String())
	b.n.AccessorKind = kind
	if len(statements) > 0 {
		b.n.Body = NewBody(statements...)
	}
	return b
}

func Get(statements ...string) *Builder     { return Accessor(AccessorGet, statements...) }
func Set(statements ...string) *Builder     { return Accessor(AccessorSet, statements...) }
func InitAcc(statements ...string) *Builder { return Accessor(AccessorInit, statements...) }
func Add(statements ...string) *Builder     { return Accessor(AccessorAdd, statements...) }
func Remove(statements ...string) *Builder  { return Accessor(AccessorRemove, statements...) }

func typed(kind Kind, name string, typ TypeRef) *Builder {
	b := newBuilder(kind, name)
	b.n.Type = typ
	return b
}

// Mods adds space separated modifiers. Unknown words are ignored.
func (b *Builder) Mods(s string) *Builder {
	m, _ := ParseModifiers(s)
	b.n.Modifiers |= m
	return b
}

// Attr applies an attribute.
func (b *Builder) Attr(name string, args ...string) *Builder {
	b.n.Attributes = append(b.n.Attributes, Attribute{Name: name, Arguments: strings.Join(args, ", ")})
	return b
}

// Body sets the body. Body() with no statements is an empty block.
func (b *Builder) Body(statements ...string) *Builder {
	b.n.Body = NewBody(statements...)
	return b
}

// Init sets the initializer expression of a field, property or enum value.
func (b *Builder) Init(expr string) *Builder {
	b.n.Initializer = NewBody(expr)
	return b
}

// Bases adds base types and interfaces.
func (b *Builder) Bases(types ...TypeRef) *Builder {
	b.n.Bases = append(b.n.Bases, types...)
	return b
}

// Where adds type parameter constraints.
func (b *Builder) Where(constraints ...string) *Builder {
	b.n.Constraints = append(b.n.Constraints, constraints...)
	return b
}

// Variance sets "in" or "out" on a type parameter.
func (b *Builder) Variance(v string) *Builder {
	b.n.Variance = v
	return b
}

// Explicit marks an explicit interface implementation.
func (b *Builder) Explicit(iface string) *Builder {
	b.n.ExplicitInterface = iface
	return b
}

// ChainsToThis marks a constructor calling this(...).
func (b *Builder) ChainsToThis() *Builder {
	b.n.ChainsToThis = true
	return b
}

// Captured marks a primary constructor parameter read by an instance member.
func (b *Builder) Captured() *Builder {
	b.n.Captured = true
	return b
}

// Default sets the default value of an optional parameter.
func (b *Builder) Default(v string) *Builder {
	b.n.DefaultValue = v
	return b
}

// Values adds enum members written as "A" or "B = 2".
func (b *Builder) Values(members ...string) *Builder {
	for _, m := range members {
		name, value, _ := strings.Cut(m, "=")
		b.n.EnumMembers = append(b.n.EnumMembers, EnumMember{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}
	return b
}

// At sets the source span.
func (b *Builder) At(start, end int) *Builder {
	b.n.Span = Span{StartLine: start, EndLine: end}
	return b
}

// TypeParams appends type parameters named by the arguments.
func (b *Builder) TypeParams(names ...string) *Builder {
	for _, name := range names {
		b.n.Children = append(b.n.Children, TypeParam(name).Build())
	}
	return b
}

// Params appends parameters. For a type they form the primary constructor.
func (b *Builder) Params(params ...*Builder) *Builder { return b.Members(params...) }

// Accessors appends accessors.
func (b *Builder) Accessors(accessors ...*Builder) *Builder { return b.Members(accessors...) }

// Members appends children of any kind.
func (b *Builder) Members(children ...*Builder) *Builder {
	for _, c := range children {
		b.n.Children = append(b.n.Children, c.Build())
	}
	return b
}

// Build returns the node.
func (b *Builder) Build() *Node { return b.n }
