//go:build cgo

package syntax

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"

	"hotdelta/internal/decl"
	"hotdelta/internal/errors"
)

// Parser turns C# source into declaration documents.
type Parser struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewParser creates a C# parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(csharp.GetLanguage())
	return &Parser{parser: p}
}

// IsAvailable reports whether C# parsing is compiled in.
func IsAvailable() bool {
	return true
}

// Parse parses one C# compilation unit.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) (*decl.Document, error) {
	p.mu.Lock()
	tree, err := p.parser.ParseCtx(ctx, nil, src)
	p.mu.Unlock()
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.New(errors.Canceled, "parse cancelled", ctx.Err())
		}
		return nil, errors.New(errors.ParseFailed, "parse "+path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line := firstErrorLine(root)
		return nil, errors.Newf(errors.ParseFailed, "%s:%d: syntax error", path, line).
			WithDetails(map[string]interface{}{"path": path, "line": line})
	}

	c := &converter{src: src, path: path}
	return &decl.Document{Path: path, Members: c.compilationUnit(root)}, nil
}

func firstErrorLine(n *sitter.Node) int {
	if n.IsError() || n.IsMissing() {
		return int(n.StartPoint().Row) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.HasError() || child.IsMissing() {
			return firstErrorLine(child)
		}
	}
	return int(n.StartPoint().Row) + 1
}

type converter struct {
	src  []byte
	path string
}

func (c *converter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(c.src)
}

// flat collapses runs of whitespace so formatting changes do not register as
// body edits.
func (c *converter) flat(n *sitter.Node) string {
	return strings.Join(strings.Fields(c.text(n)), " ")
}

func (c *converter) span(n *sitter.Node) decl.Span {
	return decl.Span{
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
	}
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

func children(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.ChildCount())
	for i := 0; i < int(n.ChildCount()); i++ {
		out = append(out, n.Child(i))
	}
	return out
}

func childOfType(n *sitter.Node, types ...string) *sitter.Node {
	for _, child := range namedChildren(n) {
		for _, t := range types {
			if child.Type() == t {
				return child
			}
		}
	}
	return nil
}

// field returns the first present field among names. Field names moved
// between grammar releases, e.g. "type" became "returns" on methods.
func field(n *sitter.Node, names ...string) *sitter.Node {
	for _, name := range names {
		if f := n.ChildByFieldName(name); f != nil {
			return f
		}
	}
	return nil
}

func hasToken(n *sitter.Node, token string) bool {
	for _, child := range children(n) {
		if !child.IsNamed() && child.Type() == token {
			return true
		}
	}
	return false
}

func (c *converter) compilationUnit(root *sitter.Node) []*decl.Node {
	var out []*decl.Node
	var fileScoped *decl.Node
	for _, child := range namedChildren(root) {
		switch child.Type() {
		case "file_scoped_namespace_declaration":
			fileScoped = &decl.Node{Kind: decl.KindNamespace, Name: c.text(field(child, "name")), Span: c.span(child)}
			fileScoped.Children = append(fileScoped.Children, c.declarations(child)...)
			out = append(out, fileScoped)
		default:
			nodes := c.declaration(child)
			if fileScoped != nil {
				fileScoped.Children = append(fileScoped.Children, nodes...)
				fileScoped.Span.EndLine = c.span(child).EndLine
			} else {
				out = append(out, nodes...)
			}
		}
	}
	return out
}

// declarations converts the members of a declaration list or of a node that
// holds its members directly.
func (c *converter) declarations(n *sitter.Node) []*decl.Node {
	if n == nil {
		return nil
	}
	var out []*decl.Node
	for _, child := range namedChildren(n) {
		if child.Type() == "declaration_list" {
			out = append(out, c.declarations(child)...)
			continue
		}
		out = append(out, c.declaration(child)...)
	}
	return out
}

func (c *converter) declaration(n *sitter.Node) []*decl.Node {
	switch n.Type() {
	case "namespace_declaration":
		ns := &decl.Node{Kind: decl.KindNamespace, Name: c.text(field(n, "name")), Span: c.span(n)}
		ns.Children = c.declarations(field(n, "body"))
		return []*decl.Node{ns}
	case "class_declaration":
		return one(c.typeDeclaration(n, decl.TypeClass))
	case "struct_declaration":
		return one(c.typeDeclaration(n, decl.TypeStruct))
	case "interface_declaration":
		return one(c.typeDeclaration(n, decl.TypeInterface))
	case "record_declaration":
		kind := decl.TypeRecord
		if hasToken(n, "struct") {
			kind = decl.TypeRecordStruct
		}
		return one(c.typeDeclaration(n, kind))
	case "record_struct_declaration":
		return one(c.typeDeclaration(n, decl.TypeRecordStruct))
	case "enum_declaration":
		return one(c.enumDeclaration(n))
	case "delegate_declaration":
		return one(c.delegateDeclaration(n))
	case "method_declaration":
		return one(c.methodDeclaration(n))
	case "constructor_declaration":
		return one(c.constructorDeclaration(n))
	case "destructor_declaration":
		d := decl.Destructor().Build()
		c.decorate(d, n)
		d.Body = c.body(n)
		return one(d)
	case "operator_declaration":
		return one(c.operatorDeclaration(n))
	case "conversion_operator_declaration":
		return one(c.conversionDeclaration(n))
	case "field_declaration":
		return c.fieldDeclaration(n, decl.KindField)
	case "event_field_declaration":
		return c.fieldDeclaration(n, decl.KindEvent)
	case "event_declaration":
		ev := &decl.Node{Kind: decl.KindEvent, Name: c.text(field(n, "name")), Type: decl.TypeRef(c.flat(field(n, "type")))}
		c.decorate(ev, n)
		ev.ExplicitInterface = c.explicitInterface(n)
		ev.Children = append(ev.Children, c.accessors(n)...)
		return one(ev)
	case "property_declaration":
		return one(c.propertyDeclaration(n))
	case "indexer_declaration":
		return one(c.indexerDeclaration(n))
	}
	return nil
}

func one(n *decl.Node) []*decl.Node {
	if n == nil {
		return nil
	}
	return []*decl.Node{n}
}

// decorate copies modifiers, attributes and the span of n onto d.
func (c *converter) decorate(d *decl.Node, n *sitter.Node) {
	d.Span = c.span(n)
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "modifier", "parameter_modifier":
			mods, _ := decl.ParseModifiers(c.text(child))
			d.Modifiers |= mods
		case "attribute_list":
			d.Attributes = append(d.Attributes, c.attributes(child)...)
		}
	}
}

func (c *converter) attributes(list *sitter.Node) []decl.Attribute {
	var out []decl.Attribute
	for _, attr := range namedChildren(list) {
		if attr.Type() != "attribute" {
			continue
		}
		a := decl.Attribute{Name: c.text(field(attr, "name"))}
		if args := childOfType(attr, "attribute_argument_list"); args != nil {
			a.Arguments = strings.TrimSuffix(strings.TrimPrefix(c.flat(args), "("), ")")
		}
		out = append(out, a)
	}
	return out
}

func (c *converter) typeDeclaration(n *sitter.Node, kind decl.TypeKind) *decl.Node {
	t := decl.Type(kind, c.text(field(n, "name"))).Build()
	c.decorate(t, n)
	t.Children = append(t.Children, c.typeParameters(n)...)
	if params := childOfType(n, "parameter_list"); params != nil {
		t.Children = append(t.Children, c.parameters(params)...)
	}
	bases := field(n, "bases")
	if bases == nil {
		bases = childOfType(n, "base_list")
	}
	if bases != nil {
		t.Bases = c.bases(bases)
	}
	body := field(n, "body")
	if body == nil {
		body = childOfType(n, "declaration_list")
	}
	t.Children = append(t.Children, c.declarations(body)...)
	if !kind.IsRecord() {
		markCaptured(t)
	}
	return t
}

func (c *converter) bases(list *sitter.Node) []decl.TypeRef {
	var out []decl.TypeRef
	for _, b := range namedChildren(list) {
		switch b.Type() {
		case "argument_list", "comment":
			continue
		}
		name, _, _ := strings.Cut(c.flat(b), "(")
		out = append(out, decl.TypeRef(strings.TrimSpace(name)))
	}
	return out
}

func (c *converter) typeParameters(n *sitter.Node) []*decl.Node {
	list := field(n, "type_parameters")
	if list == nil {
		list = childOfType(n, "type_parameter_list")
	}
	if list == nil {
		return nil
	}
	var out []*decl.Node
	byName := map[string]*decl.Node{}
	for _, tp := range namedChildren(list) {
		if tp.Type() != "type_parameter" {
			continue
		}
		name := c.text(field(tp, "name"))
		if name == "" {
			name = c.text(childOfType(tp, "identifier"))
		}
		p := decl.TypeParam(name).Build()
		p.Span = c.span(tp)
		switch {
		case hasToken(tp, "in"):
			p.Variance = "in"
		case hasToken(tp, "out"):
			p.Variance = "out"
		}
		if attrs := childOfType(tp, "attribute_list"); attrs != nil {
			p.Attributes = c.attributes(attrs)
		}
		byName[name] = p
		out = append(out, p)
	}
	for _, clause := range namedChildren(n) {
		if clause.Type() != "type_parameter_constraints_clause" {
			continue
		}
		target := field(clause, "target")
		if target == nil {
			target = childOfType(clause, "identifier")
		}
		p := byName[c.text(target)]
		if p == nil {
			continue
		}
		for _, constraint := range namedChildren(clause) {
			if constraint.Type() == "type_parameter_constraint" {
				p.Constraints = append(p.Constraints, c.flat(constraint))
			}
		}
	}
	return out
}

func (c *converter) parameters(list *sitter.Node) []*decl.Node {
	if list == nil {
		return nil
	}
	var out []*decl.Node
	for _, p := range namedChildren(list) {
		if p.Type() != "parameter" && p.Type() != "parameter_array" {
			continue
		}
		param := decl.Param(c.text(field(p, "name")), decl.TypeRef(c.flat(field(p, "type")))).Build()
		if param.Name == "" {
			param.Name = c.text(childOfType(p, "identifier"))
		}
		c.decorate(param, p)
		if p.Type() == "parameter_array" {
			param.Modifiers |= decl.ModParams
		}
		for _, tok := range children(p) {
			if tok.IsNamed() {
				continue
			}
			if m, ok := decl.ParseModifier(tok.Type()); ok {
				param.Modifiers |= m
			}
		}
		if def := childOfType(p, "equals_value_clause"); def != nil {
			param.DefaultValue = strings.TrimSpace(strings.TrimPrefix(c.flat(def), "="))
		} else if _, value, ok := strings.Cut(c.flat(p), "="); ok {
			param.DefaultValue = strings.TrimSpace(value)
		}
		out = append(out, param)
	}
	return out
}

func (c *converter) explicitInterface(n *sitter.Node) string {
	spec := childOfType(n, "explicit_interface_specifier")
	if spec == nil {
		return ""
	}
	return strings.TrimSuffix(strings.TrimSpace(c.flat(spec)), ".")
}

func (c *converter) methodDeclaration(n *sitter.Node) *decl.Node {
	m := decl.Method(c.text(field(n, "name")), decl.TypeRef(c.flat(field(n, "returns", "type")))).Build()
	c.decorate(m, n)
	m.ExplicitInterface = c.explicitInterface(n)
	m.Children = append(m.Children, c.typeParameters(n)...)
	m.Children = append(m.Children, c.parameters(field(n, "parameters"))...)
	m.Body = c.body(n)
	return m
}

func (c *converter) constructorDeclaration(n *sitter.Node) *decl.Node {
	ctor := decl.Ctor().Build()
	c.decorate(ctor, n)
	ctor.Children = append(ctor.Children, c.parameters(field(n, "parameters"))...)
	ctor.Body = c.body(n)
	if init := childOfType(n, "constructor_initializer"); init != nil {
		text := strings.TrimSpace(strings.TrimPrefix(c.flat(init), ":"))
		ctor.ChainsToThis = strings.HasPrefix(text, "this")
		if ctor.Body == nil {
			ctor.Body = decl.NewBody()
		}
		ctor.Body = decl.NewBody(append([]string{text}, ctor.Body.Statements...)...)
	}
	return ctor
}

var operatorNames = map[string][2]string{
	// token: {unary, binary}
	"+":     {"op_UnaryPlus", "op_Addition"},
	"-":     {"op_UnaryNegation", "op_Subtraction"},
	"!":     {"op_LogicalNot", ""},
	"~":     {"op_OnesComplement", ""},
	"++":    {"op_Increment", ""},
	"--":    {"op_Decrement", ""},
	"true":  {"op_True", ""},
	"false": {"op_False", ""},
	"*":     {"", "op_Multiply"},
	"/":     {"", "op_Division"},
	"%":     {"", "op_Modulus"},
	"&":     {"", "op_BitwiseAnd"},
	"|":     {"", "op_BitwiseOr"},
	"^":     {"", "op_ExclusiveOr"},
	"<<":    {"", "op_LeftShift"},
	">>":    {"", "op_RightShift"},
	">>>":   {"", "op_UnsignedRightShift"},
	"==":    {"", "op_Equality"},
	"!=":    {"", "op_Inequality"},
	"<":     {"", "op_LessThan"},
	">":     {"", "op_GreaterThan"},
	"<=":    {"", "op_LessThanOrEqual"},
	">=":    {"", "op_GreaterThanOrEqual"},
}

func (c *converter) operatorDeclaration(n *sitter.Node) *decl.Node {
	params := c.parameters(field(n, "parameters"))
	token := strings.TrimSpace(c.text(field(n, "operator")))
	names := operatorNames[token]
	name := names[1]
	if len(params) == 1 || name == "" {
		name = names[0]
	}
	if name == "" {
		name = "op_" + token
	}
	op := decl.Operator(name, decl.TypeRef(c.flat(field(n, "type", "returns")))).Build()
	c.decorate(op, n)
	op.Children = append(op.Children, params...)
	op.Body = c.body(n)
	return op
}

func (c *converter) conversionDeclaration(n *sitter.Node) *decl.Node {
	name := "op_Implicit"
	if hasToken(n, "explicit") {
		name = "op_Explicit"
	}
	conv := decl.Conversion(name, decl.TypeRef(c.flat(field(n, "type")))).Build()
	c.decorate(conv, n)
	conv.Children = append(conv.Children, c.parameters(field(n, "parameters"))...)
	conv.Body = c.body(n)
	return conv
}

func (c *converter) fieldDeclaration(n *sitter.Node, kind decl.Kind) []*decl.Node {
	vars := childOfType(n, "variable_declaration")
	if vars == nil {
		return nil
	}
	typ := decl.TypeRef(c.flat(field(vars, "type")))
	var out []*decl.Node
	for _, v := range namedChildren(vars) {
		if v.Type() != "variable_declarator" {
			continue
		}
		name, init, hasInit := strings.Cut(c.flat(v), "=")
		f := &decl.Node{Kind: kind, Name: strings.TrimSpace(name), Type: typ}
		if id := field(v, "name"); id != nil {
			f.Name = c.text(id)
		}
		c.decorate(f, n)
		if hasInit {
			f.Initializer = decl.NewBody(strings.TrimSpace(init))
		}
		out = append(out, f)
	}
	return out
}

func (c *converter) propertyDeclaration(n *sitter.Node) *decl.Node {
	p := decl.Property(c.text(field(n, "name")), decl.TypeRef(c.flat(field(n, "type")))).Build()
	c.decorate(p, n)
	p.ExplicitInterface = c.explicitInterface(n)
	p.Children = append(p.Children, c.accessors(n)...)
	if value := field(n, "value"); value != nil {
		p.Initializer = decl.NewBody(c.flat(value))
	} else if list := childOfType(n, "accessor_list"); list != nil {
		seenEquals := false
		for _, child := range children(n) {
			if !child.IsNamed() && child.Type() == "=" {
				seenEquals = true
				continue
			}
			if seenEquals && child.IsNamed() {
				p.Initializer = decl.NewBody(c.flat(child))
				break
			}
		}
	}
	return p
}

func (c *converter) indexerDeclaration(n *sitter.Node) *decl.Node {
	ix := decl.Indexer(decl.TypeRef(c.flat(field(n, "type")))).Build()
	c.decorate(ix, n)
	ix.ExplicitInterface = c.explicitInterface(n)
	params := field(n, "parameters")
	if params == nil {
		params = childOfType(n, "bracketed_parameter_list")
	}
	ix.Children = append(ix.Children, c.parameters(params)...)
	ix.Children = append(ix.Children, c.accessors(n)...)
	return ix
}

// accessors converts an accessor list, or an expression body into a getter.
func (c *converter) accessors(n *sitter.Node) []*decl.Node {
	list := field(n, "accessors")
	if list == nil {
		list = childOfType(n, "accessor_list")
	}
	if list == nil {
		if arrow := childOfType(n, "arrow_expression_clause"); arrow != nil {
			get := decl.Get().Build()
			get.Span = c.span(arrow)
			get.Body = c.arrowBody(arrow)
			return []*decl.Node{get}
		}
		return nil
	}
	var out []*decl.Node
	for _, a := range namedChildren(list) {
		if a.Type() != "accessor_declaration" {
			continue
		}
		kind, ok := c.accessorKind(a)
		if !ok {
			continue
		}
		acc := decl.Accessor(kind).Build()
		c.decorate(acc, a)
		acc.Body = c.body(a)
		out = append(out, acc)
	}
	return out
}

func (c *converter) accessorKind(a *sitter.Node) (decl.AccessorKind, bool) {
	keyword := c.text(field(a, "name"))
	if keyword == "" {
		for _, tok := range children(a) {
			switch tok.Type() {
			case "get", "set", "init", "add", "remove":
				keyword = tok.Type()
			}
		}
	}
	switch keyword {
	case "get":
		return decl.AccessorGet, true
	case "set":
		return decl.AccessorSet, true
	case "init":
		return decl.AccessorInit, true
	case "add":
		return decl.AccessorAdd, true
	case "remove":
		return decl.AccessorRemove, true
	}
	return 0, false
}

func (c *converter) enumDeclaration(n *sitter.Node) *decl.Node {
	e := decl.Enum(c.text(field(n, "name"))).Build()
	c.decorate(e, n)
	if bases := childOfType(n, "base_list"); bases != nil {
		e.Bases = c.bases(bases)
	}
	body := field(n, "body")
	if body == nil {
		body = childOfType(n, "enum_member_declaration_list")
	}
	if body == nil {
		return e
	}
	for _, m := range namedChildren(body) {
		if m.Type() != "enum_member_declaration" {
			continue
		}
		member := decl.EnumMember{Name: c.text(field(m, "name"))}
		if member.Name == "" {
			member.Name = c.text(childOfType(m, "identifier"))
		}
		if value := field(m, "value"); value != nil {
			member.Value = c.flat(value)
		} else if _, v, ok := strings.Cut(c.flat(m), "="); ok {
			member.Value = strings.TrimSpace(v)
		}
		e.EnumMembers = append(e.EnumMembers, member)
	}
	return e
}

func (c *converter) delegateDeclaration(n *sitter.Node) *decl.Node {
	d := decl.Delegate(c.text(field(n, "name")), decl.TypeRef(c.flat(field(n, "returns", "type")))).Build()
	c.decorate(d, n)
	d.Children = append(d.Children, c.typeParameters(n)...)
	d.Children = append(d.Children, c.parameters(field(n, "parameters"))...)
	return d
}

// body converts a block or expression body. Declarations without one, such
// as abstract methods and auto-accessors, have a nil body.
func (c *converter) body(n *sitter.Node) *decl.Body {
	if block := field(n, "body"); block != nil && block.Type() == "block" {
		return c.block(block)
	}
	if block := childOfType(n, "block"); block != nil {
		return c.block(block)
	}
	if arrow := childOfType(n, "arrow_expression_clause"); arrow != nil {
		return c.arrowBody(arrow)
	}
	return nil
}

func (c *converter) block(n *sitter.Node) *decl.Body {
	var statements []string
	for _, stmt := range namedChildren(n) {
		if stmt.Type() == "comment" {
			continue
		}
		statements = append(statements, c.flat(stmt))
	}
	return decl.NewBody(statements...)
}

func (c *converter) arrowBody(arrow *sitter.Node) *decl.Body {
	expr := strings.TrimSpace(strings.TrimPrefix(c.flat(arrow), "=>"))
	return decl.NewBody(fmt.Sprintf("return %s;", expr))
}
