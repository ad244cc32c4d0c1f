package decl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlDocument is the on-disk fixture format:
//
//	path: a.cs
//	declarations:
//	  - kind: type
//	    typeKind: class
//	    name: C
//	    members:
//	      - {kind: method, name: F, type: void, body: "return;"}
type yamlDocument struct {
	Path         string     `yaml:"path"`
	Declarations []yamlNode `yaml:"declarations"`
}

type yamlNode struct {
	Kind              string     `yaml:"kind"`
	Name              string     `yaml:"name,omitempty"`
	TypeKind          string     `yaml:"typeKind,omitempty"`
	MethodKind        string     `yaml:"methodKind,omitempty"`
	Type              string     `yaml:"type,omitempty"`
	Modifiers         string     `yaml:"modifiers,omitempty"`
	Attributes        []string   `yaml:"attributes,omitempty"`
	Body              *yamlBody  `yaml:"body,omitempty"`
	Initializer       *yamlBody  `yaml:"initializer,omitempty"`
	Bases             []string   `yaml:"bases,omitempty"`
	Constraints       []string   `yaml:"constraints,omitempty"`
	Variance          string     `yaml:"variance,omitempty"`
	ExplicitInterface string     `yaml:"explicitInterface,omitempty"`
	ChainsToThis      bool       `yaml:"chainsToThis,omitempty"`
	Captured          bool       `yaml:"captured,omitempty"`
	Default           string     `yaml:"default,omitempty"`
	Values            []string   `yaml:"values,omitempty"`
	TypeParameters    []yamlNode `yaml:"typeParameters,omitempty"`
	Parameters        []yamlNode `yaml:"parameters,omitempty"`
	Accessors         []yamlNode `yaml:"accessors,omitempty"`
	Members           []yamlNode `yaml:"members,omitempty"`
	Span              *Span      `yaml:"span,omitempty"`
}

// yamlBody accepts a single statement string or a list of statements.
type yamlBody []string

func (b *yamlBody) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var lines []string
		for _, line := range strings.Split(value.Value, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		*b = lines
		return nil
	case yaml.SequenceNode:
		var lines []string
		if err := value.Decode(&lines); err != nil {
			return err
		}
		*b = lines
		return nil
	}
	return fmt.Errorf("line %d: body must be a string or a list of statements", value.Line)
}

func (b yamlBody) MarshalYAML() (interface{}, error) {
	if len(b) == 1 {
		return b[0], nil
	}
	return []string(b), nil
}

// ReadYAML decodes one or more YAML documents separated by "---".
func ReadYAML(r io.Reader) ([]*Document, error) {
	dec := yaml.NewDecoder(r)
	var docs []*Document
	for {
		var yd yamlDocument
		err := dec.Decode(&yd)
		if err == io.EOF {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decoding declarations: %w", err)
		}
		d, err := yd.document()
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
}

// LoadYAML reads a YAML declaration file.
func LoadYAML(path string) ([]*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	docs, err := ReadYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, d := range docs {
		if d.Path == "" {
			d.Path = path
		}
	}
	return docs, nil
}

// ParseYAML decodes a YAML string; it is a convenience for tests.
func ParseYAML(src string) ([]*Document, error) {
	return ReadYAML(strings.NewReader(src))
}

// WriteYAML encodes documents in the fixture format.
func WriteYAML(w io.Writer, docs ...*Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, d := range docs {
		yd := yamlDocument{Path: d.Path}
		for _, m := range d.Members {
			yd.Declarations = append(yd.Declarations, toYAML(m))
		}
		if err := enc.Encode(&yd); err != nil {
			return err
		}
	}
	return enc.Close()
}

func (yd *yamlDocument) document() (*Document, error) {
	d := &Document{Path: yd.Path}
	for i := range yd.Declarations {
		n, err := yd.Declarations[i].node()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", yd.Path, err)
		}
		d.Members = append(d.Members, n)
	}
	return d, nil
}

func (y *yamlNode) node() (*Node, error) {
	kind, ok := ParseKind(y.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown declaration kind %q", y.Kind)
	}
	n := &Node{
		Kind:              kind,
		Name:              y.Name,
		Type:              TypeRef(y.Type),
		Bases:             toTypeRefs(y.Bases),
		Constraints:       y.Constraints,
		Variance:          y.Variance,
		ExplicitInterface: y.ExplicitInterface,
		ChainsToThis:      y.ChainsToThis,
		Captured:          y.Captured,
		DefaultValue:      y.Default,
	}
	mods, unknown := ParseModifiers(y.Modifiers)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%s %s: unknown modifiers %v", y.Kind, y.Name, unknown)
	}
	n.Modifiers = mods
	if y.TypeKind != "" {
		if n.TypeKind, ok = ParseTypeKind(y.TypeKind); !ok {
			return nil, fmt.Errorf("%s: unknown type kind %q", y.Name, y.TypeKind)
		}
	}
	if y.MethodKind != "" {
		if n.MethodKind, ok = ParseMethodKind(y.MethodKind); !ok {
			return nil, fmt.Errorf("%s: unknown method kind %q", y.Name, y.MethodKind)
		}
	}
	switch kind {
	case KindAccessor:
		acc := y.Name
		if acc == "" {
			acc = y.Type
		}
		if n.AccessorKind, ok = ParseAccessorKind(acc); !ok {
			return nil, fmt.Errorf("unknown accessor %q", acc)
		}
		n.Name = n.AccessorKind.String()
	case KindConstructor:
		n.Name = ".ctor"
	case KindIndexer:
		n.Name = "this[]"
	}
	for _, a := range y.Attributes {
		n.Attributes = append(n.Attributes, parseAttribute(a))
	}
	if y.Body != nil {
		n.Body = NewBody(*y.Body...)
	}
	if y.Initializer != nil {
		n.Initializer = NewBody(*y.Initializer...)
	}
	for _, v := range y.Values {
		name, value, _ := strings.Cut(v, "=")
		n.EnumMembers = append(n.EnumMembers, EnumMember{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
	if y.Span != nil {
		n.Span = *y.Span
	}
	for _, group := range []struct {
		kind  Kind
		nodes []yamlNode
	}{
		{KindTypeParameter, y.TypeParameters},
		{KindParameter, y.Parameters},
		{KindAccessor, y.Accessors},
		{0, y.Members},
	} {
		for i := range group.nodes {
			child := &group.nodes[i]
			if group.kind != 0 && child.Kind == "" {
				child.Kind = group.kind.String()
			}
			c, err := child.node()
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, c)
		}
	}
	return n, nil
}

func parseAttribute(s string) Attribute {
	s = strings.TrimSpace(s)
	if open := strings.IndexByte(s, '('); open > 0 && strings.HasSuffix(s, ")") {
		return Attribute{Name: s[:open], Arguments: s[open+1 : len(s)-1]}
	}
	return Attribute{Name: s}
}

func toTypeRefs(in []string) []TypeRef {
	if len(in) == 0 {
		return nil
	}
	out := make([]TypeRef, len(in))
	for i, s := range in {
		out[i] = TypeRef(s)
	}
	return out
}

func toYAML(n *Node) yamlNode {
	y := yamlNode{
		Kind:              strings.ReplaceAll(n.Kind.String(), " ", ""),
		Name:              n.Name,
		Type:              string(n.Type),
		Modifiers:         n.Modifiers.String(),
		Constraints:       n.Constraints,
		Variance:          n.Variance,
		ExplicitInterface: n.ExplicitInterface,
		ChainsToThis:      n.ChainsToThis,
		Captured:          n.Captured,
		Default:           n.DefaultValue,
	}
	switch n.Kind {
	case KindType:
		y.TypeKind = n.TypeKind.String()
	case KindMethod:
		if n.MethodKind != MethodOrdinary {
			y.MethodKind = n.MethodKind.String()
		}
	case KindConstructor, KindIndexer:
		y.Name = ""
	}
	for _, a := range n.Attributes {
		y.Attributes = append(y.Attributes, attributeText(a))
	}
	for _, b := range n.Bases {
		y.Bases = append(y.Bases, string(b))
	}
	if n.Body != nil {
		body := yamlBody(n.Body.Statements)
		y.Body = &body
	}
	if n.Initializer != nil {
		init := yamlBody(n.Initializer.Statements)
		y.Initializer = &init
	}
	for _, m := range n.EnumMembers {
		v := m.Name
		if m.Value != "" {
			v += " = " + m.Value
		}
		y.Values = append(y.Values, v)
	}
	if n.Span != (Span{}) {
		span := n.Span
		y.Span = &span
	}
	for _, c := range n.Children {
		cy := toYAML(c)
		switch c.Kind {
		case KindTypeParameter:
			cy.Kind = ""
			y.TypeParameters = append(y.TypeParameters, cy)
		case KindParameter:
			cy.Kind = ""
			y.Parameters = append(y.Parameters, cy)
		case KindAccessor:
			cy.Kind = ""
			y.Accessors = append(y.Accessors, cy)
		default:
			y.Members = append(y.Members, cy)
		}
	}
	return y
}

func attributeText(a Attribute) string {
	if a.Arguments == "" {
		return a.Name
	}
	return a.Name + "(" + a.Arguments + ")"
}
