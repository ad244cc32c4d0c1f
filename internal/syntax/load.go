// Package syntax turns source documents into declaration documents. C#
// sources go through tree-sitter; YAML fixtures go through the decl loader.
package syntax

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"hotdelta/internal/decl"
	"hotdelta/internal/errors"
)

// Supported reports whether path has an extension the loader understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cs", ".yaml", ".yml":
		return true
	}
	return false
}

// Loader reads documents from disk or memory. A Loader is safe for
// concurrent use.
type Loader struct {
	parser *Parser
}

// NewLoader creates a loader. C# parsing is unavailable without cgo, in
// which case only YAML documents load.
func NewLoader() *Loader {
	return &Loader{parser: NewParser()}
}

// LoadFile reads and converts one file. A YAML file may hold several
// documents; a C# file always yields one.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]*decl.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.InvalidInput, "read "+path, err)
	}
	return l.LoadBytes(ctx, filepath.ToSlash(path), src)
}

// LoadBytes converts src, choosing the front end by the extension of path.
func (l *Loader) LoadBytes(ctx context.Context, path string, src []byte) ([]*decl.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		docs, err := decl.ParseYAML(string(src))
		if err != nil {
			return nil, errors.New(errors.ParseFailed, "parse "+path, err)
		}
		return docs, nil
	case ".cs":
		if l.parser == nil {
			return nil, errors.Newf(errors.ParseFailed, "%s: C# parsing requires a cgo build", path)
		}
		doc, err := l.parser.Parse(ctx, path, src)
		if err != nil {
			return nil, err
		}
		return []*decl.Document{doc}, nil
	}
	return nil, errors.Newf(errors.InvalidInput, "%s: unsupported document type", path)
}

// LoadFiles loads every path in order and concatenates the documents.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) ([]*decl.Document, error) {
	var docs []*decl.Document
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(errors.Canceled, "load cancelled", err)
		}
		loaded, err := l.LoadFile(ctx, p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}

// markCaptured flags primary constructor parameters that an instance member
// body reads. Such parameters become hidden fields of the type.
func markCaptured(t *decl.Node) {
	params := t.Parameters()
	if len(params) == 0 {
		return
	}
	var texts []string
	for _, m := range t.Children {
		if m.Kind == decl.KindParameter || m.Kind == decl.KindTypeParameter || m.IsStatic() {
			continue
		}
		if m.Kind == decl.KindConstructor {
			continue
		}
		collectBodies(m, &texts)
	}
	for _, p := range params {
		for _, text := range texts {
			if mentions(text, p.Name) {
				p.Captured = true
				break
			}
		}
	}
}

func collectBodies(n *decl.Node, out *[]string) {
	if n.Body != nil {
		*out = append(*out, strings.Join(n.Body.Statements, "\n"))
	}
	for _, c := range n.Children {
		if c.Kind == decl.KindAccessor {
			collectBodies(c, out)
		}
	}
}

func mentions(text, ident string) bool {
	for i := 0; ident != ""; {
		j := strings.Index(text[i:], ident)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(ident)
		if (start == 0 || !identChar(text[start-1])) && (end == len(text) || !identChar(text[end])) {
			return true
		}
		i = end
	}
	return false
}

func identChar(c byte) bool {
	return c == '_' || c == '@' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
