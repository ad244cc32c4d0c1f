package decl

import (
	"fmt"
	"sort"
	"strings"

	"fortio.org/safecast"
)

// NodeID indexes a node in an Arena. Zero is reserved.
type NodeID uint32

// NoNode is the invalid node id.
const NoNode NodeID = 0

// IsValid reports whether id refers to a node.
func (id NodeID) IsValid() bool { return id != NoNode }

// Arena owns every declaration of one side ("before" or "after") of an
// analysis run. Nodes refer to each other by NodeID so groups and edits never
// form ownership cycles.
type Arena struct {
	nodes  []*Node
	docs   []*Document
	roots  map[string][]*Node
	eraser Eraser
}

// NewArena indexes deep copies of the documents, assigning ids, parents,
// effective namespaces and identities. The inputs are never modified, so the
// same document may be indexed by several arenas. Documents are ordered by
// path. A nil eraser selects DefaultEraser.
func NewArena(eraser Eraser, docs ...*Document) *Arena {
	if eraser == nil {
		eraser = DefaultEraser{}
	}
	a := &Arena{
		nodes:  make([]*Node, 1, 64), // index 0 reserved for NoNode
		roots:  make(map[string][]*Node, len(docs)),
		eraser: eraser,
	}
	sorted := make([]*Document, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			sorted = append(sorted, d.Clone())
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	a.docs = sorted
	for _, d := range sorted {
		a.addDocument(d)
	}
	return a
}

func (a *Arena) addDocument(d *Document) {
	var roots []*Node
	var visitNamespace func(members []*Node, ns string)
	visitNamespace = func(members []*Node, ns string) {
		for _, m := range members {
			if m.Kind == KindNamespace {
				visitNamespace(m.Children, joinNamespace(ns, m.Name))
				continue
			}
			a.add(m, NoNode, ns, ns, d.Path)
			roots = append(roots, m)
		}
	}
	visitNamespace(d.Members, "")
	a.roots[d.Path] = roots
}

func (a *Arena) add(n *Node, parent NodeID, ns, container, doc string) {
	value, err := safecast.Conv[uint32](len(a.nodes))
	if err != nil {
		panic(fmt.Errorf("declaration arena overflow: %w", err))
	}
	n.id = NodeID(value)
	n.parent = parent
	n.namespace = ns
	n.arena = a
	if n.Document == "" {
		n.Document = doc
	}
	a.nodes = append(a.nodes, n)
	n.identity = identityOf(n, container, a.eraser)
	path := n.identity.Path()
	for _, c := range n.Children {
		a.add(c, n.id, ns, path, doc)
	}
}

func joinNamespace(outer, inner string) string {
	inner = strings.TrimSpace(inner)
	if outer == "" {
		return inner
	}
	if inner == "" {
		return outer
	}
	return outer + "." + inner
}

// Node returns the node with the given id, or nil.
func (a *Arena) Node(id NodeID) *Node {
	idx := int(id)
	if id == NoNode || idx >= len(a.nodes) {
		return nil
	}
	return a.nodes[idx]
}

// Len reports the number of nodes, excluding the sentinel.
func (a *Arena) Len() int { return len(a.nodes) - 1 }

// Documents returns the indexed documents ordered by path.
func (a *Arena) Documents() []*Document { return a.docs }

// Document returns the document with the given path, or nil.
func (a *Arena) Document(path string) *Document {
	for _, d := range a.docs {
		if d.Path == path {
			return d
		}
	}
	return nil
}

// Roots returns the namespace members of a document with namespaces
// flattened away, in source order.
func (a *Arena) Roots(path string) []*Node { return a.roots[path] }

// Eraser returns the eraser used for identities.
func (a *Arena) Eraser() Eraser { return a.eraser }

// Each calls fn for every node in id order.
func (a *Arena) Each(fn func(n *Node)) {
	for _, n := range a.nodes[1:] {
		fn(n)
	}
}

// Find returns the nodes whose display name equals name, e.g. "C.F()" or
// "N.C". It is meant for tests and diagnostics lookups.
func (a *Arena) Find(name string) []*Node {
	var out []*Node
	a.Each(func(n *Node) {
		if n.identity.Display() == name {
			out = append(out, n)
		}
	})
	return out
}
