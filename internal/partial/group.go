// Package partial groups declaration fragments that denote one symbol across
// documents and re-expresses cross-document edit pairs as edits of the
// symbol.
package partial

import (
	"fmt"
	"sort"

	"fortio.org/safecast"

	"hotdelta/internal/decl"
	"hotdelta/internal/errors"
)

// Side selects the before or after arena.
type Side uint8

const (
	Old Side = iota
	New
)

// GroupID indexes a group. Zero is reserved.
type GroupID uint32

// Group is the set of fragments of one logical symbol. Fragments are arena
// ids, never node pointers.
type Group struct {
	ID       GroupID
	Key      string
	Identity decl.Identity
	Old      []decl.NodeID
	New      []decl.NodeID
}

// Fragments returns the fragment ids of one side.
func (g *Group) Fragments(side Side) []decl.NodeID {
	if side == Old {
		return g.Old
	}
	return g.New
}

// IsPartial reports whether the symbol spans more than one fragment on
// either side.
func (g *Group) IsPartial() bool { return len(g.Old) > 1 || len(g.New) > 1 }

// Groups is the per-run group arena for both sides.
type Groups struct {
	old, new *decl.Arena
	groups   []*Group
	byKey    map[string]GroupID
	byNode   [2]map[decl.NodeID]GroupID
}

// Build groups every type, delegate and member of both arenas by identity.
// Two fragments of one identity inside one container of one document must
// both be partial.
func Build(old, new *decl.Arena) (*Groups, error) {
	g := &Groups{
		old:    old,
		new:    new,
		groups: []*Group{nil},
		byKey:  map[string]GroupID{},
		byNode: [2]map[decl.NodeID]GroupID{{}, {}},
	}
	for side, a := range []*decl.Arena{old, new} {
		if err := g.index(Side(side), a); err != nil {
			return nil, err
		}
	}
	for _, grp := range g.groups[1:] {
		if len(grp.Old) == 0 && len(grp.New) == 0 {
			return nil, errors.Newf(errors.InvariantViolation, "partial group %s has no fragments", grp.Identity.Display())
		}
	}
	return g, nil
}

func (g *Groups) index(side Side, a *decl.Arena) error {
	type slot struct {
		doc string
		key string
	}
	seen := map[slot]*decl.Node{}
	var err error
	a.Each(func(n *decl.Node) {
		if err != nil || !(n.Kind.IsTypeLike() || n.Kind.IsMember()) {
			return
		}
		id := n.Identity()
		key := id.Key()
		s := slot{doc: n.Document, key: key}
		if prev, ok := seen[s]; ok && !(prev.Has(decl.ModPartial) && n.Has(decl.ModPartial)) {
			err = errors.Newf(errors.InvariantViolation, "identity collision in %s: %s declared twice", n.Document, id.Display())
			return
		}
		seen[s] = n
		gid, ok := g.byKey[key]
		if !ok {
			value, convErr := safecast.Conv[uint32](len(g.groups))
			if convErr != nil {
				err = fmt.Errorf("partial group arena overflow: %w", convErr)
				return
			}
			gid = GroupID(value)
			g.groups = append(g.groups, &Group{ID: gid, Key: key, Identity: id})
			g.byKey[key] = gid
		}
		grp := g.groups[gid]
		if side == Old {
			grp.Old = append(grp.Old, n.ID())
		} else {
			grp.New = append(grp.New, n.ID())
		}
		g.byNode[side][n.ID()] = gid
	})
	return err
}

// Arena returns the arena of a side.
func (g *Groups) Arena(side Side) *decl.Arena {
	if side == Old {
		return g.old
	}
	return g.new
}

// Get returns a group by id.
func (g *Groups) Get(id GroupID) *Group {
	if id == 0 || int(id) >= len(g.groups) {
		return nil
	}
	return g.groups[id]
}

// ByKey returns the group of an identity key.
func (g *Groups) ByKey(key string) *Group { return g.Get(g.byKey[key]) }

// Of returns the group of a node on the given side, or nil for parameters,
// type parameters and accessors.
func (g *Groups) Of(side Side, n *decl.Node) *Group {
	if n == nil {
		return nil
	}
	return g.Get(g.byNode[side][n.ID()])
}

// Nodes resolves the fragments of a group on one side.
func (g *Groups) Nodes(grp *Group, side Side) []*decl.Node {
	a := g.Arena(side)
	ids := grp.Fragments(side)
	out := make([]*decl.Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.Node(id))
	}
	return out
}

// Representative returns the fragment that hosts the implementation on a
// side: the first fragment with a body or initializer, else the first one.
func (g *Groups) Representative(grp *Group, side Side) *decl.Node {
	nodes := g.Nodes(grp, side)
	for _, n := range nodes {
		if n.Body != nil || n.Initializer != nil {
			return n
		}
	}
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// All returns the groups ordered by identity key.
func (g *Groups) All() []*Group {
	out := append([]*Group(nil), g.groups[1:]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of groups.
func (g *Groups) Len() int { return len(g.groups) - 1 }

// UnitKey returns the identity key of the outermost type containing n, or of
// n itself at namespace level. Edits are applied or rejected per unit.
func UnitKey(n *decl.Node) string {
	top := n
	for p := n.Parent(); p != nil; p = p.Parent() {
		top = p
	}
	return top.Identity().Key()
}

// FragmentsOf returns every fragment of t's group on a side, or t alone when
// t has no group. g may be nil.
func (g *Groups) FragmentsOf(side Side, t *decl.Node) []*decl.Node {
	if t == nil {
		return nil
	}
	if g != nil {
		if grp := g.Of(side, t); grp != nil {
			return g.Nodes(grp, side)
		}
	}
	return []*decl.Node{t}
}

// ImplicitConstructor reports whether the compiler generates a constructor
// for the type declared by the fragments: an instance constructor when no
// fragment declares one, or a static constructor when some fragment has a
// static initializer.
func ImplicitConstructor(fragments []*decl.Node, static bool) bool {
	all, some := len(fragments) > 0, false
	for _, f := range fragments {
		for _, ctor := range f.ChildrenOf(decl.KindConstructor) {
			if ctor.IsStatic() == static {
				return false
			}
		}
		if f.HasImplicitConstructor(static) {
			some = true
		} else {
			all = false
		}
	}
	if static {
		return some
	}
	return all
}
