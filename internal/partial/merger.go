package partial

import (
	"hotdelta/internal/decl"
	"hotdelta/internal/match"
)

// Merge rewrites a raw script against partial groups:
//
//   - a deleted and an inserted declaration of one identity become a single
//     update, anchored on the inserted fragment, unless they are incompatible;
//   - inserted or deleted type fragments whose symbol survives on the other
//     side are expanded into edits of their members;
//   - an added or removed part of a partial member updates the symbol;
//   - type-level updates of partial types compare the union of all fragments;
//   - what remains of cross-container pairs becomes moves.
func Merge(s *match.Script) (*match.Script, *Groups, error) {
	groups, err := Build(s.Old, s.New)
	if err != nil {
		return nil, nil, err
	}
	m := &merger{groups: groups}
	edits := append([]match.Edit(nil), s.Edits...)
	for {
		var paired, expanded bool
		edits, paired = m.pairByKey(edits)
		edits, expanded = m.expand(edits)
		if !paired && !expanded {
			break
		}
	}
	edits = m.attachParts(edits)
	edits = m.collapseTypeUpdates(edits)
	edits = match.DetectMoves(edits)
	return &match.Script{Old: s.Old, New: s.New, Edits: edits}, groups, nil
}

type merger struct {
	groups *Groups
}

// pairByKey turns Delete+Insert of one full identity into the edits of the
// matched pair.
func (m *merger) pairByKey(edits []match.Edit) ([]match.Edit, bool) {
	deletes := map[string][]int{}
	for i, e := range edits {
		if e.Kind == match.Delete {
			k := e.Old.Identity().Key()
			deletes[k] = append(deletes[k], i)
		}
	}
	if len(deletes) == 0 {
		return edits, false
	}
	removed := map[int]bool{}
	replaced := map[int][]match.Edit{}
	for i, e := range edits {
		if e.Kind != match.Insert {
			continue
		}
		k := e.New.Identity().Key()
		q := deletes[k]
		for len(q) > 0 && !compatible(edits[q[0]].Old, e.New) {
			q = q[1:]
		}
		if len(q) == 0 {
			continue
		}
		d := edits[q[0]]
		deletes[k] = removeIndex(deletes[k], q[0])
		removed[q[0]] = true
		replaced[i] = match.MatchNodes(d.Old, e.New)
	}
	if len(replaced) == 0 {
		return edits, false
	}
	out := make([]match.Edit, 0, len(edits))
	for i, e := range edits {
		switch {
		case removed[i]:
		case replaced[i] != nil:
			out = append(out, replaced[i]...)
		default:
			if _, ok := replaced[i]; !ok {
				out = append(out, e)
			}
		}
	}
	return out, true
}

func removeIndex(q []int, v int) []int {
	out := q[:0:0]
	for _, x := range q {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// compatible reports whether two fragments of one identity may be paired.
// Changes the runtime cannot represent as an update keep the pair apart.
func compatible(o, n *decl.Node) bool {
	if o.Kind == decl.KindType {
		return o.TypeKind == n.TypeKind
	}
	const slot = decl.ModVirtual | decl.ModAbstract | decl.ModOverride | decl.ModStatic
	if o.Modifiers&slot != n.Modifiers&slot {
		return false
	}
	if o.Accessibility() != n.Accessibility() && significantAccess(o, n) {
		return false
	}
	return true
}

func significantAccess(o, n *decl.Node) bool {
	for _, x := range []*decl.Node{o, n} {
		if x.IsVirtualSlot() || x.Kind.IsTypeLike() {
			return true
		}
		if t := x.ContainingType(); t != nil && t.TypeKind == decl.TypeInterface {
			return true
		}
	}
	return false
}

// removedSet collects the roots of deleted (old side) or inserted (new side)
// subtrees.
func removedSet(edits []match.Edit) [2]map[decl.NodeID]bool {
	out := [2]map[decl.NodeID]bool{{}, {}}
	for _, e := range edits {
		switch e.Kind {
		case match.Delete:
			out[Old][e.Old.ID()] = true
		case match.Insert:
			out[New][e.New.ID()] = true
		}
	}
	return out
}

func within(set map[decl.NodeID]bool, n *decl.Node) bool {
	for x := n; x != nil; x = x.Parent() {
		if set[x.ID()] {
			return true
		}
	}
	return false
}

// surviving returns the fragments of grp on a side that are not removed by
// an edit.
func (m *merger) surviving(grp *Group, side Side, removed [2]map[decl.NodeID]bool) []*decl.Node {
	var out []*decl.Node
	for _, n := range m.groups.Nodes(grp, side) {
		if !within(removed[side], n) {
			out = append(out, n)
		}
	}
	return out
}

// expand replaces an inserted or deleted type fragment whose symbol survives
// on the other side by edits of its children.
func (m *merger) expand(edits []match.Edit) ([]match.Edit, bool) {
	removed := removedSet(edits)
	changed := false
	out := make([]match.Edit, 0, len(edits))
	for _, e := range edits {
		if (e.Kind != match.Insert && e.Kind != match.Delete) || e.Node().Kind != decl.KindType {
			out = append(out, e)
			continue
		}
		side, other := New, Old
		if e.Kind == match.Delete {
			side, other = Old, New
		}
		grp := m.groups.Of(side, e.Node())
		if grp == nil {
			out = append(out, e)
			continue
		}
		survivors := m.surviving(grp, other, removed)
		if len(survivors) == 0 {
			out = append(out, e)
			continue
		}
		changed = true
		fragment := e.Node()
		for _, c := range fragment.Children {
			child := match.Edit{Kind: e.Kind}
			if e.Kind == match.Insert {
				child.New, child.NewContainer, child.OldContainer = c, fragment, survivors[0]
			} else {
				child.Old, child.OldContainer, child.NewContainer = c, fragment, survivors[0]
			}
			out = append(out, child)
		}
	}
	return out, changed
}

// attachParts turns the insert or delete of one part of a partial member
// into an update of the member against its surviving part.
func (m *merger) attachParts(edits []match.Edit) []match.Edit {
	removed := removedSet(edits)
	out := make([]match.Edit, 0, len(edits))
	for _, e := range edits {
		if (e.Kind != match.Insert && e.Kind != match.Delete) || !e.Node().Kind.IsMember() {
			out = append(out, e)
			continue
		}
		side, other := New, Old
		if e.Kind == match.Delete {
			side, other = Old, New
		}
		grp := m.groups.Of(side, e.Node())
		if grp == nil {
			out = append(out, e)
			continue
		}
		survivors := m.surviving(grp, other, removed)
		if len(survivors) == 0 {
			out = append(out, e)
			continue
		}
		rep := survivors[0]
		for _, s := range survivors {
			if s.Body != nil {
				rep = s
				break
			}
		}
		u := match.Edit{Kind: match.Update}
		if e.Kind == match.Insert {
			u.Old, u.OldContainer, u.New, u.NewContainer = rep, rep.Parent(), e.New, e.NewContainer
		} else {
			u.Old, u.OldContainer, u.New, u.NewContainer = e.Old, e.OldContainer, rep, rep.Parent()
		}
		u.Changes = match.Compare(u.Old, u.New) &^ match.ChangeDocument
		if u.Changes != 0 {
			out = append(out, u)
		}
	}
	return out
}

// collapseTypeUpdates emits at most one type-level update per partial type,
// comparing the union of modifiers, attributes and bases of all fragments.
func (m *merger) collapseTypeUpdates(edits []match.Edit) []match.Edit {
	const unionBits = match.ChangeModifiers | match.ChangeAttributes | match.ChangeBases | match.ChangeAccessibility
	out := make([]match.Edit, 0, len(edits))
	seen := map[GroupID]int{}
	for _, e := range edits {
		if e.Kind != match.Update || e.New.Kind != decl.KindType {
			out = append(out, e)
			continue
		}
		grp := m.groups.Of(New, e.New)
		if grp == nil || !grp.IsPartial() {
			out = append(out, e)
			continue
		}
		changes := e.Changes&^unionBits | m.unionChanges(grp)
		if at, ok := seen[grp.ID]; ok {
			out[at].Changes |= changes
			continue
		}
		if changes == 0 {
			continue
		}
		e.Changes = changes
		seen[grp.ID] = len(out)
		out = append(out, e)
	}
	return out
}

func (m *merger) unionChanges(grp *Group) match.Change {
	type union struct {
		mods  decl.Modifiers
		attrs map[decl.Attribute]bool
		bases map[decl.TypeRef]bool
		acc   decl.Accessibility
	}
	collect := func(side Side) union {
		u := union{attrs: map[decl.Attribute]bool{}, bases: map[decl.TypeRef]bool{}}
		for i, n := range m.groups.Nodes(grp, side) {
			u.mods |= n.Modifiers.Without(decl.AccessMask | decl.ModPartial)
			for _, a := range n.Attributes {
				u.attrs[a] = true
			}
			for _, b := range n.Bases {
				u.bases[b] = true
			}
			if i == 0 || n.Modifiers.Access() != 0 {
				u.acc = n.Accessibility()
			}
		}
		return u
	}
	o, n := collect(Old), collect(New)
	var c match.Change
	if o.mods != n.mods {
		c |= match.ChangeModifiers
	}
	if o.acc != n.acc {
		c |= match.ChangeAccessibility
	}
	if !sameSet(o.attrs, n.attrs) {
		c |= match.ChangeAttributes
	}
	if !sameSet(o.bases, n.bases) {
		c |= match.ChangeBases
	}
	return c
}

func sameSet[K comparable](a, b map[K]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
