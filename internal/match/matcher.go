package match

import (
	"context"
	"sort"

	"hotdelta/internal/decl"
	"hotdelta/internal/errors"
)

// Match diffs two arenas document by document. Documents are paired by path.
// The context is checked between top-level declarations; a cancelled match
// returns an error and no script.
func Match(ctx context.Context, old, new *decl.Arena) (*Script, error) {
	s := &Script{Old: old, New: new}
	m := &matcher{ctx: ctx}
	for _, path := range documentPaths(old, new) {
		m.list(old.Roots(path), new.Roots(path), nil, nil, true)
		if m.err != nil {
			return nil, m.err
		}
	}
	s.Edits = DetectMoves(m.edits)
	return s, nil
}

// MatchNodes diffs two declarations known to denote the same symbol and
// returns the update of the pair, if any, followed by the edits of their
// children.
func MatchNodes(old, new *decl.Node) []Edit {
	m := &matcher{ctx: context.Background()}
	m.pair(old, new, old.Parent(), new.Parent(), false)
	return m.edits
}

// MatchLists diffs two sibling lists of one container.
func MatchLists(olds, news []*decl.Node, oldParent, newParent *decl.Node) []Edit {
	m := &matcher{ctx: context.Background()}
	m.list(olds, news, oldParent, newParent, false)
	return m.edits
}

func documentPaths(old, new *decl.Arena) []string {
	seen := map[string]bool{}
	var paths []string
	for _, a := range []*decl.Arena{old, new} {
		for _, d := range a.Documents() {
			if !seen[d.Path] {
				seen[d.Path] = true
				paths = append(paths, d.Path)
			}
		}
	}
	sort.Strings(paths)
	return paths
}

type matcher struct {
	ctx   context.Context
	edits []Edit
	err   error
}

func (m *matcher) emit(e Edit) { m.edits = append(m.edits, e) }

// list matches one sibling list. Pairs share an identity key; the bijection
// is an order-preserving LCS, extended greedily in order with the remaining
// nodes of equal key. Only pairs from the greedy extension are reordered;
// LCS pairs keep their relative order.
func (m *matcher) list(olds, news []*decl.Node, oldParent, newParent *decl.Node, top bool) {
	oldKeys := keys(olds)
	newKeys := keys(news)
	oldMatch := make([]int, len(olds))
	newMatch := make([]int, len(news))
	for i := range oldMatch {
		oldMatch[i] = -1
	}
	for j := range newMatch {
		newMatch[j] = -1
	}
	inLCS := make([]bool, len(olds))
	for _, p := range LCS(oldKeys, newKeys) {
		oldMatch[p.Old] = p.New
		newMatch[p.New] = p.Old
		inLCS[p.Old] = true
	}
	leftovers := map[string][]int{}
	for i, k := range oldKeys {
		if oldMatch[i] < 0 {
			leftovers[k] = append(leftovers[k], i)
		}
	}
	for j, k := range newKeys {
		if newMatch[j] >= 0 {
			continue
		}
		if q := leftovers[k]; len(q) > 0 {
			oldMatch[q[0]] = j
			newMatch[j] = q[0]
			leftovers[k] = q[1:]
		}
	}

	for j, n := range news {
		if top {
			if err := m.ctx.Err(); err != nil {
				m.err = errors.New(errors.Canceled, "edit matching canceled", err)
				return
			}
		}
		i := newMatch[j]
		if i < 0 {
			m.emit(Edit{Kind: Insert, New: n, OldContainer: oldParent, NewContainer: newParent})
			continue
		}
		m.pair(olds[i], n, oldParent, newParent, !inLCS[i])
	}
	for i, o := range olds {
		if oldMatch[i] < 0 {
			m.emit(Edit{Kind: Delete, Old: o, OldContainer: oldParent, NewContainer: newParent})
		}
	}
}

func (m *matcher) pair(o, n, oldParent, newParent *decl.Node, reordered bool) {
	if reordered {
		m.emit(Edit{Kind: Reorder, Old: o, New: n, OldContainer: oldParent, NewContainer: newParent})
	}
	if c := Compare(o, n); c != 0 {
		m.emit(Edit{Kind: Update, Old: o, New: n, OldContainer: oldParent, NewContainer: newParent, Changes: c})
	}
	m.list(o.TypeParameters(), n.TypeParameters(), o, n, false)
	m.list(o.Parameters(), n.Parameters(), o, n, false)
	m.list(o.ChildrenOf(decl.KindAccessor), n.ChildrenOf(decl.KindAccessor), o, n, false)
	m.list(memberList(o), memberList(n), o, n, false)
}

// memberList returns members other than accessors.
func memberList(n *decl.Node) []*decl.Node {
	var out []*decl.Node
	for _, c := range n.Members() {
		if c.Kind != decl.KindAccessor {
			out = append(out, c)
		}
	}
	return out
}

func keys(nodes []*decl.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Identity().Key()
	}
	return out
}

// DetectMoves pairs deleted and inserted types and members that keep their
// local identity but changed container.
func DetectMoves(edits []Edit) []Edit {
	deletes := map[string][]int{}
	for i, e := range edits {
		if e.Kind == Delete && movable(e.Old) {
			k := e.Old.Identity().Local().Key()
			deletes[k] = append(deletes[k], i)
		}
	}
	if len(deletes) == 0 {
		return edits
	}
	removed := map[int]bool{}
	for i, e := range edits {
		if e.Kind != Insert || !movable(e.New) {
			continue
		}
		k := e.New.Identity().Local().Key()
		q := deletes[k]
		if len(q) == 0 {
			continue
		}
		d := edits[q[0]]
		if d.Old.Identity().Container == e.New.Identity().Container {
			continue
		}
		deletes[k] = q[1:]
		removed[q[0]] = true
		edits[i] = Edit{
			Kind:         Move,
			Old:          d.Old,
			New:          e.New,
			OldContainer: d.OldContainer,
			NewContainer: e.NewContainer,
			Changes:      Compare(d.Old, e.New),
		}
	}
	out := edits[:0]
	for i, e := range edits {
		if !removed[i] {
			out = append(out, e)
		}
	}
	return out
}

func movable(n *decl.Node) bool {
	return n.Kind.IsTypeLike() || n.Kind.IsMember()
}
