package decl

// Equal reports whether two documents declare structurally identical trees,
// source spans included.
func Equal(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Path != b.Path || len(a.Members) != len(b.Members) {
		return false
	}
	h := NewHasher()
	for i := range a.Members {
		if !equalNode(h, a.Members[i], b.Members[i]) {
			return false
		}
	}
	return true
}

func equalNode(h *Hasher, a, b *Node) bool {
	if a.Span != b.Span || len(a.Children) != len(b.Children) {
		return false
	}
	if h.HashNode(a) != h.HashNode(b) {
		return false
	}
	for i := range a.Children {
		if !equalNode(h, a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// SameContent reports whether two nodes have equal own content, ignoring
// children and spans.
func SameContent(a, b *Node) bool {
	h := NewHasher()
	return h.HashNode(a) == h.HashNode(b)
}
