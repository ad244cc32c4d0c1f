package semantic

import (
	"hotdelta/internal/decl"
	"hotdelta/internal/match"
)

// NewSyntaxMap pairs the unchanged statements of two bodies by a longest
// common subsequence over statement hashes. It returns nil when either body
// is missing.
func NewSyntaxMap(old, new *decl.Body) *SyntaxMap {
	if old == nil || new == nil {
		return nil
	}
	h := decl.NewHasher()
	hash := func(stmts []string) []string {
		out := make([]string, len(stmts))
		for i, s := range stmts {
			out[i] = h.HashStatement(s)
		}
		return out
	}
	pairs := match.LCS(hash(old.Statements), hash(new.Statements))
	m := &SyntaxMap{Statements: make([]StatementPair, 0, len(pairs))}
	for _, p := range pairs {
		m.Statements = append(m.Statements, StatementPair{Old: p.Old, New: p.New})
	}
	return m
}

// OldIndex maps a new statement index to its old index, or -1 for inserted
// statements.
func (m *SyntaxMap) OldIndex(newIndex int) int {
	for _, p := range m.Statements {
		if p.New == newIndex {
			return p.Old
		}
	}
	return -1
}
