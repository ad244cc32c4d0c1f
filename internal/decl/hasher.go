package decl

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Hasher computes canonical content hashes for declarations.
// Uses length-prefixed encoding to avoid delimiter ambiguity.
// Format: ${len}:${value}${len}:${value}... where an absent value is 0:
// Algorithm: SHA-256, lowercase hex output
type Hasher struct{}

// NewHasher creates a new hasher instance
func NewHasher() *Hasher {
	return &Hasher{}
}

// HashBody hashes the statements of a body. Features are derived from the
// statements and do not participate.
func (h *Hasher) HashBody(b *Body) string {
	return h.hashFields(b.Statements)
}

// HashStatement hashes one statement with surrounding whitespace collapsed.
func (h *Hasher) HashStatement(stmt string) string {
	return h.hashFields([]string{strings.Join(strings.Fields(stmt), " ")})
}

// HashNode hashes the own content of a node: everything that an Update
// compares, excluding children and source location.
func (h *Hasher) HashNode(n *Node) string {
	fields := []string{
		n.Kind.String(),
		n.Name,
		n.TypeKind.String(),
		n.MethodKind.String(),
		n.AccessorKind.String(),
		string(n.Type),
		strconv.FormatUint(uint64(n.Modifiers), 16),
		n.Body.Hash(),
		n.Initializer.Hash(),
		n.Variance,
		n.ExplicitInterface,
		strconv.FormatBool(n.ChainsToThis),
		strconv.FormatBool(n.Captured),
		n.DefaultValue,
	}
	for _, a := range n.Attributes {
		fields = append(fields, "@"+a.Name, a.Arguments)
	}
	for _, b := range n.Bases {
		fields = append(fields, ":"+string(b))
	}
	for _, c := range n.Constraints {
		fields = append(fields, "where "+c)
	}
	for _, m := range n.EnumMembers {
		fields = append(fields, "="+m.Name, m.Value)
	}
	return h.hashFields(fields)
}

// HashTree hashes a node and all of its descendants.
func (h *Hasher) HashTree(n *Node) string {
	fields := []string{h.HashNode(n)}
	for _, c := range n.Children {
		fields = append(fields, h.HashTree(c))
	}
	return h.hashFields(fields)
}

// HashDocument hashes every declaration of a document for snapshot
// identification.
func (h *Hasher) HashDocument(d *Document) string {
	fields := []string{d.Path}
	for _, m := range d.Members {
		fields = append(fields, h.HashTree(m))
	}
	return "sha256:" + h.hashFields(fields)
}

// hashFields computes SHA-256 of length-prefixed fields
func (h *Hasher) hashFields(fields []string) string {
	var builder strings.Builder

	for _, field := range fields {
		builder.WriteString(strconv.Itoa(len(field)))
		builder.WriteByte(':')
		builder.WriteString(field)
	}

	hash := sha256.Sum256([]byte(builder.String()))
	return hex.EncodeToString(hash[:])
}
