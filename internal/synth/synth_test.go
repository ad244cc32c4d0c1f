package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotdelta/internal/decl"
)

func synthesized(t *testing.T, doc *decl.Document, name string) []string {
	t.Helper()
	a := decl.NewArena(nil, doc)
	nodes := a.Find(name)
	require.Len(t, nodes, 1)
	var out []string
	for _, s := range (DefaultModel{}).Synthesized(nodes, a.Eraser()) {
		out = append(out, string(s.Member)+" "+s.Ref.String())
	}
	return out
}

func TestSynthesizedPositionalRecord(t *testing.T) {
	doc := decl.Doc("a.cs", decl.Record("C").Params(decl.Param("X", "int"), decl.Param("Y", "string?")))
	assert.Equal(t, []string{
		"PrintMembers method C.PrintMembers(StringBuilder)",
		"Equals method C.Equals(C)",
		"GetHashCode method C.GetHashCode()",
		"CopyConstructor constructor C..ctor(C)",
		"Deconstruct method C.Deconstruct(out int,out string)",
		"PrimaryConstructor constructor C..ctor(int,string)",
	}, synthesized(t, doc, "C"))
}

func TestSynthesizedRecordStructHasNoCopyConstructor(t *testing.T) {
	doc := decl.Doc("a.cs", decl.RecordStruct("P"))
	assert.Equal(t, []string{
		"PrintMembers method P.PrintMembers(StringBuilder)",
		"Equals method P.Equals(P)",
		"GetHashCode method P.GetHashCode()",
	}, synthesized(t, doc, "P"))
}

func TestHandWrittenMemberSuppressesSynthesized(t *testing.T) {
	doc := decl.Doc("a.cs", decl.Record("C").Members(
		decl.Method("PrintMembers", "bool").Mods("protected virtual").
			Params(decl.Param("builder", "StringBuilder")).Body("return false;"),
	))
	got := synthesized(t, doc, "C")
	assert.NotContains(t, got, "PrintMembers method C.PrintMembers(StringBuilder)")
	assert.Contains(t, got, "Equals method C.Equals(C)")
}

func TestSynthesizedConstructors(t *testing.T) {
	plain := decl.Doc("a.cs", decl.Class("C").Members(decl.Field("s", "int").Mods("static").Init("1")))
	assert.Equal(t, []string{
		"ImplicitConstructor constructor C..ctor()",
		"StaticConstructor constructor C..cctor()",
	}, synthesized(t, plain, "C"))

	explicit := decl.Doc("a.cs", decl.Class("C").Members(decl.Ctor().Body()))
	assert.Empty(t, synthesized(t, explicit, "C"))

	primary := decl.Doc("a.cs", decl.Class("C").Params(decl.Param("x", "int").Captured(), decl.Param("y", "int")))
	assert.Equal(t, []string{
		"PrimaryConstructor constructor C..ctor(int,int)",
		"CapturedField field C.<x>P",
	}, synthesized(t, primary, "C"))
}

func TestSynthesizedDelegateMembers(t *testing.T) {
	doc := decl.Doc("a.cs", decl.Delegate("D", "void").Params(decl.Param("a", "Int32")))
	assert.Equal(t, []string{
		"Invoke method D.Invoke(int)",
		"BeginInvoke method D.BeginInvoke(int,AsyncCallback,object)",
	}, synthesized(t, doc, "D"))
}

func TestReplaces(t *testing.T) {
	a := decl.NewArena(nil, decl.Doc("a.cs", decl.Record("C")))
	frags := a.Find("C")
	equals := SymbolRef{Kind: "method", Container: "C", Name: "Equals", Signature: "C", HasSignature: true}
	assert.True(t, Replaces(DefaultModel{}, frags, a.Eraser(), equals))

	other := equals
	other.Name = "Compare"
	assert.False(t, Replaces(DefaultModel{}, frags, a.Eraser(), other))
	assert.False(t, Replaces(DefaultModel{}, nil, a.Eraser(), equals))
}

func TestDependenciesFollowCascadeOrder(t *testing.T) {
	rank := map[SynthesizedMember]int{}
	for i, m := range CascadeOrder {
		rank[m] = i
	}
	for surface, members := range Dependencies {
		for _, m := range members {
			_, ok := rank[m]
			assert.True(t, ok, "%s depends on %s outside the cascade order", surface, m)
		}
	}
}

func TestRefOf(t *testing.T) {
	a := decl.NewArena(nil, decl.Doc("a.cs", decl.Namespace("N",
		decl.Class("C").Members(decl.Method("F", "void").Params(decl.Param("a", "string?")).Body()),
	)))
	ref := RefOf(a.Find("N.C.F(string)")[0])
	assert.Equal(t, "method N.C.F(string)", ref.String())
	assert.Equal(t, "method|N.C|F(string)", ref.Key())
}
