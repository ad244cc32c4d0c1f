package decl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFeatures(t *testing.T) {
	tests := []struct {
		text string
		want BodyFeatures
	}{
		{"return;", 0},
		{"Span<int> s = stackalloc int[4];", FeatureStackAlloc},
		{"await Task.Delay(1);", FeatureAwait},
		{"var awaiter = x;", 0},
		{"yield return 1;", FeatureYield},
		{"Run(() => 1);", FeatureLambda},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFeatures(tt.text))
		})
	}
}

func TestNodePredicates(t *testing.T) {
	a := NewArena(nil, Doc("a.cs",
		Struct("S").Attr("StructLayout", "LayoutKind.Explicit").Members(
			Field("x", "int"),
			Field("K", "int").Mods("const"),
			Property("Auto", "int").Accessors(Get(), Set()),
			Property("Computed", "int").Accessors(Get("return 1;")),
			Event("E", "Action"),
		),
		Interface("I").Members(Method("M", "void")),
		Record("R").Params(Param("X", "int")),
		Class("P").Params(Param("a", "int").Captured(), Param("b", "int")),
	))
	find := func(name string) *Node {
		nodes := a.Find(name)
		require.Len(t, nodes, 1, name)
		return nodes[0]
	}

	assert.Equal(t, LayoutExplicit, find("S").Layout())
	assert.Equal(t, LayoutAuto, find("P").Layout())
	assert.True(t, find("S.x").HoldsInstanceState())
	assert.False(t, find("S.K").HoldsInstanceState())
	assert.True(t, find("S.Auto").IsAutoProperty())
	assert.False(t, find("S.Computed").IsAutoProperty())
	assert.True(t, find("S.E").IsAutoProperty())
	assert.Equal(t, AccessPublic, find("I.M()").Accessibility())
	assert.Equal(t, AccessInternal, find("S").Accessibility())
	assert.Equal(t, AccessPrivate, find("S.x").Accessibility())
	assert.True(t, find("R").HasPrimaryConstructor())
	assert.True(t, find("R.X").HoldsInstanceState())
	assert.True(t, find("P.a").HoldsInstanceState())
	assert.False(t, find("P.b").HoldsInstanceState())
}

func TestPseudoMembers(t *testing.T) {
	d := Delegate("D", "int").Params(Param("x", "int")).Build()
	names := []string{}
	for _, m := range d.PseudoMembers() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Invoke", "BeginInvoke", "EndInvoke"}, names)

	e := Enum("E").Values("A", "B = 2").Build()
	require.Len(t, e.PseudoMembers(), 2)
	assert.Equal(t, "B", e.PseudoMembers()[1].Name)
}

func TestHasherIsDeterministic(t *testing.T) {
	build := func() *Document {
		return Doc("a.cs", Class("C").Attr("Serializable").Members(
			Method("F", "void").Body("return;"),
		))
	}
	h := NewHasher()
	assert.Equal(t, h.HashDocument(build()), h.HashDocument(build()))
	assert.True(t, Equal(build(), build()))

	changed := build()
	changed.Members[0].Children[0].Body = NewBody("return 1;")
	assert.NotEqual(t, h.HashDocument(build()), h.HashDocument(changed))
	assert.False(t, Equal(build(), changed))
	assert.True(t, SameContent(build().Members[0], changed.Members[0]))
}

func TestBodyHashIgnoresNil(t *testing.T) {
	var b *Body
	assert.Equal(t, "", b.Hash())
	assert.NotEqual(t, "", NewBody().Hash())
}
