package semantic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotdelta/internal/capability"
	"hotdelta/internal/decl"
	"hotdelta/internal/match"
	"hotdelta/internal/partial"
	"hotdelta/internal/rude"
)

var (
	baseline = capability.Of(capability.Baseline)
	all      = capability.Of(capability.Known...)
)

func net8(t *testing.T) capability.Set {
	t.Helper()
	s, ok := capability.DefaultProfiles().Get("net8")
	require.True(t, ok)
	return s
}

func synthesize(t *testing.T, old, new []*decl.Document, caps capability.Set) ([]Operation, *rude.Result) {
	t.Helper()
	raw, err := match.Match(context.Background(), decl.NewArena(nil, old...), decl.NewArena(nil, new...))
	require.NoError(t, err)
	s, groups, err := partial.Merge(raw)
	require.NoError(t, err)
	res := rude.NewClassifier(nil).Classify(s, groups, caps)
	return NewSynthesizer(nil).Synthesize(res, groups), res
}

func ops(t *testing.T, old, new *decl.Document, caps capability.Set) []string {
	t.Helper()
	got, _ := synthesize(t, []*decl.Document{old}, []*decl.Document{new}, caps)
	return opStrings(got)
}

func opStrings(ops []Operation) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.String())
	}
	return out
}

func classC(members ...*decl.Builder) *decl.Document {
	return decl.Doc("a.cs", decl.Class("C").Members(members...))
}

func TestSynthesizeBodyUpdate(t *testing.T) {
	old := classC(decl.Method("F", "void").Body("int x = 1;", "Log(x);"))
	new := classC(decl.Method("F", "void").Body("int x = 1;", "x++;", "Log(x);"))

	got, res := synthesize(t, []*decl.Document{old}, []*decl.Document{new}, baseline)
	assert.Empty(t, res.Diagnostics)
	require.Len(t, got, 1)
	op := got[0]
	assert.Equal(t, "update method C.F()", op.String())
	assert.Equal(t, "C", op.Container)
	assert.Equal(t, "a.cs", op.Document)
	require.NotNil(t, op.SyntaxMap)
	assert.Equal(t, []StatementPair{{Old: 0, New: 0}, {Old: 1, New: 2}}, op.SyntaxMap.Statements)
}

func TestSynthesizeRudeEditProducesNoOperations(t *testing.T) {
	got, res := synthesize(t,
		[]*decl.Document{classC()},
		[]*decl.Document{classC(decl.Method("F", "void").Body())},
		baseline)
	assert.True(t, res.HasRudeEdits())
	assert.Empty(t, got)
}

func TestSynthesizeMethodInsert(t *testing.T) {
	assert.Equal(t, []string{"insert method C.F()"},
		ops(t, classC(), classC(decl.Method("F", "void").Body()), all))
}

func TestSynthesizePartialMethodAnchorsOnImplementation(t *testing.T) {
	frag := func(path string, m *decl.Builder) *decl.Document {
		return decl.Doc(path, decl.Class("C").Mods("partial").Members(m))
	}
	old := []*decl.Document{
		frag("a.cs", decl.Method("F", "void").Mods("partial")),
		frag("b.cs", decl.Method("F", "void").Mods("partial").Body()),
	}
	new := []*decl.Document{
		frag("a.cs", decl.Method("F", "void").Mods("partial")),
		frag("b.cs", decl.Method("F", "void").Mods("partial").Body("return;")),
	}
	got, res := synthesize(t, old, new, baseline)
	assert.Empty(t, res.Diagnostics)
	require.Len(t, got, 1)
	assert.Equal(t, "update method C.F()", got[0].String())
	assert.Equal(t, "b.cs", got[0].Document)
}

func TestSynthesizeInitializerCascadesToImplicitConstructor(t *testing.T) {
	prop := func(init string) *decl.Builder {
		return decl.Property("P", "int").Accessors(decl.Get()).Init(init)
	}
	got, res := synthesize(t,
		[]*decl.Document{classC(prop("1"))},
		[]*decl.Document{classC(prop("2"))},
		baseline)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{"update constructor C..ctor()"}, opStrings(got))
	assert.Equal(t, "C", got[0].Container)
}

func TestSynthesizeInitializerUpdatesExplicitConstructors(t *testing.T) {
	members := func(init string) []*decl.Builder {
		return []*decl.Builder{
			decl.Field("x", "int").Init(init),
			decl.Ctor().ChainsToThis().Body(),
			decl.Ctor().Params(decl.Param("a", "int")).Body("Use(a);"),
		}
	}
	assert.Equal(t, []string{"update constructor C..ctor(int)"},
		ops(t, classC(members("1")...), classC(members("2")...), all))
}

func TestSynthesizeStaticInitializer(t *testing.T) {
	field := func(init string) *decl.Builder { return decl.Field("s", "int").Mods("static").Init(init) }
	assert.Equal(t, []string{"update constructor C..cctor()"},
		ops(t, classC(field("1")), classC(field("2")), all))
}

func TestSynthesizeRecordParameterInsert(t *testing.T) {
	old := decl.Doc("a.cs", decl.Record("C").Params(decl.Param("X", "int")))
	new := decl.Doc("a.cs", decl.Record("C").Params(decl.Param("X", "int"), decl.Param("Y", "int")))

	got, res := synthesize(t, []*decl.Document{old}, []*decl.Document{new}, net8(t))
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{
		"update method C.PrintMembers(StringBuilder)",
		"update method C.Equals(C)",
		"update method C.GetHashCode()",
		"update constructor C..ctor(C)",
		"insert property C.Y",
		"delete method C.Deconstruct(out int)",
		"insert method C.Deconstruct(out int,out int)",
		"delete constructor C..ctor(int)",
		"insert constructor C..ctor(int,int)",
	}, opStrings(got))
	for _, op := range got {
		assert.Equal(t, "C", op.Container, op.String())
	}
}

func TestSynthesizeRecordParameterWithDeclaredProperty(t *testing.T) {
	old := decl.Doc("a.cs", decl.Record("C").Params(decl.Param("X", "int")).Members(
		decl.Property("Y", "int").Mods("public").Accessors(decl.Get()),
	))
	new := decl.Doc("a.cs", decl.Record("C").Params(decl.Param("X", "int"), decl.Param("Y", "int")).Members(
		decl.Property("Y", "int").Mods("public").Accessors(decl.Get()),
	))
	got := ops(t, old, new, all)
	assert.NotContains(t, got, "insert property C.Y")
	assert.Contains(t, got, "insert constructor C..ctor(int,int)")
}

func TestSynthesizeHandWrittenMemberReplacesSynthesized(t *testing.T) {
	old := decl.Doc("a.cs", decl.Record("C"))
	new := decl.Doc("a.cs", decl.Record("C").Members(
		decl.Method("Equals", "bool").Mods("public virtual").Params(decl.Param("other", "C?")).Body("return true;"),
	))
	assert.Equal(t, []string{"update method C.Equals(C)"}, ops(t, old, new, all))
	assert.Equal(t, []string{"update method C.Equals(C)"}, ops(t, new, old, all))
}

func TestSynthesizeExplicitConstructorReplacesImplicit(t *testing.T) {
	assert.Equal(t, []string{"update constructor C..ctor()"},
		ops(t, classC(), classC(decl.Ctor().Mods("public").Body("Init();")), all))
	assert.Equal(t, []string{"update constructor C..ctor()"},
		ops(t, classC(decl.Ctor().Mods("public").Body("Init();")), classC(), all))
}

func TestSynthesizeRecordAccessorDeleteIsStubbed(t *testing.T) {
	old := decl.Doc("a.cs", decl.Record("R").Members(
		decl.Property("P", "int").Mods("public").Accessors(decl.Get(), decl.Set()),
	))
	new := decl.Doc("a.cs", decl.Record("R").Members(
		decl.Property("P", "int").Mods("public").Accessors(decl.Get()),
	))
	got, _ := synthesize(t, []*decl.Document{old}, []*decl.Document{new}, all)
	var stub *Operation
	for i := range got {
		if got[i].Stub {
			stub = &got[i]
		}
	}
	require.NotNil(t, stub, opStrings(got))
	assert.Equal(t, "update method R.set_P() [stub]", stub.String())
}

func TestSynthesizeDelegateParameterRename(t *testing.T) {
	old := decl.Doc("a.cs", decl.Delegate("D", "void").Params(decl.Param("a", "int")))
	new := decl.Doc("a.cs", decl.Delegate("D", "void").Params(decl.Param("b", "int")))
	assert.Equal(t, []string{
		"update method D.Invoke(int)",
		"update method D.BeginInvoke(int,AsyncCallback,object)",
	}, ops(t, old, new, all))
}

func TestSynthesizeMethodParameterRename(t *testing.T) {
	old := classC(decl.Method("F", "void").Params(decl.Param("a", "int")).Body())
	new := classC(decl.Method("F", "void").Params(decl.Param("b", "int")).Body())
	assert.Equal(t, []string{"update method C.F(int)"}, ops(t, old, new, all))
}

func TestSynthesizeEnumMemberInsert(t *testing.T) {
	old := decl.Doc("a.cs", decl.Enum("E").Values("A"))
	new := decl.Doc("a.cs", decl.Enum("E").Values("A", "B"))
	assert.Equal(t, []string{"insert field E.B"}, ops(t, old, new, all))
}

func TestSynthesizeReorderProducesNothing(t *testing.T) {
	old := classC(decl.Method("F", "void").Body(), decl.Method("G", "void").Body())
	new := classC(decl.Method("G", "void").Body(), decl.Method("F", "void").Body())
	assert.Empty(t, ops(t, old, new, all))
}

func TestSynthesizeReloadableTypeIsReplaced(t *testing.T) {
	doc := func(members ...*decl.Builder) *decl.Document {
		return decl.Doc("a.cs", decl.Class("C").Attr(rude.ReloadableAttribute).Members(members...))
	}
	got := ops(t,
		doc(decl.Field("x", "int")),
		doc(decl.Field("x", "int"), decl.Field("y", "int"), decl.Method("F", "void").Mods("virtual").Body()),
		all)
	assert.Equal(t, []string{"replace type C"}, got)
}

func TestSynthesizeIsolatesRudeUnits(t *testing.T) {
	old := decl.Doc("a.cs",
		decl.Struct("S").Members(decl.Field("X", "int")),
		decl.Class("D").Members(decl.Method("F", "void").Body()),
	)
	new := decl.Doc("a.cs",
		decl.Struct("S").Members(decl.Field("X", "int"), decl.Field("Y", "int")),
		decl.Class("D").Members(decl.Method("F", "void").Body("return;")),
	)
	got, res := synthesize(t, []*decl.Document{old}, []*decl.Document{new}, all)
	assert.True(t, res.HasRudeEdits())
	assert.Equal(t, []string{"update method D.F()"}, opStrings(got))
}

func TestSynthesizeOperationsAreDeterministic(t *testing.T) {
	old := decl.Doc("a.cs", decl.Record("C").Params(decl.Param("X", "int")))
	new := decl.Doc("a.cs", decl.Record("C").Params(decl.Param("X", "long"), decl.Param("Y", "int")))
	first := ops(t, old, new, all)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ops(t, old, new, all))
	}
}

func TestSynthesizeReturnTypeChangeReplacesMethod(t *testing.T) {
	old := classC(decl.Method("F", "int").Body("return 0;"))
	new := classC(decl.Method("F", "string").Body("return \"\";"))

	got, res := synthesize(t, []*decl.Document{old}, []*decl.Document{new}, all)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{"delete method C.F()", "insert method C.F()"}, opStrings(got))
	for _, op := range got {
		assert.NotEqual(t, OpUpdate, op.Kind, op.String())
	}
}

func TestSynthesizeFieldTypeChangeReplacesField(t *testing.T) {
	assert.Equal(t, []string{"delete field C.X", "insert field C.X"},
		ops(t, classC(decl.Field("X", "int")), classC(decl.Field("X", "long")), all))
}

func TestSynthesizePropertyTypeChangeReplacesAccessors(t *testing.T) {
	old := classC(decl.Property("P", "int").Accessors(decl.Get("return 0;")))
	new := classC(decl.Property("P", "long").Accessors(decl.Get("return 0;")))
	assert.Equal(t, []string{
		"delete property C.P",
		"delete method C.get_P()",
		"insert property C.P",
		"insert method C.get_P()",
	}, ops(t, old, new, all))
}

func TestSynthesizeErasureEqualTypeChangeIsUpdate(t *testing.T) {
	old := classC(decl.Method("F", "string").Body("return \"\";"))
	new := classC(decl.Method("F", "string?").Body("return \"\";"))
	got := ops(t, old, new, all)
	assert.NotContains(t, got, "delete method C.F()")
	assert.NotContains(t, got, "insert method C.F()")
}
