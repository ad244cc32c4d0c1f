package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotdelta/internal/decl"
	"hotdelta/internal/errors"
)

func diff(t *testing.T, old, new []*decl.Document) *Script {
	t.Helper()
	s, err := Match(context.Background(), decl.NewArena(nil, old...), decl.NewArena(nil, new...))
	require.NoError(t, err)
	return s
}

func docs(d ...*decl.Document) []*decl.Document { return d }

func TestMatchIdenticalTreesYieldsNoEdits(t *testing.T) {
	doc := decl.Doc("a.cs", decl.Namespace("N",
		decl.Class("C").Mods("public").Members(
			decl.Field("x", "int").Init("1"),
			decl.Method("F", "void").Params(decl.Param("a", "int")).Body("return;"),
			decl.Property("P", "int").Accessors(decl.Get(), decl.Set()),
		),
		decl.Enum("E").Values("A", "B"),
	))
	s := diff(t, docs(doc), docs(doc))
	assert.Empty(t, s.Edits)
}

func TestMatchBodyUpdate(t *testing.T) {
	old := decl.Doc("a.cs", decl.Class("C").Members(decl.Method("F", "void").Body()))
	new := decl.Doc("a.cs", decl.Class("C").Members(decl.Method("F", "void").Body("return;")))
	s := diff(t, docs(old), docs(new))
	assert.Equal(t, []string{"update method C.F() [body]"}, s.Strings())
}

func TestMatchRenameIsDeleteAndInsert(t *testing.T) {
	old := decl.Doc("a.cs", decl.Class("C").Members(decl.Method("F", "void").Body("return;")))
	new := decl.Doc("a.cs", decl.Class("C").Members(decl.Method("G", "void").Body("return;")))
	s := diff(t, docs(old), docs(new))
	assert.Equal(t, []string{"delete method C.F()", "insert method C.G()"}, s.Strings())
}

func TestMatchEmitsOnlySubtreeRoots(t *testing.T) {
	old := decl.Doc("a.cs", decl.Class("C"))
	new := decl.Doc("a.cs", decl.Class("C"), decl.Class("D").Members(
		decl.Method("F", "void").Body(),
		decl.Field("x", "int"),
	))
	s := diff(t, docs(old), docs(new))
	assert.Equal(t, []string{"insert type D"}, s.Strings())
}

func TestMatchNamespaceFormsAreEquivalent(t *testing.T) {
	nested := decl.Doc("a.cs", decl.Namespace("A", decl.Namespace("B", decl.Class("C"))))
	dotted := decl.Doc("a.cs", decl.Namespace("A.B", decl.Class("C")))
	s := diff(t, docs(nested), docs(dotted))
	assert.Empty(t, s.Edits)
}

func TestMatchNamespaceChangeIsMove(t *testing.T) {
	old := decl.Doc("a.cs", decl.Namespace("A", decl.Class("C")))
	new := decl.Doc("a.cs", decl.Namespace("B", decl.Class("C")))
	s := diff(t, docs(old), docs(new))
	require.Len(t, s.Edits, 1)
	e := s.Edits[0]
	assert.Equal(t, Move, e.Kind)
	assert.Equal(t, "A", e.Old.Namespace())
	assert.Equal(t, "B", e.New.Namespace())
}

func TestMatchMemberMovedBetweenTypes(t *testing.T) {
	old := decl.Doc("a.cs", decl.Class("C").Members(decl.Method("F", "void").Body()), decl.Class("D"))
	new := decl.Doc("a.cs", decl.Class("C"), decl.Class("D").Members(decl.Method("F", "void").Body()))
	s := diff(t, docs(old), docs(new))
	assert.Equal(t, []string{"move method C.F() -> D.F()"}, s.Strings())
}

func TestMatchReorderOnly(t *testing.T) {
	old := decl.Doc("a.cs", decl.Class("C").Members(
		decl.Method("F", "void").Body(),
		decl.Method("G", "void").Body(),
	))
	new := decl.Doc("a.cs", decl.Class("C").Members(
		decl.Method("G", "void").Body(),
		decl.Method("F", "void").Body(),
	))
	s := diff(t, docs(old), docs(new))
	require.Len(t, s.Edits, 1, s.Strings())
	assert.Equal(t, Reorder, s.Edits[0].Kind)
	assert.Zero(t, s.Edits[0].Changes)
}

func TestMatchReorderReportsOnlyMovedMember(t *testing.T) {
	method := func(name string) *decl.Builder { return decl.Method(name, "void").Body() }
	old := decl.Doc("a.cs", decl.Class("C").Members(method("A"), method("B"), method("C2"), method("D")))
	new := decl.Doc("a.cs", decl.Class("C").Members(method("B"), method("C2"), method("D"), method("A")))
	s := diff(t, docs(old), docs(new))
	require.Len(t, s.Edits, 1, s.Strings())
	assert.Equal(t, Reorder, s.Edits[0].Kind)
	assert.Equal(t, "A", s.Edits[0].New.Name)
}

func TestMatchInsertDoesNotReorderSurvivors(t *testing.T) {
	old := decl.Doc("a.cs", decl.Class("C").Members(
		decl.Method("F", "void"),
		decl.Method("G", "void"),
	))
	new := decl.Doc("a.cs", decl.Class("C").Members(
		decl.Method("E", "void"),
		decl.Method("F", "void"),
		decl.Method("G", "void"),
	))
	s := diff(t, docs(old), docs(new))
	assert.Equal(t, []string{"insert method C.E()"}, s.Strings())
}

func TestMatchParameterRename(t *testing.T) {
	old := decl.Doc("a.cs", decl.Class("C").Members(
		decl.Method("F", "void").Params(decl.Param("a", "int")).Body(),
	))
	new := decl.Doc("a.cs", decl.Class("C").Members(
		decl.Method("F", "void").Params(decl.Param("b", "int")).Body(),
	))
	s := diff(t, docs(old), docs(new))
	assert.Equal(t, []string{
		"delete parameter C.F(int).a",
		"insert parameter C.F(int).b",
		"update method C.F(int) [parameters]",
	}, s.Strings())
}

func TestMatchErasureEqualSignatureChange(t *testing.T) {
	old := decl.Doc("a.cs", decl.Class("C").Members(
		decl.Method("F", "void").Params(decl.Param("a", "object")).Body(),
	))
	new := decl.Doc("a.cs", decl.Class("C").Members(
		decl.Method("F", "void").Params(decl.Param("a", "dynamic")).Body(),
	))
	s := diff(t, docs(old), docs(new))
	assert.Equal(t, []string{
		"update method C.F(object) [signature]",
		"update parameter C.F(object).a [type]",
	}, s.Strings())
}

func TestMatchAccessibilityDefaultsAreEquivalent(t *testing.T) {
	old := decl.Doc("a.cs", decl.Class("C").Members(decl.Field("x", "int")))
	new := decl.Doc("a.cs", decl.Class("C").Mods("internal").Members(decl.Field("x", "int").Mods("private")))
	s := diff(t, docs(old), docs(new))
	assert.Empty(t, s.Edits)
}

func TestMatchSymmetry(t *testing.T) {
	a := decl.Doc("a.cs", decl.Namespace("N",
		decl.Class("C").Members(
			decl.Method("F", "void").Params(decl.Param("x", "int")).Body("return;"),
			decl.Method("G", "void").Body(),
			decl.Field("f", "int"),
			decl.Method("H", "int").Body("return 1;"),
		),
		decl.Class("D"),
	))
	b := decl.Doc("a.cs", decl.Namespace("N",
		decl.Class("C").Members(
			decl.Method("H", "int").Body("return 2;"),
			decl.Method("F", "void").Params(decl.Param("y", "int")).Body("return;"),
			decl.Property("P", "int").Accessors(decl.Get()),
		),
		decl.Class("D").Members(decl.Method("G", "void").Body()),
	))
	forward := diff(t, docs(a), docs(b))
	backward := diff(t, docs(b), docs(a))
	assert.Equal(t, backward.Strings(), forward.Mirror().Strings())
	assert.NotEmpty(t, forward.Filter(Move))
}

func TestMatchDocumentOnlyOnOneSide(t *testing.T) {
	s := diff(t, nil, docs(decl.Doc("b.cs", decl.Class("C"))))
	assert.Equal(t, []string{"insert type C"}, s.Strings())
	assert.Nil(t, s.Edits[0].Container())
}

func TestMatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc := decl.Doc("a.cs", decl.Class("C"))
	_, err := Match(ctx, decl.NewArena(nil, doc), decl.NewArena(nil, doc))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.Canceled))
}

func TestMatchNodesAcrossDocuments(t *testing.T) {
	old := decl.NewArena(nil, decl.Doc("a.cs", decl.Class("C").Members(decl.Method("F", "void").Body("return;"))))
	new := decl.NewArena(nil, decl.Doc("b.cs", decl.Class("C").Members(decl.Method("F", "void").Body("return;"))))
	edits := MatchNodes(old.Find("C.F()")[0], new.Find("C.F()")[0])
	require.Len(t, edits, 1)
	assert.Equal(t, Update, edits[0].Kind)
	assert.Equal(t, ChangeDocument, edits[0].Changes)
}

func TestLCS(t *testing.T) {
	pairs := LCS([]string{"a", "b", "c", "d"}, []string{"b", "x", "c", "a"})
	assert.Equal(t, []Pair{{Old: 1, New: 0}, {Old: 2, New: 2}}, pairs)
	assert.Nil(t, LCS([]int{}, []int{1}))
}
