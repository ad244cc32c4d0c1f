package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotdelta/internal/capability"
	"hotdelta/internal/decl"
	"hotdelta/internal/errors"
	"hotdelta/internal/rude"
	"hotdelta/internal/semantic"
)

var (
	none     = capability.Of()
	baseline = capability.Of(capability.Baseline)
	all      = capability.Of(capability.Known...)
)

func profile(t *testing.T, name string) capability.Set {
	t.Helper()
	s, ok := capability.DefaultProfiles().Get(name)
	require.True(t, ok, name)
	return s
}

func docs(d ...*decl.Document) []*decl.Document { return d }

func classC(members ...*decl.Builder) *decl.Document {
	return decl.Doc("a.cs", decl.Class("C").Members(members...))
}

func analyze(t *testing.T, old, new []*decl.Document, caps capability.Set) *Result {
	t.Helper()
	res, err := NewEngine(Options{}).Analyze(context.Background(), Request{Old: old, New: new, Capabilities: caps})
	require.NoError(t, err)
	return res
}

func opStrings(ops []semantic.Operation) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.String())
	}
	return out
}

func diagKinds(diags []rude.Diagnostic) []rude.Kind {
	out := make([]rude.Kind, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Kind)
	}
	return out
}

func TestScenarioBodyUpdate(t *testing.T) {
	res := analyze(t,
		docs(classC(decl.Method("F", "void").Body())),
		docs(classC(decl.Method("F", "void").Body("return;"))),
		baseline)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{"update method C.F()"}, opStrings(res.Operations))
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"Baseline"}, res.Capabilities)
}

func TestScenarioMethodInsertWithoutCapability(t *testing.T) {
	res := analyze(t, docs(classC()), docs(classC(decl.Method("F", "void").Body())), baseline)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, rude.InsertNotSupportedByRuntime, res.Diagnostics[0].Kind)
	assert.Equal(t, "F", res.Diagnostics[0].Name)
	assert.Empty(t, res.Operations)
	assert.True(t, res.HasRudeEdits())
}

func TestScenarioStructFieldInsert(t *testing.T) {
	old := decl.Doc("a.cs", decl.Struct("S").Members(decl.Field("X", "int")))
	new := decl.Doc("a.cs", decl.Struct("S").Members(decl.Field("X", "int"), decl.Field("Y", "int")))
	for _, caps := range []capability.Set{none, baseline, profile(t, "net8"), all} {
		res := analyze(t, docs(old), docs(new), caps)
		require.Len(t, res.Diagnostics, 1, caps.String())
		assert.Equal(t, rude.InsertIntoStruct, res.Diagnostics[0].Kind)
		assert.Equal(t, "Y", res.Diagnostics[0].Name)
	}
}

func TestScenarioPartialMethod(t *testing.T) {
	frag := func(path string, m *decl.Builder) *decl.Document {
		return decl.Doc(path, decl.Class("C").Mods("partial").Members(m))
	}
	a := frag("a.cs", decl.Method("F", "void").Mods("partial"))
	res := analyze(t,
		docs(a, frag("b.cs", decl.Method("F", "void").Mods("partial").Body())),
		docs(a, frag("b.cs", decl.Method("F", "void").Mods("partial").Body("return;"))),
		baseline)
	assert.Empty(t, res.Diagnostics)
	require.Len(t, res.Operations, 1)
	assert.Equal(t, "update method C.F()", res.Operations[0].String())
	assert.Equal(t, "b.cs", res.Operations[0].Document)
	for _, e := range res.Script.Edits {
		assert.NotEqual(t, "a.cs", e.Node().Document, e.String())
	}
}

func TestScenarioInitializerUpdate(t *testing.T) {
	prop := func(init string) *decl.Builder {
		return decl.Property("P", "int").Accessors(decl.Get()).Init(init)
	}
	res := analyze(t, docs(classC(prop("1"))), docs(classC(prop("2"))), baseline)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{"update constructor C..ctor()"}, opStrings(res.Operations))
}

func TestScenarioRecordParameterInsert(t *testing.T) {
	old := decl.Doc("a.cs", decl.Record("C").Params(decl.Param("X", "int")))
	new := decl.Doc("a.cs", decl.Record("C").Params(decl.Param("X", "int"), decl.Param("Y", "int")))
	res := analyze(t, docs(old), docs(new), profile(t, "net8"))
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
	}, opStrings(res.Operations))
}

// propertyCases are edits used by the whole-pipeline properties.
var propertyCases = []struct {
	name     string
	old, new []*decl.Document
}{
	{"body", docs(classC(decl.Method("F", "void").Body())), docs(classC(decl.Method("F", "void").Body("return;")))},
	{"method insert", docs(classC()), docs(classC(decl.Method("F", "void").Body()))},
	{"field insert", docs(classC()), docs(classC(decl.Field("x", "int")))},
	{"type insert", docs(decl.Doc("a.cs")), docs(decl.Doc("a.cs", decl.Class("C")))},
	{
		"modifier",
		docs(classC(decl.Method("F", "void").Mods("public").Body())),
		docs(classC(decl.Method("F", "void").Mods("public static").Body())),
	},
	{
		"record parameter",
		docs(decl.Doc("a.cs", decl.Record("R").Params(decl.Param("X", "int")))),
		docs(decl.Doc("a.cs", decl.Record("R").Params(decl.Param("X", "int"), decl.Param("Y", "int")))),
	},
	{
		"generic",
		docs(decl.Doc("a.cs", decl.Class("G").TypeParams("T").Members(decl.Method("F", "void").Body()))),
		docs(decl.Doc("a.cs", decl.Class("G").TypeParams("T").Members(decl.Method("F", "void").Body("return;")))),
	},
}

func TestNoOpIsIdempotent(t *testing.T) {
	for _, tc := range propertyCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, side := range [][]*decl.Document{tc.old, tc.new} {
				res := analyze(t, side, side, all)
				assert.Empty(t, res.Edits)
				assert.Empty(t, res.Diagnostics)
				assert.Empty(t, res.Operations)
			}
		})
	}
}

func TestInsertDeleteSymmetry(t *testing.T) {
	for _, tc := range propertyCases {
		t.Run(tc.name, func(t *testing.T) {
			forward := analyze(t, tc.old, tc.new, all)
			backward := analyze(t, tc.new, tc.old, all)
			assert.Equal(t, backward.Script.Strings(), forward.Script.Mirror().Strings())
		})
	}
}

func TestCapabilityMonotonicity(t *testing.T) {
	ladder := []capability.Set{none, baseline, profile(t, "net6"), profile(t, "net8"), all}
	for _, tc := range propertyCases {
		t.Run(tc.name, func(t *testing.T) {
			permitted := map[int]bool{}
			for _, caps := range ladder {
				res := analyze(t, tc.old, tc.new, caps)
				for i, v := range res.Verdicts {
					if permitted[i] {
						assert.NotEqual(t, rude.Rude, v.Outcome, "%s became rude under %s", v.Edit, caps)
					}
					if v.Outcome != rude.Rude {
						permitted[i] = true
					}
				}
			}
		})
	}
}

func TestReorderProducesNoOperation(t *testing.T) {
	res := analyze(t,
		docs(classC(decl.Method("F", "void").Body(), decl.Field("x", "int"))),
		docs(classC(decl.Field("x", "int"), decl.Method("F", "void").Body())),
		none)
	assert.NotEmpty(t, res.Edits)
	assert.Empty(t, res.Diagnostics)
	assert.Empty(t, res.Operations)
}

func TestPartialGroupStability(t *testing.T) {
	one := docs(decl.Doc("a.cs", decl.Class("C").Mods("partial").Members(
		decl.Method("F", "void").Body("return;"),
		decl.Method("G", "void").Body(),
	)))
	split := docs(
		decl.Doc("a.cs", decl.Class("C").Mods("partial").Members(decl.Method("F", "void").Body("return;"))),
		decl.Doc("b.cs", decl.Class("C").Mods("partial").Members(decl.Method("G", "void").Body())),
	)
	res := analyze(t, one, split, baseline)
	assert.Empty(t, res.Diagnostics)
	for _, op := range res.Operations {
		assert.Equal(t, semantic.OpUpdate, op.Kind, op.String())
	}
}

func TestUnits(t *testing.T) {
	old := decl.Doc("a.cs",
		decl.Struct("S").Members(decl.Field("X", "int")),
		decl.Class("D").Members(decl.Method("F", "void").Body()),
	)
	new := decl.Doc("a.cs",
		decl.Struct("S").Members(decl.Field("X", "int"), decl.Field("Y", "int")),
		decl.Class("D").Members(decl.Method("F", "void").Body("return;")),
	)
	res := analyze(t, docs(old), docs(new), all)
	assert.Equal(t, []Unit{
		{Name: "S", Rude: true, Edits: 1, Diagnostics: 1},
		{Name: "D", Edits: 1, Operations: 1},
	}, res.Units)
	assert.Equal(t, []string{"update method D.F()"}, opStrings(res.Operations))
}

func TestMaxDiagnostics(t *testing.T) {
	old := classC()
	new := classC(decl.Method("F", "void").Body(), decl.Method("G", "void").Body(), decl.Method("H", "void").Body())
	res, err := NewEngine(Options{MaxDiagnostics: 2}).Analyze(context.Background(),
		Request{Old: docs(old), New: docs(new), Capabilities: baseline})
	require.NoError(t, err)
	assert.Len(t, res.Diagnostics, 2)
	assert.True(t, res.Truncated)
	assert.Equal(t, 3, res.Summary.Rude)
}

func TestAnalyzeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := NewEngine(Options{}).Analyze(ctx, Request{
		Old:          docs(classC()),
		New:          docs(classC(decl.Method("F", "void").Body())),
		Capabilities: all,
	})
	assert.Nil(t, res)
	assert.True(t, errors.HasCode(err, errors.Canceled), "got %v", err)
}

func TestAnalyzeInvariantViolation(t *testing.T) {
	dup := docs(classC(decl.Method("F", "void").Body(), decl.Method("F", "void").Body()))
	_, err := NewEngine(Options{}).Analyze(context.Background(), Request{Old: dup, New: dup, Capabilities: all})
	assert.True(t, errors.HasCode(err, errors.InvariantViolation), "got %v", err)
}

func TestAnalyzeWithModel(t *testing.T) {
	model := rude.DefaultModel{Reloadable: map[string]bool{"C": true}}
	res, err := NewEngine(Options{}).Analyze(context.Background(), Request{
		Old:          docs(classC()),
		New:          docs(classC(decl.Method("F", "void").Mods("virtual").Body())),
		Capabilities: all,
		Model:        model,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"replace type C"}, opStrings(res.Operations))
}

func TestAnalyzeBatch(t *testing.T) {
	reqs := []Request{
		{Name: "body", Old: propertyCases[0].old, New: propertyCases[0].new, Capabilities: baseline},
		{Name: "insert", Old: propertyCases[1].old, New: propertyCases[1].new, Capabilities: baseline},
		{Name: "noop", Old: propertyCases[0].old, New: propertyCases[0].old, Capabilities: baseline},
	}
	results, err := NewEngine(Options{Parallelism: 2}).AnalyzeBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "body", results[0].Name)
	assert.False(t, results[0].HasRudeEdits())
	assert.True(t, results[1].HasRudeEdits())
	assert.Empty(t, results[2].Edits)

	seen := map[string]bool{}
	for _, r := range results {
		assert.False(t, seen[r.RunID], "run ids must be unique")
		seen[r.RunID] = true
	}
}

func TestAnalyzeBatchEmpty(t *testing.T) {
	results, err := NewEngine(Options{}).AnalyzeBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
