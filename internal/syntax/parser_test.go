//go:build cgo

package syntax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotdelta/internal/decl"
	"hotdelta/internal/errors"
)

const source = `
namespace N
{
    public enum E { A, B = 2 }

    public delegate int D(int x);

    public partial class C : Base, IThing
    {
        private int _count = 1;

        public string Name { get; set; }

        public C() : this(0) { }

        public C(int count)
        {
            _count = count;
        }

        public static int Twice(int x)
        {
            var y = x * 2;
            return y;
        }

        public int Count => _count;

        public async System.Threading.Tasks.Task RunAsync()
        {
            await System.Threading.Tasks.Task.Delay(1);
        }
    }
}
`

func parse(t *testing.T, src string) *decl.Arena {
	t.Helper()
	p := NewParser()
	require.NotNil(t, p)
	doc, err := p.Parse(context.Background(), "a.cs", []byte(src))
	require.NoError(t, err)
	return decl.NewArena(nil, doc)
}

func TestParseTypes(t *testing.T) {
	a := parse(t, source)

	c := a.Find("N.C")
	require.Len(t, c, 1)
	assert.Equal(t, decl.TypeClass, c[0].TypeKind)
	assert.True(t, c[0].Has(decl.ModPublic|decl.ModPartial))
	assert.Equal(t, []decl.TypeRef{"Base", "IThing"}, c[0].Bases)

	e := a.Find("N.E")
	require.Len(t, e, 1)
	assert.Equal(t, []decl.EnumMember{{Name: "A"}, {Name: "B", Value: "2"}}, e[0].EnumMembers)

	d := a.Find("N.D")
	require.Len(t, d, 1)
	assert.Equal(t, decl.TypeRef("int"), d[0].Type)
	require.Len(t, d[0].Parameters(), 1)
}

func TestParseMembers(t *testing.T) {
	a := parse(t, source)

	field := a.Find("N.C._count")
	require.Len(t, field, 1)
	require.NotNil(t, field[0].Initializer)
	assert.Equal(t, []string{"1"}, field[0].Initializer.Statements)

	name := a.Find("N.C.Name")
	require.Len(t, name, 1)
	assert.True(t, name[0].IsAutoProperty())

	twice := a.Find("N.C.Twice(int)")
	require.Len(t, twice, 1)
	assert.True(t, twice[0].IsStatic())
	assert.Equal(t, []string{"var y = x * 2;", "return y;"}, twice[0].Body.Statements)

	chained := a.Find("N.C..ctor()")
	require.Len(t, chained, 1)
	assert.True(t, chained[0].ChainsToThis)
	assert.Len(t, a.Find("N.C..ctor(int)"), 1)

	count := a.Find("N.C.Count")
	require.Len(t, count, 1)
	require.NotNil(t, count[0].Accessor(decl.AccessorGet))
	assert.False(t, count[0].IsAutoProperty())

	run := a.Find("N.C.RunAsync()")
	require.Len(t, run, 1)
	assert.True(t, run[0].IsStateMachine())
	assert.True(t, run[0].Body.Has(decl.FeatureAwait))
}

func TestParseWhitespaceInsensitive(t *testing.T) {
	a := parse(t, "class C { void F() { int   x =  1; } }")
	b := parse(t, "class C {\n  void F()\n  {\n    int x = 1;\n  }\n}")

	fa, fb := a.Find("C.F()"), b.Find("C.F()")
	require.Len(t, fa, 1)
	require.Len(t, fb, 1)
	assert.Equal(t, fa[0].Body.Hash(), fb[0].Body.Hash())
}

func TestParseSyntaxError(t *testing.T) {
	_, err := NewParser().Parse(context.Background(), "bad.cs", []byte("class C { void F( }"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ParseFailed))
}
