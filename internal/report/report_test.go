package report

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotdelta/internal/analysis"
	"hotdelta/internal/capability"
	"hotdelta/internal/decl"
	"hotdelta/internal/errors"
	"hotdelta/internal/storage"
	"hotdelta/internal/testutil"
)

func init() {
	color.NoColor = true
}

func classC(members ...*decl.Builder) []*decl.Document {
	return []*decl.Document{decl.Doc("a.cs", decl.Class("C").Members(members...))}
}

func run(t *testing.T, old, new []*decl.Document) *analysis.Result {
	t.Helper()
	res, err := analysis.NewEngine(analysis.Options{}).Analyze(context.Background(), analysis.Request{
		Name:         "app",
		Old:          old,
		New:          new,
		Capabilities: capability.Of(capability.Baseline),
	})
	require.NoError(t, err)
	return res
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatHuman, f)

	f, err = ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.True(t, errors.HasCode(err, errors.InvalidInput))
}

func TestWriteHumanUpdate(t *testing.T) {
	res := run(t,
		classC(decl.Method("F", "void").Body()),
		classC(decl.Method("F", "void").Body("return;")))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res, FormatHuman))
	out := buf.String()
	assert.Contains(t, out, "app")
	assert.Contains(t, out, "capabilities: Baseline")
	assert.Contains(t, out, "operations (1):")
	assert.Contains(t, out, "update method C.F()")
	assert.Contains(t, out, "ok: 1 edit(s), 1 operation(s)")
	assert.NotContains(t, out, "rude edits")
}

func TestWriteHumanRude(t *testing.T) {
	res := run(t, classC(), classC(decl.Method("F", "void").Body()))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res, FormatHuman))
	out := buf.String()
	assert.Contains(t, out, "rude edits (1):")
	assert.Contains(t, out, string(res.Diagnostics[0].Kind))
	assert.Contains(t, out, res.Diagnostics[0].Message())
	assert.Contains(t, out, "1 rude edit(s)")
	assert.NotContains(t, out, "operations (")
}

func TestWriteHumanNoChanges(t *testing.T) {
	docs := classC(decl.Method("F", "void").Body())
	res := run(t, docs, docs)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res, FormatHuman))
	assert.Contains(t, buf.String(), "no changes")
}

func TestWriteJSONDeterministic(t *testing.T) {
	old := classC(decl.Method("F", "void").Body())
	new := classC(decl.Method("F", "void").Body("return;"), decl.Method("G", "void").Body())

	var a, b bytes.Buffer
	require.NoError(t, Write(&a, run(t, old, new), FormatJSON))
	require.NoError(t, Write(&b, run(t, old, new), FormatJSON))
	assert.Equal(t, testutil.NormalizeJSON(t, a.Bytes()), testutil.NormalizeJSON(t, b.Bytes()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(a.Bytes(), &decoded))
	assert.Equal(t, "app", decoded["name"])
	assert.Contains(t, decoded, "runId")
	assert.Contains(t, decoded, "summary")
	assert.NotContains(t, decoded, "Script")
}

func TestWriteBatch(t *testing.T) {
	r1 := run(t, classC(), classC())
	r2 := run(t, classC(), classC(decl.Method("F", "void").Body()))

	var buf bytes.Buffer
	require.NoError(t, WriteBatch(&buf, []*analysis.Result{r1, r2}, FormatJSON))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded, 2)

	buf.Reset()
	require.NoError(t, WriteBatch(&buf, []*analysis.Result{r1, r2}, FormatHuman))
	assert.Contains(t, buf.String(), "no changes")
	assert.Contains(t, buf.String(), "rude edits (1):")
}

func TestDeterministicEncode(t *testing.T) {
	type inner struct {
		Score float64 `json:"score"`
		Note  string  `json:"note,omitempty"`
	}
	v := struct {
		B     map[string]int `json:"b"`
		A     []inner        `json:"a"`
		Empty []string       `json:"empty"`
		When  time.Time      `json:"when"`
		Skip  string         `json:"-"`
	}{
		B:    map[string]int{"z": 1, "y": 2},
		A:    []inner{{Score: 0.12345678}},
		When: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Skip: "x",
	}
	data, err := DeterministicEncode(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[{"score":0.123457}],"b":{"y":2,"z":1},"when":"2024-01-02T03:04:05Z"}`, string(data))
}

func TestWriteSessions(t *testing.T) {
	now := time.Now()
	sessions := []*storage.Session{{
		ID: "0123456789abcdef", Name: "app", Root: "/src/app", Profile: "net8",
		Documents: 3, CreatedAt: now, UpdatedAt: now,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteSessions(&buf, sessions, FormatHuman))
	assert.Contains(t, buf.String(), "01234567")
	assert.Contains(t, buf.String(), "documents=3")

	buf.Reset()
	require.NoError(t, WriteSessions(&buf, nil, FormatHuman))
	assert.Contains(t, buf.String(), "no sessions")

	buf.Reset()
	runs := []*storage.Run{
		{ID: "run-1", Edits: 2, Rude: 1, CreatedAt: now},
		{ID: "run-2", Edits: 1, Operations: 1, Applied: true, CreatedAt: now},
	}
	require.NoError(t, WriteSession(&buf, sessions[0], runs, FormatHuman))
	out := buf.String()
	assert.Contains(t, out, "session 0123456789abcdef")
	assert.Contains(t, out, "rude")
	assert.Contains(t, out, "applied")
}

func TestWriteProfiles(t *testing.T) {
	profiles := capability.DefaultProfiles()

	var buf bytes.Buffer
	require.NoError(t, WriteProfiles(&buf, profiles, []string{"baseline"}, FormatHuman))
	assert.Contains(t, buf.String(), "baseline (1)")
	assert.Contains(t, buf.String(), "Baseline")

	buf.Reset()
	require.NoError(t, WriteProfiles(&buf, profiles, []string{"baseline"}, FormatJSON))
	assert.JSONEq(t, `{"baseline":["Baseline"]}`, buf.String())
}
