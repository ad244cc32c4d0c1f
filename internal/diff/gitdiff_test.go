package diff

import (
	"testing"

	"hotdelta/internal/errors"
)

const baseline = `class C
{
    void F()
    {
        return;
    }
}
`

const bodyPatch = `diff --git a/src/C.cs b/src/C.cs
index 1234567..abcdefg 100644
--- a/src/C.cs
+++ b/src/C.cs
@@ -3,4 +3,5 @@
     void F()
     {
+        Log();
         return;
     }
`

func TestParseGitDiff_Empty(t *testing.T) {
	result, err := ParseGitDiff("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Files) != 0 {
		t.Errorf("expected 0 files, got %d", len(result.Files))
	}
}

func TestParseGitDiff_SingleFile(t *testing.T) {
	result, err := ParseGitDiff(bodyPatch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(result.Files))
	}

	file := result.Files[0]
	if file.OldPath != "src/C.cs" || file.NewPath != "src/C.cs" {
		t.Errorf("unexpected paths %q -> %q", file.OldPath, file.NewPath)
	}
	if file.IsNew || file.Deleted || file.Renamed {
		t.Errorf("unexpected status %+v", file)
	}
	if len(file.Hunks) != 1 {
		t.Fatalf("expected 1 hunk, got %d", len(file.Hunks))
	}
	hunk := file.Hunks[0]
	if hunk.OldStart != 3 || hunk.OldLines != 4 || hunk.NewLines != 5 {
		t.Errorf("unexpected hunk header %+v", hunk)
	}
	if got := hunk.Lines[2].String(); got != "+        Log();" {
		t.Errorf("expected added line, got %q", got)
	}
}

func TestApply_Body(t *testing.T) {
	patch, err := ParseGitDiff(bodyPatch)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	base := map[string]string{"src/C.cs": baseline}
	out, touched, err := Apply(base, patch)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	want := `class C
{
    void F()
    {
        Log();
        return;
    }
}
`
	if out["src/C.cs"] != want {
		t.Errorf("unexpected result:\n%s", out["src/C.cs"])
	}
	if len(touched) != 1 || touched[0] != "src/C.cs" {
		t.Errorf("unexpected touched paths %v", touched)
	}
	if base["src/C.cs"] != baseline {
		t.Error("baseline was modified")
	}
}

func TestApply_Offset(t *testing.T) {
	patch, err := ParseGitDiff(bodyPatch)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	shifted := "// header\n// header\n" + baseline
	out, _, err := Apply(map[string]string{"src/C.cs": shifted}, patch)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out["src/C.cs"][:20] != "// header\n// header\n" {
		t.Errorf("header lost: %q", out["src/C.cs"])
	}
}

func TestApply_Rejected(t *testing.T) {
	patch, err := ParseGitDiff(bodyPatch)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	_, _, err = Apply(map[string]string{"src/C.cs": "class D {}\n"}, patch)
	if !errors.HasCode(err, errors.PatchRejected) {
		t.Errorf("expected PATCH_REJECTED, got %v", err)
	}

	_, _, err = Apply(map[string]string{}, patch)
	if !errors.HasCode(err, errors.PatchRejected) {
		t.Errorf("expected PATCH_REJECTED for missing file, got %v", err)
	}
}

func TestApply_NewAndDeleted(t *testing.T) {
	content := `diff --git a/src/D.cs b/src/D.cs
new file mode 100644
index 0000000..1111111
--- /dev/null
+++ b/src/D.cs
@@ -0,0 +1,2 @@
+class D
+{ }
diff --git a/src/C.cs b/src/C.cs
deleted file mode 100644
index 1234567..0000000
--- a/src/C.cs
+++ /dev/null
@@ -1,7 +0,0 @@
-class C
-{
-    void F()
-    {
-        return;
-    }
-}
`
	patch, err := ParseGitDiff(content)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, touched, err := Apply(map[string]string{"src/C.cs": baseline}, patch)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, ok := out["src/C.cs"]; ok {
		t.Error("expected src/C.cs to be deleted")
	}
	if out["src/D.cs"] != "class D\n{ }\n" {
		t.Errorf("unexpected new file %q", out["src/D.cs"])
	}
	if len(touched) != 2 {
		t.Errorf("expected 2 touched paths, got %v", touched)
	}
}

func TestApplyFile_NoNewline(t *testing.T) {
	fp := &FilePatch{
		NewPath: "a.cs",
		Hunks: []Hunk{{
			OldStart: 1, OldLines: 1, NewStart: 1, NewLines: 1,
			Lines:     []Line{{Op: '-', Text: "a"}, {Op: '+', Text: "b"}},
			NoNewline: true,
		}},
	}
	got, err := ApplyFile("a\n", fp)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got != "b" {
		t.Errorf("expected %q, got %q", "b", got)
	}
}

func TestCleanPath(t *testing.T) {
	tests := map[string]string{
		"a/src/C.cs": "src/C.cs",
		"b/src/C.cs": "src/C.cs",
		"src/C.cs":   "src/C.cs",
		"/dev/null":  "/dev/null",
	}
	for in, want := range tests {
		if got := cleanPath(in); got != want {
			t.Errorf("cleanPath(%q) = %q, want %q", in, got, want)
		}
	}
}
