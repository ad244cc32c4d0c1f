package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hotdelta/internal/capability"
	"hotdelta/internal/decl"
	"hotdelta/internal/errors"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".hotdelta", "sessions.db")
	db, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

func sampleDocs() []*decl.Document {
	return []*decl.Document{
		decl.Doc("a.cs",
			decl.Namespace("N",
				decl.Class("C").Mods("public partial").Attr("Serializable").Members(
					decl.Field("x", "int").Init("1"),
					decl.Method("F", "void").Params(decl.Param("s", "string").Mods("out")).Body("s = null;", "return;"),
					decl.Property("P", "int").Accessors(decl.Get(), decl.Set()),
				),
			),
		),
		decl.Doc("b.cs", decl.Enum("E").Values("A", "B = 2")),
	}
}

func TestDatabaseInitialization(t *testing.T) {
	db := setupTestDB(t)

	if _, err := os.Stat(db.Path()); os.IsNotExist(err) {
		t.Fatalf("Database file was not created at %s", db.Path())
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}
}

func TestReopenRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	db, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = db.Close()

	db, err = Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if v, _ := db.getSchemaVersion(); v != currentSchemaVersion {
		t.Errorf("Expected schema version %d after reopen, got %d", currentSchemaVersion, v)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	docs := sampleDocs()
	blob, err := EncodeSnapshot(docs)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeSnapshot(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	a := decl.NewArena(nil, got...)
	f := a.Find("N.C.F(out string)")
	if len(f) != 1 {
		t.Fatalf("expected N.C.F(out string) after decode, got %d matches", len(f))
	}
	if f[0].Body.Hash() != docs[0].Members[0].Children[0].Children[1].Body.Hash() {
		t.Error("body hash changed across encoding")
	}
	if !a.Find("N.C")[0].Has(decl.ModPublic | decl.ModPartial) {
		t.Error("modifiers lost across encoding")
	}
	if len(a.Find("E")[0].EnumMembers) != 2 {
		t.Error("enum members lost across encoding")
	}
}

func TestDecodeSnapshotRejectsGarbage(t *testing.T) {
	if _, err := DecodeSnapshot([]byte("nope")); err == nil {
		t.Error("expected error for data without magic")
	}
	if _, err := DecodeSnapshot(append([]byte("HDS1"), 1, 2, 3)); err == nil {
		t.Error("expected error for corrupt payload")
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(setupTestDB(t))

	sess := &Session{
		Name:         "app",
		Root:         "/src/app",
		Profile:      "net8",
		Capabilities: capability.Of(capability.Baseline, capability.AddMethodToExistingType),
	}
	if err := store.Create(ctx, sess, sampleDocs()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.ID == "" || sess.Documents != 2 {
		t.Fatalf("unexpected session after create: %+v", sess)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "app" || got.Root != "/src/app" || !got.Capabilities.Has(capability.AddMethodToExistingType) {
		t.Errorf("unexpected session %+v", got)
	}

	byPrefix, err := store.Get(ctx, sess.ID[:8])
	if err != nil || byPrefix.ID != sess.ID {
		t.Errorf("expected prefix lookup to find %s, got %v (%v)", sess.ID, byPrefix, err)
	}

	docs, err := store.Baseline(ctx, sess.ID)
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}
	if len(docs) != 2 || docs[0].Path != "a.cs" {
		t.Errorf("unexpected baseline %v", docs)
	}

	list, err := store.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v (%d sessions)", err, len(list))
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, sess.ID); !errors.HasCode(err, errors.SessionNotFound) {
		t.Errorf("expected SESSION_NOT_FOUND after delete, got %v", err)
	}
}

func TestSessionNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(setupTestDB(t))

	if _, err := store.Get(ctx, "missing"); !errors.HasCode(err, errors.SessionNotFound) {
		t.Errorf("Get: expected SESSION_NOT_FOUND, got %v", err)
	}
	if _, err := store.Baseline(ctx, "missing"); !errors.HasCode(err, errors.SessionNotFound) {
		t.Errorf("Baseline: expected SESSION_NOT_FOUND, got %v", err)
	}
	if err := store.SetBaseline(ctx, "missing", nil); !errors.HasCode(err, errors.SessionNotFound) {
		t.Errorf("SetBaseline: expected SESSION_NOT_FOUND, got %v", err)
	}
	if err := store.RecordRun(ctx, &Run{SessionID: "missing"}, nil); !errors.HasCode(err, errors.SessionNotFound) {
		t.Errorf("RecordRun: expected SESSION_NOT_FOUND, got %v", err)
	}
}

func TestRecordRun(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(setupTestDB(t))

	sess := &Session{Name: "app", Root: "/src/app", Profile: "net8", Capabilities: capability.Of(capability.Baseline)}
	if err := store.Create(ctx, sess, sampleDocs()); err != nil {
		t.Fatalf("create: %v", err)
	}

	base := time.Now().UTC()
	rejected := &Run{SessionID: sess.ID, Edits: 1, Rude: 1, Summary: `{"rude":1}`, CreatedAt: base}
	if err := store.RecordRun(ctx, rejected, nil); err != nil {
		t.Fatalf("record rejected run: %v", err)
	}

	next := sampleDocs()[:1]
	applied := &Run{SessionID: sess.ID, Edits: 2, Operations: 2, Applied: true, Summary: `{}`, CreatedAt: base.Add(time.Second)}
	if err := store.RecordRun(ctx, applied, next); err != nil {
		t.Fatalf("record applied run: %v", err)
	}

	runs, err := store.Runs(ctx, sess.ID, 0)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != applied.ID || !runs[0].Applied || runs[1].Rude != 1 {
		t.Errorf("unexpected run order or content: %+v %+v", runs[0], runs[1])
	}

	latest, err := store.Runs(ctx, sess.ID, 1)
	if err != nil || len(latest) != 1 {
		t.Fatalf("expected 1 limited run, got %d (%v)", len(latest), err)
	}

	docs, err := store.Baseline(ctx, sess.ID)
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("expected applied run to advance the baseline to 1 document, got %d", len(docs))
	}
	got, _ := store.Get(ctx, sess.ID)
	if got.Documents != 1 {
		t.Errorf("expected document count 1, got %d", got.Documents)
	}
}
