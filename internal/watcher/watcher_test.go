package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventRename, "rename"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.eventType.String()
			if got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.DebounceMs != 300 {
		t.Errorf("DebounceMs = %d, want 300", config.DebounceMs)
	}
	for _, expected := range []string{"bin", "obj", ".git", ".hotdelta"} {
		found := false
		for _, pattern := range config.IgnorePatterns {
			if pattern == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("IgnorePatterns should contain %q", expected)
		}
	}
}

func TestWatcherIsIgnored(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "src", "A.cs"), false},
		{filepath.Join(root, "src", "obj", "Debug", "A.cs"), true},
		{filepath.Join(root, ".git", "HEAD"), true},
		{filepath.Join(root, "src", "A.cs.swp"), true},
		{filepath.Join(root, "src", "A.cs~"), true},
		{filepath.Join(root, "objects", "A.cs"), false},
	}
	for _, tt := range tests {
		if got := w.IsIgnored(tt.path); got != tt.want {
			t.Errorf("IsIgnored(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWatcherStats(t *testing.T) {
	w, err := New(t.TempDir(), DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	stats := w.Stats()
	if stats["watching"] != false {
		t.Errorf("watching = %v, want false", stats["watching"])
	}
	if stats["debounceMs"] != 300 {
		t.Errorf("debounceMs = %v, want 300", stats["debounceMs"])
	}
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w, err := New(t.TempDir(), DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Stop()
	w.Stop()
}

func TestWatcherReportsDocumentChanges(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}

	batches := make(chan []Event, 4)
	config := DefaultConfig()
	config.DebounceMs = 50
	w, err := New(root, config, nil, func(_ string, events []Event) {
		batches <- events
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	path := filepath.Join(src, "A.cs")
	if err := os.WriteFile(path, []byte("class A {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("class A { void F() {} }"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case events := <-batches:
		if len(events) != 1 {
			t.Fatalf("expected 1 collapsed event, got %d: %v", len(events), events)
		}
		if events[0].Path != path {
			t.Errorf("Path = %q, want %q", events[0].Path, path)
		}
		if events[0].Type != EventCreate {
			t.Errorf("Type = %v, want create", events[0].Type)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change batch")
	}
}

func TestBatchDebouncerCollapsesPaths(t *testing.T) {
	var mu sync.Mutex
	var emitted [][]Event
	b := NewBatchDebouncer(20*time.Millisecond, func(events []Event) {
		mu.Lock()
		emitted = append(emitted, events)
		mu.Unlock()
	})

	b.Add(Event{Type: EventCreate, Path: "a.cs"})
	b.Add(Event{Type: EventModify, Path: "b.cs"})
	b.Add(Event{Type: EventModify, Path: "a.cs"})
	b.Add(Event{Type: EventDelete, Path: "b.cs"})

	if got := b.EventCount(); got != 2 {
		t.Errorf("EventCount() = %d, want 2", got)
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(emitted) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(emitted))
	}
	batch := emitted[0]
	if batch[0].Path != "a.cs" || batch[0].Type != EventCreate {
		t.Errorf("batch[0] = %+v, want create a.cs", batch[0])
	}
	if batch[1].Path != "b.cs" || batch[1].Type != EventDelete {
		t.Errorf("batch[1] = %+v, want delete b.cs", batch[1])
	}
}

func TestBatchDebouncerCancel(t *testing.T) {
	called := false
	b := NewBatchDebouncer(20*time.Millisecond, func([]Event) { called = true })

	b.Add(Event{Type: EventModify, Path: "a.cs"})
	b.Cancel()
	time.Sleep(60 * time.Millisecond)

	if called {
		t.Error("emit should not be called after Cancel")
	}
	if b.EventCount() != 0 {
		t.Errorf("EventCount() = %d after Cancel, want 0", b.EventCount())
	}
}

func TestBatchDebouncerFlush(t *testing.T) {
	var got []Event
	b := NewBatchDebouncer(time.Hour, func(events []Event) { got = events })

	b.Add(Event{Type: EventModify, Path: "a.cs"})
	b.Flush()

	if len(got) != 1 {
		t.Fatalf("expected flushed batch of 1, got %d", len(got))
	}
}

func TestBatchDebouncerNoEmitWithNoEvents(t *testing.T) {
	called := false
	b := NewBatchDebouncer(time.Millisecond, func([]Event) { called = true })
	b.Flush()
	if called {
		t.Error("emit should not be called with no events")
	}
}
