// Package watcher watches a source tree and reports batches of document
// changes once edits settle.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"hotdelta/internal/logging"
	"hotdelta/internal/syntax"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ChangeHandler is called with each settled batch of changes
type ChangeHandler func(root string, events []Event)

// Config contains watcher configuration
type Config struct {
	DebounceMs     int      `json:"debounceMs" mapstructure:"debounceMs"`
	IgnorePatterns []string `json:"ignorePatterns" mapstructure:"ignorePatterns"`
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		DebounceMs: 300,
		IgnorePatterns: []string{
			"*.tmp",
			"*.swp",
			"*~",
			".git",
			".vs",
			".hotdelta",
			"bin",
			"obj",
			"node_modules",
		},
	}
}

// Watcher watches one source tree
type Watcher struct {
	config  Config
	logger  *slog.Logger
	handler ChangeHandler
	root    string

	fs       *fsnotify.Watcher
	batch    *BatchDebouncer
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu       sync.RWMutex
	watching bool
	dirs     int
	events   int
	batches  int
}

// New creates a watcher for root. Nothing is watched until Start.
func New(root string, config Config, logger *slog.Logger, handler ChangeHandler) (*Watcher, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		config:  config,
		logger:  logger,
		handler: handler,
		root:    root,
		fs:      fsw,
		done:    make(chan struct{}),
	}
	w.batch = NewBatchDebouncer(time.Duration(config.DebounceMs)*time.Millisecond, w.emit)
	return w, nil
}

// Start watches every directory under root and processes events until ctx
// is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	w.logger.Info("Watching source tree",
		"root", w.root,
		"directories", w.dirCount(),
		"debounceMs", w.config.DebounceMs,
	)

	w.wg.Add(1)
	go w.processEvents(ctx)
	return nil
}

// Stop stops watching and drops pending events
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fs.Close()
		w.wg.Wait()
		w.batch.Cancel()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
		w.logger.Info("File watcher stopped", "root", w.root)
	})
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Ignore errors, continue walking
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.IsIgnored(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return err
		}
		w.mu.Lock()
		w.dirs++
		w.mu.Unlock()
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			w.batch.Flush()
			return
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", "error", err.Error())
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if w.IsIgnored(event.Name) {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err.Error())
			}
			return
		}
	}
	if !syntax.Supported(event.Name) {
		return
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}

	w.mu.Lock()
	w.events++
	w.mu.Unlock()
	w.batch.Add(Event{Type: convertOp(event.Op), Path: event.Name, Timestamp: time.Now()})
}

func (w *Watcher) emit(events []Event) {
	w.mu.Lock()
	w.batches++
	w.mu.Unlock()

	w.logger.Debug("Source changes settled", "root", w.root, "eventCount", len(events))
	if w.handler != nil {
		w.handler(w.root, events)
	}
}

func convertOp(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate
	case op.Has(fsnotify.Remove):
		return EventDelete
	case op.Has(fsnotify.Rename):
		return EventRename
	default:
		return EventModify
	}
}

// IsIgnored checks if a path matches ignore patterns. Patterns match any
// path element by name or glob.
func (w *Watcher) IsIgnored(path string) bool {
	rel := path
	if r, err := filepath.Rel(w.root, path); err == nil && !strings.HasPrefix(r, "..") {
		rel = r
	}
	for _, elem := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, pattern := range w.config.IgnorePatterns {
			if elem == pattern {
				return true
			}
			if matched, _ := filepath.Match(pattern, elem); matched {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) dirCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.dirs
}

// Stats returns watcher statistics
func (w *Watcher) Stats() map[string]interface{} {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return map[string]interface{}{
		"root":           w.root,
		"watching":       w.watching,
		"directories":    w.dirs,
		"events":         w.events,
		"batches":        w.batches,
		"pending":        w.batch.EventCount(),
		"debounceMs":     w.config.DebounceMs,
		"ignorePatterns": len(w.config.IgnorePatterns),
	}
}
