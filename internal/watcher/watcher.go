// Package watcher provides debounced, recursive file system watching of the
// site source tree so the watch and serve commands can rebuild on change.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/landing/internal/logging"
)

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileFilter reports whether a path should produce change events.
type FileFilter func(path string) bool

// ChangeHandler receives a debounced batch of changes.
type ChangeHandler func(events []ChangeEvent) error

// FileWatcher watches directory trees and delivers debounced batches.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	filters   []FileFilter
	handlers  []ChangeHandler
	logger    logging.Logger
	mutex     sync.RWMutex
	started   bool
	stopOnce  sync.Once
}

// Debouncer coalesces bursts of events into a single batch per path.
type Debouncer struct {
	delay   time.Duration
	events  chan ChangeEvent
	output  chan []ChangeEvent
	timer   *time.Timer
	pending map[string]ChangeEvent
	mutex   sync.Mutex
}

// NewFileWatcher creates a watcher whose batches settle after delay.
func NewFileWatcher(delay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	return &FileWatcher{
		watcher: fsWatcher,
		debouncer: &Debouncer{
			delay:   delay,
			events:  make(chan ChangeEvent, 100),
			output:  make(chan []ChangeEvent, 10),
			pending: make(map[string]ChangeEvent),
		},
		logger: logger.WithComponent("watcher"),
	}, nil
}

// AddFilter adds a filter. A path must pass every filter.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler adds a change handler.
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddPath watches a single directory.
func (fw *FileWatcher) AddPath(path string) error {
	clean := filepath.Clean(path)
	if err := fw.watcher.Add(clean); err != nil {
		return fmt.Errorf("watching %s: %w", clean, err)
	}
	return nil
}

// AddRecursive watches root and every directory below it that passes the
// filters.
func (fw *FileWatcher) AddRecursive(root string) error {
	root = filepath.Clean(root)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && !fw.accepts(path) {
			return filepath.SkipDir
		}
		return fw.AddPath(path)
	})
}

// Start begins watching until ctx is done or Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	fw.mutex.Lock()
	if fw.started {
		fw.mutex.Unlock()
		return fmt.Errorf("watcher already started")
	}
	fw.started = true
	fw.mutex.Unlock()

	go fw.debouncer.start(ctx)
	go fw.processEvents(ctx)
	go fw.watchLoop(ctx)

	return nil
}

// Stop releases the underlying watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		err = fw.watcher.Close()
	})
	return err
}

func (fw *FileWatcher) accepts(path string) bool {
	fw.mutex.RLock()
	defer fw.mutex.RUnlock()
	for _, filter := range fw.filters {
		if !filter(path) {
			return false
		}
	}
	return true
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsEvent(ctx, event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "file watcher error")
		}
	}
}

func (fw *FileWatcher) handleFsEvent(ctx context.Context, event fsnotify.Event) {
	if !fw.accepts(event.Name) {
		return
	}

	changeEvent := ChangeEvent{
		Path: event.Name,
		Type: eventType(event.Op),
	}

	if info, err := os.Stat(event.Name); err == nil {
		changeEvent.ModTime = info.ModTime()
		changeEvent.Size = info.Size()
		// directories created after Start must be watched too
		if info.IsDir() && event.Op.Has(fsnotify.Create) {
			if err := fw.AddRecursive(event.Name); err != nil {
				fw.logger.Warn(ctx, err, "failed to watch new directory", "path", event.Name)
			}
		}
	}

	select {
	case fw.debouncer.events <- changeEvent:
	case <-ctx.Done():
	}
}

func eventType(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventTypeCreated
	case op.Has(fsnotify.Remove):
		return EventTypeDeleted
	case op.Has(fsnotify.Rename):
		return EventTypeRenamed
	default:
		return EventTypeModified
	}
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.debouncer.output:
			fw.mutex.RLock()
			handlers := make([]ChangeHandler, len(fw.handlers))
			copy(handlers, fw.handlers)
			fw.mutex.RUnlock()

			for _, handler := range handlers {
				if err := handler(events); err != nil {
					fw.logger.Error(ctx, err, "change handler failed", "events", len(events))
				}
			}
		}
	}
}

func (d *Debouncer) start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.mutex.Lock()
			if d.timer != nil {
				d.timer.Stop()
			}
			d.mutex.Unlock()
			return
		case event := <-d.events:
			d.mutex.Lock()
			d.pending[event.Path] = event
			if d.timer != nil {
				d.timer.Stop()
			}
			d.timer = time.AfterFunc(d.delay, d.flush)
			d.mutex.Unlock()
		}
	}
}

func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	events := make([]ChangeEvent, 0, len(d.pending))
	for _, event := range d.pending {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	d.pending = make(map[string]ChangeEvent)

	select {
	case d.output <- events:
	default:
		// a full channel already has a batch queued that will trigger a rebuild
	}
}

// Common file filters

// NoJunkFilter drops operating system and editor droppings.
func NoJunkFilter(path string) bool {
	base := filepath.Base(path)
	switch {
	case base == ".DS_Store", base == "Thumbs.db":
		return false
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasPrefix(base, ".#"):
		return false
	}
	return true
}

// NoDependencyFilter drops anything inside node_modules.
func NoDependencyFilter(path string) bool {
	return !hasSegment(path, "node_modules")
}

// NoGitFilter drops anything inside .git.
func NoGitFilter(path string) bool {
	return !hasSegment(path, ".git")
}

// ExcludeDirFilter drops dir and everything below it. The build output
// must be excluded when it lives inside the watched tree.
func ExcludeDirFilter(dir string) FileFilter {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	return func(path string) bool {
		p, err := filepath.Abs(path)
		if err != nil {
			return true
		}
		return p != abs && !strings.HasPrefix(p, abs+string(filepath.Separator))
	}
}

func hasSegment(path, segment string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == segment {
			return true
		}
	}
	return false
}
