// Package watch implements the supplemental fsnotify-based low-latency
// mode (scanner.watch): instead of waiting for the next rescan, debounced
// create/write/remove events are delivered on Watcher.Events (the indexer
// answers each with an immediate rescan of its roots), and new
// subdirectories get their own watch.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mdbarr/indexer/internal/debug"
)

// EventKind distinguishes the three change kinds a Watcher dispatches.
type EventKind int

const (
	EventCreate EventKind = iota
	EventWrite
	EventRemove
)

// Event is one debounced filesystem change delivered to the caller.
type Event struct {
	Path string
	Kind EventKind
}

// Watcher wraps an fsnotify.Watcher with recursive directory registration
// and batch debouncing, so a burst of writes to the same path collapses
// into a single dispatched event.
type Watcher struct {
	fsw *fsnotify.Watcher

	debounce time.Duration

	mu     sync.Mutex
	queued map[string]EventKind
	timer  *time.Timer

	Events chan Event
}

// New creates a Watcher with the given debounce window. Call Add to
// register root directories, then Start to begin dispatching.
func New(debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		queued:   make(map[string]EventKind),
		Events:   make(chan Event, 64),
	}, nil
}

// Add recursively registers watches for root and every subdirectory
// beneath it, following the teacher's visited-directory cycle guard.
func (w *Watcher) Add(root string) error {
	visited := make(map[string]bool)

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if err := w.fsw.Add(path); err != nil {
			debug.LogScan("watch: failed to add watch for %s: %v", path, err)
		}
		return nil
	})
}

// Start launches the event-processing and debounce-flush goroutines.
// Cancel ctx to stop both.
func (w *Watcher) Start(ctx context.Context) {
	go w.processEvents(ctx)
	go func() {
		<-ctx.Done()
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		close(w.Events)
	}()
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			debug.LogScan("watch: fsnotify error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	info, statErr := os.Stat(event.Name)

	if statErr != nil {
		if event.Op&fsnotify.Remove != 0 {
			w.queue(event.Name, EventRemove)
		}
		return
	}

	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			if err := w.fsw.Add(event.Name); err != nil {
				debug.LogScan("watch: failed to add watch for new directory %s: %v", event.Name, err)
			}
		}
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		w.queue(event.Name, EventCreate)
	case event.Op&fsnotify.Write != 0:
		w.queue(event.Name, EventWrite)
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		w.queue(event.Name, EventRemove)
	}
}

func (w *Watcher) queue(path string, kind EventKind) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.queued[path] = kind
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	batch := w.queued
	w.queued = make(map[string]EventKind)
	w.mu.Unlock()

	for path, kind := range batch {
		select {
		case w.Events <- Event{Path: path, Kind: kind}:
		default:
			debug.LogScan("watch: events channel full, dropping event for %s", path)
		}
	}
}
