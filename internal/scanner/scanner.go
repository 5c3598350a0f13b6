// Package scanner implements the bounded concurrent directory walker
// (§4.5): a {directory, depth} work queue drained by a fixed pool of
// worker goroutines, classifying each file against the configured
// per-type patterns and emitting scanned:<kind> events.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mdbarr/indexer/internal/common"
	"github.com/mdbarr/indexer/internal/config"
	"github.com/mdbarr/indexer/internal/debug"
)

// Found is one classified file handed to the caller via the Files channel.
type Found struct {
	Kind string
	Path string
}

// item is one {directory, depth} queue entry (§4.5).
type item struct {
	directory string
	depth     int
}

// typeMatcher pairs a compiled inclusion pattern with its per-type
// exclusion globs, resolved once at construction.
type typeMatcher struct {
	kind    string
	pattern *regexp.Regexp
	exclude []string
}

// Scanner is the bounded concurrent walker described in §4.5.
type Scanner struct {
	cfg     config.ScannerConfig
	types   []typeMatcher
	exclude []string

	queue chan item
	wg    sync.WaitGroup

	mu   sync.Mutex
	seen map[string]struct{}

	directories int64
	files       int64

	// pending counts directories enqueued but not yet fully visited
	// (including their own not-yet-enqueued children); it reaches zero
	// exactly when the walk is logically complete, since every enqueue
	// happens-before the Done of the item that caused it. drained is
	// signalled the moment pending hits zero, so Wait can select against
	// ctx cancellation instead of blocking unconditionally.
	pending int64
	drained chan struct{}

	Files  chan Found
	Events common.EventSink
}

// New builds a Scanner from the resolved scanner and per-type config
// blocks. Files is unbuffered-safe: callers should consume it concurrently
// with calls to Add, or buffer it themselves via a larger channel.
func New(cfg config.ScannerConfig, types config.TypesConfig, events common.EventSink) (*Scanner, error) {
	matchers, err := buildMatchers(types)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	if events == nil {
		events = common.NoopEvents{}
	}

	s := &Scanner{
		cfg:     cfg,
		types:   matchers,
		exclude: cfg.Exclude,
		queue:   make(chan item, concurrency*8),
		seen:    make(map[string]struct{}),
		drained: make(chan struct{}, 1),
		Files:   make(chan Found, concurrency*8),
		Events:  events,
	}
	return s, nil
}

func buildMatchers(types config.TypesConfig) ([]typeMatcher, error) {
	specs := []struct {
		kind string
		tc   config.TypeCommon
	}{
		{"image", types.Image.TypeCommon},
		{"text", types.Text.TypeCommon},
		{"video", types.Video.TypeCommon},
	}

	var matchers []typeMatcher
	for _, spec := range specs {
		if !spec.tc.Enabled {
			continue
		}
		re, err := regexp.Compile(spec.tc.Pattern)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, typeMatcher{
			kind:    spec.kind,
			pattern: re,
			exclude: spec.tc.Exclude,
		})
	}
	return matchers, nil
}

// Start launches the worker pool draining the directory queue.
func (s *Scanner) Start(ctx context.Context) {
	workers := s.cfg.Concurrency
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
}

// Add enqueues roots at depth 0, resolving each root's real path first
// (§4.5 "Adding a root resolves its real path first").
func (s *Scanner) Add(ctx context.Context, paths []string, depth int) {
	for _, p := range paths {
		real := p
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			real = resolved
		}
		s.enqueue(ctx, item{directory: real, depth: depth})
	}
}

// enqueue sends it on the work queue, first recording it as pending work;
// if ctx is cancelled before the send happens the item was never actually
// queued, so the pending count is backed out again.
func (s *Scanner) enqueue(ctx context.Context, it item) {
	atomic.AddInt64(&s.pending, 1)
	select {
	case s.queue <- it:
	case <-ctx.Done():
		s.done()
	}
}

// done decrements pending by one, signalling drained (non-blocking, so a
// Wait call that isn't listening yet never holds this up) the instant the
// count reaches zero.
func (s *Scanner) done() {
	if atomic.AddInt64(&s.pending, -1) == 0 {
		select {
		case s.drained <- struct{}{}:
		default:
		}
	}
}

// Wait blocks until the queue is logically drained — every enqueued
// directory, and every directory discovered while visiting it, has been
// fully visited (§4.5's "queue.drain signals logical completion") — or
// until ctx is cancelled, whichever comes first. Call before Close in the
// one-shot (non-persistent, non-watch) path: Close itself only stops the
// workers, it does not wait for the walk to finish, and closing the queue
// out from under a worker still trying to re-enqueue a subdirectory would
// panic.
func (s *Scanner) Wait(ctx context.Context) {
	if atomic.LoadInt64(&s.pending) == 0 {
		return
	}
	select {
	case <-s.drained:
	case <-ctx.Done():
	}
}

// Close signals no further roots will be added, waits for workers to
// drain, and closes Files. Callers on the one-shot path should call Wait
// first so no worker is still trying to send into the queue being closed.
func (s *Scanner) Close() {
	close(s.queue)
	s.wg.Wait()
	close(s.Files)
}

// Clear resets the seen set, counters, and pending/drained state — used
// between persistent scan cycles (scanner.persistent).
func (s *Scanner) Clear() {
	s.mu.Lock()
	s.seen = make(map[string]struct{})
	s.mu.Unlock()
	atomic.StoreInt64(&s.directories, 0)
	atomic.StoreInt64(&s.files, 0)
	atomic.StoreInt64(&s.pending, 0)
	select {
	case <-s.drained:
	default:
	}
}

// Idle reports whether the queue currently holds no pending directories.
func (s *Scanner) Idle() bool {
	return len(s.queue) == 0
}

// Stats returns the directories/files counters observed so far.
func (s *Scanner) Stats() (directories, files int64) {
	return atomic.LoadInt64(&s.directories), atomic.LoadInt64(&s.files)
}

func (s *Scanner) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case it, ok := <-s.queue:
			if !ok {
				return
			}
			s.visit(ctx, it)
			s.done()
		}
	}
}

func (s *Scanner) markSeen(real string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[real]; ok {
		return false
	}
	s.seen[real] = struct{}{}
	return true
}

func (s *Scanner) hasSeen(real string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[real]
	return ok
}

func (s *Scanner) visit(ctx context.Context, it item) {
	if it.depth > s.cfg.MaxDepth {
		debug.LogScan("scanner: max depth %d exceeded at %s, not descending further", s.cfg.MaxDepth, it.directory)
		return
	}

	if !s.markSeen(it.directory) {
		return
	}
	atomic.AddInt64(&s.directories, 1)

	entries, err := os.ReadDir(it.directory)
	if err != nil {
		debug.LogScan("scanner: read %s failed: %v", it.directory, err)
		return
	}

	if s.cfg.Sort {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.visitEntry(ctx, it, entry)
	}
}

func (s *Scanner) visitEntry(ctx context.Context, parent item, entry os.DirEntry) {
	name := entry.Name()
	if !s.cfg.Dotfiles && strings.HasPrefix(name, ".") {
		return
	}

	path := filepath.Join(parent.directory, name)
	isDir := entry.IsDir()
	isSymlink := entry.Type()&os.ModeSymlink != 0

	if isDir && !s.cfg.Recursive {
		return
	}
	if isSymlink && isDir && !s.cfg.FollowSymlinks {
		return
	}

	real := path
	if isSymlink {
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return
		}
		real = resolved
		if info, err := os.Stat(real); err == nil {
			isDir = info.IsDir()
		}
	}

	if s.hasSeen(real) {
		return
	}

	if isDir {
		if matchGlobs(s.exclude, real) {
			return
		}
		s.enqueue(ctx, item{directory: real, depth: parent.depth + 1})
		return
	}

	s.classifyFile(real)
}

func (s *Scanner) classifyFile(path string) {
	for i, m := range s.types {
		if !m.pattern.MatchString(path) {
			continue
		}
		if matchGlobs(m.exclude, path) {
			continue
		}

		s.markSeen(path)
		atomic.AddInt64(&s.files, 1)

		s.Events.Emit("scanned:"+m.kind, map[string]any{
			"index": i,
			"type":  m.kind,
			"path":  path,
		})
		s.Files <- Found{Kind: m.kind, Path: path}
		return
	}
}

func matchGlobs(patterns []string, path string) bool {
	slashPath := filepath.ToSlash(path)
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, slashPath); err == nil && matched {
			return true
		}
	}
	return false
}
