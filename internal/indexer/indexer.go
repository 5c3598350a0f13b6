// Package indexer implements the orchestrator (§2 item 9): it owns
// configuration, stats, the indexed-path cache, and the lifecycle of the
// Catalog, SearchIndex, Scanner, and SlotPool, wiring the scanned files one
// component emits into the work the next consumes, and handles the
// SIGINT graceful-cancel path (§5 "Cancellation").
package indexer

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/mdbarr/indexer/internal/catalog"
	"github.com/mdbarr/indexer/internal/catalog/sqlite"
	"github.com/mdbarr/indexer/internal/common"
	"github.com/mdbarr/indexer/internal/config"
	"github.com/mdbarr/indexer/internal/display"
	indexererrors "github.com/mdbarr/indexer/internal/errors"
	"github.com/mdbarr/indexer/internal/metrics"
	"github.com/mdbarr/indexer/internal/obslog"
	"github.com/mdbarr/indexer/internal/report"
	"github.com/mdbarr/indexer/internal/scanner"
	"github.com/mdbarr/indexer/internal/searchindex"
	"github.com/mdbarr/indexer/internal/searchindex/elastic"
	"github.com/mdbarr/indexer/internal/searchindex/noop"
	"github.com/mdbarr/indexer/internal/slotpool"
	"github.com/mdbarr/indexer/internal/watch"
)

// Indexer is the top-level orchestrator a CLI or long-running process
// drives via Run.
type Indexer struct {
	Config  *config.Config
	Catalog catalog.Catalog
	Search  searchindex.SearchIndex
	Scanner *scanner.Scanner
	Pool    *slotpool.Pool
	Indexed *common.IndexedSet
	Stats   *common.Stats
	Metrics *metrics.Metrics
	Log     *obslog.Logger
	UI      common.SlotUI

	runID  string
	events common.EventSink
}

// Option customizes a Build call before the slot pool is wired, since the
// pool and pipelines capture the UI by value at construction time.
type Option func(*Indexer)

// WithUI overrides the default no-op SlotUI, e.g. to attach a terminal
// progress renderer.
func WithUI(ui common.SlotUI) Option {
	return func(ix *Indexer) { ix.UI = ui }
}

// Build loads every collaborator from cfg and wires the three pipelines,
// but does not start anything yet. Fatal errors (catalog/search backend
// unreachable) abort here rather than mid-run (§7 "Fatal").
func Build(cfg *config.Config, opts ...Option) (*Indexer, error) {
	indexed, err := common.LoadIndexedSet(cfg.Cache)
	if err != nil {
		return nil, err
	}

	cat, err := openCatalog(cfg.Services.Database)
	if err != nil {
		return nil, err
	}

	search, err := openSearch(cfg.Services.Elastic)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()

	ix := &Indexer{
		Config:  cfg,
		Catalog: cat,
		Search:  search,
		Indexed: indexed,
		Stats:   &common.Stats{},
		Metrics: metrics.New(),
		Log:     obslog.New(os.Stderr, isatty.IsTerminal(os.Stderr.Fd())).WithRun(runID),
		UI:      display.Noop{},
		runID:   runID,
	}
	ix.events = obslog.EventSink{Logger: ix.Log}

	for _, opt := range opts {
		opt(ix)
	}

	scn, err := scanner.New(cfg.Scanner, cfg.Types, ix.events)
	if err != nil {
		return nil, err
	}
	ix.Scanner = scn

	ix.Pool = slotpool.New(cfg.Concurrency, ix.buildPipelines(), ix.UI, ix.Stats)

	return ix, nil
}

func openCatalog(db config.DatabaseConfig) (catalog.Catalog, error) {
	cat, err := sqlite.Open(db.URL)
	if err != nil {
		return nil, indexererrors.NewFatalError("catalog.open", err)
	}
	return cat, nil
}

func openSearch(cfg config.ElasticConfig) (searchindex.SearchIndex, error) {
	if !cfg.Enabled {
		return noop.New(), nil
	}
	return elastic.New(cfg.Node)
}

// Run executes the full lifecycle: start the scanner and slot pool, seed
// the scan roots, wait for completion (or, in persistent mode, for a
// cancellation signal), then drain and flush the indexed-path cache. A
// SIGINT triggers the graceful-cancel path described in §5.
func (ix *Indexer) Run(ctx context.Context, roots []string) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() { done <- ix.run(runCtx, roots) }()

	select {
	case err := <-done:
		return err
	case sig := <-sigCh:
		ix.Log.Shutdown(sig.String())
		cancel()
		<-done
		return ix.FlushCache()
	}
}

func (ix *Indexer) run(ctx context.Context, roots []string) error {
	if len(roots) == 0 {
		roots = ix.Config.Scan
	}

	ix.Scanner.Start(ctx)
	ix.Pool.Start(ctx)

	// dispatch and, in watch mode, watchLoop run as a group so Scanner.Close
	// has a single join point to wait on regardless of which modes are active.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ix.dispatch(gctx)
		return nil
	})
	if ix.Config.Scanner.Watch {
		g.Go(func() error {
			ix.watchLoop(gctx, roots)
			return nil
		})
	}

	ix.Scanner.Add(ctx, roots, 0)

	switch {
	case ix.Config.Scanner.Persistent && ix.Config.Scanner.RescanMs > 0:
		ix.persist(ctx, roots)
	case ix.Config.Scanner.Persistent || ix.Config.Scanner.Watch:
		<-ctx.Done()
	default:
		// One-shot scan: wait for the walk to logically complete (queue
		// empty, every worker idle) before closing the queue, otherwise a
		// worker still re-enqueuing a discovered subdirectory would send on
		// a channel Close just closed.
		ix.Scanner.Wait(ctx)
	}

	ix.Scanner.Close()
	_ = g.Wait()
	ix.Pool.Close()

	return ix.FlushCache()
}

// dispatch forwards every classified file the scanner emits to the slot
// pool, recording each successfully processed source as indexed and
// syncing the metrics gauges as it goes.
func (ix *Indexer) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case found, ok := <-ix.Scanner.Files:
			if !ok {
				return
			}
			if !ix.Pool.Enqueue(ctx, slotpool.Item{Kind: found.Kind, File: found.Path}) {
				return
			}
			ix.Indexed.Add(found.Path)
			ix.syncMetrics()
		}
	}
}

// watchLoop runs the supplemental fsnotify low-latency mode
// (scanner.watch): any create/write/remove under roots triggers an
// immediate rescan instead of waiting for the next scanner.rescan tick.
func (ix *Indexer) watchLoop(ctx context.Context, roots []string) {
	w, err := watch.New(500 * time.Millisecond)
	if err != nil {
		return
	}
	defer w.Close()

	for _, root := range roots {
		_ = w.Add(root)
	}
	w.Start(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-w.Events:
			if !ok {
				return
			}
			ix.Scanner.Clear()
			ix.Scanner.Add(ctx, roots, 0)
		}
	}
}

func (ix *Indexer) syncMetrics() {
	ix.Metrics.Sync(ix.Stats.Snapshot())
	ix.Metrics.SetQueueDepth(ix.Pool.QueueLen())
	ix.Metrics.SetActiveSlots(ix.Pool.ActiveCount())
}

// persist re-adds the scan roots on every scanner.rescan tick until ctx is
// cancelled (§6's `scanner.persistent`/`scanner.rescan`).
func (ix *Indexer) persist(ctx context.Context, roots []string) {
	ticker := time.NewTicker(time.Duration(ix.Config.Scanner.RescanMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ix.Scanner.Clear()
			ix.Scanner.Add(ctx, roots, 0)
		}
	}
}

// FlushCache persists the indexed-path cache to disk — exposed per §9's
// "expose flushIndexCache() so a signal handler can call it".
func (ix *Indexer) FlushCache() error {
	return ix.Indexed.Save(ix.Config.Cache)
}

// Snapshot returns the current run-wide counters.
func (ix *Indexer) Snapshot() common.Snapshot {
	return ix.Stats.Snapshot()
}

// Tally builds the final report for the elapsed run.
func (ix *Indexer) Tally(elapsed time.Duration) report.Tally {
	snap := ix.Snapshot()
	ix.Log.Tally(snap.Converted, snap.Duplicates, snap.Skipped, snap.Failed)
	return report.Tally{Snapshot: snap, Elapsed: elapsed}
}

// Close releases the catalog and search backends. Call after Run returns.
func (ix *Indexer) Close() error {
	var errs []error
	if err := ix.Catalog.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := ix.Search.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return indexererrors.NewMultiError(errs)
}
