// Package slotpool implements the fixed-size conversion worker pool (§4.6,
// §5). It owns a bounded set of slot descriptors; a worker goroutine per
// slot dequeues {type, file} work items and dispatches them to the
// matching pipeline, guaranteeing at most one conversion per slot at a
// time and exposing in-flight dedup across sibling slots.
package slotpool

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mdbarr/indexer/internal/common"
)

// Item is a unit of work dequeued from the scanner: one file of one kind.
type Item struct {
	Kind string
	File string
}

// Pipeline converts one item while occupying slot. Implementations live
// under internal/pipeline/{image,text,video}; they call back into Pool via
// FindOrClaim/Occurrences to implement in-flight dedup (§5.1).
type Pipeline func(ctx context.Context, pool *Pool, slot *Slot, item Item)

// Slot is one fixed lane of the pool. Row is a caller-assigned vertical
// screen position used only by the UI layer; index is the slot's identity
// within the pool's Slots array.
type Slot struct {
	Index int
	Row   int

	mu          sync.Mutex
	active      bool
	id          string
	occurrences []common.Occurrence
}

// Active reports whether the slot currently holds in-flight work.
func (s *Slot) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// ID returns the fingerprint the slot is currently working, if any.
func (s *Slot) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// start marks the slot occupied by fingerprint id with its first occurrence.
func (s *Slot) start(id string, occurrence common.Occurrence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	s.id = id
	s.occurrences = []common.Occurrence{occurrence}
}

// AddOccurrence appends occurrence to the slot's in-flight accumulation;
// used by a sibling slot that found a matching fingerprint (§5.1).
func (s *Slot) AddOccurrence(occurrence common.Occurrence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.occurrences = append(s.occurrences, occurrence)
}

// Occurrences returns a copy of the slot's accumulated occurrences, used
// by the owning worker at record-construction time.
func (s *Slot) Occurrences() []common.Occurrence {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]common.Occurrence, len(s.occurrences))
	copy(out, s.occurrences)
	return out
}

// release clears the slot so it can be reassigned.
func (s *Slot) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.id = ""
	s.occurrences = nil
}

// Pool is the fixed-size vector of slot descriptors plus its dispatch
// queue. Slot allocation uses linear first-fit under pool.mu (§5 "Slots
// array: guarded; slot allocation uses linear first-fit under the lock").
type Pool struct {
	slots []*Slot
	mu    sync.Mutex

	queue chan Item

	pipelines map[string]Pipeline
	ui        common.SlotUI
	stats     *common.Stats

	wg sync.WaitGroup
}

// New builds a pool of size concurrency, dispatching items of each kind to
// the matching pipeline. ui may be a no-op implementation.
func New(concurrency int, pipelines map[string]Pipeline, ui common.SlotUI, stats *common.Stats) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	slots := make([]*Slot, concurrency)
	for i := range slots {
		slots[i] = &Slot{Index: i, Row: i}
	}
	return &Pool{
		slots:     slots,
		queue:     make(chan Item, concurrency*4),
		pipelines: pipelines,
		ui:        ui,
		stats:     stats,
	}
}

// Size returns the number of slots in the pool.
func (p *Pool) Size() int { return len(p.slots) }

// QueueLen reports how many items are currently buffered waiting for a
// free slot — used only for the optional metrics gauge, never for a
// decision the core makes.
func (p *Pool) QueueLen() int { return len(p.queue) }

// ActiveCount reports how many slots currently hold in-flight work.
func (p *Pool) ActiveCount() int {
	n := 0
	for _, s := range p.slots {
		if s.Active() {
			n++
		}
	}
	return n
}

// Start launches one worker goroutine per slot; each worker dequeues items
// from the shared queue until ctx is cancelled or Close is called.
func (p *Pool) Start(ctx context.Context) {
	for _, slot := range p.slots {
		p.wg.Add(1)
		go p.worker(ctx, slot)
	}
}

// Enqueue submits an item for conversion, blocking only if the queue is
// full. Returns false if ctx was cancelled first.
func (p *Pool) Enqueue(ctx context.Context, item Item) bool {
	select {
	case p.queue <- item:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close signals no further items will be enqueued and waits for in-flight
// workers to observe queue closure and drain. In-flight conversions are
// not cancelled by Close — callers cancel via the Start context for that.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, slot *Slot) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-p.queue:
			if !ok {
				return
			}
			p.run(ctx, slot, item)
		}
	}
}

func (p *Pool) run(ctx context.Context, slot *Slot, item Item) {
	pipeline, ok := p.pipelines[item.Kind]
	if !ok {
		return
	}

	defer func() {
		slot.release()
		if p.ui != nil {
			p.ui.Stop(slot.Index)
		}
	}()

	pipeline(ctx, p, slot, item)
}

// FindOrClaim scans sibling slots under the pool lock for one already
// holding fingerprint id, excluding self. If found, it appends occurrence to
// that slot's accumulation and returns false — the caller's task is then
// done: exactly one (the owning) slot persists the work (§5 "At-most-one
// work per fingerprint"). Otherwise it claims self for id, with occurrence
// as the first accumulated occurrence, and returns true, all under the same
// lock acquisition: checking siblings and claiming self must be one atomic
// step, or two callers fingerprinting identical content concurrently can
// both see no sibling and both proceed to convert.
func (p *Pool) FindOrClaim(self *Slot, id string, occurrence common.Occurrence) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.slots {
		if s == self {
			continue
		}
		if s.Active() && s.ID() == id {
			s.AddOccurrence(occurrence)
			return false
		}
	}
	self.start(id, occurrence)
	return true
}

// NewOperationID returns a fresh identifier for internal bookkeeping
// (e.g. correlating log lines for one conversion across its suspension
// points); not persisted anywhere in the catalog.
func NewOperationID() string {
	return uuid.NewString()
}
