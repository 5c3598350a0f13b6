package common

import "sync/atomic"

// Stats holds the run-wide counters every pipeline increments. All fields
// are accessed only through their atomic accessors; the zero value is
// ready to use.
type Stats struct {
	images     int64
	texts      int64
	videos     int64
	converted  int64
	duplicates int64
	skipped    int64
	failed     int64
}

func (s *Stats) IncImage()     { atomic.AddInt64(&s.images, 1) }
func (s *Stats) IncText()      { atomic.AddInt64(&s.texts, 1) }
func (s *Stats) IncVideo()     { atomic.AddInt64(&s.videos, 1) }
func (s *Stats) IncConverted() { atomic.AddInt64(&s.converted, 1) }
func (s *Stats) IncDuplicate() { atomic.AddInt64(&s.duplicates, 1) }
func (s *Stats) IncSkipped()   { atomic.AddInt64(&s.skipped, 1) }
func (s *Stats) IncFailed()    { atomic.AddInt64(&s.failed, 1) }

// Snapshot is a point-in-time, non-atomic copy suitable for printing.
type Snapshot struct {
	Images     int64
	Texts      int64
	Videos     int64
	Converted  int64
	Duplicates int64
	Skipped    int64
	Failed     int64
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Images:     atomic.LoadInt64(&s.images),
		Texts:      atomic.LoadInt64(&s.texts),
		Videos:     atomic.LoadInt64(&s.videos),
		Converted:  atomic.LoadInt64(&s.converted),
		Duplicates: atomic.LoadInt64(&s.duplicates),
		Skipped:    atomic.LoadInt64(&s.skipped),
		Failed:     atomic.LoadInt64(&s.failed),
	}
}
