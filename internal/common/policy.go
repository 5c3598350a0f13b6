package common

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"

	indexererrors "github.com/mdbarr/indexer/internal/errors"
)

// RecordStore is the subset of catalog.Catalog the policy layer needs.
// Defined locally (rather than imported) so common has no dependency on
// the catalog package; any catalog.Catalog satisfies this structurally.
type RecordStore interface {
	Lookup(ctx context.Context, key string) (*Record, error)
	Insert(ctx context.Context, record *Record) error
	Replace(ctx context.Context, id string, record *Record) error
}

// SearchWriter is the subset of searchindex.SearchIndex the policy layer
// needs, defined locally for the same reason as RecordStore.
type SearchWriter interface {
	Index(ctx context.Context, idx, docID string, body map[string]any) error
	Refresh(ctx context.Context, idx string) error
}

// DeletePredicate decides whether a source file should be removed after
// its work is accounted for (§4.7's "either a boolean or a predicate").
type DeletePredicate func(file string) bool

// AlwaysDelete and NeverDelete implement the two fixed-boolean predicates.
func AlwaysDelete(string) bool { return true }
func NeverDelete(string) bool  { return false }

// Policy implements the operations §4.7 describes as shared by all three
// pipelines: skip, shouldDelete, duplicate, tag, insert, lookup.
type Policy struct {
	Store   RecordStore
	Search  SearchWriter
	Indexed *IndexedSet
	Stats   *Stats
	Events  EventSink

	CanSkip  bool
	Delete   DeletePredicate
	DropTags bool
	Tagger   string // optional external hook command; empty disables
}

// Skip implements §4.7's skip(file): if canSkip and the file is not headed
// for deletion, and it is already in the indexed-path cache, record the
// skip and report true.
func (p *Policy) Skip(kind string, file string) bool {
	if !p.CanSkip || p.shouldDelete(file) {
		return false
	}
	if !p.Indexed.Has(file) {
		return false
	}

	p.Stats.IncSkipped()
	p.emit("skipped:"+kind, map[string]any{"file": file})
	return true
}

// Fail records a per-file processing failure: it increments the failed
// counter and emits a failed:<kind> event carrying the file and the error
// text, so the observability layer (obslog) can log what actually went
// wrong instead of the core silently swallowing it (§7).
func (p *Policy) Fail(kind, file string, err error) {
	p.Stats.IncFailed()
	p.emit("failed:"+kind, map[string]any{"file": file, "error": err.Error()})
}

func (p *Policy) shouldDelete(file string) bool {
	if p.Delete == nil {
		return false
	}
	return p.Delete(file)
}

// Lookup delegates to the configured RecordStore.
func (p *Policy) Lookup(ctx context.Context, key string) (*Record, error) {
	rec, err := p.Store.Lookup(ctx, key)
	if err != nil {
		return nil, indexererrors.NewCatalogError("lookup", key, err)
	}
	return rec, nil
}

// Insert appends model to the catalog. No partial records are ever
// inserted: callers build the full Record before calling this (§7).
func (p *Policy) Insert(ctx context.Context, model *Record) error {
	return p.Store.Insert(ctx, model)
}

// Duplicate implements the merge protocol (§4.11).
func (p *Policy) Duplicate(ctx context.Context, kind string, model *Record, occurrence Occurrence) error {
	p.Stats.IncDuplicate()

	if !model.HasOccurrenceFile(occurrence.File) {
		model.Metadata.Occurrences = append(model.Metadata.Occurrences, occurrence)
	}
	model.RebuildSources()
	p.Tag(model)

	if err := p.Store.Replace(ctx, model.ID, model); err != nil {
		return indexererrors.NewCatalogError("replace", model.ID, err)
	}

	if p.shouldDelete(occurrence.File) {
		_ = deleteFile(occurrence.File)
	}

	p.emit("duplicate:"+kind, map[string]any{"id": model.ID, "file": occurrence.File})
	return nil
}

// Tag calls the optional external tagger hook with model's JSON on stdin,
// treating each line of stdout as a tag to merge in (unless dropTags is
// set, in which case tags are left untouched), then always refreshes
// metadata.updated.
func (p *Policy) Tag(model *Record) {
	defer func() { model.Metadata.Updated = NowMillis() }()

	if p.DropTags || p.Tagger == "" {
		return
	}

	payload, err := json.Marshal(model)
	if err != nil {
		return
	}

	cmd := exec.Command(p.Tagger)
	cmd.Stdin = bytes.NewReader(payload)
	out, err := cmd.Output()
	if err != nil {
		return
	}

	for _, tag := range splitNonEmptyLines(string(out)) {
		model.Metadata.Tags = appendUnique(model.Metadata.Tags, tag)
	}
}

func (p *Policy) emit(event string, payload map[string]any) {
	if p.Events != nil {
		p.Events.Emit(event, payload)
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func splitNonEmptyLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if i > start {
				line := s[start:i]
				if line != "" && line != "\r" {
					lines = append(lines, trimCR(line))
				}
			}
			start = i + 1
		}
	}
	return lines
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}
