// Package memory implements catalog.Catalog as a guarded in-memory map,
// used by pipeline and common unit tests in place of the sqlite adapter.
package memory

import (
	"context"
	"sync"

	"github.com/mdbarr/indexer/internal/common"
	indexererrors "github.com/mdbarr/indexer/internal/errors"
)

// Catalog is a mutex-guarded map-backed catalog.Catalog.
type Catalog struct {
	mu      sync.RWMutex
	records map[string]*common.Record // keyed by id
	sources map[string]string         // source fingerprint -> id
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{
		records: make(map[string]*common.Record),
		sources: make(map[string]string),
	}
}

func (c *Catalog) Lookup(_ context.Context, key string) (*common.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if rec, ok := c.records[key]; ok {
		return cloneRecord(rec), nil
	}

	for _, rec := range c.records {
		if rec.Hash == key {
			return cloneRecord(rec), nil
		}
	}

	if id, ok := c.sources[key]; ok {
		if rec, ok := c.records[id]; ok && !rec.Deleted {
			return cloneRecord(rec), nil
		}
	}
	if id, ok := c.sources[key]; ok {
		if rec, ok := c.records[id]; ok {
			return cloneRecord(rec), nil
		}
	}

	return nil, nil
}

func (c *Catalog) Insert(_ context.Context, record *common.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.records[record.ID]; exists {
		return indexererrors.NewCatalogError("insert", record.ID, errDuplicateID)
	}

	c.records[record.ID] = cloneRecord(record)
	c.indexSources(record)
	return nil
}

func (c *Catalog) Replace(_ context.Context, id string, record *common.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.records[id]; !exists {
		return indexererrors.NewCatalogError("replace", id, errNotFound)
	}

	c.records[id] = cloneRecord(record)
	c.indexSources(record)
	return nil
}

func (c *Catalog) indexSources(record *common.Record) {
	for _, s := range record.Sources {
		c.sources[s] = record.ID
	}
}

func (c *Catalog) Close() error { return nil }

func cloneRecord(r *common.Record) *common.Record {
	cp := *r
	cp.Sources = append([]string(nil), r.Sources...)
	cp.Metadata.Occurrences = append([]common.Occurrence(nil), r.Metadata.Occurrences...)
	cp.Metadata.Tags = append([]string(nil), r.Metadata.Tags...)
	return &cp
}

type catalogError string

func (e catalogError) Error() string { return string(e) }

const (
	errDuplicateID = catalogError("record id already exists")
	errNotFound    = catalogError("record not found")
)
