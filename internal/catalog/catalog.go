// Package catalog defines the abstract record store every pipeline talks
// to (§4.3). Concrete adapters (sqlite, memory) live in subpackages; the
// core only ever depends on this interface.
package catalog

import (
	"context"

	"github.com/mdbarr/indexer/internal/common"
)

// Catalog is the abstract record store. lookup matches any of
// { id: key, hash: key, sources: key }. The adapters order the match
// themselves: id and hash first, then a sources match on a record that is
// not soft-deleted, and only then a sources match on a deleted one (§4.3).
type Catalog interface {
	Lookup(ctx context.Context, key string) (*common.Record, error)
	Insert(ctx context.Context, record *common.Record) error
	Replace(ctx context.Context, id string, record *common.Record) error
	Close() error
}
