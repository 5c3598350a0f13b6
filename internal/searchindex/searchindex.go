// Package searchindex defines the optional full-text index every pipeline
// may write to (§4.4). Concrete adapters (elastic, noop) live in
// subpackages.
package searchindex

import "context"

// SearchIndex is the abstract full-text sink used by Text (name +
// description + contents) and Video (name + description, subtitles in a
// separate index). Disabled cleanly via the noop implementation when no
// backend is configured.
type SearchIndex interface {
	Index(ctx context.Context, idx, docID string, body map[string]any) error
	Refresh(ctx context.Context, idx string) error
	Close() error
}
