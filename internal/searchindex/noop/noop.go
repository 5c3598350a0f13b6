// Package noop is the null SearchIndex used when no search backend is
// configured, and in unit tests that don't care about search fan-out.
package noop

import "context"

// Index is a SearchIndex that does nothing and never fails.
type Index struct{}

// New returns a no-op SearchIndex.
func New() Index { return Index{} }

func (Index) Index(context.Context, string, string, map[string]any) error { return nil }
func (Index) Refresh(context.Context, string) error                       { return nil }
func (Index) Close() error                                                { return nil }
