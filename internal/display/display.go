// Package display implements the SlotUI side-effect sink (§9): concrete
// renderers the core writes progress to but never reads back from. Noop is
// used by tests and headless runs; Terminal renders one line per slot.
package display

import "github.com/mdbarr/indexer/internal/common"

// Noop discards every call; the zero value is ready to use.
type Noop struct{}

func (Noop) SetName(int, string)            {}
func (Noop) SetProgress(int, float64, float64) {}
func (Noop) Stop(int)                       {}

var _ common.SlotUI = Noop{}
