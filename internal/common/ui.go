package common

import "strings"

// SlotUI is the side-effect sink a pipeline drives while a slot is active
// (§9: UI is treated as a side effect, never a decision input). Concrete
// implementations live in internal/display.
type SlotUI interface {
	SetName(slot int, name string)
	SetProgress(slot int, value, total float64)
	Stop(slot int)
}

// NameScroller produces a scrolling fixed-width rendering of name, the way
// a progress UI animates a name too long to fit its column. pos is the
// caller-maintained animation offset.
func NameScroller(name string, width int, pos int) string {
	if width <= 0 {
		return ""
	}
	if len(name) <= width {
		return name + strings.Repeat(" ", width-len(name))
	}

	padded := name + "   " // separator between loop repetitions
	offset := pos % len(padded)
	doubled := padded + padded
	window := doubled[offset : offset+width]
	return window
}

// Spinner attaches a scroll-updating name display to slot; Tick advances
// the scroll position and pushes the next frame to ui.
type Spinner struct {
	ui    SlotUI
	slot  int
	name  string
	width int
	pos   int
}

// NewSpinner attaches a spinner to slot, rendering name within width columns.
func NewSpinner(ui SlotUI, slot int, name string, width int) *Spinner {
	sp := &Spinner{ui: ui, slot: slot, name: name, width: width}
	sp.ui.SetName(slot, NameScroller(name, width, 0))
	return sp
}

// Tick advances the scroll animation by one frame.
func (sp *Spinner) Tick() {
	sp.pos++
	sp.ui.SetName(sp.slot, NameScroller(sp.name, sp.width, sp.pos))
}

// Stop releases the slot's UI.
func (sp *Spinner) Stop() {
	sp.ui.Stop(sp.slot)
}
