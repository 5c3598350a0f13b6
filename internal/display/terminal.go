package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mdbarr/indexer/internal/common"
)

// ANSI control sequences for cursor positioning and line erasure, the same
// escape-code vocabulary the corpus's own terminal renderers use.
const (
	ansiSaveCursor    = "\033[s"
	ansiRestoreCursor = "\033[u"
	ansiEraseLine     = "\033[2K"
	ansiDim           = "\033[90m"
	ansiReset         = "\033[0m"
)

// Terminal renders one line per slot: a scrolling name column followed by a
// textual progress indicator. Safe for concurrent use by many slots.
type Terminal struct {
	mu    sync.Mutex
	out   io.Writer
	width int
	names map[int]string
}

// NewTerminal builds a Terminal writing to stdout with a name column
// nameWidth characters wide.
func NewTerminal(nameWidth int) *Terminal {
	if nameWidth <= 0 {
		nameWidth = 32
	}
	return &Terminal{
		out:   os.Stdout,
		width: nameWidth,
		names: make(map[int]string),
	}
}

func (t *Terminal) row(slot int) string {
	return fmt.Sprintf("\033[%d;0H", slot+1)
}

// SetName updates the name shown on slot's line.
func (t *Terminal) SetName(slot int, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names[slot] = name
	t.render(slot, "")
}

// SetProgress renders a fixed-width bar for slot. A total of 0 (no
// `Duration:` line parsed yet, per §9's open question on video progress)
// renders an indeterminate marker instead of a fraction.
func (t *Terminal) SetProgress(slot int, value, total float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if total <= 0 {
		t.render(slot, "...")
		return
	}

	fraction := value / total
	if fraction > 1 {
		fraction = 1
	}
	if fraction < 0 {
		fraction = 0
	}

	const barWidth = 20
	filled := int(fraction * float64(barWidth))
	bar := strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled)
	t.render(slot, fmt.Sprintf("[%s] %3.0f%%", bar, fraction*100))
}

// Stop clears slot's line.
func (t *Terminal) Stop(slot int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.names, slot)
	fmt.Fprintf(t.out, "%s%s%s", t.row(slot), ansiEraseLine, ansiRestoreCursor)
}

// render must be called with mu held.
func (t *Terminal) render(slot int, status string) {
	name := t.names[slot]
	fmt.Fprintf(t.out, "%s%s%s%-*s%s %s\n", ansiSaveCursor, t.row(slot), ansiEraseLine, t.width, name, ansiReset, status)
}

var _ common.SlotUI = (*Terminal)(nil)
