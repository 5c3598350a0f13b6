package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetNameRendersWithinColumn(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(10)
	term.out = &buf

	term.SetName(0, "clip.mp4")

	assert.Contains(t, buf.String(), "clip.mp4")
}

func TestSetProgressRendersBar(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(10)
	term.out = &buf

	term.SetProgress(1, 5, 10)

	assert.Contains(t, buf.String(), "50%")
}

func TestSetProgressWithoutTotalIsIndeterminate(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(10)
	term.out = &buf

	term.SetProgress(0, 0, 0)

	assert.True(t, strings.Contains(buf.String(), "..."))
}

func TestStopClearsLine(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(10)
	term.out = &buf

	term.SetName(2, "a")
	term.Stop(2)

	assert.NotContains(t, term.names, 2)
}

func TestNoopSatisfiesSlotUI(t *testing.T) {
	var n Noop
	n.SetName(0, "x")
	n.SetProgress(0, 1, 2)
	n.Stop(0)
}
