package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mdbarr/indexer/internal/common"
)

func TestStringIncludesAllCounters(t *testing.T) {
	tally := Tally{
		Snapshot: common.Snapshot{Converted: 3, Duplicates: 1, Skipped: 2, Failed: 0, Images: 1, Texts: 1, Videos: 2},
		Elapsed:  2500 * time.Millisecond,
		Bytes:    1024 * 1024,
	}

	s := tally.String()
	assert.Contains(t, s, "converted 3")
	assert.Contains(t, s, "duplicates 1")
	assert.Contains(t, s, "skipped 2")
	assert.Contains(t, s, "failed 0")
	assert.Contains(t, s, "videos 2")
	assert.Contains(t, s, "MiB")
}

func TestPrintWritesNewlineTerminatedLine(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, Tally{})

	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
}
