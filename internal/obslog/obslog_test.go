package obslog

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexedWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.Indexed("video", "abc123", "/in/a.mp4")

	out := buf.String()
	assert.Contains(t, out, `"event":"indexed"`)
	assert.Contains(t, out, `"kind":"video"`)
	assert.Contains(t, out, `"id":"abc123"`)
}

func TestFailedIncludesError(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.Failed("image", "/in/a.png", errors.New("boom"))

	assert.Contains(t, buf.String(), "boom")
}

func TestEventSinkLogsFailedEventWithErrorText(t *testing.T) {
	var buf bytes.Buffer
	sink := EventSink{Logger: New(&buf, false)}

	sink.Emit("failed:video", map[string]any{"file": "/in/a.mp4", "error": "probe exit 1"})

	out := buf.String()
	assert.Contains(t, out, `"event":"failed"`)
	assert.Contains(t, out, `"kind":"video"`)
	assert.Contains(t, out, "probe exit 1")
}

func TestEventSinkDerivesKindFromEventSuffix(t *testing.T) {
	var buf bytes.Buffer
	sink := EventSink{Logger: New(&buf, false)}

	sink.Emit("indexed:text", map[string]any{"id": "x", "file": "/f.txt"})

	assert.Contains(t, buf.String(), `"kind":"text"`)
}

func TestWithRunTagsEveryLine(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false).WithRun("run-123")

	l.Indexed("text", "abc", "/f.txt")

	assert.Contains(t, buf.String(), `"run_id":"run-123"`)
}

func TestTallyLogsCounts(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.Tally(3, 1, 2, 0)

	out := buf.String()
	assert.Contains(t, out, `"converted":3`)
	assert.Contains(t, out, `"event":"tally"`)
}
