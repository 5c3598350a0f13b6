package video

import (
	"regexp"
	"strconv"

	"github.com/mdbarr/indexer/internal/common"
)

var (
	durationPattern = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
	timePattern     = regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)
)

// progressTracker turns a transcode's stderr lines into UI progress
// updates (§4.10 step 8): the first `Duration:` line sets the total,
// every `time=` line afterward updates the current value.
type progressTracker struct {
	ui    common.SlotUI
	slot  int
	total float64
}

func newProgressTracker(ui common.SlotUI, slot int) *progressTracker {
	return &progressTracker{ui: ui, slot: slot}
}

func (pt *progressTracker) line(text string) {
	if pt.ui == nil {
		return
	}
	if pt.total == 0 {
		if secs, ok := matchTimestamp(durationPattern, text); ok {
			pt.total = secs
		}
	}
	if secs, ok := matchTimestamp(timePattern, text); ok {
		pt.ui.SetProgress(pt.slot, secs, pt.total)
	}
}

func matchTimestamp(pattern *regexp.Regexp, text string) (float64, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.ParseFloat(m[1], 64)
	mn, _ := strconv.ParseFloat(m[2], 64)
	s, _ := strconv.ParseFloat(m[3], 64)
	frac, _ := strconv.ParseFloat("0."+m[4], 64)
	return h*3600 + mn*60 + s + frac, true
}

// secondsToTimestamp formats secs as a zero-padded HH:MM:SS value, the
// form every ffmpeg -ss-style template placeholder expects (§4.10 step
// 11's "zero-padded seconds value").
func secondsToTimestamp(secs float64) string {
	if secs < 0 {
		secs = 0
	}
	total := int(secs)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return pad2(h) + ":" + pad2(m) + ":" + pad2(s)
}

func pad2(v int) string {
	if v < 10 {
		return "0" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}
