package video

import (
	"context"
	"regexp"
	"strconv"

	"github.com/mdbarr/indexer/internal/common"
	"github.com/mdbarr/indexer/internal/executil"
)

var (
	maxVolumePattern  = regexp.MustCompile(`max_volume:\s*(-?[\d.]+)\s*dB`)
	meanVolumePattern = regexp.MustCompile(`mean_volume:\s*(-?[\d.]+)\s*dB`)
)

// checkSound implements §4.10 step 13: run the sound template (typically
// an ffmpeg volumedetect pass) and parse its stderr for max_volume/
// mean_volume. Returns the default silent sentinel when disabled or when
// the output can't be parsed.
func (p *Pipeline) checkSound(ctx context.Context, output string) common.Sound {
	if !p.Config.CheckSound {
		return common.DefaultSilentSound
	}

	result, err := executil.RunTemplate(ctx, p.Config.SoundTemplate, executil.Placeholders{"input": output})
	if err != nil {
		return common.DefaultSilentSound
	}

	mean, meanOK := parseDB(meanVolumePattern, result.Stderr)
	max, maxOK := parseDB(maxVolumePattern, result.Stderr)
	if !meanOK || !maxOK {
		return common.DefaultSilentSound
	}

	return common.Sound{
		Silent: mean <= p.Config.SoundThreshold,
		Mean:   mean,
		Max:    max,
	}
}

func parseDB(pattern *regexp.Regexp, text string) (float64, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
