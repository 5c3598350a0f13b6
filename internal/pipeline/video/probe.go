package video

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	indexererrors "github.com/mdbarr/indexer/internal/errors"
	"github.com/mdbarr/indexer/internal/executil"
)

// probeFormat mirrors the `format` object of ffprobe-style JSON output.
type probeFormat struct {
	Duration string `json:"duration"`
}

// probeStream mirrors one entry of the `streams` array.
type probeStream struct {
	CodecType          string `json:"codec_type"`
	DisplayAspectRatio string `json:"display_aspect_ratio"`
	Width              int    `json:"width"`
	Height             int    `json:"height"`
}

// probeOutput is the subset of probe JSON the pipeline consumes (§4.10
// step 4): format.duration plus codec_type/display_aspect_ratio/width/
// height per stream.
type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

// info is the distilled result of one examine() call.
type info struct {
	Duration       float64
	Width          int
	Height         int
	Aspect         float64
	HasSubtitle    bool
	SubtitleStream *probeStream
}

func (p *Pipeline) examine(ctx context.Context, file string) (info, error) {
	bin := p.Probe
	if bin == "" {
		bin = "ffprobe"
	}
	result, err := executil.Run(ctx, bin, []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		file,
	})
	if err != nil {
		return info{}, indexererrors.NewProbeError(file, err)
	}

	var out probeOutput
	if err := json.Unmarshal([]byte(result.Stdout), &out); err != nil {
		return info{}, indexererrors.NewProbeError(file, err)
	}

	return buildInfo(out), nil
}

func buildInfo(out probeOutput) info {
	result := info{}
	result.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)

	for i := range out.Streams {
		s := out.Streams[i]
		switch s.CodecType {
		case "video":
			if result.Width == 0 {
				result.Width = s.Width
				result.Height = s.Height
				result.Aspect = parseAspect(s.DisplayAspectRatio, s.Width, s.Height)
			}
		case "subtitle":
			if !result.HasSubtitle {
				result.HasSubtitle = true
				stream := s
				result.SubtitleStream = &stream
			}
		}
	}
	return result
}

// parseAspect prefers the stream's reported display_aspect_ratio
// ("16:9"-style) and falls back to width/height when absent or malformed.
func parseAspect(ratio string, width, height int) float64 {
	if ratio != "" {
		parts := strings.SplitN(ratio, ":", 2)
		if len(parts) == 2 {
			n, errN := strconv.ParseFloat(parts[0], 64)
			d, errD := strconv.ParseFloat(parts[1], 64)
			if errN == nil && errD == nil && d != 0 {
				return n / d
			}
		}
	}
	if height == 0 {
		return 0
	}
	return float64(width) / float64(height)
}
