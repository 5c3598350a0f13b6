package video

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mdbarr/indexer/internal/common"
	"github.com/mdbarr/indexer/internal/executil"
)

// subtitleCueLine matches an SRT/VTT cue index or timestamp line, the
// scaffolding parseSubtitleText strips before joining the remaining text.
var subtitleCueLine = regexp.MustCompile(`^\d+$|-->|^WEBVTT$`)

var nonWord = regexp.MustCompile(`\w`)

// extractSubtitles implements §4.10 step 7: prefer a sibling subtitle
// file next to the source, fall back to a probe-detected subtitle stream
// via the primary then fallback extraction templates, and discard
// anything that fails the sanity check. Returns "" when no usable
// subtitles were produced; this is always best-effort and never fails
// the overall conversion.
func (p *Pipeline) extractSubtitles(ctx context.Context, file, subtitlesFile string, i info) string {
	if sibling := siblingSubtitlePath(file, p.Config.SubtitleFormat); sibling != "" {
		if text := p.copySibling(sibling, subtitlesFile); text != "" {
			return text
		}
	}

	if !i.HasSubtitle {
		return ""
	}

	ph := executil.Placeholders{
		"input":    file,
		"output":   subtitlesFile,
		"language": p.Config.Language,
	}

	if err := p.runTemplate(ctx, p.Config.SubtitleTemplate, ph); err != nil {
		if err := p.runTemplate(ctx, p.Config.SubtitleFallbackTemplate, ph); err != nil {
			_ = common.DeleteFile(subtitlesFile)
			return ""
		}
	}

	return p.readAndSanityCheck(subtitlesFile)
}

func siblingSubtitlePath(file, subtitleFormat string) string {
	if subtitleFormat == "" {
		return ""
	}
	base := strings.TrimSuffix(file, filepath.Ext(file))
	return base + "." + subtitleFormat
}

func (p *Pipeline) copySibling(sibling, subtitlesFile string) string {
	stat, err := os.Stat(sibling)
	if err != nil || !stat.Mode().IsRegular() {
		return ""
	}
	if err := common.CopyFile(sibling, subtitlesFile, p.Effective.Mode); err != nil {
		return ""
	}
	return p.readAndSanityCheck(subtitlesFile)
}

// readAndSanityCheck reads subtitlesFile, parses it to plain text, and
// discards (removes the file, returns "") when the text is empty or
// contains no word characters at all.
func (p *Pipeline) readAndSanityCheck(subtitlesFile string) string {
	raw, err := os.ReadFile(subtitlesFile)
	if err != nil {
		return ""
	}
	text := parseSubtitleText(string(raw))
	if strings.TrimSpace(text) == "" || !nonWord.MatchString(text) {
		_ = common.DeleteFile(subtitlesFile)
		return ""
	}
	return text
}

// parseSubtitleText strips SRT/VTT cue indices, timestamps, and the VTT
// header, joining what remains into one plain-text blob.
func parseSubtitleText(raw string) string {
	lines := strings.Split(raw, "\n")
	var kept []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || subtitleCueLine.MatchString(trimmed) {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, " ")
}

func (p *Pipeline) runTemplate(ctx context.Context, template string, ph executil.Placeholders) error {
	_, err := executil.RunTemplate(ctx, template, ph)
	return err
}
