// Package video implements the video conversion state machine (§4.10),
// by far the most involved of the three: probe, best-effort subtitle
// extraction, a stderr-driven transcode with live progress, a
// post-convert re-fingerprint (two sources can transcode to identical
// bytes), thumbnail-at-computed-time, sound detection, and a preview
// clip, before the record is built and persisted.
package video

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mdbarr/indexer/internal/common"
	"github.com/mdbarr/indexer/internal/config"
	indexererrors "github.com/mdbarr/indexer/internal/errors"
	"github.com/mdbarr/indexer/internal/executil"
	"github.com/mdbarr/indexer/internal/hasher"
	"github.com/mdbarr/indexer/internal/searchindex"
	"github.com/mdbarr/indexer/internal/slotpool"
)

const searchIndexName = "video"

// Pipeline holds everything the video state machine needs to convert one
// file.
type Pipeline struct {
	Policy    *common.Policy
	Effective config.EffectiveTypeConfig
	Config    config.VideoTypeConfig
	Hasher    *hasher.Hasher
	Search    searchindex.SearchIndex
	UI        common.SlotUI
	Probe     string // probe tool binary, e.g. "ffprobe"
}

// Convert matches slotpool.Pipeline and drives one file through §4.10.
func (p *Pipeline) Convert(ctx context.Context, pool *slotpool.Pool, slot *slotpool.Slot, item slotpool.Item) {
	file := item.File

	if p.Policy.Skip("video", file) {
		return
	}

	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	extension := strings.ToLower(strings.TrimPrefix(filepath.Ext(file), "."))

	stat, err := os.Stat(file)
	if err != nil {
		p.fail(file, indexererrors.NewIOError("stat", file, err))
		return
	}

	id, err := p.Hasher.Hash(ctx, file)
	if err != nil {
		p.fail(file, err)
		return
	}

	occurrence := common.Occurrence{
		ID:        id,
		File:      file,
		Path:      filepath.Dir(file),
		Name:      name,
		Extension: extension,
		Size:      stat.Size(),
		Timestamp: stat.ModTime().UnixMilli(),
	}

	if !pool.FindOrClaim(slot, id, occurrence) {
		return
	}

	model, err := p.Policy.Lookup(ctx, id)
	if err != nil {
		p.fail(file, err)
		return
	}
	if model != nil {
		if err := p.Policy.Duplicate(ctx, "video", model, occurrence); err != nil {
			p.fail(file, err)
		}
		return
	}

	source, err := p.examine(ctx, file)
	if err != nil {
		p.fail(file, err)
		return
	}

	directory := filepath.Join(p.Effective.Save, id[:2])
	output := filepath.Join(directory, id[2:]+"."+p.Config.Format)
	preview := filepath.Join(directory, id[2:]+"p."+p.Config.Format)
	thumbnail := filepath.Join(directory, id[2:]+"p."+p.Config.ThumbnailFormat)

	if err := common.MkdirAll(directory); err != nil {
		p.fail(file, err)
		return
	}

	var subtitleText string
	var subtitlesFile string
	if p.Config.SubtitleFormat != "" {
		subtitlesFile = filepath.Join(directory, id[2:]+"."+p.Config.SubtitleFormat)
		subtitleText = p.extractSubtitles(ctx, file, subtitlesFile, source)
	}

	if err := p.transcode(ctx, slot.Index, file, output); err != nil {
		_ = common.DeleteFile(output)
		p.fail(file, indexererrors.NewConvertError(file, err))
		return
	}
	if err := common.Chmod(output, p.Effective.Mode); err != nil {
		p.fail(file, err)
		return
	}

	hash, err := p.Hasher.Hash(ctx, output)
	if err != nil {
		p.fail(file, err)
		return
	}

	existing, err := p.Policy.Lookup(ctx, hash)
	if err != nil {
		p.fail(file, err)
		return
	}
	if existing != nil {
		if err := p.Policy.Duplicate(ctx, "video", existing, occurrence); err != nil {
			p.fail(file, err)
			return
		}
		_ = common.DeleteFile(output)
		common.RemoveEmptyDir(directory)
		return
	}

	thumbTime := computeThumbnailTime(p.Config.ThumbnailTime, source.Duration)
	if err := p.runTemplate(ctx, p.Config.ThumbnailTemplate, executil.Placeholders{
		"input":  output,
		"output": thumbnail,
		"time":   secondsToTimestamp(thumbTime),
	}); err != nil {
		p.fail(file, indexererrors.NewThumbnailError(file, err))
		return
	}
	_ = common.Chmod(thumbnail, p.Effective.Mode)

	final, err := p.examine(ctx, output)
	if err != nil {
		p.fail(file, err)
		return
	}
	outStat, err := os.Stat(output)
	if err != nil {
		p.fail(file, indexererrors.NewIOError("stat", output, err))
		return
	}

	sound := p.checkSound(ctx, output)

	interval := computePreviewInterval(final.Duration, p.Config.PreviewDuration)
	if err := p.runTemplate(ctx, p.Config.PreviewTemplate, executil.Placeholders{
		"input":    output,
		"output":   preview,
		"interval": strconv.Itoa(interval),
	}); err != nil {
		p.fail(file, indexererrors.NewPreviewError(file, err))
		return
	}
	_ = common.Chmod(preview, p.Effective.Mode)

	description := ""
	if subtitleText != "" && p.Config.SubtitlesToDescription {
		description = subtitleText
	}

	model = &common.Record{
		ID:          id,
		Object:      common.ObjectVideo,
		Name:        name,
		Hash:        hash,
		Description: description,
		Relative:    filepath.Join(id[:2], id[2:]+"."+p.Config.Format),
		Thumbnail:   filepath.Join(id[:2], id[2:]+"p."+p.Config.ThumbnailFormat),
		Preview:     filepath.Join(id[:2], id[2:]+"p."+p.Config.Format),
		Subtitles:   subtitlesRelative(id, p.Config.SubtitleFormat, subtitleText),
		Size:        outStat.Size(),
		Duration:    final.Duration,
		Aspect:      final.Aspect,
		Width:       final.Width,
		Height:      final.Height,
		Sound:       &sound,
		Metadata: common.Metadata{
			Created:     stat.ModTime().UnixMilli(),
			Added:       common.NowMillis(),
			Occurrences: slot.Occurrences(),
		},
	}
	model.RebuildSources()

	if p.Search != nil {
		_ = p.Search.Index(ctx, searchIndexName, model.ID, map[string]any{
			"name":        model.Name,
			"description": model.Description,
		})
		_ = p.Search.Refresh(ctx, searchIndexName)

		if subtitleText != "" && p.Config.SubtitlesIndex != "" {
			_ = p.Search.Index(ctx, p.Config.SubtitlesIndex, model.ID, map[string]any{
				"name":     model.Name,
				"contents": subtitleText,
			})
			_ = p.Search.Refresh(ctx, p.Config.SubtitlesIndex)
		}
	}

	p.Policy.Tag(model)

	if err := p.Policy.Insert(ctx, model); err != nil {
		p.fail(file, err)
		return
	}

	if p.Effective.Delete {
		_ = common.DeleteFile(file)
	}

	p.Policy.Stats.IncVideo()
	p.Policy.Stats.IncConverted()
	p.emit(file, id)
}

// transcode runs the convert template, feeding its stderr through a
// progressTracker so the UI's progress bar advances as `time=` lines
// arrive (§4.10 step 8).
func (p *Pipeline) transcode(ctx context.Context, slotIndex int, input, output string) error {
	parts := executil.BuildArgs(p.Config.ConvertTemplate, executil.Placeholders{
		"input":  input,
		"output": output,
	})
	if len(parts) == 0 {
		return errEmptyConvertTemplate
	}

	tracker := newProgressTracker(p.UI, slotIndex)
	_, err := executil.RunStream(ctx, parts[0], parts[1:], tracker.line)
	return err
}

func subtitlesRelative(id, subtitleFormat, text string) string {
	if text == "" {
		return ""
	}
	return filepath.Join(id[:2], id[2:]+"."+subtitleFormat)
}

// computeThumbnailTime implements §4.10 step 11's time selection, guarded
// against NaN/Infinity/negative results (e.g. an unprobable duration).
func computeThumbnailTime(thumbnailTime, duration float64) float64 {
	if math.IsNaN(duration) || math.IsInf(duration, 0) {
		return 0
	}
	t := thumbnailTime
	if duration-1 < t {
		t = duration - 1
	}
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return 0
	}
	return math.Floor(t)
}

// computePreviewInterval implements §4.10 step 14's interval = ceil(duration / previewDuration).
func computePreviewInterval(duration float64, previewDuration int) int {
	if previewDuration <= 0 || duration <= 0 {
		return 1
	}
	return int(math.Ceil(duration / float64(previewDuration)))
}

func (p *Pipeline) fail(file string, err error) {
	p.Policy.Fail("video", file, err)
}

func (p *Pipeline) emit(file, id string) {
	if p.Policy.Events != nil {
		p.Policy.Events.Emit("indexed:video", map[string]any{"id": id, "file": file, "at": time.Now().UnixMilli()})
	}
}

type convertTemplateError string

func (e convertTemplateError) Error() string { return string(e) }

const errEmptyConvertTemplate = convertTemplateError("empty convert template")
