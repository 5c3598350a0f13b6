// Package image implements the image conversion state machine (§4.8):
// fingerprint, catalog lookup, size-threshold check, thumbnail generation
// (plus an animated preview for GIF sources), and record insertion.
package image

import (
	"context"
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

// Pipeline holds everything the image state machine needs to convert one
// file: the resolved policy, the type's effective cascading options, its
// own configuration block, and its collaborators.
type Pipeline struct {
	Policy    *common.Policy
	Effective config.EffectiveTypeConfig
	Config    config.ImageTypeConfig
	Hasher    *hasher.Hasher
	Search    searchindex.SearchIndex
	Identify  string // identify tool binary, e.g. "identify" (ImageMagick)
}

// Convert matches slotpool.Pipeline and drives one file through §4.8.
func (p *Pipeline) Convert(ctx context.Context, pool *slotpool.Pool, slot *slotpool.Slot, item slotpool.Item) {
	file := item.File

	if p.Policy.Skip("image", file) {
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
		if err := p.Policy.Duplicate(ctx, "image", model, occurrence); err != nil {
			p.fail(file, err)
		}
		return
	}

	width, height, attributes, err := p.examine(ctx, file)
	if err != nil {
		p.fail(file, err)
		return
	}

	if width < p.Config.MinWidth || height < p.Config.MinHeight ||
		width > p.Config.MaxWidth || height > p.Config.MaxHeight {
		return
	}

	directory := filepath.Join(p.Effective.Save, id[:2])
	output := filepath.Join(directory, id[2:]+"."+extension)
	thumbnail := filepath.Join(directory, id[2:]+"p."+p.Config.ThumbnailFormat)

	if err := common.MkdirAll(directory); err != nil {
		p.fail(file, err)
		return
	}
	if err := common.CopyFile(file, output, p.Effective.Mode); err != nil {
		p.fail(file, err)
		return
	}

	if err := p.runTemplate(ctx, p.Config.ThumbnailTemplate, executil.Placeholders{
		"input":    output,
		"output":   thumbnail,
		"geometry": strconv.Itoa(width) + "x" + strconv.Itoa(height),
	}); err != nil {
		p.cleanup(output)
		p.fail(file, indexererrors.NewThumbnailError(file, err))
		return
	}
	_ = common.Chmod(thumbnail, p.Effective.Mode)

	var preview string
	if extension == "gif" {
		preview = filepath.Join(directory, id[2:]+"p."+extension)
		if err := p.runTemplate(ctx, p.Config.PreviewTemplate, executil.Placeholders{
			"input":  output,
			"output": preview,
		}); err != nil {
			p.fail(file, indexererrors.NewPreviewError(file, err))
			return
		}
		_ = common.Chmod(preview, p.Effective.Mode)
	}

	model = &common.Record{
		ID:        id,
		Object:    common.ObjectImage,
		Name:      name,
		Hash:      id,
		Sources:   []string{id},
		Relative:  filepath.Join(id[:2], id[2:]+"."+extension),
		Thumbnail: filepath.Join(id[:2], id[2:]+"p."+p.Config.ThumbnailFormat),
		Preview:   previewRelative(id, extension, preview),
		Size:      stat.Size(),
		Width:     width,
		Height:    height,
		Metadata: common.Metadata{
			Created:     stat.ModTime().UnixMilli(),
			Added:       common.NowMillis(),
			Occurrences: slot.Occurrences(),
		},
	}
	if aspect, ok := attributes["aspect"].(float64); ok {
		model.Aspect = aspect
	}
	model.RebuildSources()

	p.Policy.Tag(model)

	if err := p.Policy.Insert(ctx, model); err != nil {
		p.fail(file, err)
		return
	}

	if p.Effective.Delete {
		_ = common.DeleteFile(file)
	}

	p.Policy.Stats.IncImage()
	p.Policy.Stats.IncConverted()
	p.emit(file, id)
}

func previewRelative(id, extension, preview string) string {
	if preview == "" {
		return ""
	}
	return filepath.Join(id[:2], id[2:]+"p."+extension)
}

func (p *Pipeline) examine(ctx context.Context, file string) (width, height int, attributes map[string]any, err error) {
	bin := p.Identify
	if bin == "" {
		bin = "identify"
	}
	result, runErr := executil.Run(ctx, bin, []string{"-verbose", file})
	if runErr != nil {
		return 0, 0, nil, indexererrors.NewProbeError(file, runErr)
	}

	attributes = ParseIdentify(result.Stdout)
	if w, ok := attributes["width"].(int); ok {
		width = w
	}
	if h, ok := attributes["height"].(int); ok {
		height = h
	}
	return width, height, attributes, nil
}

func (p *Pipeline) runTemplate(ctx context.Context, template string, ph executil.Placeholders) error {
	_, err := executil.RunTemplate(ctx, template, ph)
	return err
}

func (p *Pipeline) cleanup(path string) {
	_ = common.DeleteFile(path)
}

func (p *Pipeline) fail(file string, err error) {
	p.Policy.Fail("image", file, err)
}

func (p *Pipeline) emit(file, id string) {
	if p.Policy.Events != nil {
		p.Policy.Events.Emit("indexed:image", map[string]any{"id": id, "file": file, "at": time.Now().UnixMilli()})
	}
}
