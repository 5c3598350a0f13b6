// Package text implements the text conversion state machine (§4.9):
// fingerprint, catalog lookup, size-threshold check, optional
// content-processor hook, post-processing re-fingerprint (catching
// transformations that collapse two sources onto identical output
// bytes), summarization, compressed write, and record insertion.
package text

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/mdbarr/indexer/internal/common"
	"github.com/mdbarr/indexer/internal/config"
	indexererrors "github.com/mdbarr/indexer/internal/errors"
	"github.com/mdbarr/indexer/internal/hasher"
	"github.com/mdbarr/indexer/internal/searchindex"
	"github.com/mdbarr/indexer/internal/slotpool"
	"github.com/mdbarr/indexer/internal/textcompress"
)

// searchIndexName is the fixed index namespace text records are written
// under; video's equivalent is its own configured subtitlesIndex.
const searchIndexName = "text"

// Pipeline holds everything the text state machine needs to convert one
// file.
type Pipeline struct {
	Policy    *common.Policy
	Effective config.EffectiveTypeConfig
	Config    config.TextTypeConfig
	Hasher    *hasher.Hasher
	Search    searchindex.SearchIndex
}

// Convert matches slotpool.Pipeline and drives one file through §4.9.
func (p *Pipeline) Convert(ctx context.Context, pool *slotpool.Pool, slot *slotpool.Slot, item slotpool.Item) {
	file := item.File

	if p.Policy.Skip("text", file) {
		return
	}

	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	extension := strings.ToLower(strings.TrimPrefix(filepath.Ext(file), "."))

	stat, err := os.Stat(file)
	if err != nil {
		p.fail(file, indexererrors.NewIOError("stat", file, err))
		return
	}

	if p.Config.MinSize > 0 && stat.Size() < p.Config.MinSize {
		return
	}
	if p.Config.MaxSize > 0 && stat.Size() > p.Config.MaxSize {
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
		if err := p.Policy.Duplicate(ctx, "text", model, occurrence); err != nil {
			p.fail(file, err)
		}
		return
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		p.fail(file, indexererrors.NewIOError("read", file, err))
		return
	}

	content, err := p.process(ctx, raw)
	if err != nil {
		p.fail(file, err)
		return
	}

	hash, err := p.Hasher.HashBytes(ctx, content)
	if err != nil {
		p.fail(file, err)
		return
	}

	if hash != id {
		existing, err := p.Policy.Lookup(ctx, hash)
		if err != nil {
			p.fail(file, err)
			return
		}
		if existing != nil {
			if err := p.Policy.Duplicate(ctx, "text", existing, occurrence); err != nil {
				p.fail(file, err)
			}
			return
		}
	}

	directory := filepath.Join(p.Effective.Save, id[:2])
	suffix := textcompress.Suffix(p.Config.Compression)
	output := filepath.Join(directory, id[2:]+"."+extension+suffix)

	if err := common.MkdirAll(directory); err != nil {
		p.fail(file, err)
		return
	}

	if err := p.writeCompressed(output, content); err != nil {
		p.fail(file, err)
		return
	}
	if err := common.Chmod(output, p.Effective.Mode); err != nil {
		p.fail(file, err)
		return
	}

	outStat, err := os.Stat(output)
	if err != nil {
		p.fail(file, indexererrors.NewIOError("stat", output, err))
		return
	}

	model = &common.Record{
		ID:          id,
		Object:      common.ObjectText,
		Name:        name,
		Hash:        hash,
		Relative:    filepath.Join(id[:2], id[2:]+"."+extension+suffix),
		Size:        outStat.Size(),
		Compression: p.Config.Compression,
		Description: describe(content, p.Config.Summarize, p.Config.SummaryFallback),
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
			"contents":    string(content),
		})
		_ = p.Search.Refresh(ctx, searchIndexName)
	}

	p.Policy.Tag(model)

	if err := p.Policy.Insert(ctx, model); err != nil {
		p.fail(file, err)
		return
	}

	if p.Effective.Delete {
		_ = common.DeleteFile(file)
	}

	p.Policy.Stats.IncText()
	p.Policy.Stats.IncConverted()
	p.emit(file, id)
}

// process runs the optional content-processor hook, feeding raw on stdin
// and taking its stdout as the replacement text. With no hook configured,
// raw passes through unchanged.
func (p *Pipeline) process(ctx context.Context, raw []byte) ([]byte, error) {
	if p.Config.Processor == "" {
		return raw, nil
	}

	cmd := exec.CommandContext(ctx, p.Config.Processor)
	cmd.Stdin = bytes.NewReader(raw)
	out, err := cmd.Output()
	if err != nil {
		return nil, indexererrors.NewConvertError(p.Config.Processor, err)
	}
	return out, nil
}

// writeCompressed writes content through the configured compressor.
func (p *Pipeline) writeCompressed(output string, content []byte) error {
	f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, p.Effective.Mode)
	if err != nil {
		return indexererrors.NewIOError("create", output, err)
	}
	defer f.Close()

	w, err := textcompress.NewWriter(p.Config.Compression, f)
	if err != nil {
		return err
	}
	if _, err := w.Write(content); err != nil {
		return indexererrors.NewIOError("write", output, err)
	}
	return w.Close()
}

// describe builds the record's description: a normalized-and-truncated
// stand-in summary when summarization is configured, else a straight
// prefix of the text (§4.9 step 10). No pack example offers an offline
// extractive summarizer shaped for a plain target-length integer (the one
// summarizer in the corpus is an LLM HTTP middleware keyed by model name
// and API credentials, a mismatch for this config), so this normalizes
// whitespace and strips non-ASCII runes before truncating.
func describe(content []byte, summarize, fallback int) string {
	text := string(content)
	if summarize > 0 {
		normalized := normalize(text)
		return truncate(normalized, summarize)
	}
	return truncate(text, fallback)
}

func normalize(text string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range text {
		if r > unicode.MaxASCII {
			continue
		}
		if unicode.IsSpace(r) {
			if lastSpace {
				continue
			}
			lastSpace = true
			b.WriteRune(' ')
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func truncate(text string, limit int) string {
	if limit <= 0 || limit >= len(text) {
		return text
	}
	return text[:limit]
}

func (p *Pipeline) fail(file string, err error) {
	p.Policy.Fail("text", file, err)
}

func (p *Pipeline) emit(file, id string) {
	if p.Policy.Events != nil {
		p.Policy.Events.Emit("indexed:text", map[string]any{"id": id, "file": file, "at": time.Now().UnixMilli()})
	}
}
