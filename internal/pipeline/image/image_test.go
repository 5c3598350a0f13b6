package image

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdbarr/indexer/internal/common"
	"github.com/mdbarr/indexer/internal/config"
	"github.com/mdbarr/indexer/internal/hasher"
	"github.com/mdbarr/indexer/internal/slotpool"
)

// fakeStore is the same minimal RecordStore double used by the policy
// package's own tests, reproduced here to keep this package's tests free
// of a dependency on common's test file.
type fakeStore struct {
	records map[string]*common.Record
}

func newFakeStore() *fakeStore { return &fakeStore{records: map[string]*common.Record{}} }

func (f *fakeStore) Lookup(_ context.Context, key string) (*common.Record, error) {
	return f.records[key], nil
}
func (f *fakeStore) Insert(_ context.Context, r *common.Record) error {
	f.records[r.ID] = r
	return nil
}
func (f *fakeStore) Replace(_ context.Context, id string, r *common.Record) error {
	f.records[id] = r
	return nil
}

type recordingEvents struct {
	events []string
}

func (r *recordingEvents) Emit(event string, _ map[string]any) {
	r.events = append(r.events, event)
}

// writeFakeShasum stands in for the external fingerprinting tool.
func writeFakeShasum(t *testing.T, fingerprint string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fakesum")
	script := "#!/bin/sh\necho " + fingerprint + " \"$1\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// writeFakeIdentify stands in for ImageMagick's identify -verbose, always
// reporting the given geometry regardless of the file it is pointed at.
func writeFakeIdentify(t *testing.T, geometry string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fakeidentify")
	script := "#!/bin/sh\necho \"$2\"\necho \"  Geometry: " + geometry + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// writeFakeConvert stands in for ImageMagick's convert: it just copies its
// first argument to its second, ignoring the rest of the template.
func writeFakeConvert(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fakeconvert")
	script := "#!/bin/sh\ncp \"$1\" \"$2\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func testPolicy() (*common.Policy, *fakeStore, *recordingEvents) {
	store := newFakeStore()
	events := &recordingEvents{}
	return &common.Policy{
		Store:    store,
		Indexed:  common.NewIndexedSet(),
		Stats:    &common.Stats{},
		Events:   events,
		CanSkip:  false,
		Delete:   common.NeverDelete,
		DropTags: true,
	}, store, events
}

func runConvert(t *testing.T, p *Pipeline, file string) {
	t.Helper()
	pool := slotpool.New(1, map[string]slotpool.Pipeline{"image": p.Convert}, nil, p.Policy.Stats)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	require.True(t, pool.Enqueue(ctx, slotpool.Item{Kind: "image", File: file}))
	pool.Close()
}

func baseImageConfig(saveRoot, thumbnailBin, previewBin string) (config.ImageTypeConfig, config.EffectiveTypeConfig) {
	cfg := config.ImageTypeConfig{
		MinWidth: 0, MinHeight: 0,
		MaxWidth: 10000, MaxHeight: 10000,
		ThumbnailFormat:   "jpg",
		ThumbnailTemplate: thumbnailBin + " $input $output $geometry",
		PreviewTemplate:   previewBin + " $input $output",
	}
	eff := config.EffectiveTypeConfig{
		CanSkip:  false,
		Delete:   false,
		DropTags: true,
		Mode:     0o644,
		Save:     saveRoot,
	}
	return cfg, eff
}

func TestConvertBuildsRecordAndThumbnail(t *testing.T) {
	src := t.TempDir()
	file := filepath.Join(src, "photo.png")
	require.NoError(t, os.WriteFile(file, []byte("pretend-png"), 0o644))

	saveRoot := filepath.Join(t.TempDir(), "save")

	policy, store, events := testPolicy()
	cfg, eff := baseImageConfig(saveRoot, writeFakeConvert(t), writeFakeConvert(t))

	p := &Pipeline{
		Policy:    policy,
		Effective: eff,
		Config:    cfg,
		Hasher:    hasher.New(writeFakeShasum(t, "0123456789abcdef")),
		Identify:  writeFakeIdentify(t, "200x100+0+0"),
	}

	runConvert(t, p, file)

	rec, ok := store.records["0123456789abcdef"]
	require.True(t, ok)
	assert.Equal(t, "photo", rec.Name)
	assert.Equal(t, 200, rec.Width)
	assert.Equal(t, 100, rec.Height)
	assert.InDelta(t, 2.0, rec.Aspect, 0.0001)
	assert.Equal(t, []string{"0123456789abcdef"}, rec.Sources)
	assert.Len(t, rec.Metadata.Occurrences, 1)
	assert.Equal(t, file, rec.Metadata.Occurrences[0].File)

	output := filepath.Join(saveRoot, "01", "23456789abcdef.png")
	thumbnail := filepath.Join(saveRoot, "01", "23456789abcdefp.jpg")
	assert.FileExists(t, output)
	assert.FileExists(t, thumbnail)
	assert.Empty(t, rec.Preview)

	assert.Equal(t, int64(1), policy.Stats.Snapshot().Images)
	assert.Equal(t, int64(1), policy.Stats.Snapshot().Converted)
	assert.Contains(t, events.events, "indexed:image")

	// source untouched, since Effective.Delete is false
	assert.FileExists(t, file)
}

func TestConvertBuildsAnimatedPreviewForGIF(t *testing.T) {
	src := t.TempDir()
	file := filepath.Join(src, "anim.gif")
	require.NoError(t, os.WriteFile(file, []byte("pretend-gif"), 0o644))

	saveRoot := filepath.Join(t.TempDir(), "save")

	policy, store, _ := testPolicy()
	cfg, eff := baseImageConfig(saveRoot, writeFakeConvert(t), writeFakeConvert(t))

	p := &Pipeline{
		Policy:    policy,
		Effective: eff,
		Config:    cfg,
		Hasher:    hasher.New(writeFakeShasum(t, "fedcba9876543210")),
		Identify:  writeFakeIdentify(t, "64x64+0+0"),
	}

	runConvert(t, p, file)

	rec, ok := store.records["fedcba9876543210"]
	require.True(t, ok)
	assert.NotEmpty(t, rec.Preview)

	preview := filepath.Join(saveRoot, "fe", "dcba9876543210p.gif")
	assert.FileExists(t, preview)
}

func TestConvertSkipsPreviouslyIndexedFile(t *testing.T) {
	src := t.TempDir()
	file := filepath.Join(src, "photo.png")
	require.NoError(t, os.WriteFile(file, []byte("pretend-png"), 0o644))

	policy, store, _ := testPolicy()
	policy.CanSkip = true
	policy.Indexed.Add(file)

	cfg, eff := baseImageConfig(t.TempDir(), writeFakeConvert(t), writeFakeConvert(t))
	eff.CanSkip = true

	p := &Pipeline{Policy: policy, Effective: eff, Config: cfg}

	runConvert(t, p, file)

	assert.Empty(t, store.records)
	assert.Equal(t, int64(1), policy.Stats.Snapshot().Skipped)
}

func TestConvertMergesIntoExistingCatalogRecord(t *testing.T) {
	src := t.TempDir()
	file := filepath.Join(src, "photo.png")
	require.NoError(t, os.WriteFile(file, []byte("pretend-png"), 0o644))

	policy, store, _ := testPolicy()
	existing := &common.Record{ID: "dupid00000000000", Hash: "dupid00000000000", Sources: []string{"dupid00000000000"}}
	store.records["dupid00000000000"] = existing

	cfg, eff := baseImageConfig(t.TempDir(), writeFakeConvert(t), writeFakeConvert(t))

	p := &Pipeline{
		Policy:    policy,
		Effective: eff,
		Config:    cfg,
		Hasher:    hasher.New(writeFakeShasum(t, "dupid00000000000")),
		Identify:  writeFakeIdentify(t, "50x50+0+0"),
	}

	runConvert(t, p, file)

	assert.Len(t, existing.Metadata.Occurrences, 1)
	assert.Equal(t, file, existing.Metadata.Occurrences[0].File)
	assert.Equal(t, int64(1), policy.Stats.Snapshot().Duplicates)
	assert.Equal(t, int64(0), policy.Stats.Snapshot().Converted)
}

func TestConvertRejectsImageBelowSizeThreshold(t *testing.T) {
	src := t.TempDir()
	file := filepath.Join(src, "tiny.png")
	require.NoError(t, os.WriteFile(file, []byte("pretend-png"), 0o644))

	policy, store, _ := testPolicy()
	cfg, eff := baseImageConfig(t.TempDir(), writeFakeConvert(t), writeFakeConvert(t))
	cfg.MinWidth = 500

	p := &Pipeline{
		Policy:    policy,
		Effective: eff,
		Config:    cfg,
		Hasher:    hasher.New(writeFakeShasum(t, "toosmall000000000")),
		Identify:  writeFakeIdentify(t, "10x10+0+0"),
	}

	runConvert(t, p, file)

	assert.Empty(t, store.records)
	assert.Equal(t, int64(0), policy.Stats.Snapshot().Converted)
	assert.Equal(t, int64(0), policy.Stats.Snapshot().Failed)
}

func TestConvertDeletesSourceWhenConfigured(t *testing.T) {
	src := t.TempDir()
	file := filepath.Join(src, "photo.png")
	require.NoError(t, os.WriteFile(file, []byte("pretend-png"), 0o644))

	saveRoot := filepath.Join(t.TempDir(), "save")
	policy, _, _ := testPolicy()
	cfg, eff := baseImageConfig(saveRoot, writeFakeConvert(t), writeFakeConvert(t))
	eff.Delete = true

	p := &Pipeline{
		Policy:    policy,
		Effective: eff,
		Config:    cfg,
		Hasher:    hasher.New(writeFakeShasum(t, "deleteme0000000000")),
		Identify:  writeFakeIdentify(t, "30x30+0+0"),
	}

	runConvert(t, p, file)

	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err))
}

func TestIdentifyAndConvertTimestampsAreRecent(t *testing.T) {
	src := t.TempDir()
	file := filepath.Join(src, "photo.png")
	require.NoError(t, os.WriteFile(file, []byte("pretend-png"), 0o644))

	policy, store, _ := testPolicy()
	cfg, eff := baseImageConfig(t.TempDir(), writeFakeConvert(t), writeFakeConvert(t))

	p := &Pipeline{
		Policy:    policy,
		Effective: eff,
		Config:    cfg,
		Hasher:    hasher.New(writeFakeShasum(t, "recentcheck0000000")),
		Identify:  writeFakeIdentify(t, "40x40+0+0"),
	}

	before := time.Now().UnixMilli()
	runConvert(t, p, file)
	rec := store.records["recentcheck0000000"]
	require.NotNil(t, rec)
	assert.GreaterOrEqual(t, rec.Metadata.Added, before)
	assert.GreaterOrEqual(t, rec.Metadata.Updated, before)
}
