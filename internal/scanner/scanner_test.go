package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdbarr/indexer/internal/common"
	"github.com/mdbarr/indexer/internal/config"
)

func testTypes() config.TypesConfig {
	return config.TypesConfig{
		Image: config.ImageTypeConfig{TypeCommon: config.TypeCommon{Enabled: true, Pattern: `(?i)\.png$`}},
		Text:  config.TextTypeConfig{TypeCommon: config.TypeCommon{Enabled: true, Pattern: `(?i)\.txt$`}},
		Video: config.VideoTypeConfig{TypeCommon: config.TypeCommon{Enabled: true, Pattern: `(?i)\.mp4$`}},
	}
}

func testScannerConfig() config.ScannerConfig {
	return config.ScannerConfig{
		Concurrency:    2,
		Recursive:      true,
		Dotfiles:       false,
		MaxDepth:       64,
		FollowSymlinks: false,
	}
}

func drain(t *testing.T, s *Scanner) []Found {
	t.Helper()
	var found []Found
	done := make(chan struct{})
	go func() {
		for f := range s.Files {
			found = append(found, f)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out draining Files channel")
	}
	return found
}

func TestScannerClassifiesFilesByPattern(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.mp4"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.bin"), []byte("x"), 0o644))

	s, err := New(testScannerConfig(), testTypes(), common.NoopEvents{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Add(ctx, []string{dir}, 0)
	s.Wait(ctx)
	s.Close()

	found := drain(t, s)
	var kinds []string
	for _, f := range found {
		kinds = append(kinds, f.Kind)
	}
	sort.Strings(kinds)
	assert.Equal(t, []string{"image", "text", "video"}, kinds)
}

func TestScannerRespectsDotfilesOption(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.png"), []byte("x"), 0o644))

	s, err := New(testScannerConfig(), testTypes(), common.NoopEvents{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Add(ctx, []string{dir}, 0)
	s.Wait(ctx)
	s.Close()

	found := drain(t, s)
	assert.Empty(t, found)
}

func TestScannerSkipsNonRecursiveSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "nested.png"), []byte("x"), 0o644))

	cfg := testScannerConfig()
	cfg.Recursive = false

	s, err := New(cfg, testTypes(), common.NoopEvents{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Add(ctx, []string{dir}, 0)
	s.Wait(ctx)
	s.Close()

	found := drain(t, s)
	assert.Empty(t, found)
}

func TestScannerDoesNotRevisitSeenDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("x"), 0o644))

	s, err := New(testScannerConfig(), testTypes(), common.NoopEvents{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Add(ctx, []string{dir, dir}, 0)
	s.Wait(ctx)
	s.Close()

	found := drain(t, s)
	assert.Len(t, found, 1)
}

func TestScannerGlobalExcludePrunesDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "node_modules")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.png"), []byte("x"), 0o644))

	cfg := testScannerConfig()
	cfg.Exclude = []string{"**/node_modules/**", filepath.ToSlash(sub)}

	s, err := New(cfg, testTypes(), common.NoopEvents{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Add(ctx, []string{dir}, 0)
	s.Wait(ctx)
	s.Close()

	found := drain(t, s)
	assert.Empty(t, found)
}

// TestScannerWaitDrainsNestedSubdirectoriesBeforeClose pins down the fix
// for the one-shot path: a recursive root with several levels of nested
// subdirectories means workers are still re-enqueuing discovered
// subdirectories well after Add returns. Without Wait, Close would race
// those in-flight sends against closing the queue.
func TestScannerWaitDrainsNestedSubdirectoriesBeforeClose(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		nested := filepath.Join(dir, "a", "b", "c", strconv.Itoa(i))
		require.NoError(t, os.MkdirAll(nested, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(nested, "f.png"), []byte("x"), 0o644))
	}

	s, err := New(testScannerConfig(), testTypes(), common.NoopEvents{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Add(ctx, []string{dir}, 0)
	// 20 files exceed the Files buffer, so Files is drained while Wait runs.
	go func() {
		s.Wait(ctx)
		s.Close()
	}()

	found := drain(t, s)
	assert.Len(t, found, 20)
}

// TestScannerWaitReturnsOnContextCancellation ensures Wait does not block
// forever if the run is cancelled mid-scan instead of completing.
func TestScannerWaitReturnsOnContextCancellation(t *testing.T) {
	s, err := New(testScannerConfig(), testTypes(), common.NoopEvents{})
	require.NoError(t, err)
	s.pending = 1 // simulate outstanding work that never completes

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Wait(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}
