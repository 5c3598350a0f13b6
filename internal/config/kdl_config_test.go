package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKDL(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".indexer.kdl"), []byte(content), 0o644))
}

func TestLoadKDLMissingFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadKDLTopLevelFields(t *testing.T) {
	dir := t.TempDir()
	writeKDL(t, dir, `
concurrency 4
save "output"
shasum "sha256sum"
scan "a" "b"
mode "0600"
`)

	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, "output", cfg.Save)
	assert.Equal(t, "sha256sum", cfg.Shasum)
	assert.Equal(t, []string{"a", "b"}, cfg.Scan)
	assert.Equal(t, os.FileMode(0o600), cfg.Mode)
}

func TestLoadKDLScannerBlock(t *testing.T) {
	dir := t.TempDir()
	writeKDL(t, dir, `
scanner {
    exclude "**/.git/**" "**/secrets/**"
    persistent true
    rescan 2000
    maxDepth 3
    followSymlinks true
    watch true
}
`)

	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"**/.git/**", "**/secrets/**"}, cfg.Scanner.Exclude)
	assert.True(t, cfg.Scanner.Persistent)
	assert.Equal(t, 2000, cfg.Scanner.RescanMs)
	assert.Equal(t, 3, cfg.Scanner.MaxDepth)
	assert.True(t, cfg.Scanner.FollowSymlinks)
	assert.True(t, cfg.Scanner.Watch)
}

func TestLoadKDLTypesImageCascade(t *testing.T) {
	dir := t.TempDir()
	writeKDL(t, dir, `
delete false

types {
    image {
        enabled true
        delete true
        minimum {
            width 32
            height 32
        }
        maximum {
            width 4096
            height 4096
        }
    }
}
`)

	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Types.Image.MinWidth)
	assert.Equal(t, 4096, cfg.Types.Image.MaxWidth)
	require.NotNil(t, cfg.Types.Image.Delete)
	assert.True(t, *cfg.Types.Image.Delete)

	eff := ResolveImage(cfg)
	assert.True(t, eff.Delete)
	assert.False(t, ResolveText(cfg).Delete)
}

func TestLoadKDLServicesBlock(t *testing.T) {
	dir := t.TempDir()
	writeKDL(t, dir, `
services {
    database {
        url "file:run.db"
        collection "assets"
    }
    elastic {
        enabled true
        node "http://es:9200"
    }
}
`)

	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	assert.Equal(t, "file:run.db", cfg.Services.Database.URL)
	assert.Equal(t, "assets", cfg.Services.Database.Collection)
	assert.True(t, cfg.Services.Elastic.Enabled)
	assert.Equal(t, "http://es:9200", cfg.Services.Elastic.Node)
}

func TestParseSize(t *testing.T) {
	cases := map[string]int64{
		"10MB": 10 * 1024 * 1024,
		"1GB":  1024 * 1024 * 1024,
		"512":  512,
		"1KB":  1024,
	}
	for in, want := range cases {
		got, err := parseSize(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseMode(t *testing.T) {
	m, err := parseMode("0644")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), m)
}
