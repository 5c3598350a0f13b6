package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndSetDefaultsFillsConcurrency(t *testing.T) {
	cfg := Default()
	cfg.Concurrency = 0
	cfg.Scanner.Concurrency = 0

	require.NoError(t, ValidateConfig(cfg))
	assert.Greater(t, cfg.Concurrency, 0)
	assert.Greater(t, cfg.Scanner.Concurrency, 0)
}

func TestValidateRejectsEmptyScanRoots(t *testing.T) {
	cfg := Default()
	cfg.Scan = nil

	err := ValidateConfig(cfg)
	require.Error(t, err)
}

func TestValidateRejectsBadCompression(t *testing.T) {
	cfg := Default()
	cfg.Types.Text.Compression = "zstd"

	err := ValidateConfig(cfg)
	require.Error(t, err)
}

func TestValidateRejectsInvertedImageBounds(t *testing.T) {
	cfg := Default()
	cfg.Types.Image.MinWidth = 100
	cfg.Types.Image.MaxWidth = 50

	err := ValidateConfig(cfg)
	require.Error(t, err)
}

func TestValidateRejectsNegativeMaxDepth(t *testing.T) {
	cfg := Default()
	cfg.Scanner.MaxDepth = -1

	err := ValidateConfig(cfg)
	require.Error(t, err)
}
