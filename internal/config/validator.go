package config

import (
	"fmt"
	"runtime"

	indexererrors "github.com/mdbarr/indexer/internal/errors"
)

// Validator validates configuration and sets smart defaults, matching the
// same shape as the rest of the config package: range checks first, then a
// single defaulting pass.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateTop(cfg); err != nil {
		return indexererrors.NewConfigError("root", "", err)
	}
	if err := v.validateScanner(&cfg.Scanner); err != nil {
		return indexererrors.NewConfigError("scanner", "", err)
	}
	if err := v.validateTypes(&cfg.Types); err != nil {
		return indexererrors.NewConfigError("types", "", err)
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateTop(cfg *Config) error {
	if cfg.Concurrency < 0 {
		return fmt.Errorf("concurrency cannot be negative, got %d", cfg.Concurrency)
	}
	if len(cfg.Scan) == 0 {
		return fmt.Errorf("scan must name at least one root")
	}
	if cfg.Save == "" {
		return fmt.Errorf("save path cannot be empty")
	}
	if cfg.Shasum == "" {
		return fmt.Errorf("shasum executable cannot be empty")
	}
	return nil
}

func (v *Validator) validateScanner(s *ScannerConfig) error {
	if s.Concurrency < 0 {
		return fmt.Errorf("scanner.concurrency cannot be negative, got %d", s.Concurrency)
	}
	if s.MaxDepth < 0 {
		return fmt.Errorf("scanner.maxDepth cannot be negative, got %d", s.MaxDepth)
	}
	if s.RescanMs < 0 {
		return fmt.Errorf("scanner.rescan cannot be negative, got %d", s.RescanMs)
	}
	return nil
}

func (v *Validator) validateTypes(t *TypesConfig) error {
	if t.Image.MinWidth < 0 || t.Image.MinHeight < 0 {
		return fmt.Errorf("types.image minimum dimensions cannot be negative")
	}
	if t.Image.MaxWidth > 0 && t.Image.MaxWidth < t.Image.MinWidth {
		return fmt.Errorf("types.image maximum.width must be >= minimum.width")
	}
	if t.Image.MaxHeight > 0 && t.Image.MaxHeight < t.Image.MinHeight {
		return fmt.Errorf("types.image maximum.height must be >= minimum.height")
	}
	if t.Text.MinSize < 0 {
		return fmt.Errorf("types.text minimum size cannot be negative")
	}
	if t.Text.MaxSize > 0 && t.Text.MaxSize < t.Text.MinSize {
		return fmt.Errorf("types.text maximum size must be >= minimum size")
	}
	switch t.Text.Compression {
	case "", "none", "brotli", "gzip":
	default:
		return fmt.Errorf("types.text.compression must be one of none|brotli|gzip, got %q", t.Text.Compression)
	}
	if t.Video.PreviewDuration < 0 {
		return fmt.Errorf("types.video.previewDuration cannot be negative")
	}
	if t.Video.ThumbnailTime < 0 {
		return fmt.Errorf("types.video.thumbnailTime cannot be negative")
	}
	return nil
}

// setSmartDefaults fills in zero-valued fields that have a sensible runtime
// default rather than a fixed one.
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Concurrency == 0 {
		cfg.Concurrency = max(1, runtime.NumCPU()-1)
	}
	if cfg.Scanner.Concurrency == 0 {
		cfg.Scanner.Concurrency = max(1, runtime.NumCPU()-1)
	}
	if cfg.Mode == 0 {
		cfg.Mode = 0o644
	}
	if cfg.Types.Text.SummaryFallback == 0 {
		cfg.Types.Text.SummaryFallback = 280
	}
}

// ValidateConfig is a convenience function for quick validation.
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
