// Package config loads and validates the indexer's configuration: the
// top-level options from spec §6, the scanner/services blocks, and the
// per-type (image/text/video) blocks with their cascading overrides.
package config

import (
	"os"
	"runtime"
)

// Config is the fully-loaded, pre-validation configuration tree. Top-level
// fields double as the defaults that per-type blocks cascade from (§9).
type Config struct {
	Concurrency int
	Cache       string // "" or "off" disables the indexed-path cache
	CanSkip     bool
	Delete      bool
	DropTags    bool
	Mode        os.FileMode
	Save        string
	Scan        []string
	Shasum      string
	Tagger      string // optional hook command; empty disables

	Scanner  ScannerConfig
	Services ServicesConfig
	Types    TypesConfig
}

// ScannerConfig controls directory-walk behavior (§4.5).
type ScannerConfig struct {
	Exclude        []string
	Persistent     bool
	RescanMs       int
	Sort           bool
	Concurrency    int
	Recursive      bool
	Dotfiles       bool
	MaxDepth       int
	FollowSymlinks bool
	Watch          bool // supplemental fsnotify low-latency mode
}

// ServicesConfig configures the Catalog and SearchIndex backends.
type ServicesConfig struct {
	Database DatabaseConfig
	Elastic  ElasticConfig
}

type DatabaseConfig struct {
	URL        string
	Collection string
}

type ElasticConfig struct {
	Enabled bool
	Node    string
}

// TypesConfig groups the three media-kind blocks.
type TypesConfig struct {
	Image ImageTypeConfig
	Text  TextTypeConfig
	Video VideoTypeConfig
}

// TypeCommon holds the fields every type block shares, including the
// cascading overrides named in §9: unset (nil) fields resolve to the
// top-level Config value at startup via EffectiveTypeConfig.
type TypeCommon struct {
	Enabled bool
	Pattern string
	Exclude []string

	CanSkip  *bool
	Delete   *bool
	DropTags *bool
	Mode     *os.FileMode
	Save     *string
	Shasum   *string
	Tagger   *string
}

type ImageTypeConfig struct {
	TypeCommon

	MinWidth  int
	MinHeight int
	MaxWidth  int
	MaxHeight int

	ThumbnailFormat   string
	ThumbnailTemplate string
	PreviewTemplate   string // animated preview, used only for gif sources
}

type TextTypeConfig struct {
	TypeCommon

	MinSize int64
	MaxSize int64 // 0 means no maximum

	Compression     string // "none", "brotli", "gzip"
	Summarize       int    // summarizer target length; 0 disables
	SummaryFallback int    // description length when summarize is disabled
	Processor       string // optional text-rewrite hook
}

type VideoTypeConfig struct {
	TypeCommon

	Format string

	ConvertTemplate   string
	ThumbnailTemplate string
	ThumbnailFormat   string
	PreviewTemplate   string
	PreviewDuration   int

	SubtitleTemplate         string
	SubtitleFallbackTemplate string
	SubtitleFormat           string
	SubtitlesToDescription   bool
	SubtitlesIndex           string
	Language                 string

	CheckSound     bool
	SoundTemplate  string
	SoundThreshold float64

	ThumbnailTime float64
}

// Load reads the KDL config rooted at projectRoot, falling back to built-in
// defaults for anything the document does not set.
func Load(projectRoot string) (*Config, error) {
	cfg := Default()

	kdlCfg, err := LoadKDL(projectRoot)
	if err != nil {
		return nil, err
	}
	if kdlCfg != nil {
		cfg = kdlCfg
	}

	return cfg, nil
}

// Default returns the built-in configuration used when no KDL document is
// present, or as the base that a KDL document is parsed on top of.
func Default() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	return &Config{
		Concurrency: runtime.NumCPU(),
		Cache:       "",
		CanSkip:     true,
		Delete:      false,
		DropTags:    false,
		Mode:        0o644,
		Save:        "save",
		Scan:        []string{cwd},
		Shasum:      "shasum",

		Scanner: ScannerConfig{
			Exclude:        []string{"**/.git/**", "**/node_modules/**"},
			Persistent:     false,
			RescanMs:       0,
			Sort:           false,
			Concurrency:    runtime.NumCPU(),
			Recursive:      true,
			Dotfiles:       false,
			MaxDepth:       64,
			FollowSymlinks: false,
			Watch:          false,
		},

		Services: ServicesConfig{
			Database: DatabaseConfig{
				URL:        "file:catalog.db",
				Collection: "records",
			},
			Elastic: ElasticConfig{
				Enabled: false,
				Node:    "http://localhost:9200",
			},
		},

		Types: TypesConfig{
			Image: ImageTypeConfig{
				TypeCommon: TypeCommon{
					Enabled: true,
					Pattern: `(?i)\.(jpe?g|png|gif|webp|bmp|tiff?)$`,
				},
				MinWidth:          16,
				MinHeight:         16,
				MaxWidth:          16384,
				MaxHeight:         16384,
				ThumbnailFormat:   "jpg",
				ThumbnailTemplate: "convert $input -thumbnail $geometry $output",
				PreviewTemplate:   "convert $input -coalesce -layers optimize $output",
			},
			Text: TextTypeConfig{
				TypeCommon: TypeCommon{
					Enabled: true,
					Pattern: `(?i)\.(txt|md|json|csv|log|ya?ml|xml)$`,
				},
				MinSize:         1,
				MaxSize:         50 * 1024 * 1024,
				Compression:     "brotli",
				Summarize:       0,
				SummaryFallback: 280,
			},
			Video: VideoTypeConfig{
				TypeCommon: TypeCommon{
					Enabled: true,
					Pattern: `(?i)\.(mp4|mov|mkv|avi|webm|m4v)$`,
				},
				Format:                   "mp4",
				ConvertTemplate:          "ffmpeg -y -i $input -c:v libx264 -c:a aac $output",
				ThumbnailTemplate:        "ffmpeg -y -ss $time -i $input -frames:v 1 $output",
				ThumbnailFormat:          "jpg",
				PreviewTemplate:          "ffmpeg -y -i $input -vf select='not(mod(n\\,$interval))' -vsync vfr $output",
				PreviewDuration:          10,
				SubtitleTemplate:         "ffmpeg -y -i $input -map 0:s:0 -c:s srt $output",
				SubtitleFallbackTemplate: "ffmpeg -y -i $input -map 0:s:0? -f srt $output",
				SubtitleFormat:           "srt",
				SubtitlesToDescription:   true,
				SubtitlesIndex:           "subtitles",
				CheckSound:               true,
				SoundTemplate:            "ffmpeg -i $input -af volumedetect -f null -",
				SoundThreshold:           -50.0,
				ThumbnailTime:            3.0,
			},
		},
	}
}
