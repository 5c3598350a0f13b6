package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration from a .indexer.kdl file rooted at
// projectRoot. Returns (nil, nil) when no document is present, in which case
// the caller falls back to Default().
func LoadKDL(projectRoot string) (*Config, error) {
	kdlPath := filepath.Join(projectRoot, ".indexer.kdl")

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read .indexer.kdl: %w", err)
	}

	return parseKDL(string(content))
}

// parseKDL overlays a KDL document onto the built-in defaults so an
// incomplete document still produces a runnable configuration.
func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "concurrency":
			if v, ok := firstIntArg(n); ok {
				cfg.Concurrency = v
			}
		case "cache":
			if s, ok := firstStringArg(n); ok {
				cfg.Cache = s
			}
		case "canSkip":
			if b, ok := firstBoolArg(n); ok {
				cfg.CanSkip = b
			}
		case "delete":
			if b, ok := firstBoolArg(n); ok {
				cfg.Delete = b
			}
		case "dropTags":
			if b, ok := firstBoolArg(n); ok {
				cfg.DropTags = b
			}
		case "mode":
			if s, ok := firstStringArg(n); ok {
				if m, err := parseMode(s); err == nil {
					cfg.Mode = m
				}
			}
		case "save":
			if s, ok := firstStringArg(n); ok {
				cfg.Save = s
			}
		case "scan":
			if paths := collectStringArgs(n); len(paths) > 0 {
				cfg.Scan = paths
			}
		case "shasum":
			if s, ok := firstStringArg(n); ok {
				cfg.Shasum = s
			}
		case "tagger":
			if s, ok := firstStringArg(n); ok {
				cfg.Tagger = s
			}
		case "scanner":
			parseScannerBlock(n, &cfg.Scanner)
		case "services":
			parseServicesBlock(n, &cfg.Services)
		case "types":
			parseTypesBlock(n, &cfg.Types)
		}
	}

	return cfg, nil
}

func parseScannerBlock(n *document.Node, s *ScannerConfig) {
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "exclude":
			if v := collectStringArgs(cn); len(v) > 0 {
				s.Exclude = v
			}
		case "persistent":
			if b, ok := firstBoolArg(cn); ok {
				s.Persistent = b
			}
		case "rescan":
			if v, ok := firstIntArg(cn); ok {
				s.RescanMs = v
			}
		case "sort":
			if b, ok := firstBoolArg(cn); ok {
				s.Sort = b
			}
		case "concurrency":
			if v, ok := firstIntArg(cn); ok {
				s.Concurrency = v
			}
		case "recursive":
			if b, ok := firstBoolArg(cn); ok {
				s.Recursive = b
			}
		case "dotfiles":
			if b, ok := firstBoolArg(cn); ok {
				s.Dotfiles = b
			}
		case "maxDepth":
			if v, ok := firstIntArg(cn); ok {
				s.MaxDepth = v
			}
		case "followSymlinks":
			if b, ok := firstBoolArg(cn); ok {
				s.FollowSymlinks = b
			}
		case "watch":
			if b, ok := firstBoolArg(cn); ok {
				s.Watch = b
			}
		}
	}
}

func parseServicesBlock(n *document.Node, s *ServicesConfig) {
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "database":
			for _, dn := range cn.Children {
				switch nodeName(dn) {
				case "url":
					if v, ok := firstStringArg(dn); ok {
						s.Database.URL = v
					}
				case "collection":
					if v, ok := firstStringArg(dn); ok {
						s.Database.Collection = v
					}
				}
			}
		case "elastic":
			for _, en := range cn.Children {
				switch nodeName(en) {
				case "enabled":
					if v, ok := firstBoolArg(en); ok {
						s.Elastic.Enabled = v
					}
				case "node":
					if v, ok := firstStringArg(en); ok {
						s.Elastic.Node = v
					}
				}
			}
		}
	}
}

func parseTypesBlock(n *document.Node, t *TypesConfig) {
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "image":
			parseImageBlock(cn, &t.Image)
		case "text":
			parseTextBlock(cn, &t.Text)
		case "video":
			parseVideoBlock(cn, &t.Video)
		}
	}
}

func parseTypeCommon(n *document.Node, tc *TypeCommon) {
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "enabled":
			if b, ok := firstBoolArg(cn); ok {
				tc.Enabled = b
			}
		case "pattern":
			if s, ok := firstStringArg(cn); ok {
				tc.Pattern = s
			}
		case "exclude":
			if v := collectStringArgs(cn); len(v) > 0 {
				tc.Exclude = v
			}
		case "canSkip":
			if b, ok := firstBoolArg(cn); ok {
				tc.CanSkip = &b
			}
		case "delete":
			if b, ok := firstBoolArg(cn); ok {
				tc.Delete = &b
			}
		case "dropTags":
			if b, ok := firstBoolArg(cn); ok {
				tc.DropTags = &b
			}
		case "mode":
			if s, ok := firstStringArg(cn); ok {
				if m, err := parseMode(s); err == nil {
					tc.Mode = &m
				}
			}
		case "save":
			if s, ok := firstStringArg(cn); ok {
				tc.Save = &s
			}
		case "shasum":
			if s, ok := firstStringArg(cn); ok {
				tc.Shasum = &s
			}
		case "tagger":
			if s, ok := firstStringArg(cn); ok {
				tc.Tagger = &s
			}
		}
	}
}

func parseImageBlock(n *document.Node, img *ImageTypeConfig) {
	parseTypeCommon(n, &img.TypeCommon)
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "minimum":
			for _, mn := range cn.Children {
				switch nodeName(mn) {
				case "width":
					if v, ok := firstIntArg(mn); ok {
						img.MinWidth = v
					}
				case "height":
					if v, ok := firstIntArg(mn); ok {
						img.MinHeight = v
					}
				}
			}
		case "maximum":
			for _, mn := range cn.Children {
				switch nodeName(mn) {
				case "width":
					if v, ok := firstIntArg(mn); ok {
						img.MaxWidth = v
					}
				case "height":
					if v, ok := firstIntArg(mn); ok {
						img.MaxHeight = v
					}
				}
			}
		case "thumbnailFormat":
			if s, ok := firstStringArg(cn); ok {
				img.ThumbnailFormat = s
			}
		case "thumbnailTemplate":
			if s, ok := firstStringArg(cn); ok {
				img.ThumbnailTemplate = s
			}
		case "previewTemplate":
			if s, ok := firstStringArg(cn); ok {
				img.PreviewTemplate = s
			}
		}
	}
}

func parseTextBlock(n *document.Node, txt *TextTypeConfig) {
	parseTypeCommon(n, &txt.TypeCommon)
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "minimum":
			if v, ok := firstIntArg(cn); ok {
				txt.MinSize = int64(v)
			} else if s, ok := firstStringArg(cn); ok {
				if sz, err := parseSize(s); err == nil {
					txt.MinSize = sz
				}
			}
		case "maximum":
			if v, ok := firstIntArg(cn); ok {
				txt.MaxSize = int64(v)
			} else if s, ok := firstStringArg(cn); ok {
				if sz, err := parseSize(s); err == nil {
					txt.MaxSize = sz
				}
			}
		case "compression":
			if s, ok := firstStringArg(cn); ok {
				txt.Compression = s
			}
		case "summarize":
			if v, ok := firstIntArg(cn); ok {
				txt.Summarize = v
			}
		case "summaryFallback":
			if v, ok := firstIntArg(cn); ok {
				txt.SummaryFallback = v
			}
		case "processor":
			if s, ok := firstStringArg(cn); ok {
				txt.Processor = s
			}
		}
	}
}

func parseVideoBlock(n *document.Node, v *VideoTypeConfig) {
	parseTypeCommon(n, &v.TypeCommon)
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "format":
			if s, ok := firstStringArg(cn); ok {
				v.Format = s
			}
		case "convertTemplate":
			if s, ok := firstStringArg(cn); ok {
				v.ConvertTemplate = s
			}
		case "thumbnailTemplate":
			if s, ok := firstStringArg(cn); ok {
				v.ThumbnailTemplate = s
			}
		case "thumbnailFormat":
			if s, ok := firstStringArg(cn); ok {
				v.ThumbnailFormat = s
			}
		case "previewTemplate":
			if s, ok := firstStringArg(cn); ok {
				v.PreviewTemplate = s
			}
		case "previewDuration":
			if i, ok := firstIntArg(cn); ok {
				v.PreviewDuration = i
			}
		case "subtitleTemplate":
			if s, ok := firstStringArg(cn); ok {
				v.SubtitleTemplate = s
			}
		case "subtitleFallbackTemplate":
			if s, ok := firstStringArg(cn); ok {
				v.SubtitleFallbackTemplate = s
			}
		case "subtitleFormat":
			if s, ok := firstStringArg(cn); ok {
				v.SubtitleFormat = s
			}
		case "subtitlesToDescription":
			if b, ok := firstBoolArg(cn); ok {
				v.SubtitlesToDescription = b
			}
		case "subtitlesIndex":
			if s, ok := firstStringArg(cn); ok {
				v.SubtitlesIndex = s
			}
		case "language":
			if s, ok := firstStringArg(cn); ok {
				v.Language = s
			}
		case "checkSound":
			if b, ok := firstBoolArg(cn); ok {
				v.CheckSound = b
			}
		case "soundTemplate":
			if s, ok := firstStringArg(cn); ok {
				v.SoundTemplate = s
			}
		case "soundThreshold":
			if f, ok := firstFloatArg(cn); ok {
				v.SoundThreshold = f
			}
		case "thumbnailTime":
			if f, ok := firstFloatArg(cn); ok {
				v.ThumbnailTime = f
			}
		}
	}
}

// parseMode parses an octal file-mode string like "0644" or "644".
func parseMode(s string) (os.FileMode, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0o"), 8, 32)
	if err != nil {
		return 0, err
	}
	return os.FileMode(v), nil
}

// parseSize handles size strings like "10MB", "500KB", "1GB".
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		multiplier = 1
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, err
	}

	return num * multiplier, nil
}

// Helper functions over the kdl-go document model.
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}
