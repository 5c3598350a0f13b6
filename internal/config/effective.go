package config

import "os"

// EffectiveTypeConfig is the cascading-option resolution described in §9:
// per-type canSkip/delete/dropTags/mode/save/shasum/tagger fall back to the
// top-level Config value when the type block leaves them unset. Resolved
// once at startup so pipelines never re-derive it per file.
type EffectiveTypeConfig struct {
	CanSkip  bool
	Delete   bool
	DropTags bool
	Mode     os.FileMode
	Save     string
	Shasum   string
	Tagger   string
}

func resolveCommon(cfg *Config, tc TypeCommon) EffectiveTypeConfig {
	eff := EffectiveTypeConfig{
		CanSkip:  cfg.CanSkip,
		Delete:   cfg.Delete,
		DropTags: cfg.DropTags,
		Mode:     cfg.Mode,
		Save:     cfg.Save,
		Shasum:   cfg.Shasum,
		Tagger:   cfg.Tagger,
	}
	if tc.CanSkip != nil {
		eff.CanSkip = *tc.CanSkip
	}
	if tc.Delete != nil {
		eff.Delete = *tc.Delete
	}
	if tc.DropTags != nil {
		eff.DropTags = *tc.DropTags
	}
	if tc.Mode != nil {
		eff.Mode = *tc.Mode
	}
	if tc.Save != nil {
		eff.Save = *tc.Save
	}
	if tc.Shasum != nil {
		eff.Shasum = *tc.Shasum
	}
	if tc.Tagger != nil {
		eff.Tagger = *tc.Tagger
	}
	return eff
}

// ResolveImage computes the effective cascading options for the image type.
func ResolveImage(cfg *Config) EffectiveTypeConfig {
	return resolveCommon(cfg, cfg.Types.Image.TypeCommon)
}

// ResolveText computes the effective cascading options for the text type.
func ResolveText(cfg *Config) EffectiveTypeConfig {
	return resolveCommon(cfg, cfg.Types.Text.TypeCommon)
}

// ResolveVideo computes the effective cascading options for the video type.
func ResolveVideo(cfg *Config) EffectiveTypeConfig {
	return resolveCommon(cfg, cfg.Types.Video.TypeCommon)
}
