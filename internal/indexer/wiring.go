package indexer

import (
	"github.com/mdbarr/indexer/internal/common"
	"github.com/mdbarr/indexer/internal/config"
	"github.com/mdbarr/indexer/internal/hasher"
	"github.com/mdbarr/indexer/internal/pipeline/image"
	"github.com/mdbarr/indexer/internal/pipeline/text"
	"github.com/mdbarr/indexer/internal/pipeline/video"
	"github.com/mdbarr/indexer/internal/searchindex"
	"github.com/mdbarr/indexer/internal/slotpool"
)

// Default external tool binaries for the two probes that have no
// corresponding config field (§6 lists `shasum` as configurable but treats
// identify/ffprobe as fixed collaborators of the image/video pipelines).
const (
	defaultIdentifyBin = "identify"
	defaultProbeBin    = "ffprobe"
)

// deletePredicate turns the resolved boolean Delete option into the
// common.DeletePredicate the policy layer expects.
func deletePredicate(enabled bool) common.DeletePredicate {
	if enabled {
		return common.AlwaysDelete
	}
	return common.NeverDelete
}

func (ix *Indexer) newPolicy(eff config.EffectiveTypeConfig) *common.Policy {
	return &common.Policy{
		Store:    ix.Catalog,
		Indexed:  ix.Indexed,
		Stats:    ix.Stats,
		Events:   ix.events,
		CanSkip:  eff.CanSkip,
		Delete:   deletePredicate(eff.Delete),
		DropTags: eff.DropTags,
		Tagger:   eff.Tagger,
	}
}

func (ix *Indexer) buildPipelines() map[string]slotpool.Pipeline {
	cfg := ix.Config

	imgEff := config.ResolveImage(cfg)
	textEff := config.ResolveText(cfg)
	videoEff := config.ResolveVideo(cfg)

	imagePipeline := &image.Pipeline{
		Policy:    ix.newPolicy(imgEff),
		Effective: imgEff,
		Config:    cfg.Types.Image,
		Hasher:    hasher.New(imgEff.Shasum),
		Search:    ix.searchFor(cfg.Types.Image.Enabled),
		Identify:  defaultIdentifyBin,
	}

	textPipeline := &text.Pipeline{
		Policy:    ix.newPolicy(textEff),
		Effective: textEff,
		Config:    cfg.Types.Text,
		Hasher:    hasher.New(textEff.Shasum),
		Search:    ix.searchFor(cfg.Types.Text.Enabled),
	}

	videoPipeline := &video.Pipeline{
		Policy:    ix.newPolicy(videoEff),
		Effective: videoEff,
		Config:    cfg.Types.Video,
		Hasher:    hasher.New(videoEff.Shasum),
		Search:    ix.searchFor(cfg.Types.Video.Enabled),
		UI:        ix.UI,
		Probe:     defaultProbeBin,
	}

	return map[string]slotpool.Pipeline{
		"image": imagePipeline.Convert,
		"text":  textPipeline.Convert,
		"video": videoPipeline.Convert,
	}
}

// searchFor returns the configured search backend for an enabled type, or
// nil when the type is disabled — pipelines already treat a nil Search as
// "no search index configured" (§4.4 "disabled cleanly when not configured").
func (ix *Indexer) searchFor(typeEnabled bool) searchindex.SearchIndex {
	if !typeEnabled {
		return nil
	}
	return ix.Search
}
