// Package metrics exposes the run's counters to an external scraper via
// Prometheus. It is purely observational: the core's own common.Stats
// counters remain the source of truth the pipelines and tests read back
// from (§7's "user-visible behavior"); Sync copies that authoritative
// state into gauges an operator can graph, it never drives decisions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mdbarr/indexer/internal/common"
)

// Metrics bundles the registry and every metric family the indexer
// populates, one registry per Metrics instance.
type Metrics struct {
	registry *prometheus.Registry

	byKind      *prometheus.GaugeVec
	converted   prometheus.Gauge
	duplicates  prometheus.Gauge
	skipped     prometheus.Gauge
	failed      prometheus.Gauge
	queueDepth  prometheus.Gauge
	activeSlots prometheus.Gauge
}

// New builds a Metrics instance with namespace "indexer" and registers its
// collectors against a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.byKind = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "indexer",
		Name:      "processed_total",
		Help:      "Files processed so far, by media kind (image/text/video).",
	}, []string{"kind"})

	m.converted = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "indexer", Name: "converted_total",
		Help: "Files that produced a new catalog record.",
	})
	m.duplicates = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "indexer", Name: "duplicates_total",
		Help: "Files that merged into an existing catalog record.",
	})
	m.skipped = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "indexer", Name: "skipped_total",
		Help: "Files skipped via the indexed-path cache.",
	})
	m.failed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "indexer", Name: "failed_total",
		Help: "Files that failed conversion.",
	})
	m.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "indexer", Name: "queue_depth",
		Help: "Scanned files currently waiting for a free slot.",
	})
	m.activeSlots = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "indexer", Name: "active_slots",
		Help: "Slots currently running a conversion.",
	})

	m.registry.MustRegister(m.byKind, m.converted, m.duplicates, m.skipped, m.failed, m.queueDepth, m.activeSlots)
	return m
}

// Sync copies a common.Stats snapshot into the exported gauges.
func (m *Metrics) Sync(snap common.Snapshot) {
	m.byKind.WithLabelValues("image").Set(float64(snap.Images))
	m.byKind.WithLabelValues("text").Set(float64(snap.Texts))
	m.byKind.WithLabelValues("video").Set(float64(snap.Videos))
	m.converted.Set(float64(snap.Converted))
	m.duplicates.Set(float64(snap.Duplicates))
	m.skipped.Set(float64(snap.Skipped))
	m.failed.Set(float64(snap.Failed))
}

// SetQueueDepth records the scanner's current backlog.
func (m *Metrics) SetQueueDepth(n int) { m.queueDepth.Set(float64(n)) }

// SetActiveSlots records how many slots are presently occupied.
func (m *Metrics) SetActiveSlots(n int) { m.activeSlots.Set(float64(n)) }

// Handler returns the HTTP handler a caller can mount to expose these
// metrics for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
