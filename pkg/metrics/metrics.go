// Package metrics exposes the sampler's engine counters to Prometheus
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/justyntemme/vst3sampler/pkg/engine"
)

const namespace = "sampler"

// CacheSource reports decoded-sample cache activity
type CacheSource interface {
	CacheStats() (hits, misses uint64, cached int)
}

// OutputSource reports device buffer underruns
type OutputSource interface {
	Underruns() uint64
}

// Sources are what the collector reads on every scrape. Cache and Output
// are optional.
type Sources struct {
	Engine *engine.Engine
	Cache  CacheSource
	Output OutputSource
}

// SamplerMetrics reads engine atomics at scrape time, so the render
// context never touches Prometheus. Block timings are the exception:
// the render goroutine observes them into a histogram.
type SamplerMetrics struct {
	registry *prometheus.Registry
	src      Sources

	blocks         *prometheus.Desc
	frames         *prometheus.Desc
	notes          *prometheus.Desc
	assetSwaps     *prometheus.Desc
	decodeFailures *prometheus.Desc
	reverbResets   *prometheus.Desc
	activeVoices   *prometheus.Desc
	peak           *prometheus.Desc
	assetVersion   *prometheus.Desc
	eventsDropped  *prometheus.Desc
	cacheRequests  *prometheus.Desc
	cacheEntries   *prometheus.Desc
	underruns      *prometheus.Desc

	renderDuration prometheus.Histogram
}

// NewSamplerMetrics creates and registers the sampler collector
func NewSamplerMetrics(registry *prometheus.Registry, src Sources) (*SamplerMetrics, error) {
	m := &SamplerMetrics{registry: registry, src: src}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func desc(name, help string, labels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
}

func (m *SamplerMetrics) initMetrics() {
	m.blocks = desc("blocks_rendered_total", "Total number of render blocks processed")
	m.frames = desc("frames_rendered_total", "Total number of sample frames rendered")
	m.notes = desc("notes_total", "Note-on events by outcome", "result") // result: started, ignored, stolen
	m.assetSwaps = desc("asset_swaps_total", "Sample assets bound by the render context")
	m.decodeFailures = desc("decode_failures_total", "Sample loads that failed and kept the previous asset")
	m.reverbResets = desc("reverb_resets_total", "Reverb state resets after disabling")
	m.activeVoices = desc("active_voices", "Voices sounding at the end of the last block")
	m.peak = desc("output_peak", "Peak absolute output level of the last block")
	m.assetVersion = desc("asset_version", "Version of the bound sample asset")
	m.eventsDropped = desc("events_dropped_total", "MIDI events dropped before reaching the voices", "source") // source: live, host
	m.cacheRequests = desc("sample_cache_requests_total", "Decoded sample cache lookups", "result") // result: hit, miss
	m.cacheEntries = desc("sample_cache_entries", "Decoded samples currently cached")
	m.underruns = desc("output_underruns_total", "Device callbacks that found too little rendered audio")

	m.renderDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "render_block_duration_seconds",
		Help:      "Time taken to render one block",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12), // 50us to ~100ms
	})
}

// ObserveRender records how long a block took to render
func (m *SamplerMetrics) ObserveRender(d time.Duration) {
	m.renderDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (m *SamplerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Describe implements prometheus.Collector
func (m *SamplerMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.blocks
	ch <- m.frames
	ch <- m.notes
	ch <- m.assetSwaps
	ch <- m.decodeFailures
	ch <- m.reverbResets
	ch <- m.activeVoices
	ch <- m.peak
	ch <- m.assetVersion
	ch <- m.eventsDropped
	ch <- m.cacheRequests
	ch <- m.cacheEntries
	ch <- m.underruns
	m.renderDuration.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *SamplerMetrics) Collect(ch chan<- prometheus.Metric) {
	if e := m.src.Engine; e != nil {
		s := e.Stats().Snapshot()
		counter(ch, m.blocks, s.BlocksRendered)
		counter(ch, m.frames, s.FramesRendered)
		counter(ch, m.notes, s.NotesStarted, "started")
		counter(ch, m.notes, s.NotesIgnored, "ignored")
		counter(ch, m.notes, s.NotesStolen, "stolen")
		counter(ch, m.assetSwaps, s.AssetSwaps)
		counter(ch, m.decodeFailures, s.DecodeFailures)
		counter(ch, m.reverbResets, s.ReverbResets)
		gauge(ch, m.activeVoices, float64(s.ActiveVoices))
		gauge(ch, m.peak, float64(s.PeakLevel))
		gauge(ch, m.assetVersion, float64(s.AssetVersion))
		counter(ch, m.eventsDropped, e.Inbox().Dropped(), "live")
		counter(ch, m.eventsDropped, s.EventsDropped, "host")
	}

	if c := m.src.Cache; c != nil {
		hits, misses, cached := c.CacheStats()
		counter(ch, m.cacheRequests, hits, "hit")
		counter(ch, m.cacheRequests, misses, "miss")
		gauge(ch, m.cacheEntries, float64(cached))
	}

	if o := m.src.Output; o != nil {
		counter(ch, m.underruns, o.Underruns())
	}

	m.renderDuration.Collect(ch)
}

func counter(ch chan<- prometheus.Metric, d *prometheus.Desc, v uint64, labels ...string) {
	ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
}

func gauge(ch chan<- prometheus.Metric, d *prometheus.Desc, v float64, labels ...string) {
	ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
}
