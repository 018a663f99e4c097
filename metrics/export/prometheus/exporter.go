package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() goAccount.MetricsSnapshot
}

type counterDesc struct {
	id   goAccount.MetricID
	desc *prometheus.Desc
}

type histogramDesc struct {
	id   goAccount.MetricID
	desc *prometheus.Desc
}

// Collector turns engine snapshots into const metrics on every scrape.
type Collector struct {
	source     metricsSource
	counters   []counterDesc
	histograms []histogramDesc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector reading from source.
func NewCollector(source metricsSource) *Collector {
	c := &Collector{
		source:     source,
		counters:   make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms: make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, histogramDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help+" Sum is not tracked.", nil, nil),
		})
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d.desc
	}
	for _, d := range c.histograms {
		ch <- d.desc
	}
}

// Collect emits nothing while the engine has metrics disabled.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 {
		return
	}

	for _, d := range c.counters {
		ch <- prometheus.MustNewConstMetric(d.desc, prometheus.CounterValue, float64(snapshot.Counters[d.id]))
	}

	for _, d := range c.histograms {
		raw, ok := snapshot.Histograms[d.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramBounds))
		for i, bound := range internaldefs.HistogramBounds {
			buckets[bound] = cumulative[i]
		}
		ch <- prometheus.MustNewConstHistogram(d.desc, cumulative[len(cumulative)-1], 0, buckets)
	}
}

// Exporter owns a private registry with the engine collector plus the Go
// runtime and process collectors.
type Exporter struct {
	registry *prometheus.Registry
}

// NewPrometheusExporter registers engine metrics on a fresh registry.
func NewPrometheusExporter(engine *goAccount.Engine) *Exporter {
	return NewPrometheusExporterFromSource(engine)
}

func NewPrometheusExporterFromSource(source metricsSource) *Exporter {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(NewCollector(source))
	return &Exporter{registry: registry}
}

// Registry lets callers add their own collectors next to the engine's.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
