package prometheus

import (
	"net/http"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsSource interface {
	MetricsSnapshot() sessionauth.MetricsSnapshot
	AuditDropped() uint64
}

// Collector is a prometheus.Collector that reads an engine snapshot on every
// scrape. It keeps no state of its own.
type Collector struct {
	source     metricsSource
	counters   []*prometheus.Desc
	histograms []*prometheus.Desc
	dropped    *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector describes the newcollector operation and its observable behavior.
func NewCollector(source metricsSource) *Collector {
	c := &Collector{
		source:     source,
		counters:   make([]*prometheus.Desc, len(internaldefs.CounterDefs)),
		histograms: make([]*prometheus.Desc, len(internaldefs.HistogramDefs)),
		dropped: prometheus.NewDesc(
			"sessionauth_audit_dropped_total",
			"Dropped audit events due to dispatcher backpressure.",
			nil, nil,
		),
	}
	for i, def := range internaldefs.CounterDefs {
		c.counters[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	for i, def := range internaldefs.HistogramDefs {
		c.histograms[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	for _, d := range c.histograms {
		ch <- d
	}
	ch <- c.dropped
}

// Collect emits nothing when the engine has metrics disabled.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}

	snapshot := c.source.MetricsSnapshot()
	dropped := c.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return
	}

	for i, def := range internaldefs.CounterDefs {
		ch <- prometheus.MustNewConstMetric(c.counters[i], prometheus.CounterValue, float64(snapshot.Counters[def.ID]))
	}

	for i, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for j, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[j]
		}
		// the engine does not track a sum
		ch <- prometheus.MustNewConstHistogram(c.histograms[i], cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(dropped))
}

// Exporter owns a private registry holding the engine collector. Callers
// mount Handler; nothing is registered globally.
type Exporter struct {
	registry  *prometheus.Registry
	collector *Collector
}

// NewExporter creates an exporter that reads from engine.
func NewExporter(engine *sessionauth.Engine) *Exporter {
	return NewExporterFromSource(engine)
}

// NewExporterFromSource creates an exporter over any snapshot source.
func NewExporterFromSource(source metricsSource) *Exporter {
	registry := prometheus.NewRegistry()
	collector := NewCollector(source)
	registry.MustRegister(collector)
	return &Exporter{
		registry:  registry,
		collector: collector,
	}
}

// Registry exposes the private registry so the binary can add runtime
// collectors next to the engine's.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
