package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() sessionauth.MetricsSnapshot
	AuditDropped() uint64
}

// latency is one engine histogram as two gauges: cumulative bucket counts
// keyed by an "le" attribute, and the total sample count.
type latency struct {
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	bounds  [8]metric.ObserveOption
}

// Exporter publishes engine counters as OTel observable instruments.
type Exporter struct {
	source       metricsSource
	registration metric.Registration

	counters     map[sessionauth.MetricID]metric.Int64ObservableCounter
	latencies    map[sessionauth.MetricID]latency
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers instruments on meter that read from engine.
func NewExporter(meter metric.Meter, engine *sessionauth.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource registers instruments that read from source on each
// collection cycle.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:    source,
		counters:  make(map[sessionauth.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
		latencies: make(map[sessionauth.MetricID]latency, len(internaldefs.HistogramDefs)),
	}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		c, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = c
		observables = append(observables, c)
	}

	for _, def := range internaldefs.HistogramDefs {
		l, err := newLatency(meter, def)
		if err != nil {
			return nil, err
		}
		e.latencies[def.ID] = l
		observables = append(observables, l.buckets, l.count)
	}

	dropped, err := meter.Int64ObservableCounter(
		"sessionauth_audit_dropped_total",
		metric.WithDescription("Audit events dropped because the dispatcher buffer was full."),
	)
	if err != nil {
		return nil, fmt.Errorf("counter sessionauth_audit_dropped_total: %w", err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func newLatency(meter metric.Meter, def internaldefs.HistogramDef) (latency, error) {
	var l latency
	var err error
	l.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket",
		metric.WithDescription(def.Help+" Cumulative count per upper bound."))
	if err != nil {
		return l, fmt.Errorf("gauge %s_bucket: %w", def.Name, err)
	}
	l.count, err = meter.Int64ObservableGauge(def.Name+"_count",
		metric.WithDescription(def.Help+" Total samples."))
	if err != nil {
		return l, fmt.Errorf("gauge %s_count: %w", def.Name, err)
	}
	for i, le := range internaldefs.HistogramBoundLabels() {
		l.bounds[i] = metric.WithAttributes(attribute.String("le", le))
	}
	return l, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for id, c := range e.counters {
		o.ObserveInt64(c, int64(snap.Counters[id]))
	}
	for id, l := range e.latencies {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[id]))
		for i, n := range cumulative {
			o.ObserveInt64(l.buckets, int64(n), l.bounds[i])
		}
		o.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
