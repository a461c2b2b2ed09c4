package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/sessionauth"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot sessionauth.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() sessionauth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := sessionauth.MetricsSnapshot{
		Counters:   make(map[sessionauth.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[sessionauth.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("sessionauth-test")

	src := &fakeSource{
		snapshot: sessionauth.MetricsSnapshot{
			Counters: map[sessionauth.MetricID]uint64{
				sessionauth.MetricLoginSuccess: 3,
			},
			Histograms: map[sessionauth.MetricID][]uint64{
				sessionauth.MetricLoginLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected collected metrics, got none")
	}

	var foundCounter, foundBuckets bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "sessionauth_login_success_total":
				sum, ok := m.Data.(metricdata.Sum[int64])
				if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 3 {
					t.Fatalf("unexpected login_success data %+v", m.Data)
				}
				foundCounter = true
			case "sessionauth_login_latency_seconds_bucket":
				gauge, ok := m.Data.(metricdata.Gauge[int64])
				if !ok || len(gauge.DataPoints) != 8 {
					t.Fatalf("unexpected bucket data %+v", m.Data)
				}
				for _, dp := range gauge.DataPoints {
					le, _ := dp.Attributes.Value(attribute.Key("le"))
					if le.AsString() == "+Inf" && dp.Value != 8 {
						t.Fatalf("+Inf bucket = %d, want 8", dp.Value)
					}
				}
				foundBuckets = true
			}
		}
	}
	if !foundCounter || !foundBuckets {
		t.Fatalf("missing metrics: counter=%v buckets=%v", foundCounter, foundBuckets)
	}
}

func TestExporterRejectsNilSource(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("sessionauth-test")

	if _, err := NewExporterFromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("sessionauth-test")

	src := &fakeSource{
		snapshot: sessionauth.MetricsSnapshot{
			Counters: map[sessionauth.MetricID]uint64{
				sessionauth.MetricLoginSuccess: 1,
			},
			Histograms: map[sessionauth.MetricID][]uint64{
				sessionauth.MetricLoginLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[sessionauth.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
