package sessionauth

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledIsNoop(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricLoginLatency, time.Millisecond)

	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLogout)
	if nilMetrics.Value(MetricLogout) != 0 {
		t.Fatal("nil metrics must read zero")
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricSessionCreated)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricSessionCreated); got != 8000 {
		t.Fatalf("expected 8000, got %d", got)
	}
}

func TestMetricsLatencyBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricLoginLatency, 3*time.Millisecond)
	m.Observe(MetricLoginLatency, 300*time.Millisecond)
	m.Observe(MetricLoginLatency, 2*time.Second)
	m.Observe(MetricLogout, time.Millisecond)

	buckets := m.Snapshot().Histograms[MetricLoginLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	if buckets[0] != 1 || buckets[6] != 1 || buckets[7] != 1 {
		t.Fatalf("unexpected buckets %v", buckets)
	}
	if _, ok := m.Snapshot().Counters[MetricLoginLatency]; ok {
		t.Fatal("histogram id must not appear as a counter")
	}
}
